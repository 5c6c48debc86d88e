package service

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shoplens/shop-crawler/internal/db"
	"github.com/shoplens/shop-crawler/internal/scraper"
)

// CreateJob records a new crawl job for a specific user
func CreateJob(dbConn *gorm.DB, userID uint, jobID string, siteURLs []string) (*db.CrawlJob, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID cannot be empty")
	}
	if userID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}

	sitesJSON, err := json.Marshal(siteURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal site list: %w", err)
	}

	job := db.CrawlJob{
		JobID:  jobID,
		UserID: userID,
		Sites:  string(sitesJSON),
		Status: db.StatusQueued,
	}

	if err := dbConn.Create(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobByID retrieves a job by its job id
func GetJobByID(dbConn *gorm.DB, jobID string) (*db.CrawlJob, error) {
	var job db.CrawlJob
	err := dbConn.Where("job_id = ?", jobID).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJobByIDAndUser retrieves a job by job id for a specific user
func GetJobByIDAndUser(dbConn *gorm.DB, jobID string, userID uint) (*db.CrawlJob, error) {
	var job db.CrawlJob
	err := dbConn.Where("job_id = ? AND user_id = ?", jobID, userID).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobsByUser retrieves a user's jobs, newest first
func ListJobsByUser(dbConn *gorm.DB, userID uint) ([]db.CrawlJob, error) {
	var jobs []db.CrawlJob
	err := dbConn.Where("user_id = ?", userID).Order("created_at DESC").Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkJobRunning transitions a job to running and stamps its start time
func MarkJobRunning(dbConn *gorm.DB, jobID string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     db.StatusRunning,
		"started_at": &now,
	}
	return dbConn.Model(&db.CrawlJob{}).Where("job_id = ?", jobID).Updates(updates).Error
}

// UpdateJobProgress mirrors a checkpoint into the job row
func UpdateJobProgress(dbConn *gorm.DB, jobID string, st scraper.Status) error {
	countsJSON, err := json.Marshal(st.SiteCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal site counts: %w", err)
	}

	updates := map[string]interface{}{
		"status":         db.JobStatus(st.Status),
		"current_site":   st.CurrentSite,
		"total_products": st.TotalProducts,
		"site_counts":    string(countsJSON),
	}
	return dbConn.Model(&db.CrawlJob{}).Where("job_id = ?", jobID).Updates(updates).Error
}

// FinishJob records the final outcome of a run. The terminal status itself
// arrives through UpdateJobProgress with the last checkpoint.
func FinishJob(dbConn *gorm.DB, jobID string, sum scraper.Summary) error {
	countsJSON, err := json.Marshal(sum.SiteCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal site counts: %w", err)
	}

	errorMsg := ""
	if !sum.Success {
		errorMsg = sum.Message
	}

	now := time.Now()
	updates := map[string]interface{}{
		"total_products": sum.TotalProducts,
		"site_counts":    string(countsJSON),
		"export_path":    sum.ExportPath,
		"error":          errorMsg,
		"finished_at":    &now,
	}
	return dbConn.Model(&db.CrawlJob{}).Where("job_id = ?", jobID).Updates(updates).Error
}
