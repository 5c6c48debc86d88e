package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shoplens/shop-crawler/internal/crawler"
	"github.com/shoplens/shop-crawler/internal/db"
	"github.com/shoplens/shop-crawler/internal/jobstore"
	"github.com/shoplens/shop-crawler/internal/middleware"
	"github.com/shoplens/shop-crawler/internal/scraper"
	"github.com/shoplens/shop-crawler/internal/service"
	"github.com/shoplens/shop-crawler/internal/sites"
)

// StartCrawlRequest represents the crawl creation request
type StartCrawlRequest struct {
	Sites []string `json:"sites" binding:"required,min=1,max=7,dive,url"`
}

// JobResponse represents a job row in API responses
type JobResponse struct {
	JobID         string         `json:"job_id"`
	Status        string         `json:"status"`
	CurrentSite   string         `json:"current_site"`
	TotalProducts int            `json:"total_products"`
	SiteCounts    map[string]int `json:"site_counts"`
	ExportPath    string         `json:"export_path,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     string         `json:"created_at"`
	StartedAt     string         `json:"started_at,omitempty"`
	FinishedAt    string         `json:"finished_at,omitempty"`
}

// SiteStats aggregates prices for one site
type SiteStats struct {
	Site     string `json:"site"`
	Products int    `json:"products"`
	MinPrice int    `json:"min_price"`
	MaxPrice int    `json:"max_price"`
	AvgPrice int    `json:"avg_price"`
}

// StartCrawlHandler starts a run over an explicit site list
func StartCrawlHandler(crawlerService *crawler.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}

		var req StartCrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Printf("Crawl request validation error: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request format",
				"details": err.Error(),
			})
			return
		}

		jobID, err := crawlerService.StartRun(user.UserID, req.Sites)
		if err != nil {
			log.Printf("Failed to start run: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start crawl"})
			return
		}

		log.Printf("Started crawl job %s for user %d (%d sites)", jobID, user.UserID, len(req.Sites))
		c.JSON(http.StatusCreated, gin.H{"job_id": jobID, "sites": len(req.Sites)})
	}
}

// StartAllHandler starts a run over every supported site
func StartAllHandler(crawlerService *crawler.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}

		jobID, err := crawlerService.StartFullRun(user.UserID)
		if err != nil {
			log.Printf("Failed to start full run: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start crawl"})
			return
		}

		log.Printf("Started full crawl job %s for user %d", jobID, user.UserID)
		c.JSON(http.StatusCreated, gin.H{"job_id": jobID, "sites": len(sites.TargetURLs())})
	}
}

// ProgressHandler reports the latest run's progress
func ProgressHandler(crawlerService *crawler.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := crawlerService.LatestProgress()
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No runs yet"})
				return
			}
			log.Printf("Failed to read progress: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

// ListJobsHandler lists the authenticated user's jobs
func ListJobsHandler(dbConn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}

		jobs, err := service.ListJobsByUser(dbConn, user.UserID)
		if err != nil {
			log.Printf("Failed to list jobs for user %d: %v", user.UserID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		responses := make([]JobResponse, 0, len(jobs))
		for _, job := range jobs {
			responses = append(responses, jobResponse(&job))
		}
		c.JSON(http.StatusOK, gin.H{"jobs": responses, "total": len(responses)})
	}
}

// JobStatusHandler reports one job's status, merging the live checkpoint
// with the database row
func JobStatusHandler(dbConn *gorm.DB, crawlerService *crawler.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}

		jobID := c.Param("id")
		job, err := service.GetJobByIDAndUser(dbConn, jobID, user.UserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
				return
			}
			log.Printf("Failed to fetch job %s: %v", jobID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		response := gin.H{"job": jobResponse(job)}
		if st, err := crawlerService.Progress(jobID); err == nil {
			response["progress"] = st
		}
		c.JSON(http.StatusOK, response)
	}
}

// JobStatsHandler reports per-site price aggregates over a job's
// checkpointed products
func JobStatsHandler(dbConn *gorm.DB, store *jobstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}

		jobID := c.Param("id")
		if _, err := service.GetJobByIDAndUser(dbConn, jobID, user.UserID); err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
				return
			}
			log.Printf("Failed to fetch job %s: %v", jobID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		products, err := store.ReadProducts(jobID)
		if err != nil {
			if os.IsNotExist(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No products recorded for this job"})
				return
			}
			log.Printf("Failed to read products for job %s: %v", jobID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"job_id": jobID,
			"total":  len(products),
			"sites":  siteStats(products),
		})
	}
}

// StopJobHandler requests cooperative cancellation of a running job
func StopJobHandler(dbConn *gorm.DB, crawlerService *crawler.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}

		jobID := c.Param("id")
		if _, err := service.GetJobByIDAndUser(dbConn, jobID, user.UserID); err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
				return
			}
			log.Printf("Failed to fetch job %s: %v", jobID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		if err := crawlerService.StopRun(jobID); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}

		log.Printf("Stop requested for job %s by user %d", jobID, user.UserID)
		c.JSON(http.StatusOK, gin.H{"success": true, "job_id": jobID})
	}
}

// DownloadHandler serves a job's Excel report
func DownloadHandler(dbConn *gorm.DB, store *jobstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}

		jobID := c.Param("id")
		if _, err := service.GetJobByIDAndUser(dbConn, jobID, user.UserID); err != nil {
			if err == gorm.ErrRecordNotFound {
				c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
				return
			}
			log.Printf("Failed to fetch job %s: %v", jobID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		path := store.ExportPath(jobID)
		if _, err := os.Stat(path); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not generated yet"})
			return
		}
		c.FileAttachment(path, jobID+".xlsx")
	}
}

// SitesHandler lists the supported storefronts
func SitesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog := sites.Catalog()
		c.JSON(http.StatusOK, gin.H{"sites": catalog, "total": len(catalog)})
	}
}

func jobResponse(job *db.CrawlJob) JobResponse {
	resp := JobResponse{
		JobID:         job.JobID,
		Status:        string(job.Status),
		CurrentSite:   job.CurrentSite,
		TotalProducts: job.TotalProducts,
		CreatedAt:     job.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if job.SiteCounts != "" {
		if err := json.Unmarshal([]byte(job.SiteCounts), &resp.SiteCounts); err != nil {
			log.Printf("Failed to parse site counts for job %s: %v", job.JobID, err)
		}
	}
	resp.ExportPath = job.ExportPath
	resp.Error = job.Error
	if job.StartedAt != nil {
		resp.StartedAt = job.StartedAt.Format("2006-01-02T15:04:05Z")
	}
	if job.FinishedAt != nil {
		resp.FinishedAt = job.FinishedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

// siteStats folds product prices into per-site aggregates, sorted by site
// name for stable output.
func siteStats(products []scraper.Product) []SiteStats {
	type agg struct {
		count, sum, min, max int
	}
	byName := make(map[string]*agg)
	for _, p := range products {
		price, err := strconv.Atoi(p.Price)
		if err != nil {
			continue
		}
		a, ok := byName[p.Site]
		if !ok {
			a = &agg{min: price, max: price}
			byName[p.Site] = a
		}
		a.count++
		a.sum += price
		if price < a.min {
			a.min = price
		}
		if price > a.max {
			a.max = price
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	stats := make([]SiteStats, 0, len(names))
	for _, name := range names {
		a := byName[name]
		stats = append(stats, SiteStats{
			Site:     name,
			Products: a.count,
			MinPrice: a.min,
			MaxPrice: a.max,
			AvgPrice: a.sum / a.count,
		})
	}
	return stats
}
