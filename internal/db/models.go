package db

import "time"

type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusStopped   JobStatus = "stopped"
)

// CrawlJob represents one crawl run across one or more sites
type CrawlJob struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	JobID         string     `gorm:"uniqueIndex;not null;size:64" json:"job_id"`
	UserID        uint       `gorm:"index" json:"user_id"`
	Sites         string     `gorm:"size:2048" json:"sites"` // JSON: ["https://..."]
	Status        JobStatus  `gorm:"default:'queued'" json:"status"`
	CurrentSite   string     `json:"current_site"`
	TotalProducts int        `json:"total_products"`
	SiteCounts    string     `json:"site_counts"` // JSON: {"site":12,...}
	ExportPath    string     `json:"export_path"`
	Error         string     `json:"error"`
	StartedAt     *time.Time `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	User          User       `gorm:"foreignKey:UserID" json:"-"`
}

// User represents an authenticated user
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	Password  string    `gorm:"not null;size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
