package db

import (
	"log"

	"gorm.io/gorm"
)

// runMigrations performs database migrations
func runMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &CrawlJob{}); err != nil {
		return err
	}

	// Handle existing jobs that don't have a user_id
	return migrateOrphanedJobs(db)
}

// migrateOrphanedJobs assigns existing jobs without user_id to the first admin user
func migrateOrphanedJobs(db *gorm.DB) error {
	var count int64
	if err := db.Model(&CrawlJob{}).Where("user_id = 0 OR user_id IS NULL").Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		return nil
	}

	// Find the first admin user to assign orphaned jobs to
	var adminUser User
	if err := db.First(&adminUser).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			// No users exist yet, that's fine
			return nil
		}
		return err
	}

	result := db.Model(&CrawlJob{}).Where("user_id = 0 OR user_id IS NULL").Update("user_id", adminUser.ID)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Migrated %d orphaned jobs to user %d (%s)", result.RowsAffected, adminUser.ID, adminUser.Username)
	}

	return nil
}
