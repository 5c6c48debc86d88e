package service

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/shoplens/shop-crawler/internal/db"
)

// CreateUser records a new user. The password must already be hashed.
func CreateUser(dbConn *gorm.DB, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password cannot be empty")
	}

	user := db.User{
		Username: username,
		Password: password,
	}

	if err := dbConn.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return nil
}

// GetUserByUsername retrieves a user by username. Lookup errors are returned
// unwrapped so callers can match gorm.ErrRecordNotFound for unknown users.
func GetUserByUsername(dbConn *gorm.DB, username string) (*db.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	var user db.User
	if err := dbConn.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
