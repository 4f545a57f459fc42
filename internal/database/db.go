package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/jobtrackr/jobtrackr-api/internal/models"
)

// Connect opens the Postgres connection and runs migrations. The returned
// *gorm.DB is long-lived process state, safe for concurrent use across
// in-flight requests.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Job{}); err != nil {
		return nil, err
	}

	return db, nil
}
