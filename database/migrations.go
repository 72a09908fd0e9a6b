package database

import (
	"notewiz-notes/notewiz/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RunMigrations brings the user, task and notification tables up to date.
func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.Notification{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Migration failed")
		return err
	}
	return nil
}
