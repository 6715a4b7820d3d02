package migration_1

import (
	"fmt"

	"gorm.io/gorm"
)

type TrainingJob struct {
	Message string
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&TrainingJob{}, "message"); err != nil {
		return fmt.Errorf("error adding Message column: %w", err)
	}

	if err := db.Model(&TrainingJob{}).
		Where("message IS NULL").
		Update("message", "").Error; err != nil {
		return fmt.Errorf("error setting default value for Message: %w", err)
	}

	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&TrainingJob{}, "Message"); err != nil {
		return fmt.Errorf("error dropping Message column: %w", err)
	}

	return nil
}
