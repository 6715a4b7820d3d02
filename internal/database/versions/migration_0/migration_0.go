package migration_0

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TrainingJob struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	DisplayName string `gorm:"not null"`
	ModelType   string `gorm:"size:20;not null"`

	EntrypointLocation string `gorm:"not null"`
	OutputLocation     string `gorm:"not null"`

	ContainerImage string
	Requirements   datatypes.JSON `gorm:"type:jsonb"` // JSON-encoded []string
	ReplicaCount   int            `gorm:"default:1"`

	Status string `gorm:"size:20;not null"`

	SubmissionTime time.Time
	CompletionTime sql.NullTime
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&TrainingJob{}); err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}
