package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobQueued    string = "QUEUED"
	JobRunning   string = "RUNNING"
	JobCompleted string = "COMPLETED"
	JobFailed    string = "FAILED"
)

func IsTerminal(status string) bool {
	return status == JobCompleted || status == JobFailed
}

type TrainingJob struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	DisplayName string `gorm:"not null"`
	ModelType   string `gorm:"size:20;not null"`

	EntrypointLocation string `gorm:"not null"`
	OutputLocation     string `gorm:"not null"`

	ContainerImage string
	Requirements   datatypes.JSON `gorm:"type:jsonb"` // JSON-encoded []string
	ReplicaCount   int            `gorm:"default:1"`

	Status  string `gorm:"size:20;not null"`
	Message string

	SubmissionTime time.Time
	CompletionTime sql.NullTime
}
