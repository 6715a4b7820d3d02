package api

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobQueued    string = "QUEUED"
	JobRunning   string = "RUNNING"
	JobCompleted string = "COMPLETED"
	JobFailed    string = "FAILED"
)

// IsTerminal reports whether a job in the given status will never change
// status again.
func IsTerminal(status string) bool {
	return status == JobCompleted || status == JobFailed
}

type SubmitTrainingJobRequest struct {
	DisplayName string

	ModelType          string
	EntrypointLocation string
	OutputLocation     string

	ContainerImage string
	Requirements   []string
	ReplicaCount   int
}

type TrainingJob struct {
	Id uuid.UUID

	DisplayName string

	ModelType          string
	EntrypointLocation string
	OutputLocation     string

	ContainerImage string
	Requirements   []string
	ReplicaCount   int

	Status  string
	Message string `json:"Message,omitempty"`

	SubmissionTime time.Time
	CompletionTime *time.Time `json:"CompletionTime,omitempty"`
}

type ListTrainingJobsQuery struct {
	Status string `schema:"status"`
	Limit  int    `schema:"limit"`
	Offset int    `schema:"offset"`
}

type TrainingJobList struct {
	Jobs  []TrainingJob
	Total int64
}

type HealthResponse struct {
	Status string
}
