package database_test

import (
	"context"
	"testing"
	"time"

	"cloudfit/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	return db
}

func TestUpdateJobStatus(t *testing.T) {
	db := createDB(t)

	jobId := uuid.New()
	requirements, err := database.MarshalRequirements([]string{"golearn>=0.1"})
	require.NoError(t, err)

	job := database.TrainingJob{
		Id:                 jobId,
		DisplayName:        "test-job",
		ModelType:          "linear_regression",
		EntrypointLocation: "/staging/fit_run_1/training_entrypoint.json",
		OutputLocation:     "/staging/fit_run_1/model",
		ContainerImage:     "training/runtime:latest",
		Requirements:       requirements,
		ReplicaCount:       1,
		Status:             database.JobQueued,
		SubmissionTime:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(&job).Error)

	require.NoError(t, database.UpdateJobStatus(context.Background(), db, jobId, database.JobRunning))

	var running database.TrainingJob
	require.NoError(t, db.First(&running, "id = ?", jobId).Error)
	assert.Equal(t, database.JobRunning, running.Status)
	assert.False(t, running.CompletionTime.Valid)

	require.NoError(t, database.UpdateJobStatus(context.Background(), db, jobId, database.JobCompleted))

	var completed database.TrainingJob
	require.NoError(t, db.First(&completed, "id = ?", jobId).Error)
	assert.Equal(t, database.JobCompleted, completed.Status)
	assert.True(t, completed.CompletionTime.Valid)
}

func TestUpdateJobStatusWithMessage(t *testing.T) {
	db := createDB(t)

	jobId := uuid.New()
	job := database.TrainingJob{
		Id:                 jobId,
		DisplayName:        "failing-job",
		ModelType:          "linear_regression",
		EntrypointLocation: "/staging/fit_run_2/training_entrypoint.json",
		OutputLocation:     "/staging/fit_run_2/model",
		Status:             database.JobQueued,
		SubmissionTime:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(&job).Error)

	require.NoError(t, database.UpdateJobStatusWithMessage(context.Background(), db, jobId, database.JobFailed, "missing required parameter 'target'"))

	var failed database.TrainingJob
	require.NoError(t, db.First(&failed, "id = ?", jobId).Error)
	assert.Equal(t, database.JobFailed, failed.Status)
	assert.Equal(t, "missing required parameter 'target'", failed.Message)
	assert.True(t, failed.CompletionTime.Valid)
}

func TestRequirementsRoundTrip(t *testing.T) {
	data, err := database.MarshalRequirements([]string{"golearn>=0.1", "numpy==1.26"})
	require.NoError(t, err)

	requirements, err := database.UnmarshalRequirements(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"golearn>=0.1", "numpy==1.26"}, requirements)

	empty, err := database.UnmarshalRequirements(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = database.UnmarshalRequirements([]byte("not json"))
	assert.Error(t, err)
}
