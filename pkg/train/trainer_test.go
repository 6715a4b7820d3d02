package train_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"cloudfit/pkg/api"
	"cloudfit/pkg/args"
	"cloudfit/pkg/dataset"
	"cloudfit/pkg/models"
	"cloudfit/pkg/models/linear"
	"cloudfit/pkg/train"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJobService scripts the lifecycle of a single job: each poll returns
// the next status until the last one, which repeats.
type fakeJobService struct {
	submitted []api.SubmitTrainingJobRequest
	job       *api.TrainingJob

	statuses []string
	message  string

	submitErr error

	gets int
}

func (f *fakeJobService) SubmitTrainingJob(ctx context.Context, request api.SubmitTrainingJobRequest) (*api.TrainingJob, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}

	f.submitted = append(f.submitted, request)
	f.job = &api.TrainingJob{
		Id:                 uuid.New(),
		DisplayName:        request.DisplayName,
		ModelType:          request.ModelType,
		EntrypointLocation: request.EntrypointLocation,
		OutputLocation:     request.OutputLocation,
		ContainerImage:     request.ContainerImage,
		Requirements:       request.Requirements,
		ReplicaCount:       request.ReplicaCount,
		Status:             api.JobQueued,
		SubmissionTime:     time.Now().UTC(),
	}
	return f.job, nil
}

func (f *fakeJobService) GetTrainingJob(ctx context.Context, jobId uuid.UUID) (*api.TrainingJob, error) {
	if f.job == nil || f.job.Id != jobId {
		return nil, fmt.Errorf("job %s not found", jobId)
	}

	next := f.statuses[min(f.gets, len(f.statuses)-1)]
	f.gets++

	job := *f.job
	job.Status = next
	if next == api.JobFailed {
		job.Message = f.message
	}
	return &job, nil
}

func trainingTable(t *testing.T) *dataset.Table {
	table, err := dataset.New([]string{"x", "y"}, "y")
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		x := float64(i) / 10
		require.NoError(t, table.Append([]float64{x, 1 + 2*x}))
	}
	return table
}

func fitArgs(t *testing.T) []args.Value {
	return []args.Value{
		args.Str("target", "y"),
		args.Int("epochs", 500),
		args.Float("learning_rate", 0.05),
		args.Table("data", trainingTable(t)),
	}
}

func TestNewTrainer(t *testing.T) {
	t.Run("RequiresModel", func(t *testing.T) {
		_, err := train.NewTrainer(models.LinearRegression, nil, &fakeJobService{}, train.Config{})
		assert.ErrorContains(t, err, "model is required")
	})

	t.Run("RejectsBadRequirements", func(t *testing.T) {
		_, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), &fakeJobService{}, train.Config{
			Requirements: []string{"golearn@0.1"},
		})
		assert.ErrorContains(t, err, "error parsing requirement 'golearn@0.1'")
	})

	t.Run("RejectsBadStagingLocation", func(t *testing.T) {
		_, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), &fakeJobService{}, train.Config{
			StagingLocation: "ftp://bucket/prefix",
		})
		assert.ErrorContains(t, err, "invalid staging location")
	})
}

func TestFitRejectsUnknownMode(t *testing.T) {
	jobs := &fakeJobService{}
	trainer, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), jobs, train.Config{})
	require.NoError(t, err)

	_, err = trainer.Fit(context.Background(), train.Mode("turbo"), fitArgs(t)...)
	assert.ErrorContains(t, err, "unknown training mode 'turbo'")

	_, err = trainer.Fit(context.Background(), train.Mode("Local"), fitArgs(t)...)
	assert.ErrorContains(t, err, "unknown training mode 'Local'")

	assert.Empty(t, jobs.submitted)
}

func TestFitLocal(t *testing.T) {
	jobs := &fakeJobService{}
	model := linear.NewRegression()
	trainer, err := train.NewTrainer(models.LinearRegression, model, jobs, train.Config{})
	require.NoError(t, err)

	run, err := trainer.Fit(context.Background(), train.ModeLocal, fitArgs(t)...)
	require.NoError(t, err)

	assert.Equal(t, uuid.Nil, run.JobId)
	assert.Empty(t, jobs.submitted)

	predictions, err := model.Predict(trainingTable(t))
	require.NoError(t, err)
	require.Len(t, predictions, 20)
	for i, prediction := range predictions {
		x := float64(i) / 10
		assert.InDelta(t, 1+2*x, prediction, 0.1)
	}
}

func TestFitLocalValidatesArgs(t *testing.T) {
	trainer, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), &fakeJobService{}, train.Config{})
	require.NoError(t, err)

	_, err = trainer.Fit(context.Background(), train.ModeLocal, args.Int("", 3))
	assert.ErrorContains(t, err, "parameter with empty name")
}

func TestFitCloudRequiresStaging(t *testing.T) {
	jobs := &fakeJobService{}
	trainer, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), jobs, train.Config{})
	require.NoError(t, err)

	_, err = trainer.Fit(context.Background(), train.ModeCloud, fitArgs(t)...)
	assert.ErrorContains(t, err, "staging location must be set to run training in cloud mode")
	assert.Empty(t, jobs.submitted)
}

func TestFitCloudValidatesArgsBeforeUpload(t *testing.T) {
	staging := t.TempDir()
	jobs := &fakeJobService{}
	trainer, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), jobs, train.Config{
		StagingLocation: staging,
	})
	require.NoError(t, err)

	_, err = trainer.Fit(context.Background(), train.ModeCloud,
		args.Str("target", "y"),
		args.Str("target", "z"),
	)
	assert.ErrorContains(t, err, "duplicate parameter 'target'")

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging should be untouched when validation fails")
	assert.Empty(t, jobs.submitted)
}

func TestFitCloud(t *testing.T) {
	staging := t.TempDir()
	jobs := &fakeJobService{statuses: []string{api.JobQueued, api.JobRunning, api.JobCompleted}}
	trainer, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), jobs, train.Config{
		StagingLocation: staging,
		PollInterval:    time.Millisecond,
	})
	require.NoError(t, err)

	run, err := trainer.Fit(context.Background(), train.ModeCloud, fitArgs(t)...)
	require.NoError(t, err)

	require.Len(t, jobs.submitted, 1)
	request := jobs.submitted[0]
	assert.Equal(t, "linear_regression-training-job", request.DisplayName)
	assert.Equal(t, "linear_regression", request.ModelType)
	assert.Equal(t, train.DefaultContainerImage, request.ContainerImage)
	assert.Equal(t, train.DefaultRequirements(), request.Requirements)
	assert.Equal(t, 1, request.ReplicaCount)

	assert.Equal(t, jobs.job.Id, run.JobId)
	assert.Equal(t, api.JobCompleted, run.Job.Status)
	assert.Equal(t, 3, jobs.gets, "should poll until the job is terminal")

	assert.True(t, strings.HasPrefix(run.EntrypointLocation, staging), "entrypoint should be inside the staging location")
	assert.True(t, strings.HasSuffix(run.EntrypointLocation, "/"+train.ManifestFileName))
	assert.True(t, strings.HasSuffix(run.OutputLocation, "/model"))

	manifestFile, err := os.Open(run.EntrypointLocation)
	require.NoError(t, err)
	defer manifestFile.Close()

	manifest, err := train.ParseManifest(manifestFile)
	require.NoError(t, err)

	assert.Equal(t, "linear_regression", manifest.ModelType)
	assert.Equal(t, train.MethodFit, manifest.Method)
	assert.Equal(t, train.DefaultRequirements(), manifest.Requirements)

	names := make([]string, 0, len(manifest.Primitives))
	for _, prim := range manifest.Primitives {
		names = append(names, prim.Name)
	}
	assert.Equal(t, []string{"epochs", "learning_rate", "target"}, names)

	require.Len(t, manifest.Complexes, 1)
	data := manifest.Complexes[0]
	assert.Equal(t, "data", data.Name)
	assert.Equal(t, "table", data.Codec)
	assert.Contains(t, data.Location, "serialized_input_parameters/data.csv")

	serialized, err := os.Open(data.Location)
	require.NoError(t, err)
	defer serialized.Close()

	table, err := dataset.FromCSV(serialized, "")
	require.NoError(t, err)
	assert.Equal(t, 20, table.Rows())
	assert.Equal(t, "y", table.Target())
}

func TestFitCloudSubmitError(t *testing.T) {
	jobs := &fakeJobService{submitErr: errors.New("backend offline")}
	trainer, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), jobs, train.Config{
		StagingLocation: t.TempDir(),
	})
	require.NoError(t, err)

	_, err = trainer.Fit(context.Background(), train.ModeCloud, fitArgs(t)...)
	assert.ErrorContains(t, err, "error submitting training job")
	assert.ErrorContains(t, err, "backend offline")
}

func TestFitCloudFailedJob(t *testing.T) {
	jobs := &fakeJobService{
		statuses: []string{api.JobRunning, api.JobFailed},
		message:  "missing required parameter 'target'",
	}
	trainer, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), jobs, train.Config{
		StagingLocation: t.TempDir(),
		PollInterval:    time.Millisecond,
	})
	require.NoError(t, err)

	run, err := trainer.Fit(context.Background(), train.ModeCloud, fitArgs(t)...)
	assert.Nil(t, run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
	assert.Contains(t, err.Error(), "missing required parameter 'target'")
}

func TestFitCloudContextCancelled(t *testing.T) {
	jobs := &fakeJobService{statuses: []string{api.JobRunning}}
	trainer, err := train.NewTrainer(models.LinearRegression, linear.NewRegression(), jobs, train.Config{
		StagingLocation: t.TempDir(),
		PollInterval:    5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = trainer.Fit(ctx, train.ModeCloud, fitArgs(t)...)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
