package train

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"cloudfit/internal/core/utils"
	"cloudfit/internal/serializer"
	"cloudfit/internal/storage"
	"cloudfit/pkg/api"
	"cloudfit/pkg/args"
	"cloudfit/pkg/models"

	"github.com/google/uuid"
)

const (
	DefaultContainerImage = "us-docker.pkg.dev/cloudfit/training/runtime:latest"

	DefaultPollInterval = 2 * time.Second

	serializedParamsDir = "serialized_input_parameters"

	maxParallelUploads = 4
)

func DefaultRequirements() []string {
	return []string{"golearn>=0.1"}
}

// JobService submits and tracks managed training jobs.
type JobService interface {
	SubmitTrainingJob(ctx context.Context, request api.SubmitTrainingJobRequest) (*api.TrainingJob, error)

	GetTrainingJob(ctx context.Context, jobId uuid.UUID) (*api.TrainingJob, error)
}

// S3Config carries credentials for staging locations on s3. Leave it zero
// for file staging or ambient AWS credentials.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type Config struct {
	// StagingLocation is where cloud runs write their inputs, e.g.
	// s3://bucket/prefix or a local directory. Required for cloud mode,
	// unused for local mode.
	StagingLocation string

	DisplayName    string
	ContainerImage string
	Requirements   []string
	PollInterval   time.Duration

	S3 S3Config
}

// Run records one cloud training run. Local runs return a zero Run since
// nothing leaves the process.
type Run struct {
	JobId uuid.UUID

	EntrypointLocation string
	OutputLocation     string

	// Job is the final job record after the run reached a terminal status.
	Job *api.TrainingJob
}

// Trainer fits a model either in process or by shipping the call to a
// managed training job. The mode is chosen per call, not stored, so
// consecutive fits cannot inherit each other's execution strategy.
type Trainer struct {
	modelType models.ModelType
	model     models.Model
	jobs      JobService
	codecs    *serializer.Registry

	staging    storage.ObjectStore
	stagingKey string

	cfg Config
}

func NewTrainer(modelType models.ModelType, model models.Model, jobs JobService, cfg Config) (*Trainer, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}

	if cfg.DisplayName == "" {
		cfg.DisplayName = fmt.Sprintf("%s-training-job", modelType)
	}
	if cfg.ContainerImage == "" {
		cfg.ContainerImage = DefaultContainerImage
	}
	if len(cfg.Requirements) == 0 {
		cfg.Requirements = DefaultRequirements()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	if _, err := ParseRequirements(cfg.Requirements); err != nil {
		return nil, err
	}

	trainer := &Trainer{
		modelType: modelType,
		model:     model,
		jobs:      jobs,
		codecs:    serializer.Default(),
		cfg:       cfg,
	}

	if cfg.StagingLocation != "" {
		staging, stagingKey, err := storage.Resolve(cfg.StagingLocation, storage.S3ClientConfig{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("invalid staging location: %w", err)
		}
		trainer.staging = staging
		trainer.stagingKey = stagingKey
	}

	return trainer, nil
}

// Fit trains the model with the given parameters. ModeLocal runs the fit
// in the calling process. ModeCloud serializes the call to the staging
// location, submits a managed training job, and blocks until the job
// reaches a terminal status. Any other mode is rejected.
func (t *Trainer) Fit(ctx context.Context, mode Mode, values ...args.Value) (*Run, error) {
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	if mode == ModeLocal {
		return t.fitLocal(ctx, values)
	}
	return t.fitCloud(ctx, values)
}

func (t *Trainer) fitLocal(ctx context.Context, values []args.Value) (*Run, error) {
	params, err := args.NewParams(values...)
	if err != nil {
		return nil, err
	}

	if err := t.model.Fit(ctx, params); err != nil {
		return nil, fmt.Errorf("error fitting model: %w", err)
	}

	return &Run{}, nil
}

func (t *Trainer) fitCloud(ctx context.Context, values []args.Value) (*Run, error) {
	if t.staging == nil {
		return nil, fmt.Errorf("staging location must be set to run training in cloud mode")
	}

	// Parameters are checked before anything is written or submitted so a
	// bad call never leaves half a run behind.
	if err := args.Validate(values); err != nil {
		return nil, err
	}

	runKey := path.Join(t.stagingKey, runFolderName(time.Now().UTC()))

	primitives, complexes := args.Partition(values)

	complexArgs, err := t.serializeComplexArgs(ctx, runKey, complexes)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		ModelType:      string(t.modelType),
		Method:         MethodFit,
		Complexes:      complexArgs,
		Requirements:   t.cfg.Requirements,
		ContainerImage: t.cfg.ContainerImage,
	}
	for _, value := range primitives {
		prim, err := NewPrimitiveArg(value)
		if err != nil {
			return nil, err
		}
		manifest.Primitives = append(manifest.Primitives, prim)
	}
	sort.Slice(manifest.Primitives, func(i, j int) bool {
		return manifest.Primitives[i].Name < manifest.Primitives[j].Name
	})

	entrypointLocation, err := t.uploadManifest(ctx, runKey, manifest)
	if err != nil {
		return nil, err
	}

	outputLocation := t.staging.Location(path.Join(runKey, "model"))

	job, err := t.jobs.SubmitTrainingJob(ctx, api.SubmitTrainingJobRequest{
		DisplayName:        t.cfg.DisplayName,
		ModelType:          string(t.modelType),
		EntrypointLocation: entrypointLocation,
		OutputLocation:     outputLocation,
		ContainerImage:     t.cfg.ContainerImage,
		Requirements:       t.cfg.Requirements,
		ReplicaCount:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("error submitting training job: %w", err)
	}

	slog.Info("submitted training job", "job_id", job.Id, "entrypoint", entrypointLocation)

	final, err := t.awaitJob(ctx, job.Id)
	if err != nil {
		return nil, err
	}

	if final.Status == api.JobFailed {
		return nil, fmt.Errorf("training job %s failed: %s", final.Id, final.Message)
	}

	slog.Info("training job completed", "job_id", final.Id, "output", outputLocation)

	return &Run{
		JobId:              final.Id,
		EntrypointLocation: entrypointLocation,
		OutputLocation:     outputLocation,
		Job:                final,
	}, nil
}

// Millisecond precision keeps consecutive fits from landing in the same
// run folder.
func runFolderName(now time.Time) string {
	return "fit_run_" + now.Format("20060102_150405.000")
}

func (t *Trainer) serializeComplexArgs(ctx context.Context, runKey string, complexes []args.Value) ([]ComplexArg, error) {
	if len(complexes) == 0 {
		return nil, nil
	}

	dir := path.Join(runKey, serializedParamsDir)

	queue := make(chan args.Value, len(complexes))
	for _, value := range complexes {
		queue <- value
	}
	close(queue)

	completed := make(chan utils.CompletedTask[ComplexArg], len(complexes))
	utils.RunInPool(func(value args.Value) (ComplexArg, error) {
		return t.serializeComplexArg(ctx, dir, value)
	}, queue, completed, maxParallelUploads)

	serialized := make([]ComplexArg, 0, len(complexes))
	for task := range completed {
		if task.Error != nil {
			return nil, task.Error
		}
		serialized = append(serialized, task.Result)
	}

	// Upload order depends on pool scheduling, sort for stable manifests.
	sort.Slice(serialized, func(i, j int) bool {
		return serialized[i].Name < serialized[j].Name
	})

	return serialized, nil
}

func (t *Trainer) serializeComplexArg(ctx context.Context, dir string, value args.Value) (ComplexArg, error) {
	table, ok := value.Table()
	if !ok {
		return ComplexArg{}, fmt.Errorf("parameter '%s' with kind %s cannot be serialized", value.Name(), value.Kind())
	}

	codec, err := t.codecs.ForValue(table)
	if err != nil {
		return ComplexArg{}, fmt.Errorf("parameter '%s': %w", value.Name(), err)
	}

	location, err := codec.Encode(ctx, t.staging, dir, value.Name(), table)
	if err != nil {
		return ComplexArg{}, fmt.Errorf("error serializing parameter '%s': %w", value.Name(), err)
	}

	slog.Info("serialized input parameter", "name", value.Name(), "location", location)

	return ComplexArg{Name: value.Name(), Codec: codec.Name(), Location: location}, nil
}

func (t *Trainer) uploadManifest(ctx context.Context, runKey string, manifest *Manifest) (string, error) {
	rendered, err := manifest.Render()
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp("", "entrypoint-")
	if err != nil {
		return "", fmt.Errorf("error creating temp dir for entrypoint: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	manifestPath := filepath.Join(tmpDir, ManifestFileName)
	if err := os.WriteFile(manifestPath, rendered, 0644); err != nil {
		return "", fmt.Errorf("error writing entrypoint manifest: %w", err)
	}

	file, err := os.Open(manifestPath)
	if err != nil {
		return "", fmt.Errorf("error opening entrypoint manifest: %w", err)
	}
	defer file.Close()

	key := path.Join(runKey, ManifestFileName)
	if err := t.staging.PutObject(ctx, key, file); err != nil {
		return "", fmt.Errorf("error uploading entrypoint manifest: %w", err)
	}

	return t.staging.Location(key), nil
}

func (t *Trainer) awaitJob(ctx context.Context, jobId uuid.UUID) (*api.TrainingJob, error) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		job, err := t.jobs.GetTrainingJob(ctx, jobId)
		if err != nil {
			return nil, fmt.Errorf("error polling training job %s: %w", jobId, err)
		}

		if api.IsTerminal(job.Status) {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
