package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloudfit/internal/core/utils"
	"cloudfit/internal/database"
	"cloudfit/internal/messaging"
	"cloudfit/internal/serializer"
	"cloudfit/internal/storage"
	"cloudfit/pkg/args"
	"cloudfit/pkg/dataset"
	"cloudfit/pkg/models"
	"cloudfit/pkg/train"

	"gorm.io/gorm"
)

const (
	maxConcurrentJobs  = 64
	maxParallelDecodes = 4
)

// JobProcessor consumes train tasks from the queue and executes them: it
// loads the job's entrypoint manifest, decodes the serialized parameters,
// fits the model, and writes the artifact to the job's output location.
type JobProcessor struct {
	db       *gorm.DB
	receiver messaging.Receiver

	s3Cfg    storage.S3ClientConfig
	codecs   *serializer.Registry
	builders map[models.ModelType]models.ModelBuilder

	jobLocks utils.MutexMap
}

func NewJobProcessor(db *gorm.DB, receiver messaging.Receiver, s3Cfg storage.S3ClientConfig, codecs *serializer.Registry, builders map[models.ModelType]models.ModelBuilder) *JobProcessor {
	return &JobProcessor{
		db:       db,
		receiver: receiver,
		s3Cfg:    s3Cfg,
		codecs:   codecs,
		builders: builders,
		jobLocks: utils.NewMutexMap(maxConcurrentJobs),
	}
}

func (proc *JobProcessor) Start() {
	slog.Info("starting job processor")

	for task := range proc.receiver.Tasks() {
		proc.ProcessTask(task)
	}
}

func (proc *JobProcessor) Stop() {
	slog.Info("stopping job processor")

	proc.receiver.Close()
}

func (proc *JobProcessor) ProcessTask(task messaging.Task) {
	ctx := context.Background()

	var err error
	switch task.Type() {

	case messaging.TrainQueue:
		var payload messaging.TrainTaskPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling train task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processTrainTask(ctx, payload)

	default:
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil { // reject unknown message type
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	if err != nil {
		slog.Error("error processing task", "queue", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
	} else {
		slog.Info("successfully processed task", "queue", task.Type())
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

func (proc *JobProcessor) processTrainTask(ctx context.Context, payload messaging.TrainTaskPayload) error {
	jobId := payload.JobId

	if err := proc.jobLocks.Lock(jobId.String()); err != nil {
		return fmt.Errorf("error locking job %v: %w", jobId, err)
	}
	defer proc.jobLocks.Unlock(jobId.String()) //nolint:errcheck

	slog.Info("processing train task", "job_id", jobId)

	var job database.TrainingJob
	if err := proc.db.WithContext(ctx).First(&job, "id = ?", jobId).Error; err != nil {
		slog.Error("error fetching training job", "job_id", jobId, "error", err)
		return fmt.Errorf("error getting training job: %w", err)
	}

	// Redeliveries and duplicate submissions are acked without rerunning.
	if job.Status != database.JobQueued {
		slog.Info("training job is not queued, skipping", "job_id", jobId, "status", job.Status)
		return nil
	}

	database.UpdateJobStatus(ctx, proc.db, jobId, database.JobRunning) //nolint:errcheck

	if err := proc.runTrainingJob(ctx, job); err != nil {
		database.UpdateJobStatusWithMessage(ctx, proc.db, jobId, database.JobFailed, err.Error()) //nolint:errcheck
		slog.Error("training job failed", "job_id", jobId, "error", err)
		return fmt.Errorf("error running training job: %w", err)
	}

	if err := database.UpdateJobStatus(ctx, proc.db, jobId, database.JobCompleted); err != nil {
		return fmt.Errorf("error updating job status after training: %w", err)
	}

	slog.Info("training job completed", "job_id", jobId)

	return nil
}

func (proc *JobProcessor) runTrainingJob(ctx context.Context, job database.TrainingJob) error {
	modelType := models.ParseModelType(job.ModelType)
	builder, ok := proc.builders[modelType]
	if !ok {
		return fmt.Errorf("unknown model type '%s'", job.ModelType)
	}

	manifest, err := proc.loadManifest(ctx, job.EntrypointLocation)
	if err != nil {
		return err
	}

	if models.ParseModelType(manifest.ModelType) != modelType {
		return fmt.Errorf("manifest model type '%s' does not match job model type '%s'", manifest.ModelType, job.ModelType)
	}

	params, err := proc.decodeParams(ctx, manifest)
	if err != nil {
		return err
	}

	model := builder()

	slog.Info("fitting model", "job_id", job.Id, "model_type", modelType)
	if err := model.Fit(ctx, params); err != nil {
		return fmt.Errorf("error fitting model: %w", err)
	}

	outputStore, outputKey, err := storage.Resolve(job.OutputLocation, proc.s3Cfg)
	if err != nil {
		return fmt.Errorf("error resolving output location: %w", err)
	}

	location, err := serializer.SaveModel(ctx, outputStore, model, outputKey)
	if err != nil {
		return fmt.Errorf("error saving model: %w", err)
	}

	slog.Info("model artifact saved", "job_id", job.Id, "location", location)

	return nil
}

func (proc *JobProcessor) loadManifest(ctx context.Context, location string) (*train.Manifest, error) {
	store, key, err := storage.Resolve(location, proc.s3Cfg)
	if err != nil {
		return nil, fmt.Errorf("error resolving entrypoint location: %w", err)
	}

	obj, err := store.GetObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error reading entrypoint manifest at '%s': %w", location, err)
	}
	defer obj.Close()

	manifest, err := train.ParseManifest(obj)
	if err != nil {
		return nil, fmt.Errorf("error parsing entrypoint manifest at '%s': %w", location, err)
	}

	return manifest, nil
}

func (proc *JobProcessor) decodeParams(ctx context.Context, manifest *train.Manifest) (*args.Params, error) {
	values := make([]args.Value, 0, len(manifest.Primitives)+len(manifest.Complexes))

	for _, prim := range manifest.Primitives {
		value, err := prim.Value()
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}

	queue := make(chan train.ComplexArg, len(manifest.Complexes))
	for _, ref := range manifest.Complexes {
		queue <- ref
	}
	close(queue)

	completed := make(chan utils.CompletedTask[args.Value], len(manifest.Complexes))

	utils.RunInPool(func(arg train.ComplexArg) (args.Value, error) {
		return proc.decodeComplexArg(ctx, arg)
	}, queue, completed, maxParallelDecodes)

	for result := range completed {
		if result.Error != nil {
			return nil, result.Error
		}
		values = append(values, result.Result)
	}

	return args.NewParams(values...)
}

func (proc *JobProcessor) decodeComplexArg(ctx context.Context, arg train.ComplexArg) (args.Value, error) {
	codec, err := proc.codecs.ForName(arg.Codec)
	if err != nil {
		return args.Value{}, fmt.Errorf("parameter '%s': %w", arg.Name, err)
	}

	store, key, err := storage.Resolve(arg.Location, proc.s3Cfg)
	if err != nil {
		return args.Value{}, fmt.Errorf("error resolving location for parameter '%s': %w", arg.Name, err)
	}

	value, err := codec.Decode(ctx, store, key)
	if err != nil {
		return args.Value{}, fmt.Errorf("error decoding parameter '%s': %w", arg.Name, err)
	}

	switch v := value.(type) {
	case *dataset.Table:
		return args.Table(arg.Name, v), nil
	default:
		return args.Value{}, fmt.Errorf("codec '%s' produced unsupported type %T for parameter '%s'", arg.Codec, value, arg.Name)
	}
}
