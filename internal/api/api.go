package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cloudfit/internal/database"
	"cloudfit/internal/messaging"
	"cloudfit/internal/storage"
	"cloudfit/pkg/api"
	"cloudfit/pkg/models"
	"cloudfit/pkg/train"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type BackendService struct {
	db         *gorm.DB
	publisher  messaging.Publisher
	modelTypes map[models.ModelType]models.ModelBuilder
}

func NewBackendService(db *gorm.DB, publisher messaging.Publisher) *BackendService {
	return &BackendService{
		db:         db,
		publisher:  publisher,
		modelTypes: models.NewModelBuilders(),
	}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(s.Health))
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", RestHandler(s.SubmitTrainingJob))
		r.Get("/", RestHandler(s.ListTrainingJobs))
		r.Get("/{job_id}", RestHandler(s.GetTrainingJob))
	})
}

func (s *BackendService) Health(r *http.Request) (any, error) {
	return api.HealthResponse{Status: "ok"}, nil
}

func (s *BackendService) SubmitTrainingJob(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SubmitTrainingJobRequest](r)
	if err != nil {
		return nil, err
	}

	if req.DisplayName == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "display name is required")
	}
	if err := validateName(req.DisplayName); err != nil {
		return nil, err
	}

	modelType := models.ParseModelType(req.ModelType)
	if _, ok := s.modelTypes[modelType]; !ok {
		return nil, CodedErrorf(http.StatusBadRequest, "unsupported model type '%s'", req.ModelType)
	}

	if req.EntrypointLocation == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "entrypoint location is required")
	}
	if _, err := storage.ParseLocation(req.EntrypointLocation); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid entrypoint location: %v", err)
	}

	if req.OutputLocation == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "output location is required")
	}
	if _, err := storage.ParseLocation(req.OutputLocation); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid output location: %v", err)
	}

	if req.ReplicaCount == 0 {
		req.ReplicaCount = 1
	}
	if req.ReplicaCount < 1 {
		return nil, CodedErrorf(http.StatusBadRequest, "replica count must be at least 1")
	}

	if _, err := train.ParseRequirements(req.Requirements); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid requirements: %v", err)
	}

	requirements, err := database.MarshalRequirements(req.Requirements)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to encode requirements")
	}

	ctx := r.Context()

	job := database.TrainingJob{
		Id:                 uuid.New(),
		DisplayName:        req.DisplayName,
		ModelType:          string(modelType),
		EntrypointLocation: req.EntrypointLocation,
		OutputLocation:     req.OutputLocation,
		ContainerImage:     req.ContainerImage,
		Requirements:       requirements,
		ReplicaCount:       req.ReplicaCount,
		Status:             database.JobQueued,
		SubmissionTime:     time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		slog.Error("error creating training job", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create training job")
	}

	payload := messaging.TrainTaskPayload{JobId: job.Id}
	if err := s.publisher.PublishTrainTask(ctx, payload); err != nil {
		slog.Error("error publishing train task", "job_id", job.Id, "error", err)
		if err := database.UpdateJobStatusWithMessage(ctx, s.db, job.Id, database.JobFailed, "failed to queue training task"); err != nil {
			slog.Error("error marking unqueued job as failed", "job_id", job.Id, "error", err)
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to queue training task")
	}

	slog.Info("submitted training job", "job_id", job.Id, "model_type", modelType)
	return convertTrainingJob(job), nil
}

func (s *BackendService) GetTrainingJob(r *http.Request) (any, error) {
	jobId, err := URLParamUUID(r, "job_id")
	if err != nil {
		return nil, err
	}

	ctx := r.Context()

	var job database.TrainingJob
	if err := s.db.WithContext(ctx).First(&job, "id = ?", jobId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "training job not found")
		}
		slog.Error("error getting training job", "job_id", jobId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving training job")
	}

	return convertTrainingJob(job), nil
}

func (s *BackendService) ListTrainingJobs(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[api.ListTrainingJobsQuery](r)
	if err != nil {
		return nil, err
	}

	if query.Status != "" {
		switch query.Status {
		case database.JobQueued, database.JobRunning, database.JobCompleted, database.JobFailed:
		default:
			return nil, CodedErrorf(http.StatusBadRequest, "unknown status '%s'", query.Status)
		}
	}

	if query.Limit <= 0 {
		query.Limit = defaultListLimit
	}
	if query.Limit > maxListLimit {
		query.Limit = maxListLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	ctx := r.Context()

	stmt := s.db.WithContext(ctx).Model(&database.TrainingJob{})
	if query.Status != "" {
		stmt = stmt.Where("status = ?", query.Status)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		slog.Error("error counting training jobs", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing training jobs")
	}

	var jobs []database.TrainingJob
	if err := stmt.Order("submission_time DESC").Limit(query.Limit).Offset(query.Offset).Find(&jobs).Error; err != nil {
		slog.Error("error listing training jobs", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing training jobs")
	}

	return api.TrainingJobList{Jobs: convertTrainingJobs(jobs), Total: total}, nil
}
