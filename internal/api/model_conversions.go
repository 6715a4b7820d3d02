package api

import (
	"log/slog"

	"cloudfit/internal/database"
	"cloudfit/pkg/api"
)

func convertTrainingJob(j database.TrainingJob) api.TrainingJob {
	requirements, err := database.UnmarshalRequirements(j.Requirements)
	if err != nil {
		slog.Error("error decoding job requirements", "job_id", j.Id, "error", err)
	}

	job := api.TrainingJob{
		Id:                 j.Id,
		DisplayName:        j.DisplayName,
		ModelType:          j.ModelType,
		EntrypointLocation: j.EntrypointLocation,
		OutputLocation:     j.OutputLocation,
		ContainerImage:     j.ContainerImage,
		Requirements:       requirements,
		ReplicaCount:       j.ReplicaCount,
		Status:             j.Status,
		Message:            j.Message,
		SubmissionTime:     j.SubmissionTime,
	}

	if j.CompletionTime.Valid {
		completion := j.CompletionTime.Time
		job.CompletionTime = &completion
	}

	return job
}

func convertTrainingJobs(js []database.TrainingJob) []api.TrainingJob {
	jobs := make([]api.TrainingJob, 0, len(js))
	for _, j := range js {
		jobs = append(jobs, convertTrainingJob(j))
	}
	return jobs
}
