package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func UpdateJobStatus(ctx context.Context, txn *gorm.DB, jobId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if IsTerminal(status) {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&TrainingJob{Id: jobId}).Updates(updates).Error; err != nil {
		slog.Error("error updating training job status", "job_id", jobId, "status", status, "error", err)
		return err
	}
	return nil
}

func UpdateJobStatusWithMessage(ctx context.Context, txn *gorm.DB, jobId uuid.UUID, status, message string) error {
	updates := map[string]any{"status": status, "message": message}
	if IsTerminal(status) {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&TrainingJob{Id: jobId}).Updates(updates).Error; err != nil {
		slog.Error("error updating training job status", "job_id", jobId, "status", status, "error", err)
		return err
	}
	return nil
}

func MarshalRequirements(requirements []string) (datatypes.JSON, error) {
	data, err := json.Marshal(requirements)
	if err != nil {
		return nil, fmt.Errorf("could not marshal requirements: %w", err)
	}
	return data, nil
}

func UnmarshalRequirements(data datatypes.JSON) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var requirements []string
	if err := json.Unmarshal(data, &requirements); err != nil {
		return nil, fmt.Errorf("invalid requirements JSON: %w", err)
	}
	return requirements, nil
}
