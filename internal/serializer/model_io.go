package serializer

import (
	"context"
	"fmt"
	"os"

	"cloudfit/internal/storage"
	"cloudfit/pkg/models"
)

// SaveModel writes the model artifact into a temp dir, uploads it under key,
// and returns the absolute location of the artifact.
func SaveModel(ctx context.Context, store storage.ObjectStore, model models.Model, key string) (string, error) {
	dir, err := os.MkdirTemp("", "model-save-")
	if err != nil {
		return "", fmt.Errorf("error creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := model.Save(dir); err != nil {
		return "", fmt.Errorf("error saving model: %w", err)
	}

	if err := store.UploadDir(ctx, dir, key); err != nil {
		return "", fmt.Errorf("error uploading model to '%s': %w", store.Location(key), err)
	}

	return store.Location(key), nil
}

// LoadModel downloads the artifact under key and restores it with the loader
// registered for the model type.
func LoadModel(ctx context.Context, store storage.ObjectStore, loaders map[models.ModelType]models.ModelLoader, modelType models.ModelType, key string) (models.Model, error) {
	loader, ok := loaders[modelType]
	if !ok {
		return nil, fmt.Errorf("unknown model type '%s'", modelType)
	}

	dir, err := os.MkdirTemp("", "model-load-")
	if err != nil {
		return nil, fmt.Errorf("error creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := store.DownloadDir(ctx, key, dir, true); err != nil {
		return nil, fmt.Errorf("reading the model at '%s': %w", store.Location(key), err)
	}

	model, err := loader(dir)
	if err != nil {
		return nil, fmt.Errorf("reading the model at '%s': %w", store.Location(key), err)
	}

	return model, nil
}
