package models

import (
	"context"
	"strings"

	"cloudfit/pkg/args"
	"cloudfit/pkg/dataset"
	"cloudfit/pkg/models/linear"
)

// ModelType identifies a trainable model implementation.
type ModelType string

const (
	LinearRegression ModelType = "linear_regression"
)

func ParseModelType(s string) ModelType {
	return ModelType(strings.ToLower(strings.TrimSpace(s)))
}

// Model is a trainable model. Fit reads its arguments, including the
// training data, from params. Save writes the model artifact into dir so a
// matching ModelLoader can restore it.
type Model interface {
	Fit(ctx context.Context, params *args.Params) error

	Predict(data *dataset.Table) ([]float64, error)

	Save(dir string) error
}

// ModelBuilder creates a fresh, untrained model.
type ModelBuilder func() Model

// ModelLoader restores a saved model from the artifact directory.
type ModelLoader func(modelDir string) (Model, error)

func NewModelBuilders() map[ModelType]ModelBuilder {
	return map[ModelType]ModelBuilder{
		LinearRegression: func() Model {
			return linear.NewRegression()
		},
	}
}

func NewModelLoaders() map[ModelType]ModelLoader {
	return map[ModelType]ModelLoader{
		LinearRegression: func(modelDir string) (Model, error) {
			return linear.Load(modelDir)
		},
	}
}
