package linear

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cloudfit/pkg/args"
	"cloudfit/pkg/dataset"

	"github.com/mitchellh/mapstructure"
	"github.com/sjwhitworth/golearn/base"
)

const modelFile = "model.json"

const (
	defaultEpochs       = int64(1)
	defaultLearningRate = 0.01
)

// Regression is a linear regression model trained with stochastic gradient
// descent. Weights start at zero, so training is deterministic for identical
// inputs.
type Regression struct {
	Fitted       bool      `json:"fitted" mapstructure:"fitted"`
	Intercept    float64   `json:"intercept" mapstructure:"intercept"`
	Coefficients []float64 `json:"coefficients" mapstructure:"coefficients"`
	Features     []string  `json:"features" mapstructure:"features"`
	Target       string    `json:"target" mapstructure:"target"`
}

func NewRegression() *Regression {
	return &Regression{Fitted: false}
}

// Fit trains on the 'data' table parameter. The 'target' parameter names the
// column to regress; 'epochs' and 'learning_rate' are optional.
func (lr *Regression) Fit(ctx context.Context, params *args.Params) error {
	target, err := params.RequireStr("target")
	if err != nil {
		return err
	}
	data, err := params.RequireTable("data")
	if err != nil {
		return err
	}

	epochs := defaultEpochs
	if v, ok := params.Int("epochs"); ok {
		epochs = v
	}
	if epochs < 1 {
		return fmt.Errorf("epochs must be positive, got %d", epochs)
	}

	learningRate := defaultLearningRate
	if v, ok := params.Float("learning_rate"); ok {
		learningRate = v
	}
	if learningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %v", learningRate)
	}

	inst := data.Grid()
	_, rows := inst.Size()
	if rows == 0 {
		return errors.New("training data has no rows")
	}

	var classAttr base.Attribute
	attrs := make([]base.Attribute, 0)
	for _, a := range inst.AllAttributes() {
		floatAttr, ok := a.(*base.FloatAttribute)
		if !ok {
			continue
		}
		if floatAttr.GetName() == target {
			classAttr = floatAttr
		} else {
			attrs = append(attrs, floatAttr)
		}
	}
	if classAttr == nil {
		return fmt.Errorf("target column '%s' is not among the table columns", target)
	}
	if len(attrs) == 0 {
		return errors.New("training data has no feature columns besides the target")
	}

	attrSpecs := base.ResolveAttributes(inst, attrs)
	classSpec := base.ResolveAttributes(inst, []base.Attribute{classAttr})[0]

	cols := len(attrs) + 1
	coefficients := make([]float64, cols)

	for epoch := int64(0); epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := 0; i < rows; i++ {
			out := coefficients[0]
			for j := 1; j < cols; j++ {
				out += base.UnpackBytesToFloat(inst.Get(attrSpecs[j-1], i)) * coefficients[j]
			}
			residual := base.UnpackBytesToFloat(inst.Get(classSpec, i)) - out
			coefficients[0] += learningRate * residual
			for j := 1; j < cols; j++ {
				coefficients[j] += learningRate * residual * base.UnpackBytesToFloat(inst.Get(attrSpecs[j-1], i))
			}
		}
	}

	features := make([]string, len(attrs))
	for i, a := range attrs {
		features[i] = a.GetName()
	}

	lr.Intercept = coefficients[0]
	lr.Coefficients = coefficients[1:]
	lr.Features = features
	lr.Target = target
	lr.Fitted = true
	return nil
}

// Predict returns one prediction per row. The table must contain every
// feature column the model was trained on; extra columns are ignored.
func (lr *Regression) Predict(data *dataset.Table) ([]float64, error) {
	if !lr.Fitted {
		return nil, errors.New("model has not been fitted")
	}

	inst := data.Grid()
	allAttrs := inst.AllAttributes()
	attrs := make([]base.Attribute, len(lr.Features))
	for i, name := range lr.Features {
		var found base.Attribute
		for _, a := range allAttrs {
			if a.GetName() == name {
				found = a
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("table is missing feature column '%s'", name)
		}
		attrs[i] = found
	}
	attrSpecs := base.ResolveAttributes(inst, attrs)

	_, rows := inst.Size()
	predictions := make([]float64, rows)
	err := inst.MapOverRows(attrSpecs, func(row [][]byte, i int) (bool, error) {
		prediction := lr.Intercept
		for j, r := range row {
			prediction += base.UnpackBytesToFloat(r) * lr.Coefficients[j]
		}
		predictions[i] = prediction
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return predictions, nil
}

func (lr *Regression) Save(dir string) error {
	data, err := json.MarshalIndent(lr, "", "  ")
	if err != nil {
		return fmt.Errorf("error serializing model: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, modelFile), data, 0644); err != nil {
		return fmt.Errorf("error writing model file: %w", err)
	}
	return nil
}

func Load(modelDir string) (*Regression, error) {
	data, err := os.ReadFile(filepath.Join(modelDir, modelFile))
	if err != nil {
		return nil, fmt.Errorf("error reading model file: %w", err)
	}

	var lr Regression
	if err := json.Unmarshal(data, &lr); err != nil {
		return nil, fmt.Errorf("error parsing model file: %w", err)
	}
	return &lr, nil
}

func (lr *Regression) UnmarshalJSON(data []byte) error {
	var d map[string]interface{}
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	return mapstructure.Decode(d, lr)
}
