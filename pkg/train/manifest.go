package train

import (
	"encoding/json"
	"fmt"
	"io"

	"cloudfit/pkg/args"
)

const (
	// ManifestFileName is the object name every run uses for its entrypoint
	// manifest.
	ManifestFileName = "training_entrypoint.json"

	MethodFit = "fit"
)

// Manifest describes one training run: which model to build, the method to
// invoke, inlined primitive parameters, and storage references for
// parameters that were serialized to the staging location.
type Manifest struct {
	ModelType string
	Method    string

	Primitives []PrimitiveArg `json:"Primitives,omitempty"`
	Complexes  []ComplexArg   `json:"Complexes,omitempty"`

	Requirements   []string `json:"Requirements,omitempty"`
	ContainerImage string
}

type PrimitiveArg struct {
	Name string
	Kind string

	IntValue   int64   `json:"IntValue,omitempty"`
	FloatValue float64 `json:"FloatValue,omitempty"`
	StrValue   string  `json:"StrValue,omitempty"`
}

type ComplexArg struct {
	Name     string
	Codec    string
	Location string
}

func NewPrimitiveArg(v args.Value) (PrimitiveArg, error) {
	switch v.Kind() {
	case args.KindInt:
		i, _ := v.Int()
		return PrimitiveArg{Name: v.Name(), Kind: args.KindInt.String(), IntValue: i}, nil
	case args.KindFloat:
		f, _ := v.Float()
		return PrimitiveArg{Name: v.Name(), Kind: args.KindFloat.String(), FloatValue: f}, nil
	case args.KindStr:
		s, _ := v.Str()
		return PrimitiveArg{Name: v.Name(), Kind: args.KindStr.String(), StrValue: s}, nil
	default:
		return PrimitiveArg{}, fmt.Errorf("parameter '%s' with kind %s cannot be inlined in a manifest", v.Name(), v.Kind())
	}
}

// Value converts the manifest entry back into a typed parameter.
func (p PrimitiveArg) Value() (args.Value, error) {
	switch p.Kind {
	case args.KindInt.String():
		return args.Int(p.Name, p.IntValue), nil
	case args.KindFloat.String():
		return args.Float(p.Name, p.FloatValue), nil
	case args.KindStr.String():
		return args.Str(p.Name, p.StrValue), nil
	default:
		return args.Value{}, fmt.Errorf("unknown kind '%s' for parameter '%s'", p.Kind, p.Name)
	}
}

func (m *Manifest) Render() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error serializing manifest: %w", err)
	}
	return data, nil
}

func ParseManifest(r io.Reader) (*Manifest, error) {
	var manifest Manifest
	if err := json.NewDecoder(r).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}

	if manifest.ModelType == "" {
		return nil, fmt.Errorf("manifest is missing a model type")
	}
	if manifest.Method != MethodFit {
		return nil, fmt.Errorf("unsupported method '%s' in manifest", manifest.Method)
	}

	return &manifest, nil
}
