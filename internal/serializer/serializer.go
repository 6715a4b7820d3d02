package serializer

import (
	"context"
	"fmt"
	"reflect"

	"cloudfit/internal/storage"
	"cloudfit/pkg/dataset"
)

// Codec encodes one kind of complex parameter to an object store and back.
// Encode writes under dir/name within the store and returns the absolute
// location recorded in the job manifest. Decode reads the key within the
// store that location resolved to.
type Codec interface {
	Name() string

	Encode(ctx context.Context, store storage.ObjectStore, dir, name string, value any) (string, error)

	Decode(ctx context.Context, store storage.ObjectStore, key string) (any, error)
}

// Registry maps parameter value types to codecs. Lookups use the exact
// dynamic type, no interface or embedding walks.
type Registry struct {
	byType map[reflect.Type]Codec
	byName map[string]Codec
}

func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]Codec),
		byName: make(map[string]Codec),
	}
}

// Register binds the dynamic type of sample and the codec's name to codec.
func (r *Registry) Register(sample any, codec Codec) {
	r.byType[reflect.TypeOf(sample)] = codec
	r.byName[codec.Name()] = codec
}

func (r *Registry) ForValue(value any) (Codec, error) {
	codec, ok := r.byType[reflect.TypeOf(value)]
	if !ok {
		return nil, fmt.Errorf("no codec registered for type %T", value)
	}
	return codec, nil
}

func (r *Registry) ForName(name string) (Codec, error) {
	codec, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("no codec registered for name '%s'", name)
	}
	return codec, nil
}

// Default returns a registry with the built in codecs.
func Default() *Registry {
	registry := NewRegistry()
	registry.Register((*dataset.Table)(nil), TableCodec{})
	return registry
}
