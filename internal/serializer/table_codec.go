package serializer

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"cloudfit/internal/storage"
	"cloudfit/pkg/dataset"
)

// TableCodec stores tables as csv. The target column is written last, which
// is also where FromCSV looks for it, so no sidecar metadata is needed.
type TableCodec struct{}

var _ Codec = TableCodec{}

func (TableCodec) Name() string { return "table" }

func (TableCodec) Encode(ctx context.Context, store storage.ObjectStore, dir, name string, value any) (string, error) {
	table, ok := value.(*dataset.Table)
	if !ok {
		return "", fmt.Errorf("table codec cannot encode %T", value)
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		return "", fmt.Errorf("encoding table '%s': %w", name, err)
	}

	key := path.Join(dir, name+".csv")
	if err := store.PutObject(ctx, key, &buf); err != nil {
		return "", fmt.Errorf("storing table '%s': %w", name, err)
	}

	return store.Location(key), nil
}

func (TableCodec) Decode(ctx context.Context, store storage.ObjectStore, key string) (any, error) {
	obj, err := store.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	table, err := dataset.FromCSV(obj, "")
	if err != nil {
		return nil, fmt.Errorf("decoding table at '%s': %w", store.Location(key), err)
	}
	return table, nil
}
