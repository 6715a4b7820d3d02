package serializer

import (
	"context"
	"testing"

	"cloudfit/internal/storage"
	"cloudfit/pkg/args"
	"cloudfit/pkg/dataset"
	"cloudfit/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *storage.LocalObjectStore {
	t.Helper()
	store, err := storage.NewLocalObjectStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func testTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.New([]string{"x", "y"}, "y")
	require.NoError(t, err)
	require.NoError(t, table.Append([]float64{1, 2}))
	require.NoError(t, table.Append([]float64{3, 4}))
	return table
}

func TestRegistryLookups(t *testing.T) {
	registry := Default()

	codec, err := registry.ForValue(testTable(t))
	require.NoError(t, err)
	assert.Equal(t, "table", codec.Name())

	codec, err = registry.ForName("table")
	require.NoError(t, err)
	assert.Equal(t, "table", codec.Name())

	_, err = registry.ForValue(42)
	assert.ErrorContains(t, err, "no codec registered for type int")

	_, err = registry.ForName("tensor")
	assert.ErrorContains(t, err, "no codec registered for name 'tensor'")
}

func TestTableCodecRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	table := testTable(t)

	location, err := TableCodec{}.Encode(ctx, store, "run-1/serialized_input_parameters", "data", table)
	require.NoError(t, err)
	assert.Equal(t, store.Location("run-1/serialized_input_parameters/data.csv"), location)

	decoded, err := TableCodec{}.Decode(ctx, store, "run-1/serialized_input_parameters/data.csv")
	require.NoError(t, err)

	parsed, ok := decoded.(*dataset.Table)
	require.True(t, ok)
	assert.Equal(t, 2, parsed.Rows())
	assert.Equal(t, "y", parsed.Target())

	v, err := parsed.Value(1, "x")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestTableCodecErrors(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	_, err := TableCodec{}.Encode(ctx, store, "dir", "data", "not a table")
	assert.ErrorContains(t, err, "table codec cannot encode string")

	_, err = TableCodec{}.Decode(ctx, store, "missing/data.csv")
	assert.Error(t, err)
}

func TestSaveLoadModel(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	table := testTable(t)
	params, err := args.NewParams(args.Str("target", "y"), args.Table("data", table))
	require.NoError(t, err)

	model := models.NewModelBuilders()[models.LinearRegression]()
	require.NoError(t, model.Fit(ctx, params))

	location, err := SaveModel(ctx, store, model, "jobs/job-1/model")
	require.NoError(t, err)
	assert.Equal(t, store.Location("jobs/job-1/model"), location)

	loaded, err := LoadModel(ctx, store, models.NewModelLoaders(), models.LinearRegression, "jobs/job-1/model")
	require.NoError(t, err)

	expected, err := model.Predict(table)
	require.NoError(t, err)
	actual, err := loaded.Predict(table)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestLoadModelErrors(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)

	_, err := LoadModel(ctx, store, models.NewModelLoaders(), "decision_tree", "jobs/job-1/model")
	assert.ErrorContains(t, err, "unknown model type 'decision_tree'")

	_, err = LoadModel(ctx, store, models.NewModelLoaders(), models.LinearRegression, "jobs/missing/model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading the model at '"+store.Location("jobs/missing/model")+"'")
}
