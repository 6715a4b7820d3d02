package args

import (
	"testing"

	"cloudfit/pkg/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *dataset.Table {
	table, err := dataset.New([]string{"x", "y"}, "y")
	require.NoError(t, err)
	require.NoError(t, table.Append([]float64{1, 2}))
	return table
}

func TestValidate(t *testing.T) {
	table := testTable(t)

	assert.NoError(t, Validate([]Value{
		Int("epochs", 5),
		Float("learning_rate", 0.1),
		Str("target", "y"),
		Table("data", table),
	}))

	assert.ErrorContains(t, Validate([]Value{Int("", 1)}), "empty name")
	assert.ErrorContains(t, Validate([]Value{Int("a", 1), Float("a", 2)}), "duplicate parameter 'a'")
	assert.ErrorContains(t, Validate([]Value{Table("data", nil)}), "parameter 'data' has a nil table")
	assert.ErrorContains(t, Validate([]Value{{name: "bad", kind: Kind(99)}}), "parameter 'bad' has unsupported kind invalid")
}

func TestPartition(t *testing.T) {
	table := testTable(t)

	primitives, complexes := Partition([]Value{
		Int("epochs", 5),
		Table("data", table),
		Str("target", "y"),
	})

	require.Len(t, primitives, 2)
	assert.Equal(t, "epochs", primitives[0].Name())
	assert.Equal(t, "target", primitives[1].Name())

	require.Len(t, complexes, 1)
	assert.Equal(t, "data", complexes[0].Name())
	assert.Equal(t, KindTable, complexes[0].Kind())
}

func TestParamsAccessors(t *testing.T) {
	table := testTable(t)

	params, err := NewParams(
		Int("epochs", 5),
		Float("learning_rate", 0.1),
		Str("target", "y"),
		Table("data", table),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"data", "epochs", "learning_rate", "target"}, params.Names())

	epochs, ok := params.Int("epochs")
	assert.True(t, ok)
	assert.Equal(t, int64(5), epochs)

	lr, ok := params.Float("learning_rate")
	assert.True(t, ok)
	assert.Equal(t, 0.1, lr)

	target, ok := params.Str("target")
	assert.True(t, ok)
	assert.Equal(t, "y", target)

	data, ok := params.Table("data")
	assert.True(t, ok)
	assert.Equal(t, 1, data.Rows())

	_, ok = params.Int("learning_rate")
	assert.False(t, ok, "kind mismatch should not resolve")
	_, ok = params.Float("missing")
	assert.False(t, ok)
}

func TestParamsRequire(t *testing.T) {
	params, err := NewParams(Int("epochs", 3), Str("target", "y"))
	require.NoError(t, err)

	epochs, err := params.RequireInt("epochs")
	require.NoError(t, err)
	assert.Equal(t, int64(3), epochs)

	_, err = params.RequireFloat("learning_rate")
	assert.ErrorContains(t, err, "missing required parameter 'learning_rate'")

	_, err = params.RequireInt("target")
	assert.ErrorContains(t, err, "parameter 'target' has kind str, expected int")

	_, err = params.RequireTable("epochs")
	assert.ErrorContains(t, err, "parameter 'epochs' has kind int, expected table")
}

func TestNewParamsRejectsDuplicates(t *testing.T) {
	_, err := NewParams(Int("a", 1), Str("a", "x"))
	assert.ErrorContains(t, err, "duplicate parameter 'a'")
}
