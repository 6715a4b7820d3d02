package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("s3://my-bucket/staging/run-1")
	require.NoError(t, err)
	assert.Equal(t, Location{Scheme: SchemeS3, Bucket: "my-bucket", Key: "staging/run-1"}, loc)
	assert.Equal(t, "s3://my-bucket/staging/run-1", loc.String())

	loc, err = ParseLocation("/tmp/staging/run-1")
	require.NoError(t, err)
	assert.Equal(t, Location{Scheme: SchemeFile, Key: "tmp/staging/run-1"}, loc)
	assert.Equal(t, "/tmp/staging/run-1", loc.String())

	loc, err = ParseLocation("file:///tmp/staging")
	require.NoError(t, err)
	assert.Equal(t, Location{Scheme: SchemeFile, Key: "tmp/staging"}, loc)

	_, err = ParseLocation("")
	assert.ErrorContains(t, err, "location is empty")

	_, err = ParseLocation("s3://")
	assert.ErrorContains(t, err, "missing a bucket")

	_, err = ParseLocation("gs://bucket/key")
	assert.ErrorContains(t, err, "unsupported scheme 'gs'")
}

func TestLocationJoin(t *testing.T) {
	loc, err := ParseLocation("s3://bucket/staging")
	require.NoError(t, err)

	joined := loc.Join("fit_run_1", "serialized_input_parameters")
	assert.Equal(t, "s3://bucket/staging/fit_run_1/serialized_input_parameters", joined.String())

	// Join does not mutate the receiver.
	assert.Equal(t, "s3://bucket/staging", loc.String())
}

func TestResolveLocal(t *testing.T) {
	dir := t.TempDir()

	store, key, err := Resolve(filepath.Join(dir, "staging"), S3ClientConfig{})
	require.NoError(t, err)
	require.IsType(t, &LocalObjectStore{}, store)
	assert.Equal(t, filepath.Join(dir, "staging"), "/"+key)
}
