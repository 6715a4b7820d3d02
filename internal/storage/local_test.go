package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestObjectStore(t *testing.T) (*LocalObjectStore, string) {
	t.Helper()
	dir := t.TempDir()
	objectStore, err := NewLocalObjectStore(dir)
	require.NoError(t, err)
	return objectStore, dir
}

func TestLocalObjectStore_PutGetObject(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	key := "test-dir/test-file.txt"
	content := []byte("Test content")

	err := objectStore.PutObject(context.Background(), key, bytes.NewReader(content))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(baseDir, "test-dir", "test-file.txt"))
	require.NoError(t, err)
	assert.Equal(t, content, data)

	obj, err := objectStore.GetObject(context.Background(), key)
	require.NoError(t, err)
	defer obj.Close()

	data, err = io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, content, data)

	_, err = objectStore.GetObject(context.Background(), "missing.txt")
	assert.Error(t, err)
}

func TestLocalObjectStore_ListObjects(t *testing.T) {
	objectStore, _ := setupTestObjectStore(t)

	// Create some test files
	files := []string{"test-dir/file1.txt", "test-dir/subdir/file2.txt", "other-dir/file3.txt"}
	for _, file := range files {
		require.NoError(t, objectStore.PutObject(context.Background(), file, bytes.NewReader([]byte("content: "+file))))
	}

	objs, err := objectStore.ListObjects(context.Background(), "test-dir")
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "test-dir/file1.txt", objs[0].Name)
	assert.Equal(t, "test-dir/subdir/file2.txt", objs[1].Name)

	objs, err = objectStore.ListObjects(context.Background(), "no-such-prefix")
	require.NoError(t, err)
	assert.Len(t, objs, 0)
}

func TestLocalObjectStore_DeleteObjects(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	// Create some test files
	files := []string{"test-dir/file1.txt", "test-dir/file2.txt", "other-dir/file3.txt"}
	for _, file := range files {
		require.NoError(t, objectStore.PutObject(context.Background(), file, bytes.NewReader([]byte("content"))))
	}

	err := objectStore.DeleteObjects(context.Background(), "test-dir")
	require.NoError(t, err)

	// Verify files in the prefix were deleted
	for _, file := range []string{"test-dir/file1.txt", "test-dir/file2.txt"} {
		_, err := os.Stat(filepath.Join(baseDir, file))
		assert.True(t, os.IsNotExist(err), "File %s should not exist", file)
	}

	// Verify files outside the prefix still exist
	_, err = os.Stat(filepath.Join(baseDir, "other-dir/file3.txt"))
	assert.NoError(t, err, "File outside prefix should still exist")
}

func TestLocalObjectStore_UploadDir(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	prefix := "uploaded"
	srcDir := t.TempDir()

	// Create test files in the source directory
	files := []string{"file1.txt", "file2.txt", "subdir/file3.txt"}
	for _, file := range files {
		filePath := filepath.Join(srcDir, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), os.ModePerm))
		require.NoError(t, os.WriteFile(filePath, []byte("content: "+file), os.ModePerm))
	}

	err := objectStore.UploadDir(context.Background(), srcDir, prefix)
	require.NoError(t, err)

	// Verify files were uploaded by checking content
	for _, file := range files {
		data, err := os.ReadFile(filepath.Join(baseDir, prefix, file))
		require.NoError(t, err)
		assert.Equal(t, "content: "+file, string(data))
	}
}

func TestLocalObjectStore_DownloadDir(t *testing.T) {
	objectStore, _ := setupTestObjectStore(t)

	prefix := "to-download"
	destDir := filepath.Join(t.TempDir(), "download-target")

	// Create test files in the object store
	files := []string{"file1.txt", "file2.txt", "subdir/file3.txt"}
	for _, file := range files {
		key := prefix + "/" + file
		require.NoError(t, objectStore.PutObject(context.Background(), key, bytes.NewReader([]byte("content: "+file))))
	}

	err := objectStore.DownloadDir(context.Background(), prefix, destDir, false)
	require.NoError(t, err)

	// Verify files were downloaded by checking content
	for _, file := range files {
		data, err := os.ReadFile(filepath.Join(destDir, file))
		require.NoError(t, err)
		assert.Equal(t, "content: "+file, string(data))
	}
}

func TestLocalObjectStore_DownloadDir_Overwrite(t *testing.T) {
	objectStore, _ := setupTestObjectStore(t)

	prefix := "to-download"
	destDir := t.TempDir()

	destFile := filepath.Join(destDir, "file1.txt")
	require.NoError(t, os.WriteFile(destFile, []byte("original"), os.ModePerm))

	// Create test files in the object store
	files := []string{"file1.txt", "file2.txt"}
	for _, file := range files {
		require.NoError(t, objectStore.PutObject(context.Background(), prefix+"/"+file, bytes.NewReader([]byte("new content"))))
	}

	// Try without overwrite first
	err := objectStore.DownloadDir(context.Background(), prefix, destDir, false)
	require.Error(t, err)
	data, err := os.ReadFile(destFile)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data), "File should not be overwritten when overwrite=false")

	// Now try with overwrite
	err = objectStore.DownloadDir(context.Background(), prefix, destDir, true)
	require.NoError(t, err)
	data, err = os.ReadFile(destFile)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data), "File should be overwritten when overwrite=true")
}

func TestLocalObjectStore_Location(t *testing.T) {
	objectStore, baseDir := setupTestObjectStore(t)

	assert.Equal(t, filepath.Join(baseDir, "a/b.txt"), objectStore.Location("a/b.txt"))
}
