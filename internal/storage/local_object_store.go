package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalObjectStore keeps objects as plain files under a base directory.
// Objects are copied, not linked, so they outlive their sources.
type LocalObjectStore struct {
	baseDir string
}

var _ ObjectStore = (*LocalObjectStore)(nil)

func NewLocalObjectStore(baseDir string) (*LocalObjectStore, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid base directory %s: %w", baseDir, err)
	}

	if err := os.MkdirAll(abs, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", abs, err)
	}

	return &LocalObjectStore{baseDir: abs}, nil
}

func (s *LocalObjectStore) objectPath(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func (s *LocalObjectStore) PutObject(ctx context.Context, key string, data io.Reader) error {
	path := s.objectPath(key)
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for object %s: %w", key, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create object %s: %w", key, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}

	return nil
}

func (s *LocalObjectStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.objectPath(key))
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", s.Location(key), err)
	}
	return file, nil
}

func (s *LocalObjectStore) DownloadObject(ctx context.Context, key, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory for download %s: %w", filepath.Dir(filename), err)
	}

	src, err := os.Open(s.objectPath(key))
	if err != nil {
		return fmt.Errorf("failed to open object %s: %w", s.Location(key), err)
	}
	defer src.Close()

	dst, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy object %s to %s: %w", s.Location(key), filename, err)
	}

	return nil
}

// ListObjects walks the narrowest directory containing the prefix so a store
// rooted at "/" never scans the whole filesystem.
func (s *LocalObjectStore) ListObjects(ctx context.Context, prefix string) ([]Object, error) {
	cleanPrefix := strings.TrimPrefix(filepath.ToSlash(prefix), "/")

	root := s.objectPath(cleanPrefix)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		root = filepath.Dir(root)
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			return nil, nil
		}
	}

	var objects []Object
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		key, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		key = filepath.ToSlash(key)

		if strings.HasPrefix(key, cleanPrefix) {
			objects = append(objects, Object{Name: key, Size: info.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects under %s: %w", s.Location(prefix), err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })

	return objects, nil
}

func (s *LocalObjectStore) DeleteObjects(ctx context.Context, prefix string) error {
	objects, err := s.ListObjects(ctx, prefix)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		if err := os.Remove(s.objectPath(obj.Name)); err != nil {
			return fmt.Errorf("failed to delete object %s: %w", s.Location(obj.Name), err)
		}
	}

	return nil
}

func (s *LocalObjectStore) UploadDir(ctx context.Context, src, prefix string) error {
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk directory %s: %w", src, err)
		}

		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(filepath.Join(filepath.FromSlash(prefix), rel))

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		return s.PutObject(ctx, key, file)
	})
	if err != nil {
		return fmt.Errorf("error uploading directory %s to %s: %w", src, s.Location(prefix), err)
	}

	return nil
}

func (s *LocalObjectStore) DownloadDir(ctx context.Context, prefix, dest string, overwrite bool) error {
	if _, err := os.Stat(dest); err == nil {
		if !overwrite {
			return fmt.Errorf("destination %s already exists and overwrite is false", dest)
		}
		if err := os.RemoveAll(dest); err != nil {
			return fmt.Errorf("failed to remove existing destination: %w", err)
		}
	}

	if err := os.MkdirAll(dest, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dest, err)
	}

	cleanPrefix := strings.TrimPrefix(filepath.ToSlash(prefix), "/")
	cleanPrefix = strings.TrimSuffix(cleanPrefix, "/") + "/"

	objects, err := s.ListObjects(ctx, prefix)
	if err != nil {
		return fmt.Errorf("error downloading directory %s to %s: %w", s.Location(prefix), dest, err)
	}

	for _, obj := range objects {
		localPath := filepath.Join(dest, strings.TrimPrefix(obj.Name, cleanPrefix))

		if err := s.DownloadObject(ctx, obj.Name, localPath); err != nil {
			return fmt.Errorf("error downloading directory %s to %s: %w", s.Location(prefix), dest, err)
		}
	}

	return nil
}

func (s *LocalObjectStore) Location(key string) string {
	return s.objectPath(key)
}
