package storage

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const (
	SchemeS3   = "s3"
	SchemeFile = "file"
)

// Location identifies an object or prefix in s3 or on the local filesystem.
// The Key never has a leading slash; for file locations it is the absolute
// path with the root slash stripped.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func ParseLocation(location string) (Location, error) {
	if location == "" {
		return Location{}, fmt.Errorf("location is empty")
	}

	if strings.Contains(location, "://") {
		parsed, err := url.Parse(location)
		if err != nil {
			return Location{}, fmt.Errorf("invalid location '%s': %w", location, err)
		}

		switch parsed.Scheme {
		case SchemeS3:
			if parsed.Host == "" {
				return Location{}, fmt.Errorf("location '%s' is missing a bucket", location)
			}
			return Location{Scheme: SchemeS3, Bucket: parsed.Host, Key: strings.TrimPrefix(parsed.Path, "/")}, nil
		case SchemeFile:
			return Location{Scheme: SchemeFile, Key: strings.TrimPrefix(parsed.Path, "/")}, nil
		default:
			return Location{}, fmt.Errorf("unsupported scheme '%s' in location '%s'", parsed.Scheme, location)
		}
	}

	abs, err := filepath.Abs(location)
	if err != nil {
		return Location{}, fmt.Errorf("invalid location '%s': %w", location, err)
	}
	return Location{Scheme: SchemeFile, Key: strings.TrimPrefix(filepath.ToSlash(abs), "/")}, nil
}

func (l Location) String() string {
	if l.Scheme == SchemeS3 {
		return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
	}
	return "/" + l.Key
}

func (l Location) Join(parts ...string) Location {
	l.Key = path.Join(append([]string{l.Key}, parts...)...)
	return l
}

// Resolve returns an object store that can serve the given location, plus
// the location's key within that store.
func Resolve(location string, cfg S3ClientConfig) (ObjectStore, string, error) {
	parsed, err := ParseLocation(location)
	if err != nil {
		return nil, "", err
	}

	if parsed.Scheme == SchemeS3 {
		store, err := NewS3ObjectStore(parsed.Bucket, cfg)
		if err != nil {
			return nil, "", err
		}
		return store, parsed.Key, nil
	}

	store, err := NewLocalObjectStore("/")
	if err != nil {
		return nil, "", err
	}
	return store, parsed.Key, nil
}
