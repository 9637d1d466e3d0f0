package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Bucket names partition stored files by submission category.
const (
	BucketProcessDocuments = "process-documents"
	BucketTemplates        = "templates"
	BucketExamples         = "examples"
)

// LocalStorage persists uploaded files on disk, one directory per bucket.
// Stored names are opaque; original filenames never reach the disk.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base and bucket directories exist.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	for _, bucket := range []string{BucketProcessDocuments, BucketTemplates, BucketExamples} {
		if err := os.MkdirAll(filepath.Join(baseDir, bucket), 0o755); err != nil {
			return nil, fmt.Errorf("create bucket directory %s: %w", bucket, err)
		}
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveStream copies from reader into bucket/name. Existing objects are never
// overwritten; a stored file is immutable once written.
func (s *LocalStorage) SaveStream(bucket, name string, r io.Reader) error {
	path, err := s.resolve(bucket, name)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return fmt.Errorf("write upload stream: %w", err)
	}
	return nil
}

// Open returns a read-only handle for a stored file.
func (s *LocalStorage) Open(bucket, name string) (*os.File, error) {
	path, err := s.resolve(bucket, name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(bucket, name string) error {
	path, err := s.resolve(bucket, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes files older than the TTL and returns deleted
// bucket-relative names. Aborted submission sagas leave uploaded files with
// no referencing record; this sweep is how operators reclaim that garbage.
// Referenced files should be excluded by choosing a TTL well past moderation.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup uploads: %w", err)
	}
	return deleted, nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(bucket, name string) string {
	path, err := s.resolve(bucket, name)
	if err != nil {
		return ""
	}
	return path
}

func (s *LocalStorage) resolve(bucket, name string) (string, error) {
	switch bucket {
	case BucketProcessDocuments, BucketTemplates, BucketExamples:
	default:
		return "", fmt.Errorf("unknown bucket %q", bucket)
	}
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(s.baseDir, bucket, name), nil
}
