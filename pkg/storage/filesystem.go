package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// LocalStorage persists objects on disk as <baseDir>/<bucket>/<path>.
type LocalStorage struct {
	baseDir       string
	publicBaseURL string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, publicBaseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./media"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, publicBaseURL: publicBaseURL}, nil
}

// BaseDir is the root served under the public media URL.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// List returns the direct children of folder.
func (s *LocalStorage) List(ctx context.Context, bucket, folder string, opts ListOptions) ([]ObjectInfo, error) {
	dir, err := s.resolve(bucket, folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ObjectInfo{}, nil
		}
		return nil, fmt.Errorf("list %s/%s: %w", bucket, folder, err)
	}

	result := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		result = append(result, ObjectInfo{
			Name:      entry.Name(),
			Path:      filepath.ToSlash(filepath.Join(folder, entry.Name())),
			Size:      info.Size(),
			UpdatedAt: info.ModTime().UTC(),
			IsDir:     entry.IsDir(),
		})
	}
	return sortAndLimit(result, opts), nil
}

// Upload copies from r into the target object, creating folders as needed.
func (s *LocalStorage) Upload(ctx context.Context, bucket, objectPath string, r io.Reader, _ string) error {
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare media directory: %w", err)
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(target)
		return fmt.Errorf("write media file: %w", err)
	}
	return file.Close()
}

// Remove deletes each object. Missing objects are not an error.
func (s *LocalStorage) Remove(ctx context.Context, bucket string, paths []string) error {
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := s.resolve(bucket, p)
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete media file: %w", err)
		}
	}
	return nil
}

// PublicURL maps an object to <publicBaseURL>/<bucket>/<path>.
func (s *LocalStorage) PublicURL(bucket, objectPath string) string {
	return joinURL(s.publicBaseURL, bucket, objectPath)
}

func (s *LocalStorage) resolve(bucket, objectPath string) (string, error) {
	b, err := CleanPath(bucket)
	if err != nil {
		return "", err
	}
	if objectPath == "" {
		return filepath.Join(s.baseDir, filepath.FromSlash(b)), nil
	}
	p, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(b), filepath.FromSlash(p)), nil
}

func sortByName(entries []ObjectInfo, desc bool) {
	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return entries[i].Name > entries[j].Name
		}
		return entries[i].Name < entries[j].Name
	})
}
