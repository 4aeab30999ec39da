package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

// ErrInvalidPath is returned for object paths that escape their bucket.
var ErrInvalidPath = errors.New("invalid object path")

// ObjectInfo describes one entry of a folder listing.
type ObjectInfo struct {
	Name      string
	Path      string
	Size      int64
	UpdatedAt time.Time
	IsDir     bool
}

// ListOptions bounds a folder listing. Entries are ordered by name.
type ListOptions struct {
	Limit    int
	SortDesc bool
}

// ObjectStore is the file store behind media uploads.
type ObjectStore interface {
	List(ctx context.Context, bucket, folder string, opts ListOptions) ([]ObjectInfo, error)
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string) error
	Remove(ctx context.Context, bucket string, paths []string) error
	PublicURL(bucket, objectPath string) string
}

// CleanPath normalises an object path and rejects traversal outside the bucket.
func CleanPath(objectPath string) (string, error) {
	trimmed := strings.TrimSpace(objectPath)
	if trimmed == "" || strings.Contains(trimmed, "\\") {
		return "", ErrInvalidPath
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+trimmed), "/")
	if cleaned == "" {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// joinURL escapes each path segment so folder names with spaces stay addressable.
func joinURL(base string, segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		for _, part := range strings.Split(segment, "/") {
			if part == "" {
				continue
			}
			escaped = append(escaped, url.PathEscape(part))
		}
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(escaped, "/")
}

func sortAndLimit(entries []ObjectInfo, opts ListOptions) []ObjectInfo {
	sortByName(entries, opts.SortDesc)
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	return entries
}
