// Package storage archives uploaded score files on local disk or in an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore is the minimal surface both backends implement.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// UploadKey builds the archive key for an uploaded score file.
// Keys are grouped by course and month so buckets stay browsable.
func UploadKey(courseID, filename string, now time.Time) string {
	name := sanitize(filename)
	if name == "" {
		name = "upload"
	}
	return path.Join("submissions", sanitize(courseID), now.UTC().Format("2006-01"), uuid.NewString()+"-"+name)
}

func sanitize(raw string) string {
	raw = path.Base(strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/"))
	if raw == "." || raw == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func validKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
