// Package storage hands out presigned URLs for progress media kept in an
// S3-compatible bucket. Clients upload and download directly; the API only
// stores object keys.
package storage

import (
	"context"
	"errors"
	"time"
)

const DefaultPresignedURLExpiry = 15 * time.Minute

var ErrNotConfigured = errors.New("object storage is not configured")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL returns a URL accepting one PUT of objectKey.
	// The uploader must send the same Content-Type.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// Disabled is used when no bucket is configured. Every call fails with
// ErrNotConfigured.
type Disabled struct{}

func (Disabled) GeneratePresignedUploadURL(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) GeneratePresignedDownloadURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) DeleteObject(context.Context, string) error {
	return ErrNotConfigured
}
