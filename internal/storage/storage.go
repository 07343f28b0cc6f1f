// Package storage persists complaint photos and resolution proof.
//
// Implementations:
// - LocalStorage: local filesystem, served by the API under /uploads
// - R2Storage: Cloudflare R2 (S3-compatible) object storage
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage defines the interface for file storage operations.
type Storage interface {
	// Put stores data at key. Fails with ErrKeyExists unless opts.Overwrite
	// is set, and with ErrTooLarge when opts.MaxSize is exceeded.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a link to the object, presigned for expires when the
	// provider needs it.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	ContentType string // MIME type; detected from the key when empty
	MaxSize     int64  // 0 means no limit
	Overwrite   bool   // Replace an existing object at the same key
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string // Empty for local storage
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	BasePath string // Example: "./uploads"
	BaseURL  string // Example: "http://localhost:8080/uploads"
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string // Custom domain; presigned URLs are used when empty
	Region          string // Default: "auto"
}

const (
	// ProviderLocal identifies the local filesystem storage provider.
	ProviderLocal = "local"

	// ProviderR2 identifies the Cloudflare R2 storage provider.
	ProviderR2 = "r2"
)

// Config selects and configures a storage provider.
type Config struct {
	Provider string
	Local    LocalConfig
	R2       R2Config
}

// New creates the configured Storage.
func New(cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case ProviderLocal:
		return NewLocalStorage(cfg.Local, logger)
	case ProviderR2:
		return NewR2Storage(cfg.R2, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// =============================================================================
// Key Generation Helpers
// =============================================================================

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// AttachmentKey generates a unique key for an uploaded file.
// Format: attachments/{yyyy}/{mm}/{uuid}-{sanitized name}
//
// Example: "attachments/2024/03/987fcdeb-51a2-43f1-b9c4-12345678abcd-RESOLVED_pothole.jpg"
func AttachmentKey(suggestedName string, now time.Time) string {
	name := unsafeNameChars.ReplaceAllString(filepath.Base(suggestedName), "_")
	name = strings.Trim(name, "._")
	if len(name) > 64 {
		name = name[len(name)-64:]
	}
	id := uuid.New().String()
	if name != "" {
		id += "-" + name
	}
	return fmt.Sprintf("attachments/%04d/%02d/%s", now.Year(), int(now.Month()), id)
}

// ThumbnailKey derives the thumbnail key of a stored attachment.
// Format: thumbnails/{attachment key without extension}.jpg
func ThumbnailKey(key string) string {
	return "thumbnails/" + strings.TrimSuffix(key, path.Ext(key)) + ".jpg"
}
