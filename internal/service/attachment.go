package service

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/storage"
)

// AttachmentStore persists complaint photos and resolution proof. The
// returned reference is opaque to the lifecycle engine.
type AttachmentStore interface {
	Save(ctx context.Context, data []byte, suggestedName string) (string, error)
	Remove(ctx context.Context, ref string)
	URL(ctx context.Context, ref string) (string, error)
}

// attachmentStore writes uploads to the configured storage backend and
// renders a thumbnail next to each photo.
type attachmentStore struct {
	storage    storage.Storage
	thumbnails ThumbnailProcessor
	urlExpiry  time.Duration
	logger     *slog.Logger
}

// NewAttachmentStore creates an AttachmentStore. thumbnails may be nil.
func NewAttachmentStore(s storage.Storage, thumbnails ThumbnailProcessor, urlExpiry time.Duration, logger *slog.Logger) AttachmentStore {
	return &attachmentStore{
		storage:    s,
		thumbnails: thumbnails,
		urlExpiry:  urlExpiry,
		logger:     logger,
	}
}

// Save validates and stores one upload under a fresh UUID-named key.
// Returns domain.ETOOLARGE, domain.EINVALID for non-image content, or
// domain.ESTORAGE when the backend write fails.
func (s *attachmentStore) Save(ctx context.Context, data []byte, suggestedName string) (string, error) {
	const op = "attachment.save"

	if len(data) == 0 {
		return "", domain.Invalid(op, "Attachment is empty")
	}
	if err := domain.ValidateAttachmentSize(op, len(data)); err != nil {
		return "", err
	}

	contentType := storage.DetectContentType(suggestedName, data)
	if !storage.IsAllowedImageType(contentType) {
		return "", domain.Errorf(domain.EINVALID, op, "Unsupported attachment type %s", contentType)
	}

	key := storage.AttachmentKey(suggestedName, time.Now().UTC())
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     domain.MaxAttachmentSize,
	}); err != nil {
		return "", storage.DomainError(err, op, "Failed to store attachment")
	}

	s.writeThumbnail(ctx, key, contentType, data)

	s.logger.Info("attachment stored", "key", key, "content_type", contentType, "size", len(data))
	return key, nil
}

// writeThumbnail is best effort; a photo without preview is still usable.
func (s *attachmentStore) writeThumbnail(ctx context.Context, key, contentType string, data []byte) {
	if s.thumbnails == nil || !storage.IsThumbnailable(contentType) {
		return
	}
	thumb, err := s.thumbnails.Thumbnail(data)
	if err != nil {
		s.logger.Warn("thumbnail generation failed", "key", key, "error", err)
		return
	}
	if err := s.storage.Put(ctx, storage.ThumbnailKey(key), bytes.NewReader(thumb), storage.PutOptions{
		ContentType: "image/jpeg",
		Overwrite:   true,
	}); err != nil {
		s.logger.Warn("thumbnail upload failed", "key", key, "error", err)
	}
}

// Remove deletes an attachment and its thumbnail. It is used to undo a save
// whose transition rolled back, so failures are only logged.
func (s *attachmentStore) Remove(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	for _, key := range []string{ref, storage.ThumbnailKey(ref)} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to remove attachment", "key", key, "error", err)
		}
	}
}

// URL returns a link to the stored attachment.
func (s *attachmentStore) URL(ctx context.Context, ref string) (string, error) {
	const op = "attachment.url"

	url, err := s.storage.URL(ctx, ref, s.urlExpiry)
	if err != nil {
		return "", storage.DomainError(err, op, "Failed to resolve attachment URL")
	}
	return url, nil
}
