package domain

const (
	// MaxAttachmentSize is the maximum allowed size for uploaded photos (10MB).
	MaxAttachmentSize = 10 * 1024 * 1024

	// ThumbnailMaxWidth is the maximum width for generated thumbnails.
	ThumbnailMaxWidth = 320

	// ThumbnailMaxHeight is the maximum height for generated thumbnails.
	ThumbnailMaxHeight = 320

	// ThumbnailJPEGQuality is the JPEG quality for thumbnail generation (0-100).
	ThumbnailJPEGQuality = 85
)

// Attachment is an uploaded file waiting to be stored.
type Attachment struct {
	Data     []byte
	Filename string
}

// IsEmpty returns true if there is nothing to store.
func (a *Attachment) IsEmpty() bool {
	return a == nil || len(a.Data) == 0
}

// ValidateAttachmentSize returns a domain.ETOOLARGE error if size exceeds the limit.
func ValidateAttachmentSize(op string, size int) error {
	if size > MaxAttachmentSize {
		return Errorf(ETOOLARGE, op, "File size %d bytes exceeds maximum of %d bytes (%.1fMB)", size, MaxAttachmentSize, float64(MaxAttachmentSize)/(1024*1024))
	}
	return nil
}
