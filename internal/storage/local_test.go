package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), BaseURL: "/uploads/"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestLocal(t)

	require.NoError(t, s.Put(ctx, "attachments/a.txt", strings.NewReader("hello"), PutOptions{}))

	rc, info, err := s.Get(ctx, "attachments/a.txt")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), info.Size)

	url, err := s.URL(ctx, "attachments/a.txt", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/attachments/a.txt", url)

	require.NoError(t, s.Delete(ctx, "attachments/a.txt"))
	require.NoError(t, s.Delete(ctx, "attachments/a.txt"), "deleting twice is not an error")

	_, _, err = s.Get(ctx, "attachments/a.txt")
	assert.True(t, IsNotFound(err))
}

func TestLocalStorage_PutRules(t *testing.T) {
	ctx := context.Background()

	t.Run("existing key without overwrite", func(t *testing.T) {
		s := newTestLocal(t)
		require.NoError(t, s.Put(ctx, "k.bin", strings.NewReader("1"), PutOptions{}))
		err := s.Put(ctx, "k.bin", strings.NewReader("2"), PutOptions{})
		assert.ErrorIs(t, err, ErrKeyExists)
	})

	t.Run("overwrite replaces", func(t *testing.T) {
		s := newTestLocal(t)
		require.NoError(t, s.Put(ctx, "k.bin", strings.NewReader("1"), PutOptions{}))
		require.NoError(t, s.Put(ctx, "k.bin", strings.NewReader("22"), PutOptions{Overwrite: true}))
		_, info, err := s.Get(ctx, "k.bin")
		require.NoError(t, err)
		assert.Equal(t, int64(2), info.Size)
	})

	t.Run("size limit", func(t *testing.T) {
		s := newTestLocal(t)
		err := s.Put(ctx, "big.bin", strings.NewReader("123456"), PutOptions{MaxSize: 5})
		assert.True(t, IsTooLarge(err))
		_, _, err = s.Get(ctx, "big.bin")
		assert.True(t, IsNotFound(err), "rejected uploads leave nothing behind")
	})

	t.Run("exactly at limit", func(t *testing.T) {
		s := newTestLocal(t)
		assert.NoError(t, s.Put(ctx, "ok.bin", strings.NewReader("12345"), PutOptions{MaxSize: 5}))
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newTestLocal(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, s.Put(cctx, "k.bin", strings.NewReader("1"), PutOptions{}), context.Canceled)
	})
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	for _, key := range []string{"", "../escape.txt", "a/../../escape.txt", "/etc/passwd"} {
		t.Run(key, func(t *testing.T) {
			err := s.Put(ctx, key, strings.NewReader("x"), PutOptions{})
			assert.True(t, IsInvalidKey(err), "got %v", err)
			_, err = s.URL(ctx, key, 0)
			assert.True(t, IsInvalidKey(err), "got %v", err)
		})
	}
}

func TestAttachmentKey(t *testing.T) {
	now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		suggested  string
		wantSuffix string
	}{
		{"plain", "pothole.jpg", "-pothole.jpg"},
		{"unsafe characters", "my photo (1).png", "-my_photo_1_.png"},
		{"directories dropped", "../../etc/passwd", "-passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := AttachmentKey(tt.suggested, now)
			assert.True(t, strings.HasPrefix(key, "attachments/2024/03/"), key)
			assert.True(t, strings.HasSuffix(key, tt.wantSuffix), key)
			assert.NotContains(t, key, "..")
		})
	}

	assert.NotEqual(t, AttachmentKey("a.jpg", now), AttachmentKey("a.jpg", now))
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "thumbnails/attachments/2024/03/x.jpg", ThumbnailKey("attachments/2024/03/x.png"))
	assert.Equal(t, "thumbnails/noext.jpg", ThumbnailKey("noext"))
}

func TestDetectContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     string
	}{
		{"sniffed beats extension", "photo.jpg", png, "image/png"},
		{"extension fallback", "photo.JPG", nil, "image/jpeg"},
		{"unknown", "blob", nil, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(tt.filename, tt.data))
		})
	}

	assert.True(t, IsAllowedImageType("image/PNG; charset=binary"))
	assert.False(t, IsAllowedImageType("application/pdf"))
	assert.False(t, IsThumbnailable("image/webp"))
	assert.Equal(t, ".jpg", ExtensionForContentType("image/jpeg"))
	assert.Equal(t, ".bin", ExtensionForContentType("text/plain"))
}

func TestDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"too large", &StorageError{Op: "Put", Err: ErrTooLarge}, domain.ETOOLARGE},
		{"invalid key", &StorageError{Op: "Put", Err: ErrInvalidKey}, domain.EINVALID},
		{"not found", &StorageError{Op: "Get", Err: ErrNotFound}, domain.ENOTFOUND},
		{"backend failure", errors.New("connection reset"), domain.ESTORAGE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DomainError(tt.err, "attachment.Save", "Failed to store attachment")
			assert.Equal(t, tt.want, domain.ErrorCode(err))
		})
	}

	assert.NoError(t, DomainError(nil, "attachment.Save", ""))
}
