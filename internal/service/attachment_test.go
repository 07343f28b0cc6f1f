package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newLocalAttachments(t *testing.T) (AttachmentStore, string) {
	t.Helper()
	dir := t.TempDir()
	local, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir, BaseURL: "/uploads"}, testLogger())
	require.NoError(t, err)
	return NewAttachmentStore(local, NewImagingProcessor(), time.Minute, testLogger()), dir
}

func TestAttachmentStore_Save(t *testing.T) {
	store, dir := newLocalAttachments(t)
	ctx := context.Background()

	ref, err := store.Save(ctx, samplePNG(t, 640, 480), "pothole.png")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, ref))
	thumb, err := os.ReadFile(filepath.Join(dir, storage.ThumbnailKey(ref)))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", storage.DetectContentType("", thumb))

	url, err := store.URL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+ref, url)

	store.Remove(ctx, ref)
	assert.NoFileExists(t, filepath.Join(dir, ref))
	assert.NoFileExists(t, filepath.Join(dir, storage.ThumbnailKey(ref)))
}

func TestAttachmentStore_Save_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		filename string
		wantCode string
	}{
		{"empty", nil, "a.png", domain.EINVALID},
		{"not an image", []byte("%PDF-1.4 minutes of meeting"), "notes.pdf", domain.EINVALID},
		{"too large", make([]byte, domain.MaxAttachmentSize+1), "big.png", domain.ETOOLARGE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newLocalAttachments(t)

			_, err := store.Save(context.Background(), tt.data, tt.filename)

			assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
		})
	}
}

func TestAttachmentStore_URL_InvalidRef(t *testing.T) {
	store, _ := newLocalAttachments(t)

	_, err := store.URL(context.Background(), "../etc/passwd")

	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
