package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	// Decoders for the formats storage.IsThumbnailable accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/disintegration/imaging"
)

// maxThumbnailSourcePixels caps the decoded size of a photo, about a 50MP
// camera frame, so a small compressed file cannot expand without bound.
const maxThumbnailSourcePixels = 50_000_000

// ThumbnailProcessor renders preview images for complaint photos.
type ThumbnailProcessor interface {
	// Thumbnail returns a JPEG preview of photo.
	Thumbnail(photo []byte) ([]byte, error)
}

// ImagingProcessor renders JPEG thumbnails bounded by Width x Height.
type ImagingProcessor struct {
	Width   int
	Height  int
	Quality int
}

// NewImagingProcessor returns a processor using the domain thumbnail bounds.
func NewImagingProcessor() *ImagingProcessor {
	return &ImagingProcessor{
		Width:   domain.ThumbnailMaxWidth,
		Height:  domain.ThumbnailMaxHeight,
		Quality: domain.ThumbnailJPEGQuality,
	}
}

// Thumbnail checks the photo's dimensions before decoding it, applies EXIF
// orientation and flattens transparency onto white, since JPEG has no alpha.
func (p *ImagingProcessor) Thumbnail(photo []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(photo))
	if err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxThumbnailSourcePixels {
		return nil, fmt.Errorf("image dimensions %dx%d out of range", cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(photo), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	fitted := imaging.Fit(img, p.Width, p.Height, imaging.Lanczos)
	canvas := imaging.New(fitted.Bounds().Dx(), fitted.Bounds().Dy(), color.White)
	canvas = imaging.Overlay(canvas, fitted, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(p.Quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

var _ ThumbnailProcessor = (*ImagingProcessor)(nil)
