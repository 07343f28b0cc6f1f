package storage

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// DetectContentType determines the MIME type of an uploaded file.
//
// Detection priority:
// 1. Sniff the first 512 bytes of data
// 2. If sniffing is inconclusive, use the file extension
// 3. Fall back to "application/octet-stream"
//
// Sniffing comes first because the filename is supplied by the client.
func DetectContentType(filename string, data []byte) string {
	if len(data) > 0 {
		head := data
		if len(head) > 512 {
			head = head[:512]
		}
		if sniffed := http.DetectContentType(head); sniffed != "application/octet-stream" {
			return baseType(sniffed)
		}
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return baseType(contentType)
	}

	return "application/octet-stream"
}

// AllowedImageTypes defines the MIME types accepted for complaint photos and
// resolution proof.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true, // Some systems use this instead of image/jpeg
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// IsAllowedImageType checks if a content type is an accepted photo format.
func IsAllowedImageType(contentType string) bool {
	return AllowedImageTypes[baseType(contentType)]
}

// IsThumbnailable returns true for formats the thumbnail processor can decode.
func IsThumbnailable(contentType string) bool {
	switch baseType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif":
		return true
	}
	return false
}

// ExtensionForContentType returns a common file extension for a MIME type.
func ExtensionForContentType(contentType string) string {
	extensions := map[string]string{
		"image/jpeg": ".jpg",
		"image/jpg":  ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	}

	if ext, ok := extensions[baseType(contentType)]; ok {
		return ext
	}
	return ".bin"
}

func baseType(contentType string) string {
	return strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
}
