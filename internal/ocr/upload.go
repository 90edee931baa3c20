package ocr

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes is the upload ceiling for menu photos.
const DefaultMaxUploadBytes = 10 << 20

var (
	ErrFileExtension   = errors.New("file extension missing")
	ErrFileType        = errors.New("file type not allowed, use JPEG, PNG or WebP")
	ErrFileTooLarge    = errors.New("file too large")
	ErrContentMismatch = errors.New("file content does not match an allowed image type")
)

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidateUpload checks extension, size and sniffed content of a menu
// photo and returns its MIME type.
func ValidateUpload(filename string, data []byte, maxBytes int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "", ErrFileExtension
	}
	if !allowedExt[ext] {
		return "", ErrFileType
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if int64(len(data)) > maxBytes {
		return "", ErrFileTooLarge
	}
	if len(data) == 0 {
		return "", ErrEmptyImage
	}

	mime := http.DetectContentType(data)
	if !allowedMIME[mime] {
		return "", ErrContentMismatch
	}
	return mime, nil
}
