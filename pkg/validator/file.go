package validator

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"asset-dedup/internal/model"
)

// File size limits
const (
	MaxFileSize    = 100 * 1024 * 1024 // 100MB
	MaxFilenameLen = 255
	MinFilenameLen = 1
)

// ImageExtensions maps recognised image extensions to their catalog format.
var ImageExtensions = map[string]model.Format{
	".jpg":  model.FormatJPG,
	".jpeg": model.FormatJPG,
	".png":  model.FormatPNG,
	".webp": model.FormatWebP,
	".avif": model.FormatAVIF,
	".heic": model.FormatHEIC,
	".heif": model.FormatHEIC,
	".gif":  model.FormatGIF,
	".bmp":  model.FormatOther,
	".tif":  model.FormatOther,
	".tiff": model.FormatOther,
}

// mimeFormats maps sniffed MIME types to catalog formats.
var mimeFormats = map[string]model.Format{
	"image/jpeg": model.FormatJPG,
	"image/png":  model.FormatPNG,
	"image/webp": model.FormatWebP,
	"image/avif": model.FormatAVIF,
	"image/heic": model.FormatHEIC,
	"image/heif": model.FormatHEIC,
	"image/gif":  model.FormatGIF,
}

// IsImageFile reports whether the filename carries an image extension.
func IsImageFile(filename string) bool {
	_, ok := ImageExtensions[strings.ToLower(path.Ext(filename))]
	return ok && !strings.HasPrefix(path.Base(filename), ".")
}

// FormatFromFilename classifies a file by its extension.
func FormatFromFilename(filename string) model.Format {
	if f, ok := ImageExtensions[strings.ToLower(path.Ext(filename))]; ok {
		return f
	}
	return model.FormatOther
}

// FormatFromMIME classifies a sniffed MIME type. Parameters are ignored.
func FormatFromMIME(mime string) model.Format {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if f, ok := mimeFormats[strings.TrimSpace(strings.ToLower(mime))]; ok {
		return f
	}
	return model.FormatOther
}

// ValidateFilename checks if filename is safe and valid
func ValidateFilename(filename string) error {
	if len(filename) < MinFilenameLen {
		return fmt.Errorf("filename too short")
	}

	if len(filename) > MaxFilenameLen {
		return fmt.Errorf("filename too long (max %d characters)", MaxFilenameLen)
	}

	for _, char := range filename {
		if strings.ContainsRune(`<>:"|?*`, char) || char == 0 {
			return fmt.Errorf("filename contains invalid character: %c", char)
		}
		if unicode.IsControl(char) {
			return fmt.Errorf("filename contains control character")
		}
	}

	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return fmt.Errorf("filename contains path traversal characters")
	}

	if strings.HasPrefix(filename, ".") {
		return fmt.Errorf("hidden files not allowed")
	}

	return nil
}

// ValidateImage checks an upload candidate: safe name, image extension and size.
func ValidateImage(filename string, size int64) error {
	if err := ValidateFilename(filename); err != nil {
		return fmt.Errorf("invalid filename: %w", err)
	}
	if !IsImageFile(filename) {
		return fmt.Errorf("unsupported file type: %s", strings.ToLower(filepath.Ext(filename)))
	}
	if size <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if size > MaxFileSize {
		return fmt.Errorf("file too large (max %d bytes)", MaxFileSize)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[<>:"|?*\x00-\x1f\s]+`)

// SanitizeFilename replaces dangerous characters and whitespace so the name
// can be used as a storage object name.
func SanitizeFilename(filename string) string {
	sanitized := unsafeChars.ReplaceAllString(filepath.Base(filename), "_")
	sanitized = strings.Trim(sanitized, " .")

	if len(sanitized) > MaxFilenameLen {
		ext := filepath.Ext(sanitized)
		nameOnly := strings.TrimSuffix(sanitized, ext)
		maxNameLen := MaxFilenameLen - len(ext)
		if maxNameLen > 0 {
			sanitized = nameOnly[:maxNameLen] + ext
		}
	}

	if sanitized == "" {
		sanitized = "unnamed_file"
	}

	return sanitized
}
