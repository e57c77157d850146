package model

import (
	"path"
	"strings"
	"time"
)

// Format is the image encoding of an asset, derived from its extension or
// sniffed from its bytes.
type Format string

const (
	FormatJPG   Format = "jpg"
	FormatPNG   Format = "png"
	FormatWebP  Format = "webp"
	FormatAVIF  Format = "avif"
	FormatHEIC  Format = "heic"
	FormatGIF   Format = "gif"
	FormatOther Format = "other"
)

// Rank orders formats for superseded-by-preferred-format decisions.
// Higher is preferred. HEIC is ranked but never auto-removed.
func (f Format) Rank() int {
	switch f {
	case FormatWebP, FormatAVIF:
		return 3
	case FormatJPG, FormatPNG, FormatHEIC:
		return 2
	default:
		return 1
	}
}

// Asset represents a stored binary object tracked in the catalog
type Asset struct {
	ID                 int64     `json:"id"`
	StoragePath        string    `json:"storagePath"`
	PublicURL          string    `json:"publicUrl,omitempty"`
	OriginalFilename   string    `json:"originalFilename,omitempty"`
	NormalizedFilename string    `json:"normalizedFilename"`
	ContentHashMD5     string    `json:"contentHashMd5,omitempty"`
	ContentHashSHA256  string    `json:"contentHashSha256,omitempty"`
	SizeBytes          int64     `json:"sizeBytes"`
	Format             Format    `json:"format"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Filename returns the last segment of the storage path.
func (a *Asset) Filename() string {
	return path.Base(a.StoragePath)
}

// Folder returns the storage path without its filename.
func (a *Asset) Folder() string {
	dir := path.Dir(a.StoragePath)
	if dir == "." {
		return ""
	}
	return dir
}

// IsHashed reports whether content digests have been computed.
func (a *Asset) IsHashed() bool {
	return strings.TrimSpace(a.ContentHashMD5) != ""
}

// ContentDigest is the output of hashing one asset's bytes.
type ContentDigest struct {
	MD5       string `json:"md5"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"sizeBytes"`
	Format    Format `json:"format"`
}
