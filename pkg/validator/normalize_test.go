package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"asset-dedup/internal/model"
)

func TestStripUUIDPrefix(t *testing.T) {
	name, ok := StripUUIDPrefix("a1b2c3d4-e5f6-7890-abcd-ef1234567890-Photo_Final.JPG")
	assert.True(t, ok)
	assert.Equal(t, "Photo_Final.JPG", name)

	name, ok = StripUUIDPrefix("photo-final.webp")
	assert.False(t, ok)
	assert.Equal(t, "photo-final.webp", name)

	// Right shape, wrong alphabet
	name, ok = StripUUIDPrefix("zzzzzzzz-e5f6-7890-abcd-ef1234567890-photo.jpg")
	assert.False(t, ok)
	assert.Equal(t, "zzzzzzzz-e5f6-7890-abcd-ef1234567890-photo.jpg", name)

	// A bare UUID with nothing after the hyphen position is not a prefix
	_, ok = StripUUIDPrefix("a1b2c3d4-e5f6-7890-abcd-ef1234567890")
	assert.False(t, ok)
}

func TestNormalizeFilename(t *testing.T) {
	prefixed := NormalizeFilename("a1b2c3d4-e5f6-7890-abcd-ef1234567890-Photo_Final.JPG")
	plain := NormalizeFilename("photo-final.webp")

	assert.Equal(t, "photofinal", prefixed)
	assert.Equal(t, prefixed, plain)

	assert.Equal(t, "golf드라이버01", NormalizeFilename("originals/blog/Golf_드라이버-01.png"))
	assert.Equal(t, "", NormalizeFilename(""))
	assert.Equal(t, "", NormalizeFilename("___.jpg"))
}

func TestFormatFromFilename(t *testing.T) {
	cases := map[string]model.Format{
		"a.JPG":   model.FormatJPG,
		"a.jpeg":  model.FormatJPG,
		"a.png":   model.FormatPNG,
		"a.webp":  model.FormatWebP,
		"a.avif":  model.FormatAVIF,
		"a.HEIC":  model.FormatHEIC,
		"a.heif":  model.FormatHEIC,
		"a.gif":   model.FormatGIF,
		"a.tiff":  model.FormatOther,
		"a.mp4":   model.FormatOther,
		"no-ext":  model.FormatOther,
	}
	for name, want := range cases {
		assert.Equal(t, want, FormatFromFilename(name), name)
	}
}

func TestFormatFromMIME(t *testing.T) {
	assert.Equal(t, model.FormatWebP, FormatFromMIME("image/webp"))
	assert.Equal(t, model.FormatJPG, FormatFromMIME("image/jpeg; charset=binary"))
	assert.Equal(t, model.FormatOther, FormatFromMIME("application/octet-stream"))
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("originals/x/photo.webp"))
	assert.False(t, IsImageFile("originals/x/.keep.png"))
	assert.False(t, IsImageFile("video.mp4"))
}

func TestValidateImage(t *testing.T) {
	assert.NoError(t, ValidateImage("photo.jpg", 10))
	assert.Error(t, ValidateImage("../photo.jpg", 10))
	assert.Error(t, ValidateImage("photo.exe", 10))
	assert.Error(t, ValidateImage("photo.jpg", 0))
	assert.Error(t, ValidateImage("photo.jpg", MaxFileSize+1))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "my_photo.jpg", SanitizeFilename("my photo.jpg"))
	assert.Equal(t, "photo.jpg", SanitizeFilename("/tmp/uploads/photo.jpg"))
	assert.Equal(t, "unnamed_file", SanitizeFilename("..."))
}
