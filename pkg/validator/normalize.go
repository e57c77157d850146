package validator

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

const uuidLen = 36

// StripUUIDPrefix removes a leading "<uuid>-" from a filename. The second
// return value reports whether a prefix was present.
func StripUUIDPrefix(filename string) (string, bool) {
	if len(filename) <= uuidLen || filename[uuidLen] != '-' {
		return filename, false
	}
	if _, err := uuid.Parse(filename[:uuidLen]); err != nil {
		return filename, false
	}
	return filename[uuidLen+1:], true
}

// NormalizeFilename canonicalises a filename for fuzzy comparison: UUID prefix
// and extension are stripped, the rest is lowercased and reduced to ASCII
// letters, digits and Hangul syllables.
func NormalizeFilename(filename string) string {
	base, _ := StripUUIDPrefix(path.Base(filename))
	base = strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 0xAC00 && r <= 0xD7A3:
			b.WriteRune(r)
		}
	}
	return b.String()
}
