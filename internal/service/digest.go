package service

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/gabriel-vasile/mimetype"

	"asset-dedup/internal/model"
	"asset-dedup/pkg/validator"
)

// sniffLen is how many leading bytes are kept for format detection.
const sniffLen = 3072

// headWriter keeps the first limit bytes written to it and discards the rest.
type headWriter struct {
	buf   []byte
	limit int
}

func (w *headWriter) Write(p []byte) (int, error) {
	if room := w.limit - len(w.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		w.buf = append(w.buf, p[:room]...)
	}
	return len(p), nil
}

// computeDigest hashes the full content of reader and sniffs its format,
// falling back to the filename extension when the bytes are not recognized.
func computeDigest(reader io.Reader, filename string) (*model.ContentDigest, error) {
	md5Hasher := md5.New()
	sha256Hasher := sha256.New()
	head := &headWriter{limit: sniffLen}

	size, err := io.Copy(io.MultiWriter(md5Hasher, sha256Hasher, head), reader)
	if err != nil {
		return nil, err
	}

	format := validator.FormatFromMIME(mimetype.Detect(head.buf).String())
	if format == model.FormatOther {
		format = validator.FormatFromFilename(filename)
	}

	return &model.ContentDigest{
		MD5:       hex.EncodeToString(md5Hasher.Sum(nil)),
		SHA256:    hex.EncodeToString(sha256Hasher.Sum(nil)),
		SizeBytes: size,
		Format:    format,
	}, nil
}

// applyDigest copies digest fields onto an asset.
func applyDigest(a *model.Asset, d *model.ContentDigest) {
	a.ContentHashMD5 = d.MD5
	a.ContentHashSHA256 = d.SHA256
	a.SizeBytes = d.SizeBytes
	if d.Format != model.FormatOther {
		a.Format = d.Format
	}
}
