// Package report persists driver reports as JSON artifacts.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"asset-dedup/internal/model"
)

const zstdExt = ".zst"

// zstd frames start with this magic number.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Writer saves reports under a directory, optionally zstd-compressed.
type Writer struct {
	dir      string
	compress bool
	logger   *zap.Logger
}

func NewWriter(dir string, compress bool, logger *zap.Logger) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, compress: compress, logger: logger}
}

// Filename returns the artifact name for a report:
// asset-dedup-<mode>-<timestamp>.json, where the timestamp is the UTC
// generation time in ISO form with ':' and '.' replaced by '-'.
func Filename(r *model.Report, compressed bool) string {
	ts := r.GeneratedAt.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	name := fmt.Sprintf("asset-dedup-%s-%s.json", r.Mode, ts)
	if compressed {
		name += zstdExt
	}
	return name
}

// Write serializes r and stores it, recording the path in r.Artifact.
func (w *Writer) Write(r *model.Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	if w.compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return "", fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(w.dir, Filename(r, w.compress))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	r.Artifact = path
	w.logger.Info("report written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// Read loads a report written by Writer. Compressed artifacts are detected
// by their frame header, not their name.
func Read(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("failed to decompress report: %w", err)
		}
	}

	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	r.Artifact = path
	return &r, nil
}
