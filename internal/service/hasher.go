package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"asset-dedup/internal/model"
	apperrors "asset-dedup/pkg/errors"
	"asset-dedup/pkg/storage"
)

const (
	defaultHashConcurrency = 10
	defaultHashTimeout     = 30 * time.Second
)

// DefaultUserAgent is sent when HasherOptions.UserAgent is empty. Some
// origins reject requests without a browser user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type HasherOptions struct {
	// Concurrency is the batch size; batches run one after another.
	Concurrency int
	// Timeout bounds each download.
	Timeout time.Duration
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	Referer   string
}

// Hasher downloads assets and computes their content digests. It never
// writes to the catalog.
type Hasher struct {
	client  *http.Client
	storage storage.Storage
	opts    HasherOptions
	logger  *zap.Logger
}

// HashResult is the outcome of hashing one asset. Exactly one of Digest and
// Err is set.
type HashResult struct {
	Asset  *model.Asset
	Digest *model.ContentDigest
	Err    error
}

// NewHasher creates a Hasher. The storage is used for assets whose public URL
// is not an http(s) URL; it may be nil.
func NewHasher(st storage.Storage, opts HasherOptions, logger *zap.Logger) *Hasher {
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultHashConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultHashTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Hasher{client: &http.Client{}, storage: st, opts: opts, logger: logger}
}

func (h *Hasher) sourceURL(asset *model.Asset) string {
	if asset.PublicURL != "" {
		return asset.PublicURL
	}
	if h.storage != nil {
		return h.storage.PublicURL(asset.StoragePath)
	}
	return ""
}

// Hash computes the digests of one asset. Failures are *errors.FetchError.
func (h *Hasher) Hash(ctx context.Context, asset *model.Asset) (*model.ContentDigest, error) {
	src := h.sourceURL(asset)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return h.fetch(ctx, src, asset.Filename())
	}
	if h.storage == nil {
		return nil, &apperrors.FetchError{URL: asset.StoragePath, Err: errors.New("asset has no fetchable URL")}
	}
	return h.read(ctx, asset)
}

func (h *Hasher) fetch(ctx context.Context, url, filename string) (*model.ContentDigest, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &apperrors.FetchError{URL: url, Err: err}
	}
	// Some origins reject default Go clients
	req.Header.Set("User-Agent", h.opts.UserAgent)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")
	if h.opts.Referer != "" {
		req.Header.Set("Referer", h.opts.Referer)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &apperrors.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &apperrors.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	digest, err := computeDigest(resp.Body, filename)
	if err != nil {
		return nil, &apperrors.FetchError{URL: url, Err: err}
	}
	return digest, nil
}

func (h *Hasher) read(ctx context.Context, asset *model.Asset) (*model.ContentDigest, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	reader, err := h.storage.Get(ctx, asset.StoragePath)
	if err != nil {
		return nil, &apperrors.FetchError{URL: asset.StoragePath, Err: err}
	}
	defer reader.Close()

	digest, err := computeDigest(reader, asset.Filename())
	if err != nil {
		return nil, &apperrors.FetchError{URL: asset.StoragePath, Err: err}
	}
	return digest, nil
}

// HashAll hashes assets in fixed-size batches. Results are index-aligned with
// assets; a failed asset never stops the others.
func (h *Hasher) HashAll(ctx context.Context, assets []*model.Asset) []HashResult {
	results := make([]HashResult, len(assets))

	for start := 0; start < len(assets); start += h.opts.Concurrency {
		end := min(start+h.opts.Concurrency, len(assets))

		if err := ctx.Err(); err != nil {
			for i := start; i < len(assets); i++ {
				results[i] = HashResult{Asset: assets[i], Err: &apperrors.FetchError{URL: assets[i].StoragePath, Err: err}}
			}
			break
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				digest, err := h.Hash(ctx, assets[i])
				results[i] = HashResult{Asset: assets[i], Digest: digest, Err: err}
				if err != nil {
					h.logger.Warn("hash failed",
						zap.Int64("asset_id", assets[i].ID),
						zap.String("path", assets[i].StoragePath),
						zap.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait()

		h.logger.Debug("hash batch done", zap.Int("done", end), zap.Int("total", len(assets)))
	}

	return results
}
