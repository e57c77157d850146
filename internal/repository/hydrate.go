package repository

import (
	"asset-dedup/internal/model"
	"asset-dedup/pkg/validator"
)

// hydrate fills the fields derived from the storage path.
func hydrate(a *model.Asset) *model.Asset {
	a.NormalizedFilename = validator.NormalizeFilename(a.Filename())
	if a.Format == "" {
		a.Format = validator.FormatFromFilename(a.Filename())
	}
	return a
}
