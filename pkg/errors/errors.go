package errors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a catalog row or blob does not exist.
var ErrNotFound = errors.New("not found")

// FetchError records a failed asset download (network error, non-2xx, timeout).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistenceError wraps a catalog read or write failure.
type PersistenceError struct {
	Op      string
	AssetID int64
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.AssetID != 0 {
		return fmt.Sprintf("catalog %s (asset %d): %v", e.Op, e.AssetID, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InconsistencyWarning marks a blob/catalog mismatch discovered while removing
// an asset. It is logged and reported, never returned as a fatal error.
type InconsistencyWarning struct {
	AssetID int64
	Path    string
	Detail  string
}

func (w *InconsistencyWarning) Error() string {
	return fmt.Sprintf("inconsistency for asset %d (%s): %s", w.AssetID, w.Path, w.Detail)
}

// UsageRaceError is returned in remove mode when a targeted asset turned out
// to be referenced at execution time.
type UsageRaceError struct {
	AssetID    int64
	UsageCount int
}

func (e *UsageRaceError) Error() string {
	return fmt.Sprintf("asset %d is referenced %d time(s); skipped", e.AssetID, e.UsageCount)
}

// Kind returns the report label for an error of the taxonomy above.
func Kind(err error) string {
	var (
		fetchErr *FetchError
		persErr  *PersistenceError
		incErr   *InconsistencyWarning
		raceErr  *UsageRaceError
	)
	switch {
	case errors.As(err, &raceErr):
		return "usage_race"
	case errors.As(err, &incErr):
		return "inconsistency"
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &persErr):
		return "persistence"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}
