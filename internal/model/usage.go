package model

// SurfaceKind identifies where an asset reference was found.
type SurfaceKind string

const (
	SurfaceStaticTemplate SurfaceKind = "static-template"
	SurfaceRichTextField  SurfaceKind = "rich-text-field"
)

// Surface is an external text that may reference assets: a static HTML
// template or a rich-text database field.
type Surface struct {
	Kind    SurfaceKind `json:"kind"`
	ID      string      `json:"id"`
	Title   string      `json:"title,omitempty"`
	Content string      `json:"-"`
	// Extra URLs attached to the record outside its content (featured image).
	Extra []string `json:"-"`
}

// UsageReference is evidence that an asset is referenced by a surface.
type UsageReference struct {
	AssetID     int64       `json:"assetId"`
	SurfaceKind SurfaceKind `json:"surfaceKind"`
	SurfaceID   string      `json:"surfaceId"`
	MatchedURL  string      `json:"matchedUrl"`
	Rule        string      `json:"rule"`
}

// Usage maps asset id to the references found for it.
type Usage map[int64][]UsageReference

// Count returns the number of references to an asset.
func (u Usage) Count(assetID int64) int {
	return len(u[assetID])
}

// Counts flattens the usage map into reference counts.
func (u Usage) Counts() map[int64]int {
	counts := make(map[int64]int, len(u))
	for id, refs := range u {
		counts[id] = len(refs)
	}
	return counts
}

// Post is a rich-text record (blog post) read from the catalog database.
type Post struct {
	ID            int64
	Title         string
	Content       string
	FeaturedImage string
}

// AssetUsage is a catalog entry together with the references currently found
// for it.
type AssetUsage struct {
	*Asset
	UsageCount int              `json:"usageCount"`
	References []UsageReference `json:"references"`
}
