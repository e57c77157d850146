package service

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"asset-dedup/internal/model"
	"asset-dedup/pkg/validator"
)

var storageObjectRe = regexp.MustCompile(`/storage/v1/(?:object|render/image)/(?:public|sign|authenticated)/[^/]+/(.+)$`)

// PathAlias maps a site-relative URL prefix onto a storage path prefix.
type PathAlias struct {
	Prefix        string
	StoragePrefix string
}

// Reference is a URL found in a surface, decomposed for matching.
type Reference struct {
	Raw string
	// URL is Raw without query string or fragment.
	URL string
	// Path is the storage object path when the URL reveals one.
	Path string
	// Filename is the decoded last path segment.
	Filename string
	// Normalized is NormalizeFilename(Filename).
	Normalized string
	// Unprefixed is Filename without a UUID prefix; HasUUID reports whether
	// one was removed.
	Unprefixed string
	HasUUID    bool
}

// Matcher is one strategy for deciding that a reference points at an asset.
type Matcher interface {
	Name() string
	Match(ref Reference, asset *model.Asset) bool
}

// ExactPath matches the object path of a storage URL, or the asset's own
// public URL.
type ExactPath struct{}

func (ExactPath) Name() string { return "exact-path" }

func (ExactPath) Match(ref Reference, asset *model.Asset) bool {
	if ref.Path != "" && ref.Path == asset.StoragePath {
		return true
	}
	return asset.PublicURL != "" && ref.URL == asset.PublicURL
}

type ExactFilename struct{}

func (ExactFilename) Name() string { return "exact-filename" }

func (ExactFilename) Match(ref Reference, asset *model.Asset) bool {
	return ref.Filename != "" && ref.Filename == asset.Filename()
}

type NormalizedFilename struct{}

func (NormalizedFilename) Name() string { return "normalized-filename" }

func (NormalizedFilename) Match(ref Reference, asset *model.Asset) bool {
	return ref.Normalized != "" && ref.Normalized == asset.NormalizedFilename
}

// UUIDStripped retries the inner matchers after removing a UUID prefix from
// the reference, the asset, or both. It only applies when at least one side
// carried a prefix.
type UUIDStripped struct {
	Inner []Matcher
}

func (UUIDStripped) Name() string { return "uuid-stripped" }

func (m UUIDStripped) Match(ref Reference, asset *model.Asset) bool {
	assetName, assetStripped := validator.StripUUIDPrefix(asset.Filename())
	if !ref.HasUUID && !assetStripped {
		return false
	}

	// Normalization already drops the prefix, so Normalized carries over
	strippedRef := Reference{
		Raw:        ref.Raw,
		Filename:   ref.Unprefixed,
		Normalized: ref.Normalized,
		Unprefixed: ref.Unprefixed,
	}
	if ref.Path != "" {
		strippedRef.Path = joinFolder(path.Dir(ref.Path), ref.Unprefixed)
	}

	strippedAsset := *asset
	strippedAsset.StoragePath = joinFolder(asset.Folder(), assetName)
	strippedAsset.PublicURL = ""

	for _, inner := range m.Inner {
		if inner.Match(strippedRef, &strippedAsset) {
			return true
		}
	}
	return false
}

func joinFolder(folder, name string) string {
	if folder == "" || folder == "." {
		return name
	}
	return folder + "/" + name
}

// DefaultMatchers returns the matching strategies in priority order.
func DefaultMatchers() []Matcher {
	base := []Matcher{ExactPath{}, ExactFilename{}, NormalizedFilename{}}
	return append(base, UUIDStripped{Inner: base})
}

// Resolver links URLs found in surfaces to catalog assets. It performs no
// I/O.
type Resolver struct {
	matchers []Matcher
	aliases  []PathAlias
}

func NewResolver(aliases []PathAlias, matchers ...Matcher) *Resolver {
	if len(matchers) == 0 {
		matchers = DefaultMatchers()
	}
	return &Resolver{matchers: matchers, aliases: aliases}
}

// ParseReference decomposes a discovered URL.
func (r *Resolver) ParseReference(raw string) Reference {
	ref := Reference{Raw: raw}

	u := strings.TrimSpace(raw)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	ref.URL = u

	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	} else if unescaped, err := url.PathUnescape(u); err == nil {
		p = unescaped
	}

	if m := storageObjectRe.FindStringSubmatch(p); m != nil {
		ref.Path = m[1]
	} else {
		for _, alias := range r.aliases {
			if alias.Prefix != "" && strings.HasPrefix(p, alias.Prefix) {
				ref.Path = alias.StoragePrefix + strings.TrimPrefix(p, alias.Prefix)
				break
			}
		}
	}

	if name := path.Base(p); name != "." && name != "/" {
		ref.Filename = name
		ref.Normalized = validator.NormalizeFilename(name)
		ref.Unprefixed, ref.HasUUID = validator.StripUUIDPrefix(name)
	}
	return ref
}

// Match tries every matcher in priority order against every asset in order
// and returns the first hit. Earlier rules win over earlier assets.
func (r *Resolver) Match(ref Reference, assets []*model.Asset) (*model.Asset, Matcher) {
	for _, m := range r.matchers {
		for _, a := range assets {
			if m.Match(ref, a) {
				return a, m
			}
		}
	}
	return nil, nil
}

// MatchAll returns every asset that any matcher accepts, in catalog order,
// with the highest-priority matcher that accepted it.
func (r *Resolver) MatchAll(ref Reference, assets []*model.Asset) ([]*model.Asset, []Matcher) {
	var (
		matched []*model.Asset
		rules   []Matcher
	)
	for _, a := range assets {
		for _, m := range r.matchers {
			if m.Match(ref, a) {
				matched = append(matched, a)
				rules = append(rules, m)
				break
			}
		}
	}
	return matched, rules
}

// ResolveUsage maps asset ids to the references found for them. A URL
// repeated within one surface counts once.
func (r *Resolver) ResolveUsage(assets []*model.Asset, surfaces []model.Surface) model.Usage {
	usage := make(model.Usage)
	for _, s := range surfaces {
		for _, raw := range surfaceURLs(s) {
			asset, rule := r.Match(r.ParseReference(raw), assets)
			if asset == nil {
				continue
			}
			usage[asset.ID] = append(usage[asset.ID], model.UsageReference{
				AssetID:     asset.ID,
				SurfaceKind: s.Kind,
				SurfaceID:   s.ID,
				MatchedURL:  raw,
				Rule:        rule.Name(),
			})
		}
	}
	return usage
}

// ResolveAllUsage is ResolveUsage with every matching asset credited for a
// URL, not just the first.
func (r *Resolver) ResolveAllUsage(assets []*model.Asset, surfaces []model.Surface) model.Usage {
	usage := make(model.Usage)
	for _, s := range surfaces {
		for _, raw := range surfaceURLs(s) {
			matched, rules := r.MatchAll(r.ParseReference(raw), assets)
			for i, asset := range matched {
				usage[asset.ID] = append(usage[asset.ID], model.UsageReference{
					AssetID:     asset.ID,
					SurfaceKind: s.Kind,
					SurfaceID:   s.ID,
					MatchedURL:  raw,
					Rule:        rules[i].Name(),
				})
			}
		}
	}
	return usage
}

func surfaceURLs(s model.Surface) []string {
	urls := ExtractURLs(s.Content)
	for _, extra := range s.Extra {
		extra = strings.TrimSpace(extra)
		if extra == "" || strings.HasPrefix(extra, "data:") {
			continue
		}
		dup := false
		for _, u := range urls {
			if u == extra {
				dup = true
				break
			}
		}
		if !dup {
			urls = append(urls, extra)
		}
	}
	return urls
}
