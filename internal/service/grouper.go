package service

import (
	"sort"

	"asset-dedup/internal/model"
)

// Group finds duplicate sets among assets. Byte-identical assets (same MD5)
// form hash groups across the whole scope. Independently, assets in one
// folder that share a normalized filename but not a format form format
// groups. Groups need at least two members and keep discovery order.
func Group(assets []*model.Asset) []model.DuplicateGroup {
	groups := groupBy(assets, model.GroupByHash, func(a *model.Asset) string {
		return a.ContentHashMD5
	})

	formatGroups := groupBy(assets, model.GroupByFormat, func(a *model.Asset) string {
		if a.NormalizedFilename == "" {
			return ""
		}
		return joinFolder(a.Folder(), a.NormalizedFilename)
	})
	for _, g := range formatGroups {
		if distinctFormats(g.Members) >= 2 {
			groups = append(groups, g)
		}
	}

	return groups
}

func groupBy(assets []*model.Asset, kind model.GroupKind, key func(*model.Asset) string) []model.DuplicateGroup {
	index := make(map[string]int)
	var all []model.DuplicateGroup
	for _, a := range assets {
		k := key(a)
		if k == "" {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(all)
			index[k] = i
			all = append(all, model.DuplicateGroup{Kind: kind, GroupKey: k})
		}
		all[i].Members = append(all[i].Members, a)
	}

	groups := all[:0]
	for _, g := range all {
		if len(g.Members) >= 2 {
			groups = append(groups, g)
		}
	}
	return groups
}

func distinctFormats(members []*model.Asset) int {
	formats := make(map[model.Format]bool)
	for _, m := range members {
		formats[m.Format] = true
	}
	return len(formats)
}

// Decide applies the deletion policy to a group. The primary survivor is
// the most referenced member (ties: preferred format, then lowest id), or
// the first discovered member when none is referenced. Referenced members
// and HEIC originals are always kept; every other member is removed.
func Decide(group model.DuplicateGroup, counts map[int64]int) model.DeletionDecision {
	decision := model.DeletionDecision{GroupKey: group.GroupKey, Kind: group.Kind}
	if len(group.Members) == 0 {
		return decision
	}

	primary := group.Members[0]
	for _, m := range group.Members[1:] {
		if preferred(m, primary, counts) {
			primary = m
		}
	}
	decision.PrimaryID = primary.ID

	for _, m := range group.Members {
		member := model.DecisionMember{Asset: m, UsageCount: counts[m.ID]}
		if m == primary || member.UsageCount > 0 || m.Format == model.FormatHEIC {
			decision.Keep = append(decision.Keep, member)
			continue
		}

		member.Reason = model.ReasonUnusedDuplicate
		if group.Kind == model.GroupByFormat && primary.Format.Rank() > m.Format.Rank() {
			member.Reason = model.ReasonSupersededByPreferredFormat
		}
		decision.Remove = append(decision.Remove, member)
	}

	return decision
}

// preferred reports whether a should replace b as primary survivor.
func preferred(a, b *model.Asset, counts map[int64]int) bool {
	ca, cb := counts[a.ID], counts[b.ID]
	if ca == 0 && cb == 0 {
		// Unreferenced groups keep discovery order
		return false
	}
	if ca != cb {
		return ca > cb
	}
	if ra, rb := a.Format.Rank(), b.Format.Rank(); ra != rb {
		return ra > rb
	}
	return a.ID < b.ID
}

// DecideAll applies Decide to every group.
func DecideAll(groups []model.DuplicateGroup, counts map[int64]int) []model.DeletionDecision {
	decisions := make([]model.DeletionDecision, 0, len(groups))
	for _, g := range groups {
		decisions = append(decisions, Decide(g, counts))
	}
	return decisions
}

// RemovableIDs returns the ids removed by some decision and kept by none,
// sorted ascending.
func RemovableIDs(decisions []model.DeletionDecision) []int64 {
	kept := make(map[int64]bool)
	for _, d := range decisions {
		for _, id := range d.KeptIDs() {
			kept[id] = true
		}
	}

	seen := make(map[int64]bool)
	ids := []int64{}
	for _, d := range decisions {
		for _, id := range d.RemovedIDs() {
			if !kept[id] && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
