package ui

import (
	"fmt"
	"strings"

	"asset-dedup/internal/model"
)

// RenderReport renders the human summary of a check or remove report.
func RenderReport(r *model.Report) string {
	var b strings.Builder
	s := r.Summary

	b.WriteString(FormatTitle(fmt.Sprintf("asset-dedup %s", r.Mode)))
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Assets", fmt.Sprintf("%d", s.TotalAssets)},
		{"Surfaces", fmt.Sprintf("%d", s.Surfaces)},
	}
	switch r.Mode {
	case model.ModeCheck:
		rows = append(rows,
			[2]string{"Hashed", fmt.Sprintf("%d (%d failed)", s.HashedAssets, s.HashFailures)},
			[2]string{"Used", fmt.Sprintf("%d", s.UsedAssets)},
			[2]string{"Unused", fmt.Sprintf("%d", s.UnusedAssets)},
			[2]string{"Hash groups", fmt.Sprintf("%d", s.HashGroups)},
			[2]string{"Format groups", fmt.Sprintf("%d", s.FormatGroups)},
			[2]string{"Removable", fmt.Sprintf("%d", s.RemoveCandidates)},
			[2]string{"Savings", FormatBytes(s.EstimatedBytesSaved)},
		)
	case model.ModeRemove:
		rows = append(rows,
			[2]string{"Removed", fmt.Sprintf("%d", s.Removed)},
			[2]string{"Skipped", fmt.Sprintf("%d", s.Skipped)},
			[2]string{"Inconsistencies", fmt.Sprintf("%d", s.Inconsistencies)},
		)
	}
	rows = append(rows, [2]string{"Failures", fmt.Sprintf("%d", s.Failures)})

	width := 0
	for _, row := range rows {
		width = max(width, len(row[0]))
	}
	for _, row := range rows {
		b.WriteString("  ")
		b.WriteString(RenderKeyValue(row[0], row[1], width))
		b.WriteString("\n")
	}

	if len(r.Failures) > 0 {
		b.WriteString("\n")
		for _, f := range r.Failures {
			b.WriteString(FormatWarning(fmt.Sprintf("[%s] asset %d %s: %s", f.Kind, f.AssetID, f.Path, f.Error)))
			b.WriteString("\n")
		}
	}
	for _, f := range r.Inconsistencies {
		b.WriteString(FormatWarning(fmt.Sprintf("[inconsistency] asset %d %s", f.AssetID, f.Path)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case r.Mode == model.ModeCheck && len(r.RemovableIDs) > 0:
		b.WriteString(FormatInfo(fmt.Sprintf("%d asset(s) can be removed: asset-dedup remove --from-report %s",
			len(r.RemovableIDs), r.Artifact)))
	case r.Mode == model.ModeCheck:
		b.WriteString(FormatSuccess("No removable duplicates"))
	case s.Failures > 0:
		b.WriteString(FormatError(fmt.Sprintf("%d removal(s) failed", s.Failures)))
	default:
		b.WriteString(FormatSuccess(fmt.Sprintf("%d asset(s) removed", s.Removed)))
	}
	b.WriteString("\n")

	if r.Artifact != "" {
		b.WriteString(FormatMuted("report: " + r.Artifact))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
