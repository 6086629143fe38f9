package models

import (
	"strconv"
	"strings"
)

// BehaviorItem is one named, point-valued entry of the behavior catalog.
// Whether it counts as a violation or a positive behavior is decided by
// the catalog sub-list it lives in, not by the sign of Points.
type BehaviorItem struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Points   int    `json:"points"`
	Category string `json:"category"`
}

// BehaviorEntry is a single applied occurrence of a catalog behavior on
// a conduct record. Points are captured at application time so the
// historical effect survives catalog renames and deletions.
type BehaviorEntry struct {
	Label  string `json:"label"`
	Points int    `json:"points"`
}

const annotationSuffix = "đ)"

// ParseAnnotatedLabel extracts the legacy point annotation from labels
// shaped like "Nói chuyện riêng (-5đ)". The returned label has the
// annotation stripped. ok reports whether an annotation was found.
func ParseAnnotatedLabel(raw string) (label string, points int, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasSuffix(trimmed, annotationSuffix) {
		return trimmed, 0, false
	}
	open := strings.LastIndex(trimmed, "(")
	if open < 0 {
		return trimmed, 0, false
	}
	inner := strings.TrimSuffix(trimmed[open+1:], annotationSuffix)
	n, err := strconv.Atoi(strings.TrimSpace(inner))
	if err != nil {
		return trimmed, 0, false
	}
	return strings.TrimSpace(trimmed[:open]), n, true
}

// StripAnnotation returns the bare label with any trailing point
// annotation removed.
func StripAnnotation(raw string) string {
	label, _, _ := ParseAnnotatedLabel(raw)
	return label
}

// entryPoints resolves the point value of one occurrence. The current
// catalog wins so catalog edits apply retroactively; captured points
// cover deleted entries; the annotation parse covers legacy data.
func entryPoints(entry BehaviorEntry, catalog []BehaviorItem) int {
	for i := range catalog {
		if catalog[i].Label == entry.Label {
			return catalog[i].Points
		}
	}
	if entry.Points != 0 {
		return entry.Points
	}
	if _, points, ok := ParseAnnotatedLabel(entry.Label); ok {
		return points
	}
	return 0
}
