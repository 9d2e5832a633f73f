package domain

import (
	"slices"
	"time"
)

// ChangeType classifies how a flood warning differs between two refreshes.
type ChangeType string

const (
	ChangeRaised  ChangeType = "raised"
	ChangeUpdated ChangeType = "updated"
	ChangeCleared ChangeType = "cleared"
)

// WarningChange is a single warning transition, published downstream.
type WarningChange struct {
	Type       ChangeType `json:"change_type"`
	Warning    Warning    `json:"warning"`
	DetectedAt time.Time  `json:"detected_at"`
}

// SortBySeverity orders warnings most severe first (ascending severity level).
// Warnings with equal levels keep their upstream order.
func SortBySeverity(warnings []Warning) {
	slices.SortStableFunc(warnings, func(a, b Warning) int {
		return a.SeverityLevel - b.SeverityLevel
	})
}

// CarryPolygons fills in, for each warning in next without a polygon, the
// polygon prev held for the same flood area and polygon URL. It returns how
// many warnings in next have a polygon their previous version lacked.
func CarryPolygons(prev, next []Warning) int {
	prevByID := make(map[string]Warning, len(prev))
	for _, w := range prev {
		if _, dup := prevByID[w.ID]; !dup {
			prevByID[w.ID] = w
		}
	}

	attached := 0
	for i := range next {
		old, ok := prevByID[next[i].ID]
		if !ok {
			continue
		}
		switch {
		case len(next[i].FloodArea) == 0 && len(old.FloodArea) > 0 && old.PolygonURL == next[i].PolygonURL:
			next[i].FloodArea = old.FloodArea
		case len(next[i].FloodArea) > 0 && len(old.FloodArea) == 0:
			attached++
		}
	}
	return attached
}

// DiffWarnings compares two refreshes by flood area ID. Raised and updated
// changes follow next's order; cleared changes follow prev's order.
func DiffWarnings(prev, next []Warning, at time.Time) []WarningChange {
	prevByID := make(map[string]Warning, len(prev))
	for _, w := range prev {
		if _, dup := prevByID[w.ID]; !dup {
			prevByID[w.ID] = w
		}
	}

	var changes []WarningChange
	seen := make(map[string]bool, len(next))
	for _, w := range next {
		if seen[w.ID] {
			continue
		}
		seen[w.ID] = true

		old, ok := prevByID[w.ID]
		switch {
		case !ok:
			changes = append(changes, WarningChange{Type: ChangeRaised, Warning: w, DetectedAt: at})
		case warningChanged(old, w):
			changes = append(changes, WarningChange{Type: ChangeUpdated, Warning: w, DetectedAt: at})
		}
	}

	cleared := make(map[string]bool)
	for _, w := range prev {
		if seen[w.ID] || cleared[w.ID] {
			continue
		}
		cleared[w.ID] = true
		changes = append(changes, WarningChange{Type: ChangeCleared, Warning: w, DetectedAt: at})
	}
	return changes
}

func warningChanged(old, cur Warning) bool {
	return old.SeverityLevel != cur.SeverityLevel ||
		old.Severity != cur.Severity ||
		old.Description != cur.Description ||
		old.Message != cur.Message ||
		old.TimeMessageChanged != cur.TimeMessageChanged
}
