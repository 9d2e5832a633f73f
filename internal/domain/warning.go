package domain

import (
	"encoding/json"
	"fmt"
)

// Warning is an active flood alert or warning for a single flood area.
type Warning struct {
	ID                  string       `json:"id"`
	Description         string       `json:"description"`
	AreaName            string       `json:"ea_area_name"`
	Region              string       `json:"ea_region_name,omitempty"`
	Severity            string       `json:"severity"`
	SeverityLevel       int          `json:"severity_level"`
	TimeMessageChanged  string       `json:"time_message_changed,omitempty"`
	TimeRaised          string       `json:"time_raised,omitempty"`
	TimeSeverityChanged string       `json:"time_severity_changed,omitempty"`
	Message             string       `json:"message,omitempty"`
	County              string       `json:"county,omitempty"`
	PolygonURL          string       `json:"polygon_url,omitempty"`
	FloodArea           MultiPolygon `json:"-"`
}

// ParseWarnings parses a /id/floods response. Items that are not objects are
// skipped; skipped reports how many.
func ParseWarnings(body []byte) (warnings []Warning, skipped int, err error) {
	items, err := decodeItems(body)
	if err != nil {
		return nil, 0, fmt.Errorf("parse warnings: %w", err)
	}

	warnings = make([]Warning, 0, len(items))
	for _, item := range items {
		w, err := ParseWarning(item)
		if err != nil {
			skipped++
			continue
		}
		warnings = append(warnings, w)
	}
	return warnings, skipped, nil
}

// ParseWarning decodes a single flood warning item. Missing or wrong-typed
// fields take their defaults; only an item that is not an object fails.
func ParseWarning(raw json.RawMessage) (Warning, error) {
	o, err := decodeObject(raw)
	if err != nil {
		return Warning{}, fmt.Errorf("parse warning: %w", err)
	}

	w := Warning{
		ID:                  fieldOr(o, "floodAreaID", unknown),
		Description:         fieldOr(o, "description", unknown),
		AreaName:            fieldOr(o, "eaAreaName", unknown),
		Region:              fieldOr(o, "eaRegionName", ""),
		Severity:            fieldOr(o, "severity", unknown),
		SeverityLevel:       fieldOr(o, "severityLevel", 0),
		TimeMessageChanged:  fieldOr(o, "timeMessageChanged", ""),
		TimeRaised:          fieldOr(o, "timeRaised", ""),
		TimeSeverityChanged: fieldOr(o, "timeSeverityChanged", ""),
		Message:             fieldOr(o, "message", ""),
	}
	if area, ok := o.child("floodArea"); ok {
		w.County = fieldOr(area, "county", unknown)
		w.PolygonURL = fieldOr(area, "polygon", "")
	}
	return w, nil
}

// PolygonPath returns the exterior ring of the first flood area polygon, or
// nil when no polygon has been attached.
func (w Warning) PolygonPath() []Coordinate {
	if len(w.FloodArea) == 0 || len(w.FloodArea[0]) == 0 {
		return nil
	}
	return w.FloodArea[0][0]
}
