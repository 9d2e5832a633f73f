package domain

import (
	"encoding/json"
	"fmt"
)

const unknown = "unknown"

// Station is a flood-monitoring station such as a river level gauge.
type Station struct {
	RLOIid        string    `json:"rloi_id"`
	CatchmentName string    `json:"catchment_name"`
	DateOpened    string    `json:"date_opened"`
	Label         string    `json:"label"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Northing      int64     `json:"northing"`
	Easting       int64     `json:"easting"`
	Notation      string    `json:"notation"`
	Town          string    `json:"town"`
	RiverName     string    `json:"river_name"`
	Status        string    `json:"status,omitempty"`
	Measures      []Measure `json:"measures,omitempty"`
}

// ParseStations parses a /id/stations response. Items that fail to parse are
// skipped; skipped reports how many.
func ParseStations(body []byte) (stations []Station, skipped int, err error) {
	items, err := decodeItems(body)
	if err != nil {
		return nil, 0, fmt.Errorf("parse stations: %w", err)
	}

	stations = make([]Station, 0, len(items))
	for _, item := range items {
		s, err := ParseStation(item)
		if err != nil {
			skipped++
			continue
		}
		stations = append(stations, s)
	}
	return stations, skipped, nil
}

// ParseStation decodes a single station item. Fields that may carry one value
// per status entry resolve to the value paired with the active status.
func ParseStation(raw json.RawMessage) (Station, error) {
	o, err := decodeObject(raw)
	if err != nil {
		return Station{}, fmt.Errorf("parse station: %w", err)
	}

	idx := activeIndex(o)
	var s Station
	var errs fieldErrors

	s.RLOIid = errs.collect(activeField(o, "RLOIid", unknown, idx))
	s.CatchmentName = errs.collect(activeField(o, "catchmentName", unknown, idx))
	s.DateOpened = errs.collect(activeField(o, "dateOpened", unknown, idx))
	s.Label = errs.collect(activeField(o, "label", unknown, idx))
	s.Lat = errs.collectFloat(activeField(o, "lat", 0.0, idx))
	s.Lon = errs.collectFloat(activeField(o, "long", 0.0, idx))
	s.Northing = int64(errs.collectFloat(activeField(o, "northing", 0.0, idx)))
	s.Easting = int64(errs.collectFloat(activeField(o, "easting", 0.0, idx)))
	s.Notation = errs.collect(field(o, "notation", unknown))
	s.Town = errs.collect(field(o, "town", unknown))
	s.RiverName = errs.collect(field(o, "riverName", unknown))
	s.Status = errs.collect(activeField(o, "status", "", idx))

	if err := errs.err(); err != nil {
		return Station{}, fmt.Errorf("parse station %s: %w", s.Notation, err)
	}
	return s, nil
}

// fieldErrors keeps the first decoding error across a run of field reads.
type fieldErrors struct {
	first error
}

func (e *fieldErrors) collect(v string, err error) string {
	if err != nil && e.first == nil {
		e.first = err
	}
	return v
}

func (e *fieldErrors) collectFloat(v float64, err error) float64 {
	if err != nil && e.first == nil {
		e.first = err
	}
	return v
}

func (e *fieldErrors) err() error { return e.first }
