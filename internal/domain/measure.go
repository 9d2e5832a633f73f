package domain

import (
	"encoding/json"
	"fmt"
)

// Measure is one quantity published by a station, e.g. water level in mASD.
type Measure struct {
	ID                string  `json:"id"`
	Parameter         string  `json:"parameter"`
	ParameterName     string  `json:"parameter_name"`
	Period            float64 `json:"period"`
	Qualifier         string  `json:"qualifier"`
	UnitName          string  `json:"unit_name"`
	LatestReading     float64 `json:"latest_reading"`
	LatestReadingTime string  `json:"latest_reading_time,omitempty"`
}

// ParseMeasures parses a /id/stations/{notation}/measures response.
func ParseMeasures(body []byte) ([]Measure, error) {
	items, err := decodeItems(body)
	if err != nil {
		return nil, fmt.Errorf("parse measures: %w", err)
	}

	measures := make([]Measure, 0, len(items))
	for _, item := range items {
		m, err := ParseMeasure(item)
		if err != nil {
			return nil, err
		}
		measures = append(measures, m)
	}
	return measures, nil
}

// ParseMeasure decodes a single measure item. latestReading is sometimes a
// URL instead of an embedded reading; that yields a zero reading.
func ParseMeasure(raw json.RawMessage) (Measure, error) {
	o, err := decodeObject(raw)
	if err != nil {
		return Measure{}, fmt.Errorf("parse measure: %w", err)
	}

	var m Measure
	var errs fieldErrors
	m.ID = errs.collect(field(o, "@id", ""))
	m.Parameter = errs.collect(field(o, "parameter", ""))
	m.ParameterName = errs.collect(field(o, "parameterName", ""))
	m.Qualifier = errs.collect(field(o, "qualifier", ""))
	m.UnitName = errs.collect(field(o, "unitName", ""))
	m.Period = errs.collectFloat(field(o, "period", 0.0))

	if reading, ok := o.child("latestReading"); ok {
		m.LatestReading = errs.collectFloat(field(reading, "value", 0.0))
		m.LatestReadingTime = errs.collect(field(reading, "dateTime", ""))
	}

	if err := errs.err(); err != nil {
		return Measure{}, fmt.Errorf("parse measure %s: %w", m.ID, err)
	}
	return m, nil
}
