package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedGeometry is returned for GeoJSON geometry types other than
// Polygon and MultiPolygon.
var ErrUnsupportedGeometry = errors.New("unsupported geometry type")

// Coordinate is a WGS-84 position. GeoJSON encodes it as [lon, lat].
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// LinearRing is a closed ring; the first and last positions are equal.
type LinearRing []Coordinate

// Polygon holds an exterior ring followed by any interior rings (holes).
type Polygon []LinearRing

// MultiPolygon covers flood areas made of several disconnected polygons.
type MultiPolygon []Polygon

// featureCollection is the subset of a GeoJSON FeatureCollection served at a
// flood area's polygon URL.
type featureCollection struct {
	Features []struct {
		Geometry *Geometry `json:"geometry"`
	} `json:"features"`
}

// Geometry is a raw GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseFloodAreaPolygon extracts the geometry of the first feature in a
// flood area GeoJSON document.
func ParseFloodAreaPolygon(body []byte) (MultiPolygon, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("parse flood area: %w", err)
	}
	if len(fc.Features) == 0 || fc.Features[0].Geometry == nil {
		return nil, errors.New("parse flood area: no feature geometry")
	}
	return ParseGeometry(*fc.Features[0].Geometry)
}

// ParseGeometry converts a Polygon or MultiPolygon geometry into a
// MultiPolygon. Malformed positions are skipped and empty rings and polygons
// are dropped. A geometry without coordinates yields an empty result.
func ParseGeometry(g Geometry) (MultiPolygon, error) {
	if len(g.Coordinates) == 0 || string(g.Coordinates) == "null" {
		return MultiPolygon{}, nil
	}

	var coords []any
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return MultiPolygon{}, nil //nolint:nilerr // non-array coordinates carry no shape
	}

	result := MultiPolygon{}
	switch g.Type {
	case "Polygon":
		if p := parsePolygon(coords); len(p) > 0 {
			result = append(result, p)
		}
	case "MultiPolygon":
		for _, pc := range coords {
			arr, ok := pc.([]any)
			if !ok {
				continue
			}
			if p := parsePolygon(arr); len(p) > 0 {
				result = append(result, p)
			}
		}
	default:
		return result, fmt.Errorf("%w: %q", ErrUnsupportedGeometry, g.Type)
	}
	return result, nil
}

func parsePolygon(rings []any) Polygon {
	polygon := make(Polygon, 0, len(rings))
	for _, r := range rings {
		arr, ok := r.([]any)
		if !ok {
			continue
		}
		if ring := parseLinearRing(arr); len(ring) > 0 {
			polygon = append(polygon, ring)
		}
	}
	return polygon
}

func parseLinearRing(positions []any) LinearRing {
	ring := make(LinearRing, 0, len(positions))
	for _, p := range positions {
		pos, ok := p.([]any)
		if !ok || len(pos) < 2 {
			continue
		}
		lon, okLon := pos[0].(float64)
		lat, okLat := pos[1].(float64)
		if !okLon || !okLat {
			continue
		}
		ring = append(ring, Coordinate{Lon: lon, Lat: lat})
	}
	return ring
}
