// Package cluster groups monitoring stations into map markers by zoom level.
package cluster

import (
	"math"

	"github.com/couchcryptid/flood-monitor-service/internal/domain"
)

const indexMaxDepth = 10

// ukBounds limits which stations are placed on the map.
var ukBounds = Bounds{MinLat: 49.0, MaxLat: 61.0, MinLon: -8.0, MaxLon: 2.0}

// Item is a single map marker: one station or a cluster of stations.
type Item struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Count        int     `json:"count"`
	IsCluster    bool    `json:"is_cluster"`
	StationIndex int     `json:"station_index"`
}

// Index is an immutable quadtree over a station list. Safe for concurrent reads.
type Index struct {
	tree *QuadTree
}

// NewIndex builds an index over stations. Station indices in returned items
// refer to positions in this slice.
func NewIndex(stations []domain.Station) *Index {
	if len(stations) == 0 {
		return &Index{}
	}

	b := Bounds{MinLat: 90, MaxLat: -90, MinLon: 180, MaxLon: -180}
	for _, s := range stations {
		b.MinLat = math.Min(b.MinLat, s.Lat)
		b.MaxLat = math.Max(b.MaxLat, s.Lat)
		b.MinLon = math.Min(b.MinLon, s.Lon)
		b.MaxLon = math.Max(b.MaxLon, s.Lon)
	}
	latPad := math.Max(0.1, (b.MaxLat-b.MinLat)*0.1)
	lonPad := math.Max(0.1, (b.MaxLon-b.MinLon)*0.1)
	b.MinLat -= latPad
	b.MaxLat += latPad
	b.MinLon -= lonPad
	b.MaxLon += lonPad

	tree := NewQuadTree(b, indexMaxDepth)
	for i, s := range stations {
		if ukBounds.contains(s.Lat, s.Lon) {
			tree.Insert(Point{Lat: s.Lat, Lon: s.Lon, Index: i})
		}
	}
	return &Index{tree: tree}
}

// Items returns the markers to draw at zoom.
func (idx *Index) Items(zoom float64) []Item {
	if idx == nil || idx.tree == nil {
		return []Item{}
	}

	clusters := idx.tree.Clusters(zoom, MinDistanceForZoom(zoom))
	items := make([]Item, 0, len(clusters))
	for _, c := range clusters {
		item := Item{Lat: c.Lat, Lon: c.Lon, Count: c.Count, IsCluster: c.Count > 1, StationIndex: -1}
		if !item.IsCluster {
			item.StationIndex = c.Indices[0]
		}
		items = append(items, item)
	}
	return items
}

// MinDistanceForZoom returns the minimum marker separation, in degrees, for a
// map zoom level.
func MinDistanceForZoom(zoom float64) float64 {
	switch {
	case zoom >= 14:
		return 0.0005
	case zoom >= 12:
		return 0.002
	case zoom >= 10:
		return 0.005
	case zoom >= 9:
		return 0.01
	case zoom >= 8:
		return 0.02
	case zoom >= 7:
		return 0.04
	default:
		return 0.08
	}
}
