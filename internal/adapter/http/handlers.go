package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/flood-monitor-service/internal/cluster"
	"github.com/couchcryptid/flood-monitor-service/internal/domain"
	"github.com/couchcryptid/flood-monitor-service/internal/monitor"
)

const maxZoom = 22

type listResponse[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

type warningItem struct {
	domain.Warning
	PolygonPath []domain.Coordinate `json:"polygon_path"`
}

type warningsResponse struct {
	Count     int           `json:"count"`
	UpdatedAt *time.Time    `json:"updated_at"`
	Items     []warningItem `json:"items"`
}

type clusterItem struct {
	cluster.Item
	Notation string `json:"notation,omitempty"`
	Label    string `json:"label,omitempty"`
}

type clustersResponse struct {
	Zoom  float64       `json:"zoom"`
	Count int           `json:"count"`
	Items []clusterItem `json:"items"`
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	river := r.URL.Query().Get("river")
	town := r.URL.Query().Get("town")

	stations := s.monitor.State().Stations()
	items := make([]domain.Station, 0, len(stations))
	for _, st := range stations {
		if river != "" && !strings.EqualFold(st.RiverName, river) {
			continue
		}
		if town != "" && !strings.EqualFold(st.Town, town) {
			continue
		}
		items = append(items, st)
	}
	sharedobs.WriteJSON(w, http.StatusOK, listResponse[domain.Station]{Count: len(items), Items: items})
}

func (s *Server) handleMeasures(w http.ResponseWriter, r *http.Request) {
	notation := r.PathValue("notation")

	measures, err := s.monitor.Measures(r.Context(), notation)
	switch {
	case errors.Is(err, monitor.ErrStationNotFound):
		writeError(w, http.StatusNotFound, "station "+notation+" not found")
		return
	case err != nil:
		s.logger.Error("fetch measures failed", "notation", notation, "error", err)
		writeError(w, http.StatusBadGateway, "flood-monitoring API unavailable")
		return
	}
	if measures == nil {
		measures = []domain.Measure{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, listResponse[domain.Measure]{Count: len(measures), Items: measures})
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	minLevel := 0
	if v := r.URL.Query().Get("min_level"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "min_level must be a positive integer")
			return
		}
		minLevel = n
	}

	warnings, checkedAt := s.monitor.State().Warnings()
	items := make([]warningItem, 0, len(warnings))
	for _, wn := range warnings {
		if minLevel > 0 && wn.SeverityLevel > minLevel {
			continue
		}
		path := wn.PolygonPath()
		if path == nil {
			path = []domain.Coordinate{}
		}
		items = append(items, warningItem{Warning: wn, PolygonPath: path})
	}

	resp := warningsResponse{Count: len(items), Items: items}
	if !checkedAt.IsZero() {
		resp.UpdatedAt = &checkedAt
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	zoom, err := strconv.ParseFloat(r.URL.Query().Get("zoom"), 64)
	if err != nil || math.IsNaN(zoom) || zoom < 0 || zoom > maxZoom {
		writeError(w, http.StatusBadRequest, "zoom must be a number between 0 and 22")
		return
	}

	clusters, stations := s.monitor.State().Clusters(zoom)
	items := make([]clusterItem, len(clusters))
	for i, c := range clusters {
		items[i] = clusterItem{Item: c}
		if !c.IsCluster && c.StationIndex >= 0 && c.StationIndex < len(stations) {
			items[i].Notation = stations[c.StationIndex].Notation
			items[i].Label = stations[c.StationIndex].Label
		}
	}
	sharedobs.WriteJSON(w, http.StatusOK, clustersResponse{Zoom: zoom, Count: len(items), Items: items})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
