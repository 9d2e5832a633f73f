package monitor

import (
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/flood-monitor-service/internal/cluster"
	"github.com/couchcryptid/flood-monitor-service/internal/domain"
)

// State is the monitor's in-memory snapshot, shared with the HTTP API.
// Readers always receive copies.
type State struct {
	mu sync.RWMutex

	stations   []domain.Station
	byNotation map[string]int
	index      *cluster.Index
	stationsAt time.Time

	warnings  []domain.Warning
	changedAt time.Time // last time the warning list changed
	checkedAt time.Time // last successful refresh
}

// NewState returns an empty state.
func NewState() *State {
	return &State{byNotation: map[string]int{}, index: cluster.NewIndex(nil)}
}

// SetStations replaces the station list and rebuilds the cluster index.
func (s *State) SetStations(stations []domain.Station, at time.Time) {
	byNotation := make(map[string]int, len(stations))
	for i, st := range stations {
		if _, dup := byNotation[st.Notation]; !dup {
			byNotation[st.Notation] = i
		}
	}
	index := cluster.NewIndex(stations)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations = stations
	s.byNotation = byNotation
	s.index = index
	s.stationsAt = at
}

// Stations returns a copy of the station list.
func (s *State) Stations() []domain.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stations)
}

// Station looks a station up by notation.
func (s *State) Station(notation string) (domain.Station, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byNotation[notation]
	if !ok {
		return domain.Station{}, false
	}
	return s.stations[i], true
}

// SetMeasures records the latest measures fetched for a station. It reports
// false if the station is no longer known.
func (s *State) SetMeasures(notation string, measures []domain.Measure) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byNotation[notation]
	if !ok {
		return false
	}
	// Copy-on-write so slices handed out by Stations stay untouched.
	stations := slices.Clone(s.stations)
	stations[i].Measures = measures
	s.stations = stations
	return true
}

// StationsLoaded reports whether a station list has been loaded.
func (s *State) StationsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.stationsAt.IsZero()
}

// Clusters returns the map markers for zoom together with the station list
// their StationIndex values refer to.
func (s *State) Clusters(zoom float64) ([]cluster.Item, []domain.Station) {
	s.mu.RLock()
	index, stations := s.index, s.stations
	s.mu.RUnlock()
	return index.Items(zoom), stations
}

// SetWarnings replaces the active warnings. at is recorded as both the change
// time and the check time.
func (s *State) SetWarnings(warnings []domain.Warning, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = warnings
	s.changedAt = at
	s.checkedAt = at
}

// MarkChecked records a successful refresh that found nothing new.
func (s *State) MarkChecked(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkedAt = at
}

// Warnings returns a copy of the active warnings, most severe first, and the
// time of the last successful refresh.
func (s *State) Warnings() ([]domain.Warning, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.warnings), s.checkedAt
}

// WarningsChangedAt returns when the warning list last changed.
func (s *State) WarningsChangedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changedAt
}
