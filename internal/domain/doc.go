// Package domain models Environment Agency (EA) flood-monitoring data.
//
// # Data Source
//
// Everything originates from the EA Real Time flood-monitoring API at
// https://environment.data.gov.uk/flood-monitoring. Three collections are used:
//
//	/id/stations?status=Active          monitoring stations (river gauges, tide gauges)
//	/id/stations/{notation}/measures    the measures a station publishes
//	/id/floods                          currently active flood alerts and warnings
//
// All list endpoints wrap their results in an "items" array. Each flood
// warning links to a flood area polygon, a GeoJSON FeatureCollection served
// from a separate URL (floodArea.polygon).
//
// # EA Data Conventions
//
// Station fields may be either a scalar or an array. Stations that have been
// re-sited or re-numbered list one value per status entry, e.g.
//
//	"RLOIid": ["10427", "9154"],
//	"status": [".../statusActive", ".../statusSuspended"]
//
// The value paired with the first status containing "statusActive" is the
// current one. When status is a scalar, or no entry is active, the first
// element is used. See [ParseStation].
//
// Severity levels:
//
//	1  Severe Flood Warning  (danger to life)
//	2  Flood Warning         (flooding is expected)
//	3  Flood Alert           (flooding is possible)
//	4  Warning no Longer in Force
//
// Lower levels are more severe, so warnings are presented in ascending
// severityLevel order. See [SortBySeverity].
//
// Coordinates:
//
//	GeoJSON positions are [longitude, latitude] (WGS-84). Station records use
//	separate "lat" and "long" fields plus OSGB36 "easting"/"northing".
//
// # Refresh cadence
//
// The EA updates the floods collection every 15 minutes. [NextRefreshDelay]
// aligns polling to those boundaries.
package domain
