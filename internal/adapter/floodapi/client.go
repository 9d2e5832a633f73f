package floodapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/flood-monitor-service/internal/domain"
	"github.com/couchcryptid/flood-monitor-service/internal/observability"
)

// Client talks to the Environment Agency real-time flood-monitoring API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a flood-monitoring API client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchStations returns the monitoring stations with the given status
// ("Active", "Suspended", ...). An empty status returns every station.
func (c *Client) FetchStations(ctx context.Context, status string) ([]domain.Station, error) {
	u := c.baseURL + "/id/stations"
	if status != "" {
		u += "?" + url.Values{"status": {status}}.Encode()
	}

	body, err := c.get(ctx, u, "stations")
	if err != nil {
		return nil, err
	}

	stations, skipped, err := domain.ParseStations(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.Warn("skipped malformed stations", "skipped", skipped, "parsed", len(stations))
	}
	return stations, nil
}

// FetchWarnings returns the flood warnings and alerts currently in force,
// without polygons.
func (c *Client) FetchWarnings(ctx context.Context) ([]domain.Warning, error) {
	body, err := c.get(ctx, c.baseURL+"/id/floods", "floods")
	if err != nil {
		return nil, err
	}

	warnings, skipped, err := domain.ParseWarnings(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		c.logger.Warn("skipped malformed warnings", "skipped", skipped, "parsed", len(warnings))
	}
	return warnings, nil
}

// FetchMeasures returns the measures published by one station.
func (c *Client) FetchMeasures(ctx context.Context, notation string) ([]domain.Measure, error) {
	u := fmt.Sprintf("%s/id/stations/%s/measures", c.baseURL, url.PathEscape(notation))

	body, err := c.get(ctx, u, "measures")
	if err != nil {
		return nil, err
	}

	measures, err := domain.ParseMeasures(body)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", notation, err)
	}
	return measures, nil
}

// FetchPolygon downloads a flood area's GeoJSON boundary. polygonURL is the
// absolute URL carried on the warning.
func (c *Client) FetchPolygon(ctx context.Context, polygonURL string) (domain.MultiPolygon, error) {
	body, err := c.get(ctx, polygonURL, "polygon")
	if err != nil {
		return nil, err
	}

	mp, err := domain.ParseFloodAreaPolygon(body)
	if err != nil {
		return nil, fmt.Errorf("parse polygon %s: %w", polygonURL, err)
	}
	return mp, nil
}

func (c *Client) get(ctx context.Context, fullURL, endpoint string) ([]byte, error) {
	start := time.Now()
	body, err := c.doRequest(ctx, fullURL)
	c.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
		c.logger.Debug("flood api request failed", "endpoint", endpoint, "url", fullURL, "error", err)
	}
	c.metrics.APIRequests.WithLabelValues(endpoint, outcome).Inc()
	return body, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", fullURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flood api error: status %d: %s", resp.StatusCode, truncate(body, 512))
	}
	return body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
