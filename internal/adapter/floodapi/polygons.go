package floodapi

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/flood-monitor-service/internal/domain"
)

// AttachPolygons returns a copy of warnings with FloodArea populated for every
// warning that carries a polygon URL. At most limit downloads run at once.
//
// A failed download is logged and leaves that warning's FloodArea nil; only
// context cancellation is reported as an error.
func AttachPolygons(ctx context.Context, f PolygonFetcher, warnings []domain.Warning, limit int, logger *slog.Logger) ([]domain.Warning, error) {
	out := make([]domain.Warning, len(warnings))
	copy(out, warnings)
	if f == nil {
		return out, nil
	}

	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := range out {
		if out[i].PolygonURL == "" {
			continue
		}
		g.Go(func() error {
			mp, err := f.FetchPolygon(ctx, out[i].PolygonURL)
			if err != nil {
				logger.Warn("flood area polygon unavailable",
					"flood_area_id", out[i].ID,
					"url", out[i].PolygonURL,
					"error", err,
				)
				return nil
			}
			out[i].FloodArea = mp
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
