package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/couchcryptid/flood-monitor-service/internal/adapter/floodapi"
	"github.com/couchcryptid/flood-monitor-service/internal/cluster"
	"github.com/couchcryptid/flood-monitor-service/internal/config"
	"github.com/couchcryptid/flood-monitor-service/internal/domain"
	"github.com/couchcryptid/flood-monitor-service/internal/observability"
)

const (
	baseURLFlag     = "base-url"
	timeoutFlag     = "timeout"
	statusFlag      = "status"
	polygonsFlag    = "polygons"
	concurrencyFlag = "concurrency"
	zoomFlag        = "zoom"
	verboseFlag     = "verbose"
)

func joinFlagNames(ids ...string) string { return strings.Join(ids, ", ") }

func buildApp() *cli.App {
	app := cli.NewApp()

	app.Name = "floodctl"
	app.Usage = "query the Environment Agency flood-monitoring API"
	app.Writer = os.Stdout

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   baseURLFlag,
			Usage:  "flood-monitoring API root",
			Value:  config.DefaultBaseURL,
			EnvVar: "FLOOD_API_BASE_URL",
		},
		cli.DurationFlag{
			Name:   timeoutFlag,
			Usage:  "per-request timeout",
			Value:  config.DefaultAPITimeout,
			EnvVar: "FLOOD_API_TIMEOUT",
		},
		cli.BoolFlag{
			Name:  joinFlagNames(verboseFlag, "v"),
			Usage: "log requests to stderr",
		},
	}

	app.Commands = []cli.Command{
		stationsCommand(),
		warningsCommand(),
		measuresCommand(),
		clustersCommand(),
	}

	return app
}

func stationsCommand() cli.Command {
	return cli.Command{
		Name:  "stations",
		Usage: "list monitoring stations",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  statusFlag,
				Usage: "station status filter; empty lists every station",
				Value: "Active",
			},
		},
		Action: func(c *cli.Context) error {
			stations, err := newClient(c).FetchStations(context.Background(), c.String(statusFlag))
			if err != nil {
				return errors.Wrap(err, "problem fetching stations")
			}
			return printJSON(c.App.Writer, stations)
		},
	}
}

func warningsCommand() cli.Command {
	return cli.Command{
		Name:  "warnings",
		Usage: "list active flood warnings, most severe first",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  polygonsFlag,
				Usage: "download each flood area polygon",
			},
			cli.IntFlag{
				Name:  concurrencyFlag,
				Usage: "maximum concurrent polygon downloads",
				Value: 4,
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			client := newClient(c)

			warnings, err := client.FetchWarnings(ctx)
			if err != nil {
				return errors.Wrap(err, "problem fetching warnings")
			}
			if c.Bool(polygonsFlag) {
				warnings, err = floodapi.AttachPolygons(ctx, client, warnings, c.Int(concurrencyFlag), newLogger(c))
				if err != nil {
					return errors.Wrap(err, "problem fetching polygons")
				}
			}
			domain.SortBySeverity(warnings)

			out := make([]warningOutput, len(warnings))
			for i, w := range warnings {
				out[i] = warningOutput{Warning: w, PolygonPath: w.PolygonPath()}
			}
			return printJSON(c.App.Writer, out)
		},
	}
}

type warningOutput struct {
	domain.Warning
	PolygonPath []domain.Coordinate `json:"polygon_path,omitempty"`
}

func measuresCommand() cli.Command {
	return cli.Command{
		Name:      "measures",
		Usage:     "show the latest measures for a station",
		ArgsUsage: "NOTATION",
		Action: func(c *cli.Context) error {
			notation := c.Args().First()
			if notation == "" {
				return errors.New("station notation is required")
			}
			measures, err := newClient(c).FetchMeasures(context.Background(), notation)
			if err != nil {
				return errors.Wrapf(err, "problem fetching measures for %s", notation)
			}
			return printJSON(c.App.Writer, measures)
		},
	}
}

func clustersCommand() cli.Command {
	return cli.Command{
		Name:  "clusters",
		Usage: "group stations into map markers for a zoom level",
		Flags: []cli.Flag{
			cli.Float64Flag{
				Name:  zoomFlag,
				Usage: "map zoom level, 0-22",
				Value: 6,
			},
			cli.StringFlag{
				Name:  statusFlag,
				Usage: "station status filter",
				Value: "Active",
			},
		},
		Action: func(c *cli.Context) error {
			zoom := c.Float64(zoomFlag)
			if zoom < 0 || zoom > 22 {
				return errors.Errorf("zoom %g out of range 0-22", zoom)
			}
			stations, err := newClient(c).FetchStations(context.Background(), c.String(statusFlag))
			if err != nil {
				return errors.Wrap(err, "problem fetching stations")
			}
			return printJSON(c.App.Writer, cluster.NewIndex(stations).Items(zoom))
		},
	}
}

func newClient(c *cli.Context) *floodapi.Client {
	return floodapi.NewClient(
		c.GlobalString(baseURLFlag),
		c.GlobalDuration(timeoutFlag),
		observability.NewUnregisteredMetrics(),
		newLogger(c),
	)
}

func newLogger(c *cli.Context) *slog.Logger {
	if !c.GlobalBool(verboseFlag) {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "problem rendering result")
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
