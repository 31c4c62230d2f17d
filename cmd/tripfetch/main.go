package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/wanderdata/tripfetch/pkg/logging"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:    "tripfetch",
		Usage:   "resumable batch fetcher for travel and lifestyle APIs",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file path (default: .env if present)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "human-readable console logs instead of JSON",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "run one batch fetch over a source",
				ArgsUsage: "<source>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "list the items a run would fetch, without fetching",
					},
					&cli.StringFlag{
						Name:  "backoff",
						Usage: "override the rate-limit backoff (e.g. 10m)",
					},
				},
				Action: fetchAction,
			},
			{
				Name:   "sources",
				Usage:  "list the available sources",
				Action: sourcesAction,
			},
			{
				Name:      "export",
				Usage:     "export travel warning successes to SQLite",
				ArgsUsage: " ",
				Action:    exportAction,
			},
			{
				Name:      "status",
				Usage:     "summarize a source's store file",
				ArgsUsage: "<source>",
				Action:    statusAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger := logging.NewLogger("main")
		logger.Error().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
