// Package main is the entry point for the Hostly reservation sync server.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/TomasBirkner/hostly-backend/internal/calendar"
	"github.com/TomasBirkner/hostly-backend/internal/config"
	"github.com/TomasBirkner/hostly-backend/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// VERSION in the environment overrides it.
var version = "dev"

func main() {
	app := &cli.App{
		Name:   config.AppName,
		Usage:  "Sync rental-platform calendars and serve reservations over HTTP.",
		Action: serve,
		Flags:  serveFlags(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server and the hourly sync (default).",
				Flags:  serveFlags(),
				Action: serve,
			},
			parseCommand(),
			healthCheckCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Logger.WithError(err).Error("Application failed")
		os.Exit(1)
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "port", Usage: "Listen port (overrides PORT)"},
		&cli.StringFlag{Name: "seed", Usage: "YAML seed file (overrides SEED_FILE)"},
		&cli.StringFlag{Name: "log-level", Usage: "Log level (overrides LOG_LEVEL)"},
		&cli.StringFlag{Name: "schedule", Usage: "Cron spec for syncs (overrides SYNC_CRON)"},
	}
}

// loadConfig merges .env, the environment and command-line flags.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()
	if os.Getenv("VERSION") == "" {
		cfg.Version = version
	}
	if v := c.String("port"); v != "" {
		cfg.Port = v
	}
	if v := c.String("seed"); v != "" {
		cfg.SeedFile = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.String("schedule"); v != "" {
		cfg.SyncCron = v
	}
	return cfg
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "Fetch one feed, classify it and print the reservations as JSON.",
		ArgsUsage: "<ical-url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "property", Value: "debug", Usage: "Property id stamped on reservations"},
		},
		Action: func(c *cli.Context) error {
			feedURL := strings.TrimSpace(c.Args().First())
			if feedURL == "" {
				return cli.Exit("parse requires an iCal URL", 2)
			}

			cfg := config.Load()
			logging.InitWithOutput(config.AppName, cfg.LogLevel, os.Stderr)

			parser := calendar.NewFeedParser(calendar.NewFetcher(cfg.FetchTimeout), nil)
			result := parser.Parse(c.Context, feedURL, c.String("property"))
			if !result.OK() {
				return fmt.Errorf("parsing feed: %w", result.Err)
			}

			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Reservations)
		},
	}
}

func healthCheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "health-check",
		Usage: "Probe /api/health on the local server; for container health checks.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "Server port (overrides PORT)"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if v := c.String("port"); v != "" {
				cfg.Port = v
			}
			if err := runHealthCheck(cfg.Addr()); err != nil {
				return cli.Exit(fmt.Sprintf("health check failed: %v", err), 1)
			}
			return nil
		},
	}
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost" + addr + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
