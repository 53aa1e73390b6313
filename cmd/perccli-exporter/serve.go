package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigreer/perccli-exporter/internal/db"
	"github.com/sigreer/perccli-exporter/internal/exporter"
	"github.com/sigreer/perccli-exporter/internal/version"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve metrics over HTTP",
	Long: `Serve metrics over HTTP.

Every request to /metrics?target=<name> runs a fresh scrape of that host;
nothing is cached between requests. The listen address comes from
'listen_address' in the config file and can be overridden with $PORT.`,
	Run: runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, log := loadConfig()
	c := newCollector(cfg, log)

	var history exporter.History
	if cfg.HistoryDB != "" {
		d, err := db.New(cfg.HistoryDB)
		if err != nil {
			fatalf("opening history database: %v", err)
		}
		defer d.Close()
		history = d
		log.Info("recording scrape history", "path", d.Path())
	}

	handler := exporter.NewHandler(c, history, log)
	mux := exporter.NewMux(handler, cfg.TargetNames())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting perccli-exporter",
		"version", version.Version,
		"targets", len(cfg.Targets),
		"timeout", cfg.Timeout,
		"concurrency", cfg.Concurrency,
		"smartctl", cfg.Smartctl.Enabled,
	)

	if err := exporter.Serve(ctx, cfg.ListenAddress, mux, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
