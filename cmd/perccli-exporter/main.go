package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sigreer/perccli-exporter/internal/collector"
	"github.com/sigreer/perccli-exporter/internal/config"
	"github.com/sigreer/perccli-exporter/internal/logger"
	"github.com/sigreer/perccli-exporter/internal/remote"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "perccli-exporter",
	Short: "Prometheus exporter for PERC/MegaRAID and SMART health on ESXi hosts",
	Long: `perccli-exporter runs perccli and smartctl on remote ESXi hosts over SSH
and exposes controller, virtual drive, physical drive and SMART health as
Prometheus metrics.

Scrape a host with GET /metrics?target=<name>, where <name> is a key of the
'targets' section of the config file.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $"+config.PathEnv+" or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(decodeHexCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig loads the config file and builds the logger it asks for
func loadConfig() (*config.Config, *slog.Logger) {
	cfg, err := config.Load(config.ResolvePath(cfgFile))
	if err != nil {
		fatalf("loading config: %v", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	log, err := logger.New(level)
	if err != nil {
		fatalf("%v", err)
	}
	slog.SetDefault(log)

	return cfg, log
}

// newCollector prepares one SSH executor per configured target
func newCollector(cfg *config.Config, log *slog.Logger) *collector.Collector {
	executors := make(map[string]remote.Executor, len(cfg.Targets))
	for _, name := range cfg.TargetNames() {
		target, _ := cfg.Target(name)
		exec, err := remote.NewSSHExecutor(target.Options(name), log.With("target", name))
		if err != nil {
			fatalf("target %s: %v", name, err)
		}
		log.Debug("configured target", "name", name, "target", target)
		executors[name] = exec
	}

	return collector.New(collector.Options{
		PerccliPath:     cfg.Perccli.Path,
		SmartctlPath:    cfg.Smartctl.Path,
		SmartctlEnabled: cfg.Smartctl.Enabled,
		Timeout:         cfg.Timeout,
		Concurrency:     cfg.Concurrency,
		HexMarkers:      cfg.HexMarkers(),
	}, executors, log)
}
