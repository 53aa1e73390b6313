package main

import (
	"context"
	"os"

	"github.com/prometheus/common/expfmt"
	"github.com/sigreer/perccli-exporter/internal/exporter"
	"github.com/sigreer/perccli-exporter/internal/remote"
	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <target>",
	Short: "Scrape one target and print the metrics",
	Long: `Scrape one target once and print the result in Prometheus text format.

Useful to check credentials and tool paths before pointing Prometheus at
the exporter.`,
	Args: cobra.ExactArgs(1),
	Run:  runScrape,
}

func runScrape(cmd *cobra.Command, args []string) {
	cfg, log := loadConfig()
	target := args[0]

	if _, ok := cfg.Target(target); !ok {
		fatalf("unknown target %q", target)
	}

	res, err := newCollector(cfg, log).Collect(context.Background(), target)
	if err != nil {
		fatalf("scrape of %s failed (%s): %v", target, remote.Classify(err), err)
	}

	mfs, err := exporter.NewRegistry(res.Records, log).Gather()
	if err != nil {
		fatalf("gathering metrics: %v", err)
	}

	enc := expfmt.NewEncoder(os.Stdout, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			fatalf("writing metrics: %v", err)
		}
	}
}
