package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sigreer/perccli-exporter/internal/config"
	"github.com/sigreer/perccli-exporter/internal/db"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent scrapes from the history database",
	Long: `Show recent scrapes recorded by 'serve' when 'history_db' is set.

Examples:
  perccli-exporter history
  perccli-exporter history --target esxi01.example.com --limit 50
  perccli-exporter history --prune 720h`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().String("db", "", "history database (default is 'history_db' from the config file)")
	historyCmd.Flags().String("target", "", "only show scrapes of this target")
	historyCmd.Flags().Int("limit", 20, "number of scrapes to show")
	historyCmd.Flags().Duration("prune", 0, "delete scrapes older than this before listing")
}

func runHistory(cmd *cobra.Command, args []string) {
	path, _ := cmd.Flags().GetString("db")
	target, _ := cmd.Flags().GetString("target")
	limit, _ := cmd.Flags().GetInt("limit")
	prune, _ := cmd.Flags().GetDuration("prune")

	if path == "" {
		cfg, err := config.Load(config.ResolvePath(cfgFile))
		if err != nil {
			fatalf("loading config: %v", err)
		}
		path = cfg.HistoryDB
	}
	if path == "" {
		fatalf("no history database configured, set 'history_db' or use --db")
	}

	d, err := db.New(path)
	if err != nil {
		fatalf("%v", err)
	}
	defer d.Close()

	ctx := context.Background()

	if prune > 0 {
		n, err := d.PruneScrapes(ctx, prune)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Pruned %s scrapes older than %s\n", humanize.Comma(n), prune)
	}

	scrapes, err := d.RecentScrapes(ctx, target, limit)
	if err != nil {
		fatalf("%v", err)
	}
	if len(scrapes) == 0 {
		fmt.Println("No scrapes recorded")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTARGET\tSTATUS\tDURATION\tMETRICS\tSMART ERRORS\tERROR")
	for _, s := range scrapes {
		errText := ""
		if s.ErrorClass != "" {
			errText = s.ErrorClass + ": " + s.Message
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			humanize.Time(s.StartedAt),
			s.Target,
			s.Status,
			s.Duration.Round(time.Millisecond),
			humanize.Comma(int64(s.Metrics)),
			s.SmartErrors,
			errText,
		)
	}
	w.Flush()
}
