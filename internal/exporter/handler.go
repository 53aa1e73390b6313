// Package exporter serves scrape results over HTTP in Prometheus format.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sigreer/perccli-exporter/internal/collector"
	"github.com/sigreer/perccli-exporter/internal/db"
	"github.com/sigreer/perccli-exporter/internal/remote"
)

// Scraper collects one target
type Scraper interface {
	HasTarget(target string) bool
	Collect(ctx context.Context, target string) (*collector.Result, error)
}

// History receives one entry per scrape attempt
type History interface {
	RecordScrape(ctx context.Context, s *db.Scrape) error
}

// Handler answers /metrics?target=<name>
type Handler struct {
	scraper Scraper
	history History
	log     *slog.Logger
	now     func() time.Time
}

// NewHandler creates the metrics handler. history may be nil.
func NewHandler(scraper Scraper, history History, log *slog.Logger) *Handler {
	return &Handler{
		scraper: scraper,
		history: history,
		log:     log.With("component", "exporter"),
		now:     time.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		http.Error(w, "'target' parameter must be specified", http.StatusBadRequest)
		return
	}
	if !h.scraper.HasTarget(target) {
		http.Error(w, fmt.Sprintf("unknown target %q", target), http.StatusBadRequest)
		return
	}

	log := h.log.With("target", target)
	start := h.now()

	res, err := h.scraper.Collect(r.Context(), target)
	if err != nil {
		class := remote.Classify(err)
		log.Error("scrape failed", "class", class, "error", err)
		h.record(r.Context(), log, &db.Scrape{
			Target:     target,
			StartedAt:  start,
			Duration:   h.now().Sub(start),
			Status:     db.StatusFailed,
			ErrorClass: class,
			Message:    err.Error(),
		})
		if errors.Is(err, collector.ErrUnknownTarget) {
			http.Error(w, fmt.Sprintf("unknown target %q", target), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("failed to scrape %s: %s error", target, class), http.StatusInternalServerError)
		return
	}

	h.record(r.Context(), log, &db.Scrape{
		Target:      target,
		StartedAt:   start,
		Duration:    res.Duration,
		Status:      db.StatusOK,
		Metrics:     len(res.Records),
		SmartErrors: res.SmartErrors,
	})

	reg := NewRegistry(res.Records, log)
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
		EnableOpenMetrics: true,
	}).ServeHTTP(w, r)
}

func (h *Handler) record(ctx context.Context, log *slog.Logger, s *db.Scrape) {
	if h.history == nil {
		return
	}
	if err := h.history.RecordScrape(context.WithoutCancel(ctx), s); err != nil {
		log.Warn("failed to record scrape history", "error", err)
	}
}

var landingPage = template.Must(template.New("landing").Parse(`<html>
<head><title>PERC exporter</title></head>
<body>
<h1>PERC exporter</h1>
<p><a href="/health">Health</a></p>
<ul>
{{range .}}<li><a href="/metrics?target={{.}}">{{.}}</a></li>
{{end}}</ul>
</body>
</html>
`))

// NewMux wires the metrics handler, /health and a landing page listing targets
func NewMux(metrics http.Handler, targets []string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		landingPage.Execute(w, targets)
	})
	return mux
}
