package exporter

import (
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sigreer/perccli-exporter/internal/collector"
)

var help = map[string]string{
	collector.MetricControllerInfo:        "Controller identification, always 1",
	collector.MetricControllerStatus:      "Controller status, 1 if optimal",
	collector.MetricControllerTemperature: "Controller ROC temperature in degrees Celsius",
	collector.MetricDriveStatus:           "Physical drive state, 1 if online",
	collector.MetricDriveTemp:             "Physical drive temperature in degrees Celsius",
	collector.MetricDriveSmart:            "Raw SMART attribute value of a drive behind the RAID controller",
	collector.MetricVirtualDriveStatus:    "Virtual drive state, 1 if optimal",
	collector.MetricBBUHealth:             "Battery backup unit health, 1 if healthy",
	collector.MetricDeviceInfo:            "Directly attached device identification, always 1",
	collector.MetricDeviceSmart:           "SMART health attribute of a directly attached device",
	collector.MetricSmartErrors:           "Number of drives and devices whose SMART data could not be fetched",
	collector.MetricScrapeDuration:        "Duration of the scrape in seconds",
}

// NewRegistry builds a registry holding exactly the given records.
// Records of one name must share their label names; a conflicting record
// is dropped. Repeated label values overwrite earlier ones.
func NewRegistry(records []collector.Record, log *slog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	gauges := make(map[string]*prometheus.GaugeVec)
	labelSets := make(map[string]string)

	for _, r := range records {
		names := r.LabelNames()
		key := strings.Join(names, ",")

		gauge, ok := gauges[r.Name]
		if !ok {
			gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: r.Name,
				Help: helpFor(r.Name),
			}, names)
			if err := reg.Register(gauge); err != nil {
				log.Debug("failed to register gauge", "name", r.Name, "error", err)
				continue
			}
			gauges[r.Name] = gauge
			labelSets[r.Name] = key
		}

		if labelSets[r.Name] != key {
			log.Debug("dropping record with conflicting labels", "name", r.Name, "labels", key, "want", labelSets[r.Name])
			continue
		}

		gauge.WithLabelValues(r.LabelValues()...).Set(r.Value)
	}

	return reg
}

func helpFor(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}
