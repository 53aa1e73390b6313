package exporter

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sigreer/perccli-exporter/internal/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(name string, value float64, labels ...string) collector.Record {
	r := collector.Record{Name: name, Value: value}
	for i := 0; i+1 < len(labels); i += 2 {
		r.Labels = append(r.Labels, collector.Label{Name: labels[i], Value: labels[i+1]})
	}
	return r
}

func TestNewRegistry(t *testing.T) {
	records := []collector.Record{
		rec(collector.MetricDriveTemp, 30, "controller", "0", "drive", "Drive /c0/e32/s0"),
		rec(collector.MetricDriveTemp, 31, "controller", "0", "drive", "Drive /c0/e32/s1"),
		// same series again: last value wins
		rec(collector.MetricDriveTemp, 35, "controller", "0", "drive", "Drive /c0/e32/s0"),
		// conflicting label names are dropped
		rec(collector.MetricDriveTemp, 99, "controller", "0"),
		rec(collector.MetricSmartErrors, 2),
		rec("megaraid_custom", 1),
	}

	reg := NewRegistry(records, discardLog)

	expected := `
# HELP megaraid_drive_temp Physical drive temperature in degrees Celsius
# TYPE megaraid_drive_temp gauge
megaraid_drive_temp{controller="0",drive="Drive /c0/e32/s0"} 35
megaraid_drive_temp{controller="0",drive="Drive /c0/e32/s1"} 31
# HELP megaraid_smart_errors Number of drives and devices whose SMART data could not be fetched
# TYPE megaraid_smart_errors gauge
megaraid_smart_errors 2
# HELP megaraid_custom megaraid_custom
# TYPE megaraid_custom gauge
megaraid_custom 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
}

func TestNewRegistryEmpty(t *testing.T) {
	n, err := testutil.GatherAndCount(NewRegistry(nil, discardLog))
	require.NoError(t, err)
	assert.Zero(t, n)
}
