package collector

import (
	"time"
)

// Metric names
const (
	Namespace = "megaraid"

	MetricControllerInfo        = Namespace + "_controller_info"
	MetricControllerStatus      = Namespace + "_controller_status"
	MetricControllerTemperature = Namespace + "_controller_temperature"
	MetricDriveStatus           = Namespace + "_drive_status"
	MetricDriveTemp             = Namespace + "_drive_temp"
	MetricDriveSmart            = Namespace + "_drive_smart"
	MetricVirtualDriveStatus    = Namespace + "_virtual_drive_status"
	MetricBBUHealth             = Namespace + "_bbu_health"
	MetricDeviceInfo            = Namespace + "_device_info"
	MetricDeviceSmart           = Namespace + "_device_smart"
	MetricSmartErrors           = Namespace + "_smart_errors"
	MetricScrapeDuration        = Namespace + "_scrape_duration_seconds"
)

// Label is one name/value pair of a record
type Label struct {
	Name  string
	Value string
}

// Record is one metric sample. Labels keep their emission order.
type Record struct {
	Name   string
	Labels []Label
	Value  float64
}

// LabelNames returns the label names in order
func (r Record) LabelNames() []string {
	names := make([]string, len(r.Labels))
	for i, l := range r.Labels {
		names[i] = l.Name
	}
	return names
}

// LabelValues returns the label values in order
func (r Record) LabelValues() []string {
	values := make([]string, len(r.Labels))
	for i, l := range r.Labels {
		values[i] = l.Value
	}
	return values
}

// Result is the outcome of one scrape of one target
type Result struct {
	Target      string
	Records     []Record
	Controllers int
	Drives      int
	Devices     int
	SmartErrors int
	Duration    time.Duration
}

// builder accumulates records in emission order
type builder struct {
	records []Record
}

func (b *builder) add(name string, value float64, labels ...string) {
	r := Record{Name: name, Value: value}
	for i := 0; i+1 < len(labels); i += 2 {
		r.Labels = append(r.Labels, Label{Name: labels[i], Value: labels[i+1]})
	}
	b.records = append(b.records, r)
}
