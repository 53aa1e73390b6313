package smart

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// nvmeDataUnit is the size of one NVMe "data unit": 1000 blocks of 512 bytes
const nvmeDataUnit = 512_000

// nvmeFields maps nvme_smart_health_information_log keys onto attribute names
var nvmeFields = []struct {
	key  string
	name string
}{
	{"critical_warning", "critical_warning"},
	{"temperature", "temperature_celsius"},
	{"available_spare", "available_spare"},
	{"available_spare_threshold", "available_spare_threshold"},
	{"host_reads", "host_read_commands"},
	{"host_writes", "host_write_commands"},
	{"controller_busy_time", "controller_busy_time"},
	{"power_cycles", "power_cycle_count"},
	{"power_on_hours", "power_on_hours"},
	{"unsafe_shutdowns", "unsafe_shutdowns"},
	{"media_errors", "media_errors"},
	{"num_err_log_entries", "error_log_entries"},
	{"warning_temp_time", "warning_temp_time"},
	{"critical_comp_time", "critical_comp_time"},
}

// DecodeNVMe decodes 'smartctl -x -j -d nvme' output
func (d *JSONDecoder) DecodeNVMe(data []byte) DeviceHealth {
	return d.decode("nvme", data, func(root gjson.Result, attrs *attrSet) {
		log := root.Get("nvme_smart_health_information_log")

		for _, f := range nvmeFields {
			attrs.set(f.name, log.Get(f.key))
		}

		attrs.setScaled("data_units_read", log.Get("data_units_read"), nvmeDataUnit)
		attrs.setScaled("data_units_written", log.Get("data_units_written"), nvmeDataUnit)

		// percentage_used may exceed 100 on worn drives
		attrs.setFunc("ssd_life_left", log.Get("percentage_used"), func(used float64) float64 {
			return max(100-used, 0)
		})

		for i, v := range log.Get("temperature_sensors").Array() {
			attrs.set(fmt.Sprintf("temperature_sensor_%d_celsius", i+1), v)
		}
	})
}
