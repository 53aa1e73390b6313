package smart

import (
	"fmt"

	"github.com/tidwall/gjson"
)

var scsiErrorCounterFields = []string{
	"errors_corrected_by_eccfast",
	"errors_corrected_by_eccdelayed",
	"errors_corrected_by_rereads_rewrites",
	"total_errors_corrected",
	"correction_algorithm_invocations",
	"gigabytes_processed",
	"total_uncorrected_errors",
}

// DecodeSCSI decodes 'smartctl -x -j -d scsi' output
func (d *JSONDecoder) DecodeSCSI(data []byte) DeviceHealth {
	return d.decode("scsi", data, func(root gjson.Result, attrs *attrSet) {
		attrs.set("temperature_celsius", root.Get("temperature.current"))
		attrs.set("temperature_trip_celsius", root.Get("temperature.drive_trip"))
		attrs.set("power_on_hours", root.Get("power_on_time.hours"))

		cycles := root.Get("scsi_start_stop_cycle_counter")
		attrs.set("start_stop_cycles", cycles.Get("accumulated_start_stop_cycles"))
		attrs.set("specified_start_stop_cycles", cycles.Get("specified_cycle_count_over_device_lifetime"))
		attrs.set("load_unload_cycles", cycles.Get("accumulated_load_unload_cycles"))
		attrs.set("specified_load_unload_cycles", cycles.Get("specified_load_unload_count_over_device_lifetime"))

		attrs.set("grown_defect_list", root.Get("scsi_grown_defect_list"))
		attrs.set("pending_defects", root.Get("scsi_pending_defects.count"))

		// each operation log and each counter in it is optional
		for _, op := range []string{"read", "write", "verify"} {
			counters := root.Get("scsi_error_counter_log." + op)
			if !counters.Exists() {
				continue
			}
			for _, f := range scsiErrorCounterFields {
				attrs.set(op+"_"+f, counters.Get(f))
			}
		}

		for n := range 2 {
			test := root.Get(fmt.Sprintf("scsi_self_test_%d", n))
			if !test.Exists() {
				continue
			}
			attrs.set(fmt.Sprintf("self_test_%d_result", n), test.Get("result.value"))
			attrs.set(fmt.Sprintf("self_test_%d_power_on_hours", n), test.Get("power_on_time.hours"))
		}

		attrs.set("extended_self_test_seconds", root.Get("scsi_extended_self_test_seconds"))
		attrs.set("smart_passed", root.Get("smart_status.passed"))
	})
}
