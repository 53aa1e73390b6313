package smart

import "fmt"

// Attribute ids with special handling
const (
	AttrTemperatureCelsius = 0xC2
)

// attributeNames is the static id -> name table for ATA SMART attributes as
// reported through the RAID controller. Some names follow the vendor meaning
// seen on Dell-branded drives rather than the generic ATA one.
var attributeNames = map[byte]string{
	0x01: "raw_read_error_rate",
	0x02: "throughput_performance",
	0x03: "spin_up_time",
	0x04: "start_stop_count",
	0x05: "reallocated_sector_count",
	0x07: "seek_error_rate",
	0x08: "seek_time_performance",
	0x09: "power_on_hours",
	0x0A: "spin_retry_count",
	0x0C: "power_cycle_count",
	0x53: "initial_bad_block_count",
	0xAB: "program_fail_count",
	0xAC: "erase_fail_count",
	0xB1: "wear_leveling_count",
	0xB3: "used_reserved_block_count_total",
	0xB5: "program_fail_count_total",
	0xB6: "erase_fail_count_total",
	0xB7: "runtime_bad_block",
	0xB8: "end_to_end_error",
	0xBB: "uncorrectable_error_count",
	0xBC: "command_timeout",
	0xBE: "airflow_temperature_celsius",
	0xC0: "power_off_retract_count",
	0xC1: "load_cycle_count",
	0xC2: "temperature_celsius",
	0xC3: "hardware_ecc_recovered",
	0xC4: "reallocation_event_count",
	0xC5: "current_pending_sector",
	0xC6: "uncorrectable_sector_count",
	0xC7: "udma_crc_error_count",
	0xE6: "g_sense_error_rate",
	0xE7: "ssd_life_left",
	0xE8: "available_reserved_space",
	0xE9: "media_wearout_indicator",
	0xEB: "por_recovery_count",
	0xF1: "total_host_writes",
	0xF2: "total_host_reads",
}

// AttributeName resolves an attribute id. Unmapped ids resolve to unknown_<hex id>.
func AttributeName(id byte) string {
	if name, ok := attributeNames[id]; ok {
		return name
	}
	return fmt.Sprintf("unknown_%02x", id)
}
