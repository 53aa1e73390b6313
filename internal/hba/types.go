package hba

import "fmt"

// Family groups controllers by the kernel/VMkernel driver that owns them
type Family string

const (
	FamilyMegaRAID Family = "megaraid"
	FamilySAS      Family = "sas"
	FamilyOther    Family = "other"
)

// driverFamilies maps exact perccli "Driver Name" values onto a family
var driverFamilies = map[string]Family{
	"megaraid_sas": FamilyMegaRAID,
	"lsi-mr3":      FamilyMegaRAID,
	"mpt3sas":      FamilySAS,
}

// ClassifyDriver returns the family for a driver name, FamilyOther when unknown
func ClassifyDriver(driver string) Family {
	if f, ok := driverFamilies[driver]; ok {
		return f
	}
	return FamilyOther
}

// Controller contains RAID/HBA adapter information from perccli
type Controller struct {
	// Identification
	Index    string `json:"index"` // 0, 1, ...
	Model    string `json:"model"`
	Serial   string `json:"serial"`
	Firmware string `json:"firmware_version"`
	Driver   string `json:"driver_name"`
	Family   Family `json:"family"`

	// Status
	Status      string `json:"status"`                // Optimal, OK, Degraded, ...
	Temperature *int   `json:"temperature,omitempty"` // ROC temperature

	// Only enumerated for the megaraid family
	Drives        []PhysicalDrive    `json:"drives,omitempty"`
	VirtualDrives []VirtualDrive     `json:"virtual_drives,omitempty"`
	BBU           *BatteryBackupUnit `json:"bbu,omitempty"`
}

// PhysicalDrive contains a single "PD LIST" entry
type PhysicalDrive struct {
	Controller string `json:"controller"`
	Enclosure  string `json:"enclosure"` // empty for directly attached drives
	Slot       string `json:"slot"`
	DeviceID   string `json:"device_id,omitempty"`
	State      string `json:"state"`          // Onln, Offln, UGood, Rbld, ...
	Temp       string `json:"temp,omitempty"` // "34C"
	Model      string `json:"model,omitempty"`
	Media      string `json:"media,omitempty"` // HDD, SSD
	Interface  string `json:"interface,omitempty"`
}

// Path returns the perccli object path, e.g. /c0/e32/s1
func (d PhysicalDrive) Path() string {
	if d.Enclosure == "" {
		return fmt.Sprintf("/c%s/s%s", d.Controller, d.Slot)
	}
	return fmt.Sprintf("/c%s/e%s/s%s", d.Controller, d.Enclosure, d.Slot)
}

// Label returns the drive identifier used in metric labels
func (d PhysicalDrive) Label() string {
	return "Drive " + d.Path()
}

// VirtualDrive contains a single "VD LIST" entry
type VirtualDrive struct {
	Controller  string `json:"controller"`
	DriveGroup  string `json:"drive_group"`
	VolumeGroup string `json:"volume_group"`
	State       string `json:"state"` // Optl, Dgrd, Pdgd, OfLn, ...
	RAIDType    string `json:"raid_type,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Label returns the VD identifier used in metric labels, e.g. DG0/VD1
func (v VirtualDrive) Label() string {
	return fmt.Sprintf("DG%s/VD%s", v.DriveGroup, v.VolumeGroup)
}

// BatteryBackupUnit holds the BBU status code reported by the controller
type BatteryBackupUnit struct {
	Status int `json:"status"`
}
