package hba

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sigreer/perccli-exporter/internal/remote"
	"github.com/tidwall/gjson"
)

// DefaultPerccliPath is where the Dell VIB installs perccli on ESXi
const DefaultPerccliPath = "/opt/lsi/perccli/perccli"

const unknown = "Unknown"

// ParseError reports perccli output that cannot be decoded
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse perccli output: %s: %v", e.Msg, e.Err)
	}
	return "failed to parse perccli output: " + e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorClass places ParseError in the remote error taxonomy
func (e *ParseError) ErrorClass() string { return remote.ClassParse }

// TopologyCommand returns the "list all controllers" command line
func TopologyCommand(perccli string) string {
	return remote.Command(perccli, "/call", "show", "all", "J")
}

// SmartCommand returns the command that dumps SMART data for one drive
func SmartCommand(perccli string, d PhysicalDrive) string {
	return remote.Command(perccli, d.Path(), "show", "smart")
}

// ParseTopology parses output from 'perccli /call show all J'
func ParseTopology(data []byte) ([]Controller, error) {
	if !gjson.ValidBytes(data) {
		return nil, &ParseError{Msg: "invalid JSON"}
	}

	root := gjson.ParseBytes(data)
	list := root.Get("Controllers")
	if !list.IsArray() {
		return nil, &ParseError{Msg: `missing "Controllers" array`}
	}

	var controllers []Controller
	for _, c := range list.Array() {
		resp := c.Get(gjson.Escape("Response Data"))
		// perccli reports e.g. "No Controller found" without response data
		if !resp.IsObject() {
			continue
		}
		controllers = append(controllers, parseController(resp))
	}

	return controllers, nil
}

func parseController(resp gjson.Result) Controller {
	basics := resp.Get("Basics")
	version := resp.Get("Version")
	status := resp.Get("Status")

	ctrl := Controller{
		Index:    stringOr(basics.Get("Controller"), unknown),
		Model:    stringOr(basics.Get("Model"), unknown),
		Serial:   stringOr(basics.Get(gjson.Escape("Serial Number")), unknown),
		Firmware: stringOr(version.Get(gjson.Escape("Firmware Version")), unknown),
		Driver:   stringOr(version.Get(gjson.Escape("Driver Name")), unknown),
		Status:   status.Get(gjson.Escape("Controller Status")).String(),
	}
	ctrl.Family = ClassifyDriver(ctrl.Driver)

	// perccli spells it both ways depending on firmware
	hwcfg := resp.Get("HwCfg")
	for _, k := range []string{"ROC temperature(Degree Celcius)", "ROC temperature(Degree Celsius)"} {
		if v := hwcfg.Get(gjson.Escape(k)); v.Exists() {
			if temp, ok := intValue(v); ok {
				ctrl.Temperature = &temp
			}
			break
		}
	}

	if ctrl.Family != FamilyMegaRAID {
		return ctrl
	}

	for _, pd := range resp.Get(gjson.Escape("PD LIST")).Array() {
		ctrl.Drives = append(ctrl.Drives, parsePhysicalDrive(ctrl.Index, pd))
	}
	for _, vd := range resp.Get(gjson.Escape("VD LIST")).Array() {
		ctrl.VirtualDrives = append(ctrl.VirtualDrives, parseVirtualDrive(ctrl.Index, vd))
	}
	ctrl.BBU = parseBBU(status.Get(gjson.Escape("BBU Status")))

	return ctrl
}

func parsePhysicalDrive(ctrlIndex string, pd gjson.Result) PhysicalDrive {
	drive := PhysicalDrive{
		Controller: ctrlIndex,
		DeviceID:   pd.Get("DID").String(),
		State:      stringOr(pd.Get("State"), unknown),
		Temp:       pd.Get("Temp").String(),
		Model:      strings.TrimSpace(pd.Get("Model").String()),
		Media:      pd.Get("Med").String(),
		Interface:  pd.Get("Intf").String(),
	}

	// "32:1", or " :1" for drives without an enclosure
	eidSlt := stringOr(pd.Get(gjson.Escape("EID:Slt")), "0:0")
	parts := strings.SplitN(eidSlt, ":", 2)
	drive.Enclosure = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		drive.Slot = strings.TrimSpace(parts[1])
	}
	if drive.Slot == "" {
		drive.Slot = "0"
	}

	return drive
}

func parseVirtualDrive(ctrlIndex string, vd gjson.Result) VirtualDrive {
	v := VirtualDrive{
		Controller: ctrlIndex,
		State:      stringOr(vd.Get("State"), unknown),
		RAIDType:   vd.Get("TYPE").String(),
		Name:       vd.Get("Name").String(),
	}

	dgvd := stringOr(vd.Get(gjson.Escape("DG/VD")), "0/0")
	parts := strings.SplitN(dgvd, "/", 2)
	v.DriveGroup = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		v.VolumeGroup = strings.TrimSpace(parts[1])
	}

	return v
}

// parseBBU returns nil when the controller reports no battery ("NA" or absent).
// Non-numeric status strings map to -1, which is never healthy.
func parseBBU(v gjson.Result) *BatteryBackupUnit {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if v.Type == gjson.String && strings.EqualFold(strings.TrimSpace(v.Str), "NA") {
		return nil
	}
	if code, ok := intValue(v); ok {
		return &BatteryBackupUnit{Status: code}
	}
	return &BatteryBackupUnit{Status: -1}
}

var (
	reSmartHeader = regexp.MustCompile(`Smart Data Info .*=\s*$`)
	reHexLine     = regexp.MustCompile(`^\s*(?:[0-9a-fA-F]{2}\s*)+$`)
)

// ExtractSmartHex returns the hex block printed after the "Smart Data Info ... =" line
// of 'perccli /cX/eY/sZ show smart', with line breaks removed. Empty if there is none.
func ExtractSmartHex(output string) string {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")

	var b strings.Builder
	inBlock := false
	for _, line := range lines {
		if !inBlock {
			inBlock = reSmartHeader.MatchString(line)
			continue
		}
		if !reHexLine.MatchString(line) {
			if b.Len() > 0 {
				break
			}
			// tolerate blank lines between the header and the dump
			if strings.TrimSpace(line) == "" {
				continue
			}
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(line))
	}

	return b.String()
}

func stringOr(v gjson.Result, def string) string {
	if !v.Exists() || v.Type == gjson.Null {
		return def
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return def
	}
	return s
}

func intValue(v gjson.Result) (int, bool) {
	switch v.Type {
	case gjson.Number:
		return int(v.Int()), true
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		return n, err == nil
	}
	return 0, false
}
