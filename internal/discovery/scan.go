// Package discovery finds block devices that smartctl can reach directly on a
// remote host, bypassing the RAID controller.
package discovery

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/sigreer/perccli-exporter/internal/remote"
)

// DefaultSmartctlPath is where the smartmontools VIB installs smartctl on ESXi
const DefaultSmartctlPath = "/opt/smartmontools/smartctl"

// Transport is the device protocol inferred from the scan type flag
type Transport string

const (
	TransportNVMe         Transport = "nvme"
	TransportSCSI         Transport = "scsi"
	TransportUnrecognized Transport = "unrecognized"
)

// Device is one line of 'smartctl --scan' output
type Device struct {
	Path       string
	Type       string // -d flag as reported
	Transport  Transport
	Identifier string
}

// Queryable reports whether a JSON decoder exists for the device transport
func (d Device) Queryable() bool {
	return d.Transport == TransportNVMe || d.Transport == TransportSCSI
}

// ScanCommand builds the discovery command line
func ScanCommand(smartctl string) string {
	return remote.Command(smartctl, "--scan")
}

// HealthCommand builds the per-device health query command line
func HealthCommand(smartctl string, d Device) string {
	return remote.Command(smartctl, "-x", "-j", "-d", d.Type, d.Path)
}

var (
	scanLineRe   = regexp.MustCompile(`^(\S+)\s+-d\s+(\S+)(?:\s+#\s*(.*))?$`)
	bracketIdent = regexp.MustCompile(`\[([^\]]*)\]`)
)

// ParseScan parses 'smartctl --scan' output. Lines that do not match the
// expected shape are ignored.
func ParseScan(output string) []Device {
	var devices []Device

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.Contains(line, "open failed") {
			continue
		}

		m := scanLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		devices = append(devices, Device{
			Path:       m[1],
			Type:       m[2],
			Transport:  classifyTransport(m[2]),
			Identifier: identifier(m[1], strings.TrimSpace(m[3])),
		})
	}

	return devices
}

func classifyTransport(flag string) Transport {
	f := strings.ToLower(flag)
	switch {
	case strings.Contains(f, "nvme"):
		return TransportNVMe
	case strings.Contains(f, "scsi"):
		return TransportSCSI
	default:
		return TransportUnrecognized
	}
}

func identifier(path, comment string) string {
	if m := bracketIdent.FindStringSubmatch(comment); m != nil {
		return m[1]
	}
	if comment != "" {
		return comment
	}
	return path
}
