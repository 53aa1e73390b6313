// Package collector drives one scrape of a remote host: controller topology,
// per-drive SMART dumps through the RAID controller and directly attached
// devices through smartctl. It produces metric records and nothing else.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sigreer/perccli-exporter/internal/discovery"
	"github.com/sigreer/perccli-exporter/internal/hba"
	"github.com/sigreer/perccli-exporter/internal/remote"
	"github.com/sigreer/perccli-exporter/internal/smart"
	"github.com/sourcegraph/conc/pool"
)

// ErrUnknownTarget is returned for targets without a configured executor
var ErrUnknownTarget = errors.New("unknown target")

// TopologyError reports that the controller topology could not be read,
// which aborts the scrape
type TopologyError struct {
	Target string
	Err    error
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("failed to collect topology of %s: %v", e.Target, e.Err)
}

func (e *TopologyError) Unwrap() error { return e.Err }

// Options controls which tools are run and how
type Options struct {
	PerccliPath     string
	SmartctlPath    string
	SmartctlEnabled bool
	Timeout         time.Duration
	Concurrency     int
	HexMarkers      [][2]byte
}

// Collector is safe for concurrent use; it holds no per-scrape state
type Collector struct {
	opts      Options
	executors map[string]remote.Executor
	hex       *smart.HexDecoder
	json      *smart.JSONDecoder
	log       *slog.Logger
	now       func() time.Time
}

// New creates a collector over a fixed set of per-target executors
func New(opts Options, executors map[string]remote.Executor, log *slog.Logger) *Collector {
	if opts.PerccliPath == "" {
		opts.PerccliPath = hba.DefaultPerccliPath
	}
	if opts.SmartctlPath == "" {
		opts.SmartctlPath = discovery.DefaultSmartctlPath
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.HexMarkers == nil {
		opts.HexMarkers = smart.DefaultHexMarkers
	}
	log = log.With("component", "collector")

	return &Collector{
		opts:      opts,
		executors: executors,
		hex:       smart.NewHexDecoder(opts.HexMarkers, log),
		json:      smart.NewJSONDecoder(log),
		log:       log,
		now:       time.Now,
	}
}

// HasTarget reports whether target has an executor
func (c *Collector) HasTarget(target string) bool {
	_, ok := c.executors[target]
	return ok
}

// Collect scrapes target once. Only a topology failure is returned as an
// error; failures for single drives or devices are logged and counted.
func (c *Collector) Collect(ctx context.Context, target string) (*Result, error) {
	exec, ok := c.executors[target]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}

	start := c.now()
	log := c.log.With("target", target)

	controllers, err := c.topology(ctx, exec)
	if err != nil {
		return nil, &TopologyError{Target: target, Err: err}
	}

	res := &Result{Target: target, Controllers: len(controllers)}
	var b builder

	var drives []hba.PhysicalDrive
	for _, ctrl := range controllers {
		addController(&b, ctrl)
		if ctrl.Family == hba.FamilyMegaRAID {
			drives = append(drives, ctrl.Drives...)
		}
	}
	res.Drives = len(drives)

	smartByDrive := c.driveSmart(ctx, log, exec, drives)
	for i, d := range drives {
		addDrive(&b, d, smartByDrive[i].attrs)
		if smartByDrive[i].err != nil {
			res.SmartErrors++
		}
	}

	if c.opts.SmartctlEnabled {
		devices, failures := c.deviceHealth(ctx, log, exec)
		res.Devices = len(devices)
		res.SmartErrors += failures
		for _, d := range devices {
			addDevice(&b, d)
		}
	}

	res.Duration = c.now().Sub(start)
	b.add(MetricSmartErrors, float64(res.SmartErrors))
	b.add(MetricScrapeDuration, res.Duration.Seconds())
	res.Records = b.records

	log.Debug("scrape finished",
		"controllers", res.Controllers,
		"drives", res.Drives,
		"devices", res.Devices,
		"smart_errors", res.SmartErrors,
		"records", len(res.Records),
		"duration", res.Duration,
	)

	return res, nil
}

func (c *Collector) topology(ctx context.Context, exec remote.Executor) ([]hba.Controller, error) {
	out, err := exec.Execute(ctx, hba.TopologyCommand(c.opts.PerccliPath), c.opts.Timeout)
	if err != nil {
		return nil, err
	}
	return hba.ParseTopology([]byte(out))
}

type driveResult struct {
	attrs map[string]uint64
	err   error
}

// driveSmart fetches and decodes the SMART dump of every drive. Results are
// indexed like drives.
func (c *Collector) driveSmart(ctx context.Context, log *slog.Logger, exec remote.Executor, drives []hba.PhysicalDrive) []driveResult {
	results := make([]driveResult, len(drives))

	p := pool.New().WithMaxGoroutines(c.opts.Concurrency)
	for i, d := range drives {
		p.Go(func() {
			out, err := exec.Execute(ctx, hba.SmartCommand(c.opts.PerccliPath, d), c.opts.Timeout)
			if err != nil {
				log.Warn("failed to fetch drive SMART data",
					"command", "perccli_smart",
					"drive", d.Path(),
					"class", remote.Classify(err),
					"error", err,
				)
				results[i] = driveResult{err: err}
				return
			}

			data := hba.ExtractSmartHex(out)
			if data == "" {
				log.Debug("no SMART data reported", "drive", d.Path())
				return
			}
			results[i] = driveResult{attrs: c.hex.Decode(data)}
		})
	}
	p.Wait()

	return results
}

type deviceResult struct {
	device discovery.Device
	health smart.DeviceHealth
}

// deviceHealth discovers directly attached devices and queries each one.
// A device whose query fails is kept with an empty attribute set. It
// returns the devices and the number of failures.
func (c *Collector) deviceHealth(ctx context.Context, log *slog.Logger, exec remote.Executor) ([]deviceResult, int) {
	out, err := exec.Execute(ctx, discovery.ScanCommand(c.opts.SmartctlPath), c.opts.Timeout)
	if err != nil {
		log.Warn("failed to scan for devices",
			"command", "smartctl_scan",
			"class", remote.Classify(err),
			"error", err,
		)
		return nil, 1
	}

	var devices []discovery.Device
	for _, d := range discovery.ParseScan(out) {
		if !d.Queryable() {
			log.Debug("skipping device with unrecognized transport", "device", d.Path, "type", d.Type)
			continue
		}
		devices = append(devices, d)
	}

	results := make([]deviceResult, len(devices))
	failed := make([]bool, len(devices))

	p := pool.New().WithMaxGoroutines(c.opts.Concurrency)
	for i, d := range devices {
		p.Go(func() {
			results[i].device = d

			out, err := c.smartctl(ctx, exec, d)
			if err != nil {
				log.Warn("failed to fetch device health",
					"command", "smartctl_health",
					"device", d.Path,
					"class", remote.Classify(err),
					"error", err,
				)
				results[i].health = smart.DeviceHealth{Serial: smart.UnknownSerial, Attributes: map[string]float64{}}
				failed[i] = true
				return
			}

			switch d.Transport {
			case discovery.TransportNVMe:
				results[i].health = c.json.DecodeNVMe([]byte(out))
			case discovery.TransportSCSI:
				results[i].health = c.json.DecodeSCSI([]byte(out))
			}
		})
	}
	p.Wait()

	failures := 0
	for _, f := range failed {
		if f {
			failures++
		}
	}

	return results, failures
}

// smartctl exit status is a bitmask; bits 0 and 1 mean the report is unusable,
// higher bits only describe the device state
const smartctlFatalBits = 0b11

func (c *Collector) smartctl(ctx context.Context, exec remote.Executor, d discovery.Device) (string, error) {
	out, err := exec.Execute(ctx, discovery.HealthCommand(c.opts.SmartctlPath, d), c.opts.Timeout)
	if err == nil {
		return out, nil
	}

	var ce *remote.CommandError
	if errors.As(err, &ce) && ce.ExitCode > 0 && ce.ExitCode&smartctlFatalBits == 0 && ce.Stdout != "" {
		return ce.Stdout, nil
	}
	return "", err
}

func addController(b *builder, ctrl hba.Controller) {
	b.add(MetricControllerInfo, 1,
		"controller", ctrl.Index,
		"model", ctrl.Model,
		"serial", ctrl.Serial,
		"fwversion", ctrl.Firmware,
		"driver", ctrl.Driver,
	)
	b.add(MetricControllerStatus, controllerStatus(ctrl), "controller", ctrl.Index)
	if ctrl.Temperature != nil {
		b.add(MetricControllerTemperature, float64(*ctrl.Temperature), "controller", ctrl.Index)
	}

	if ctrl.Family != hba.FamilyMegaRAID {
		return
	}

	for _, vd := range ctrl.VirtualDrives {
		b.add(MetricVirtualDriveStatus, boolValue(vd.State == "Optl"),
			"controller", ctrl.Index,
			"vd", vd.Label(),
		)
	}
	if ctrl.BBU != nil {
		b.add(MetricBBUHealth, bbuHealth(ctrl.BBU.Status), "controller", ctrl.Index)
	}
}

func addDrive(b *builder, d hba.PhysicalDrive, attrs map[string]uint64) {
	label := d.Label()

	b.add(MetricDriveStatus, boolValue(d.State == "Onln"),
		"controller", d.Controller,
		"drive", label,
	)
	if temp, ok := driveTemp(d.Temp); ok {
		b.add(MetricDriveTemp, temp,
			"controller", d.Controller,
			"drive", label,
		)
	}

	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		b.add(MetricDriveSmart, float64(attrs[name]),
			"controller", d.Controller,
			"drive", label,
			"attribute", name,
		)
	}
}

func addDevice(b *builder, r deviceResult) {
	transport := string(r.device.Transport)

	b.add(MetricDeviceInfo, 1,
		"device", r.device.Path,
		"transport", transport,
		"identifier", r.device.Identifier,
		"serial", r.health.Serial,
	)
	for _, name := range slices.Sorted(maps.Keys(r.health.Attributes)) {
		b.add(MetricDeviceSmart, r.health.Attributes[name],
			"device", r.device.Path,
			"transport", transport,
			"serial", r.health.Serial,
			"attribute", name,
		)
	}
}

// controllerStatus: HBAs in IT mode report "OK", RAID controllers "Optimal"
func controllerStatus(ctrl hba.Controller) float64 {
	if ctrl.Family == hba.FamilySAS {
		return boolValue(ctrl.Status == "OK")
	}
	return boolValue(ctrl.Status == "Optimal")
}

// healthy BBU status codes: 0 ok, 8 charging, 4096 learn cycle
func bbuHealth(code int) float64 {
	switch code {
	case 0, 8, 4096:
		return 1
	}
	return 0
}

// driveTemp parses perccli temperatures such as "34C"
func driveTemp(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "C")
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return float64(v), true
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
