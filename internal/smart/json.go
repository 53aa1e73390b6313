package smart

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// UnknownSerial is reported when a health report could not be decoded
const UnknownSerial = "unknown"

// DeviceHealth is the decoded smartctl JSON report of one device
type DeviceHealth struct {
	Serial     string
	Attributes map[string]float64
}

func emptyHealth() DeviceHealth {
	return DeviceHealth{Serial: UnknownSerial, Attributes: map[string]float64{}}
}

// JSONDecoder decodes smartctl JSON health reports of directly attached devices
type JSONDecoder struct {
	log *slog.Logger
}

// NewJSONDecoder creates a decoder that logs failures to log
func NewJSONDecoder(log *slog.Logger) *JSONDecoder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &JSONDecoder{log: log}
}

// decode runs fn over a validated report and turns any failure into an empty result
func (d *JSONDecoder) decode(kind string, data []byte, fn func(root gjson.Result, attrs *attrSet)) (h DeviceHealth) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("failed to decode health report", "kind", kind, "panic", r)
			h = emptyHealth()
		}
	}()

	if !gjson.ValidBytes(data) {
		d.log.Warn("health report is not valid JSON", "kind", kind, "bytes", len(data))
		return emptyHealth()
	}

	root := gjson.ParseBytes(data)
	attrs := &attrSet{values: make(map[string]float64), log: d.log}
	fn(root, attrs)

	serial := strings.TrimSpace(root.Get("serial_number").String())
	if serial == "" {
		serial = UnknownSerial
	}

	return DeviceHealth{Serial: serial, Attributes: attrs.values}
}

// attrSet collects numeric attributes; absent fields are skipped, non-numeric ones dropped
type attrSet struct {
	values map[string]float64
	log    *slog.Logger
}

func (s *attrSet) set(name string, v gjson.Result) {
	s.setFunc(name, v, func(f float64) float64 { return f })
}

func (s *attrSet) setScaled(name string, v gjson.Result, factor float64) {
	s.setFunc(name, v, func(f float64) float64 { return f * factor })
}

func (s *attrSet) setFunc(name string, v gjson.Result, fn func(float64) float64) {
	if !v.Exists() || v.Type == gjson.Null {
		return
	}
	f, ok := numeric(v)
	if !ok {
		s.log.Debug("dropping non-numeric SMART value", "attribute", name, "value", v.Raw)
		return
	}
	s.values[name] = fn(f)
}

// numeric coerces a JSON value: numbers pass, booleans become 1/0,
// strings like "1,234.5" are parsed
func numeric(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Num, true
	case gjson.True:
		return 1, true
	case gjson.False:
		return 0, true
	case gjson.String:
		s := strings.ReplaceAll(strings.TrimSpace(v.Str), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
