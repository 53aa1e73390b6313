package smart

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// recordLen is the size of one attribute record in the controller dump:
// id(1) flags(2) normalized(1) worst(1) raw(6)
const recordLen = 11

// DefaultHexMarkers are the two-byte framing prefixes seen in front of the
// attribute table. They are empirical, hence configurable.
var DefaultHexMarkers = [][2]byte{{0x01, 0x00}, {0x2f, 0x00}}

var errInvalidID = errors.New("attribute id out of range")

// HexDecoder turns the raw SMART hex dump printed by perccli into named attributes
type HexDecoder struct {
	markers [][2]byte
	log     *slog.Logger
}

// NewHexDecoder creates a decoder that skips any of the given framing markers
func NewHexDecoder(markers [][2]byte, log *slog.Logger) *HexDecoder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &HexDecoder{markers: markers, log: log}
}

// ParseMarkers converts marker strings such as "0100" into byte pairs
func ParseMarkers(ss []string) ([][2]byte, error) {
	markers := make([][2]byte, 0, len(ss))
	for _, s := range ss {
		b, err := hex.DecodeString(strings.TrimSpace(s))
		if err != nil || len(b) != 2 {
			return nil, fmt.Errorf("invalid SMART hex marker %q: want exactly two hex bytes", s)
		}
		markers = append(markers, [2]byte{b[0], b[1]})
	}
	return markers, nil
}

// record is one decoded attribute entry
type record struct {
	id         byte
	normalized byte
	worst      byte
	raw        uint64
}

// Decode never fails: garbage input yields an empty map. When an id repeats,
// the last occurrence wins.
func (d *HexDecoder) Decode(s string) (attrs map[string]uint64) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("failed to decode SMART hex data", "panic", r)
			attrs = map[string]uint64{}
		}
	}()

	data := hexBytes(s)
	attrs = make(map[string]uint64)

	i := 0
	if d.hasMarker(data) {
		i = 2
	}

	// no length field in the format: on a bad record, slide one byte and resync
	for i+recordLen <= len(data) {
		rec, err := parseRecord(data[i : i+recordLen])
		if err != nil {
			i++
			continue
		}
		attrs[AttributeName(rec.id)] = rec.raw
		i += recordLen
	}

	d.log.Debug("decoded SMART hex data", "bytes", len(data), "attributes", len(attrs))
	return attrs
}

func (d *HexDecoder) hasMarker(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	for _, m := range d.markers {
		if data[0] == m[0] && data[1] == m[1] {
			return true
		}
	}
	return false
}

func parseRecord(b []byte) (record, error) {
	if len(b) < recordLen {
		return record{}, fmt.Errorf("short record: %d bytes", len(b))
	}
	if b[0] == 0 {
		return record{}, errInvalidID
	}

	rec := record{
		id:         b[0],
		normalized: b[3],
		worst:      b[4],
	}

	// only the low byte carries the Celsius reading, the rest is min/max history
	if rec.id == AttrTemperatureCelsius {
		rec.raw = uint64(b[5])
		return rec, nil
	}

	for k := 0; k < 6; k++ {
		rec.raw |= uint64(b[5+k]) << (8 * k)
	}
	return rec, nil
}

// hexBytes keeps only hex digits and decodes them pairwise; a trailing odd nibble is dropped
func hexBytes(s string) []byte {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			return r
		}
		return -1
	}, s)
	if len(clean)%2 != 0 {
		clean = clean[:len(clean)-1]
	}

	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil
	}
	return b
}
