// Package svb decodes TwinCAT Scope View binary capture files (.svb).
//
// An SVB file is a little-endian header region followed by per-channel data
// regions. The header region starts with its own uint64 byte size, then the
// file-level metadata (name, start/end time, channel count) and one
// fixed-layout record per channel. Each channel record points at a packed
// array of {uint32 timestamp, value} samples elsewhere in the file.
//
// Reference: Beckhoff TE13xx TC3 Scope View documentation. Note that the
// on-disk layout of the Offset and Scalefactor fields is the reverse of the
// documented order; this package follows the on-disk layout.
package svb

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// fieldKind identifies one primitive field in a header schema.
type fieldKind int

const (
	kindUint8 fieldKind = iota
	kindUint16
	kindUint32
	kindUint64
	kindInt8
	kindInt16
	kindInt32
	kindInt64
	kindFloat32
	kindFloat64
	kindBool
	kindString // uint32 byte length + UTF-8 data
	kindTime   // uint64 ticks (100ns) since 1601-01-01
)

// value is one decoded header field. Only the member matching Kind is set.
type value struct {
	Kind  fieldKind
	Uint  uint64
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Time  time.Time
}

const (
	// ticksPerSecond is the 100ns tick rate used for every timestamp in the
	// format: absolute times, sample periods and per-sample timestamps.
	ticksPerSecond = 10_000_000

	// epochOffsetSeconds is the span between the format's 1601-01-01 epoch
	// and the Unix epoch.
	epochOffsetSeconds = 11_644_473_600
)

// ticksToTime converts 100ns ticks since 1601-01-01 to an absolute UTC time.
// time.Duration cannot span four centuries, so the conversion goes through
// Unix seconds plus a sub-second nanosecond remainder.
func ticksToTime(ticks uint64) time.Time {
	sec := int64(ticks/ticksPerSecond) - epochOffsetSeconds
	nsec := int64(ticks%ticksPerSecond) * 100
	return time.Unix(sec, nsec).UTC()
}

// cursor is a byte cursor over a fully materialized header buffer.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

// need verifies n more bytes are available without advancing.
func (c *cursor) need(n int) error {
	if c.remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncated, n, c.pos, c.remaining())
	}
	return nil
}

func (c *cursor) take(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) readUint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readUint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) readUint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) readUint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) readFloat32() (float32, error) {
	v, err := c.readUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (c *cursor) readFloat64() (float64, error) {
	v, err := c.readUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (c *cursor) readBool() (bool, error) {
	v, err := c.readUint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// readString reads a uint32 byte length followed by that many bytes of UTF-8.
func (c *cursor) readString() (string, error) {
	start := c.pos
	n, err := c.readUint32()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: invalid UTF-8 in %d-byte string at offset %d",
			ErrMalformedString, n, start)
	}
	return string(b), nil
}

// readTime reads a uint64 tick count and converts it to an absolute time.
func (c *cursor) readTime() (time.Time, error) {
	ticks, err := c.readUint64()
	if err != nil {
		return time.Time{}, err
	}
	return ticksToTime(ticks), nil
}

// readRecord decodes an ordered field sequence, advancing the cursor by
// exactly the bytes consumed. No repetition syntax, no big-endian variants:
// the format never needs either.
func (c *cursor) readRecord(schema []fieldKind) ([]value, error) {
	out := make([]value, 0, len(schema))
	for _, k := range schema {
		v := value{Kind: k}
		var err error
		switch k {
		case kindUint8:
			var u uint8
			u, err = c.readUint8()
			v.Uint = uint64(u)
		case kindUint16:
			var u uint16
			u, err = c.readUint16()
			v.Uint = uint64(u)
		case kindUint32:
			var u uint32
			u, err = c.readUint32()
			v.Uint = uint64(u)
		case kindUint64:
			v.Uint, err = c.readUint64()
		case kindInt8:
			var u uint8
			u, err = c.readUint8()
			v.Int = int64(int8(u))
		case kindInt16:
			var u uint16
			u, err = c.readUint16()
			v.Int = int64(int16(u))
		case kindInt32:
			var u uint32
			u, err = c.readUint32()
			v.Int = int64(int32(u))
		case kindInt64:
			var u uint64
			u, err = c.readUint64()
			v.Int = int64(u)
		case kindFloat32:
			var f float32
			f, err = c.readFloat32()
			v.Float = float64(f)
		case kindFloat64:
			v.Float, err = c.readFloat64()
		case kindBool:
			v.Bool, err = c.readBool()
		case kindString:
			v.Str, err = c.readString()
		case kindTime:
			v.Time, err = c.readTime()
		default:
			err = fmt.Errorf("svb: unsupported field kind %d", k)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
