package svb

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// timestampWidth is the uint32 raw timestamp prefix of every sample record.
const timestampWidth = 4

// channelHeaderSchema is the fixed field sequence of one channel record.
// The first field is the record's own byte size, which includes those 8
// bytes. The Beckhoff documentation lists Scalefactor before Offset, but on
// disk Offset comes first; the schema follows the disk layout.
var channelHeaderSchema = []fieldKind{
	kindUint64,  // header size
	kindString,  // name
	kindString,  // AMS net id
	kindUint64,  // port
	kindUint64,  // sample period, 100ns ticks
	kindBool,    // symbol based
	kindString,  // symbol name
	kindString,  // comment
	kindUint64,  // index group
	kindUint64,  // index offset
	kindString,  // data type tag
	kindUint64,  // data type id
	kindUint64,  // value byte size
	kindUint64,  // sample count
	kindUint64,  // data byte size
	kindUint64,  // data region file offset
	kindFloat64, // offset
	kindFloat64, // scale factor
	kindUint64,  // bitmask
}

// ChannelHeader is the decoded per-channel metadata record.
type ChannelHeader struct {
	Name              string
	NetID             string
	Port              uint64
	SamplePeriodTicks uint64
	SymbolBased       bool
	SymbolName        string
	Comment           string
	IndexGroup        uint64
	IndexOffset       uint64
	DataType          DataType
	DataTypeID        uint64
	ValueByteSize     uint64
	SampleCount       uint64
	DataByteSize      uint64
	FileStartPosition uint64
	Offset            float64
	Scale             float64
	Bitmask           uint64
}

// SamplePeriod converts the raw 100ns-tick sample period to a Duration.
func (h *ChannelHeader) SamplePeriod() time.Duration {
	return time.Duration(h.SamplePeriodTicks) * 100 * time.Nanosecond
}

// Channel is one data channel of an SVB file.
//
// The sample records are a borrowed view into the file's data mapping, not a
// copy; a Channel must not be used after its File is closed. Derived series
// (timestamps, values, the unwrapped time axis, absolute datetimes) are
// computed on first use and cached, safe for concurrent readers.
type Channel struct {
	Header ChannelHeader

	// StartTime is the file-level capture start, the base for Datetimes.
	StartTime time.Time

	data   []byte // SampleCount records of {uint32 timestamp, value}
	stride int
	decode func(b []byte) float64

	tsOnce   sync.Once
	ts       []uint32
	valsOnce sync.Once
	vals     []float64
	timeOnce sync.Once
	axis     []float64
	dtOnce   sync.Once
	dt       []time.Time
}

// decodeChannel reads one channel record from the header cursor and binds it
// to its data region inside the mapped file.
//
// The header cursor and the data mapping are deliberately distinct: binding
// the data view never moves the header cursor.
func decodeChannel(cur *cursor, data []byte, startTime time.Time) (*Channel, error) {
	start := cur.pos

	fields, err := cur.readRecord(channelHeaderSchema)
	if err != nil {
		return nil, fmt.Errorf("channel record at offset %d: %w", start, err)
	}

	h := ChannelHeader{
		Name:              fields[1].Str,
		NetID:             fields[2].Str,
		Port:              fields[3].Uint,
		SamplePeriodTicks: fields[4].Uint,
		SymbolBased:       fields[5].Bool,
		SymbolName:        fields[6].Str,
		Comment:           fields[7].Str,
		IndexGroup:        fields[8].Uint,
		IndexOffset:       fields[9].Uint,
		DataType:          DataType(fields[10].Str),
		DataTypeID:        fields[11].Uint,
		ValueByteSize:     fields[12].Uint,
		SampleCount:       fields[13].Uint,
		DataByteSize:      fields[14].Uint,
		FileStartPosition: fields[15].Uint,
		Offset:            fields[16].Float,
		Scale:             fields[17].Float,
		Bitmask:           fields[18].Uint,
	}

	headerSize := fields[0].Uint
	if consumed := uint64(cur.pos - start); consumed != headerSize {
		return nil, fmt.Errorf("%w: channel %q declared %d header bytes, consumed %d",
			ErrHeaderSizeMismatch, h.Name, headerSize, consumed)
	}

	if h.DataByteSize != (h.ValueByteSize+timestampWidth)*h.SampleCount {
		return nil, fmt.Errorf("%w: channel %q declares %d data bytes, %d samples of %d+%d bytes need %d",
			ErrDataSizeMismatch, h.Name, h.DataByteSize, h.SampleCount,
			timestampWidth, h.ValueByteSize, (h.ValueByteSize+timestampWidth)*h.SampleCount)
	}

	info, err := lookupDataType(string(h.DataType))
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", h.Name, err)
	}
	if uint64(info.width) > h.ValueByteSize {
		return nil, fmt.Errorf("%w: channel %q declares %d value bytes but %s samples are %d bytes",
			ErrDataSizeMismatch, h.Name, h.ValueByteSize, h.DataType, info.width)
	}

	end := h.FileStartPosition + h.DataByteSize
	if end < h.FileStartPosition || end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: channel %q data region [%d, %d) exceeds file size %d",
			ErrTruncated, h.Name, h.FileStartPosition, end, len(data))
	}

	return &Channel{
		Header:    h,
		StartTime: startTime,
		data:      data[h.FileStartPosition:end],
		stride:    int(timestampWidth + h.ValueByteSize),
		decode:    info.decode,
	}, nil
}

// Len returns the number of samples in the channel.
func (c *Channel) Len() int {
	return int(c.Header.SampleCount)
}

// RawTimestamp returns the wrapping uint32 timestamp of sample i in 100ns ticks.
func (c *Channel) RawTimestamp(i int) uint32 {
	rec := c.data[i*c.stride:]
	return uint32(rec[0]) | uint32(rec[1])<<8 | uint32(rec[2])<<16 | uint32(rec[3])<<24
}

// Value returns sample i widened to float64.
func (c *Channel) Value(i int) float64 {
	return c.decode(c.data[i*c.stride+timestampWidth:])
}

// RawTimestamps returns all raw timestamps as stored in the file. Be aware
// that they wrap every 2^32 ticks, roughly 429.5 seconds.
func (c *Channel) RawTimestamps() []uint32 {
	c.tsOnce.Do(func() {
		ts := make([]uint32, c.Len())
		for i := range ts {
			ts[i] = c.RawTimestamp(i)
		}
		c.ts = ts
	})
	return c.ts
}

// Values returns all sample values widened to float64.
func (c *Channel) Values() []float64 {
	c.valsOnce.Do(func() {
		vals := make([]float64, c.Len())
		for i := range vals {
			vals[i] = c.Value(i)
		}
		c.vals = vals
	})
	return c.vals
}

// unwrapTicks undoes the 2^32 wrap of the raw timestamps. Consecutive
// differences are taken in uint32 arithmetic, so a wrapped transition still
// yields the correct small forward delta, and are accumulated into a running
// uint64 tick count seeded with the first raw value. A naive signed
// difference would go backwards at every wrap boundary.
func unwrapTicks(raw []uint32) []uint64 {
	if len(raw) == 0 {
		return nil
	}
	out := make([]uint64, len(raw))
	acc := uint64(raw[0])
	out[0] = acc
	for i := 1; i < len(raw); i++ {
		acc += uint64(raw[i] - raw[i-1])
		out[i] = acc
	}
	return out
}

// Time returns the monotonic time axis in seconds since the capture start,
// computed once and cached.
func (c *Channel) Time() []float64 {
	c.timeOnce.Do(func() {
		ticks := unwrapTicks(c.RawTimestamps())
		t := make([]float64, len(ticks))
		for i, v := range ticks {
			t[i] = float64(v) / ticksPerSecond
		}
		c.axis = t
	})
	return c.axis
}

// Datetimes returns one absolute timestamp per sample, StartTime plus the
// unwrapped time axis. Cached independently of Time.
func (c *Channel) Datetimes() []time.Time {
	c.dtOnce.Do(func() {
		axis := c.Time()
		dt := make([]time.Time, len(axis))
		for i, s := range axis {
			dt[i] = c.StartTime.Add(time.Duration(s * float64(time.Second)))
		}
		c.dt = dt
	})
	return c.dt
}

// Interpolate resamples the channel's values onto t, a non-decreasing time
// axis in seconds. If t is element-wise identical to the channel's own axis
// the original values are returned as-is (copied, no interpolation error).
// Otherwise values are piecewise-linearly interpolated; points outside the
// observed range clamp to the boundary values.
func (c *Channel) Interpolate(t []float64) []float64 {
	axis := c.Time()
	vals := c.Values()

	if sameAxis(t, axis) {
		out := make([]float64, len(vals))
		copy(out, vals)
		return out
	}

	out := make([]float64, len(t))
	if len(vals) == 0 {
		return out
	}
	for i, x := range t {
		out[i] = interpAt(x, axis, vals)
	}
	return out
}

func sameAxis(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// interpAt evaluates the piecewise-linear function through (axis, vals) at x.
func interpAt(x float64, axis, vals []float64) float64 {
	if x <= axis[0] {
		return vals[0]
	}
	if x >= axis[len(axis)-1] {
		return vals[len(vals)-1]
	}
	// First index with axis[j] >= x; j >= 1 after the boundary checks above.
	j := sort.SearchFloat64s(axis, x)
	if axis[j] == x {
		return vals[j]
	}
	t0, t1 := axis[j-1], axis[j]
	v0, v1 := vals[j-1], vals[j]
	if t1 == t0 {
		return v1
	}
	return v0 + (v1-v0)*(x-t0)/(t1-t0)
}
