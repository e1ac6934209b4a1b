// svbfile.go - Synthetic SVB capture builder for tests.
//
// This is test tooling only: the product never writes SVB files, but the
// decoder tests need byte-exact fixtures, including deliberately corrupt
// ones. The builder mirrors the on-disk layout described in the Beckhoff
// Scope View documentation with Offset stored before Scalefactor, matching
// real files.
package testutil

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// SVBChannel describes one synthetic channel. SampleCount is len(Timestamps);
// Values must be the same length. The corruption knobs shift the declared
// sizes away from the encoded reality.
type SVBChannel struct {
	Name              string
	NetID             string
	Port              uint64
	SamplePeriodTicks uint64
	SymbolBased       bool
	SymbolName        string
	Comment           string
	IndexGroup        uint64
	IndexOffset       uint64
	DataType          string
	DataTypeID        uint64
	ValueByteSize     uint64
	Offset            float64
	Scale             float64
	Bitmask           uint64

	Timestamps []uint32
	Values     []float64

	// HeaderSizeDelta is added to the declared record size, producing a
	// header-size-mismatch fixture when nonzero.
	HeaderSizeDelta int64

	// DataByteSizeOverride replaces the computed (ValueByteSize+4)*count
	// declaration, producing a data-size-mismatch fixture.
	DataByteSizeOverride *uint64
}

// SVBFile describes one synthetic capture.
type SVBFile struct {
	Name       string
	StartTicks uint64 // 100ns ticks since 1601-01-01
	EndTicks   uint64
	Channels   []SVBChannel

	// TrailingHeaderBytes appends undeclared filler inside the header region
	// (counted in the declared header size), so decoding leaves unconsumed
	// bytes behind.
	TrailingHeaderBytes int
}

type svbWriter struct {
	buf []byte
}

func (w *svbWriter) u8(v uint8) { w.buf = append(w.buf, v) }
func (w *svbWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}
func (w *svbWriter) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}
func (w *svbWriter) f64(v float64) { w.u64(math.Float64bits(v)) }
func (w *svbWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
func (w *svbWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

// stringSize is the encoded size of a length-prefixed string.
func stringSize(s string) int { return 4 + len(s) }

// channelRecordSize is the encoded size of one channel header record,
// including its own 8-byte size field.
func channelRecordSize(ch *SVBChannel) int {
	n := 8 + // record size
		8 + 8 + // port, sample period
		1 + // symbol-based flag
		8 + 8 + // index group/offset
		8 + 8 + 8 + 8 + 8 + // type id, value size, count, data size, file offset
		8 + 8 + // offset, scale
		8 // bitmask
	n += stringSize(ch.Name) + stringSize(ch.NetID) +
		stringSize(ch.SymbolName) + stringSize(ch.Comment) +
		stringSize(ch.DataType)
	return n
}

// encodeValue encodes v in the channel's declared type, padded with zeros up
// to width bytes (little-endian, so padding follows the value bytes).
func encodeValue(dataType string, width int, v float64) []byte {
	out := make([]byte, width)
	switch dataType {
	case "REAL64":
		binary.LittleEndian.PutUint64(out, math.Float64bits(v))
	case "REAL32":
		binary.LittleEndian.PutUint32(out, math.Float32bits(float32(v)))
	case "UINT64":
		binary.LittleEndian.PutUint64(out, uint64(v))
	case "UINT32":
		binary.LittleEndian.PutUint32(out, uint32(v))
	case "UINT16":
		binary.LittleEndian.PutUint16(out, uint16(v))
	case "UINT8":
		out[0] = uint8(v)
	case "INT64":
		binary.LittleEndian.PutUint64(out, uint64(int64(v)))
	case "INT32":
		binary.LittleEndian.PutUint32(out, uint32(int32(v)))
	case "INT16":
		binary.LittleEndian.PutUint16(out, uint16(int16(v)))
	case "INT8", "BITARR8":
		out[0] = uint8(int8(v))
	case "BIT", "BIT8":
		if v != 0 {
			out[0] = 1
		}
	case "BITARR16":
		binary.LittleEndian.PutUint16(out, uint16(int16(v)))
	case "BITARR32":
		binary.LittleEndian.PutUint32(out, uint32(int32(v)))
	default:
		// Unknown tags get zero-filled sample bytes; the decoder is expected
		// to reject the tag before ever reading them.
	}
	return out
}

// Encode assembles the complete file image: header region first, then each
// channel's packed {uint32 timestamp, value} records in channel order.
func (f *SVBFile) Encode() []byte {
	headerSize := 8 + // uint64 total header size
		stringSize(f.Name) + 8 + 8 + 8 + // name, start, end, channel count
		f.TrailingHeaderBytes
	for i := range f.Channels {
		headerSize += channelRecordSize(&f.Channels[i])
	}

	// Data regions are laid out back to back after the header.
	dataOffsets := make([]uint64, len(f.Channels))
	pos := uint64(headerSize)
	for i := range f.Channels {
		ch := &f.Channels[i]
		dataOffsets[i] = pos
		pos += (ch.ValueByteSize + 4) * uint64(len(ch.Timestamps))
	}

	w := &svbWriter{buf: make([]byte, 0, pos)}
	w.u64(uint64(headerSize))
	w.str(f.Name)
	w.u64(f.StartTicks)
	w.u64(f.EndTicks)
	w.u64(uint64(len(f.Channels)))

	for i := range f.Channels {
		ch := &f.Channels[i]
		declared := ch.ValueByteSize + 4
		dataBytes := declared * uint64(len(ch.Timestamps))
		if ch.DataByteSizeOverride != nil {
			dataBytes = *ch.DataByteSizeOverride
		}

		w.u64(uint64(int64(channelRecordSize(ch)) + ch.HeaderSizeDelta))
		w.str(ch.Name)
		w.str(ch.NetID)
		w.u64(ch.Port)
		w.u64(ch.SamplePeriodTicks)
		w.boolean(ch.SymbolBased)
		w.str(ch.SymbolName)
		w.str(ch.Comment)
		w.u64(ch.IndexGroup)
		w.u64(ch.IndexOffset)
		w.str(ch.DataType)
		w.u64(ch.DataTypeID)
		w.u64(ch.ValueByteSize)
		w.u64(uint64(len(ch.Timestamps)))
		w.u64(dataBytes)
		w.u64(dataOffsets[i])
		w.f64(ch.Offset)
		w.f64(ch.Scale)
		w.u64(ch.Bitmask)
	}

	for n := 0; n < f.TrailingHeaderBytes; n++ {
		w.u8(0)
	}

	for i := range f.Channels {
		ch := &f.Channels[i]
		for j, ts := range ch.Timestamps {
			w.u32(ts)
			w.buf = append(w.buf, encodeValue(ch.DataType, int(ch.ValueByteSize), ch.Values[j])...)
		}
	}

	return w.buf
}

// WriteSVBFile encodes the fixture into a temp file and returns its path.
func WriteSVBFile(t *testing.T, f *SVBFile) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.svb")
	if err := os.WriteFile(path, f.Encode(), 0644); err != nil {
		t.Fatalf("Failed to write SVB fixture: %v", err)
	}
	return path
}

// SimpleSVBFile builds a one-channel REAL64 fixture with the given samples.
// StartTicks corresponds to 2024-01-15 00:00:00 UTC.
func SimpleSVBFile(name string, timestamps []uint32, values []float64) *SVBFile {
	return &SVBFile{
		Name:       name,
		StartTicks: 133497504000000000,
		EndTicks:   133497504000000000 + 600*10_000_000,
		Channels: []SVBChannel{
			{
				Name:              "Main.fActualPosition",
				NetID:             "192.168.1.20.1.1",
				Port:              851,
				SamplePeriodTicks: 10_000, // 1ms
				DataType:          "REAL64",
				DataTypeID:        5,
				ValueByteSize:     8,
				Scale:             1,
				Timestamps:        timestamps,
				Values:            values,
			},
		},
	}
}
