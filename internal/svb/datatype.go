package svb

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType is a channel's sample value encoding as declared in its header.
type DataType string

const (
	DataTypeReal64   DataType = "REAL64"
	DataTypeReal32   DataType = "REAL32"
	DataTypeUint64   DataType = "UINT64"
	DataTypeUint32   DataType = "UINT32"
	DataTypeUint16   DataType = "UINT16"
	DataTypeUint8    DataType = "UINT8"
	DataTypeInt64    DataType = "INT64"
	DataTypeInt32    DataType = "INT32"
	DataTypeInt16    DataType = "INT16"
	DataTypeInt8     DataType = "INT8"
	DataTypeBit      DataType = "BIT"
	DataTypeBit8     DataType = "BIT8"
	DataTypeBitArr8  DataType = "BITARR8"
	DataTypeBitArr16 DataType = "BITARR16"
	DataTypeBitArr32 DataType = "BITARR32"
)

// dataTypeInfo describes how to pull one sample value out of a record.
// decode returns the value widened to float64, which is what the time-axis
// and interpolation code work in.
type dataTypeInfo struct {
	width  int
	decode func(b []byte) float64
}

var dataTypes = map[DataType]dataTypeInfo{
	DataTypeReal64: {8, func(b []byte) float64 {
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}},
	DataTypeReal32: {4, func(b []byte) float64 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}},
	DataTypeUint64: {8, func(b []byte) float64 {
		return float64(binary.LittleEndian.Uint64(b))
	}},
	DataTypeUint32: {4, func(b []byte) float64 {
		return float64(binary.LittleEndian.Uint32(b))
	}},
	DataTypeUint16: {2, func(b []byte) float64 {
		return float64(binary.LittleEndian.Uint16(b))
	}},
	DataTypeUint8: {1, func(b []byte) float64 {
		return float64(b[0])
	}},
	DataTypeInt64: {8, func(b []byte) float64 {
		return float64(int64(binary.LittleEndian.Uint64(b)))
	}},
	DataTypeInt32: {4, func(b []byte) float64 {
		return float64(int32(binary.LittleEndian.Uint32(b)))
	}},
	DataTypeInt16: {2, func(b []byte) float64 {
		return float64(int16(binary.LittleEndian.Uint16(b)))
	}},
	DataTypeInt8: {1, func(b []byte) float64 {
		return float64(int8(b[0]))
	}},
	// BIT and BIT8 are boolean-coded bytes; any nonzero byte reads as 1.
	DataTypeBit: {1, func(b []byte) float64 {
		if b[0] != 0 {
			return 1
		}
		return 0
	}},
	DataTypeBit8: {1, func(b []byte) float64 {
		if b[0] != 0 {
			return 1
		}
		return 0
	}},
	// Bit arrays are exposed as their signed integer representation.
	DataTypeBitArr8: {1, func(b []byte) float64 {
		return float64(int8(b[0]))
	}},
	DataTypeBitArr16: {2, func(b []byte) float64 {
		return float64(int16(binary.LittleEndian.Uint16(b)))
	}},
	DataTypeBitArr32: {4, func(b []byte) float64 {
		return float64(int32(binary.LittleEndian.Uint32(b)))
	}},
}

// lookupDataType resolves a header tag. An unrecognized tag is a decode
// error, never a default.
func lookupDataType(tag string) (dataTypeInfo, error) {
	info, ok := dataTypes[DataType(tag)]
	if !ok {
		return dataTypeInfo{}, fmt.Errorf("%w: %q", ErrUnknownDataType, tag)
	}
	return info, nil
}
