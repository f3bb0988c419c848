package utils

import (
	"bytes"
	"encoding/binary"
	"math"
)

func LInt64(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}

func LUint64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

func LUint32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func LFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func WriteLInt64(buf *bytes.Buffer, v int64) {
	buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(v)))
}

func WriteLUint64(buf *bytes.Buffer, v uint64) {
	buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func WriteLUint32(buf *bytes.Buffer, v uint32) {
	buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func WriteLFloat32(buf *bytes.Buffer, v float32) {
	WriteLUint32(buf, math.Float32bits(v))
}
