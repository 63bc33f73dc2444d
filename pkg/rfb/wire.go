package rfb

import (
	"encoding/binary"
	"io"
)

func readFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	return buf, err
}

func putU16(buf []byte, v uint16) []byte { return append(buf, byte(v>>8), byte(v)) }
func putU32(buf []byte, v uint32) []byte {
	return append(buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
func putS32(buf []byte, v int32) []byte { return putU32(buf, uint32(v)) }

func getU16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func getU32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func getS32(b []byte) int32  { return int32(binary.BigEndian.Uint32(b)) }
