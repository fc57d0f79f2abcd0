package digestcodec

import (
	"encoding/binary"
	"io"
	"math"
)

func BoolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func WriteU64(w io.Writer, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.Write(tmp[:])
}

func WriteI64(w io.Writer, tmp *[8]byte, v int64) { WriteU64(w, tmp, uint64(v)) }

// WriteF64 writes the IEEE-754 bits, so -0 and 0 hash differently.
func WriteF64(w io.Writer, tmp *[8]byte, v float64) { WriteU64(w, tmp, math.Float64bits(v)) }

// WriteString is length-prefixed so adjacent strings cannot run together.
func WriteString(w io.Writer, tmp *[8]byte, s string) {
	WriteU64(w, tmp, uint64(len(s)))
	io.WriteString(w, s)
}

func WriteBool(w io.Writer, v bool) { w.Write([]byte{BoolByte(v)}) }
