package digestcodec

import (
	"bytes"
	"testing"
)

func TestWriteSortedNonZeroIntMapIgnoresOrderAndZeros(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	WriteSortedNonZeroIntMap(&a, &tmp, map[string]int{"A": 2, "B": 1, "C": 0})
	WriteSortedNonZeroIntMap(&b, &tmp, map[string]int{"B": 1, "A": 2})
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("encodings differ: %x vs %x", a.Bytes(), b.Bytes())
	}
}

func TestWriteStringIsLengthPrefixed(t *testing.T) {
	var a, b bytes.Buffer
	var tmp [8]byte
	WriteString(&a, &tmp, "ab")
	WriteString(&a, &tmp, "c")
	WriteString(&b, &tmp, "a")
	WriteString(&b, &tmp, "bc")
	if bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("split strings should not collide")
	}
}
