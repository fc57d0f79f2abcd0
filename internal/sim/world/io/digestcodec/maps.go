package digestcodec

import (
	"io"
	"sort"
)

// WriteSortedNonZeroIntMap emits a deterministic key-sorted map encoding,
// skipping zero values to keep digest payload stable and compact.
func WriteSortedNonZeroIntMap(w io.Writer, tmp *[8]byte, m map[string]int) {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	WriteU64(w, tmp, uint64(len(keys)))
	for _, k := range keys {
		WriteString(w, tmp, k)
		WriteI64(w, tmp, int64(m[k]))
	}
}
