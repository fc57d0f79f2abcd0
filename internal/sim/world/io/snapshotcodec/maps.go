package snapshotcodec

// PositiveMap keeps the entries of src with a non-empty key and a positive
// count. Empty results are nil so zero counters drop out of snapshots.
func PositiveMap(src map[string]int) map[string]int {
	var dst map[string]int
	for k, v := range src {
		if k == "" || v <= 0 {
			continue
		}
		if dst == nil {
			dst = make(map[string]int, len(src))
		}
		dst[k] = v
	}
	return dst
}

// ConvertMap applies f to every value of src. A nil or empty src gives nil.
func ConvertMap[K comparable, A, B any](src map[K]A, f func(A) B) map[K]B {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[K]B, len(src))
	for k, v := range src {
		dst[k] = f(v)
	}
	return dst
}
