package snapshotcodec

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPositiveMap(t *testing.T) {
	got := PositiveMap(map[string]int{"A": 3, "B": 0, "C": -1, "": 2})
	want := map[string]int{"A": 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("PositiveMap mismatch (-want +got):\n%s", diff)
	}
	if got := PositiveMap(map[string]int{"A": 0}); got != nil {
		t.Fatalf("PositiveMap=%v want nil", got)
	}
}

func TestConvertMap(t *testing.T) {
	got := ConvertMap(map[int]int{0: 7, 2: 9}, strconv.Itoa)
	if diff := cmp.Diff(map[int]string{0: "7", 2: "9"}, got); diff != "" {
		t.Fatalf("ConvertMap mismatch (-want +got):\n%s", diff)
	}
	if got := ConvertMap(map[int]int{}, strconv.Itoa); got != nil {
		t.Fatalf("ConvertMap(empty)=%v want nil", got)
	}
}
