package parallel

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
)

func TestForEachFillsEverySlot(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			out := make([]int, n)
			if err := ForEach(n, func(i int) error {
				out[i] = i * i
				return nil
			}); err != nil {
				t.Fatal(err)
			}
			for i, v := range out {
				if v != i*i {
					t.Errorf("slot %d = %d", i, v)
				}
			}
		})
	}
}

func TestForEachReturnsError(t *testing.T) {
	err := ForEach(10, func(i int) error {
		if i == 3 {
			return fmt.Errorf("column %d failed", i)
		}
		return nil
	})
	if err == nil || err.Error() != "column 3 failed" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestForEachRecoversPanic(t *testing.T) {
	err := ForEach(4, func(i int) error {
		if i == 2 {
			panic("bad column")
		}
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "bad column") {
		t.Errorf("expected panic converted to error, got %v", err)
	}
}

func TestForEachWithThresholdSequential(t *testing.T) {
	var calls int32
	var order []int
	err := ForEachWithThreshold(5, 10, func(i int) error {
		atomic.AddInt32(&calls, 1)
		order = append(order, i)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("sequential path should run in order, got %v", order)
		}
	}
	if calls != 5 {
		t.Errorf("calls = %d", calls)
	}
}
