package fieldmesh

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelForCoverage(t *testing.T) {
	for _, test := range []struct {
		n, grain, workers int
	}{
		{n: 0, grain: 4, workers: 4},
		{n: 1, grain: 4, workers: 4},
		{n: 10, grain: 3, workers: 1},
		{n: 10, grain: 3, workers: 4},
		{n: 1000, grain: 1, workers: 16},
		{n: 5000, grain: 0, workers: 0},
	} {
		hits := make([]int32, test.n)
		err := parallelFor(test.n, test.grain, test.workers, func(start, end int) error {
			if start >= end {
				t.Errorf("empty range [%d,%d)", start, end)
			}
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		for i, h := range hits {
			if h != 1 {
				t.Errorf("n=%d grain=%d workers=%d: index %d visited %d times", test.n, test.grain, test.workers, i, h)
				break
			}
		}
	}
}

func TestParallelForError(t *testing.T) {
	errBad := errors.New("bad range")
	var calls atomic.Int32
	err := parallelFor(100, 1, 4, func(start, end int) error {
		calls.Add(1)
		if start == 10 {
			return errBad
		}
		return nil
	})
	if !errors.Is(err, errBad) {
		t.Fatalf("got %v, want %v", err, errBad)
	}
	if calls.Load() == 0 {
		t.Error("no ranges processed")
	}
}
