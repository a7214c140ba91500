package core

import (
	"context"
	"sync"
	"testing"

	"github.com/audioroute/audioroute/pkg/resample"
)

func TestNewAppliesDefaults(t *testing.T) {
	c := New(Config{})
	if c.DefaultResampleMethod() != resample.MethodHigh {
		t.Fatalf("DefaultResampleMethod=%v, want %v", c.DefaultResampleMethod(), resample.MethodHigh)
	}
	if c.MaxOutputsPerSource() != DefaultMaxOutputsPerSource {
		t.Fatalf("MaxOutputsPerSource=%d, want %d", c.MaxOutputsPerSource(), DefaultMaxOutputsPerSource)
	}
}

func TestCallRunsOnLoopAndWaits(t *testing.T) {
	c := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Run(ctx)
	}()

	var created *Source
	var createErr error
	c.Call(func() {
		created, createErr = NewSource(c, "test-driver", "mic", spec48kStereo, nil)
	})
	if createErr != nil {
		t.Fatalf("NewSource on loop: %v", createErr)
	}

	var found bool
	c.Call(func() {
		_, found = c.SourceByIndex(created.Index())
	})
	if !found {
		t.Fatal("source not visible from a later call")
	}

	cancel()
	wg.Wait()
}

func TestDispatchPreservesOrder(t *testing.T) {
	c := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		c.Dispatch(func() { order = append(order, i) })
	}

	// Call serializes behind the queued dispatches.
	c.Call(func() {})

	for i, v := range order {
		if v != i {
			t.Fatalf("order=%v, want ascending", order)
		}
	}
	if len(order) != 10 {
		t.Fatalf("ran %d dispatches, want 10", len(order))
	}
}
