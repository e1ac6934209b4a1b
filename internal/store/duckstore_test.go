// duckstore_test.go - Tests for the DuckDB-backed sample store
package store

import (
	"context"
	"math"
	"testing"
)

func newTestStore(t *testing.T) *DuckStore {
	t.Helper()
	ds, err := NewDuckStore(t.TempDir(), "test-session")
	if err != nil {
		t.Fatalf("NewDuckStore failed: %v", err)
	}
	t.Cleanup(func() { ds.Close() })
	return ds
}

func rampChannel(n int) (times, values []float64) {
	times = make([]float64, n)
	values = make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i) * 0.001
		values[i] = float64(i)
	}
	return times, values
}

func TestDuckStore_LoadAndCount(t *testing.T) {
	ds := newTestStore(t)

	times, values := rampChannel(1000)
	if err := ds.LoadChannel("Main.fSpeed", times, values); err != nil {
		t.Fatalf("LoadChannel failed: %v", err)
	}
	if err := ds.LoadChannel("Main.bRunning", times[:10], values[:10]); err != nil {
		t.Fatalf("LoadChannel failed: %v", err)
	}
	if err := ds.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if ds.Len() != 1010 {
		t.Errorf("Len = %d, want 1010", ds.Len())
	}

	t.Run("length mismatch rejected", func(t *testing.T) {
		if err := ds.LoadChannel("bad", times, values[:5]); err == nil {
			t.Error("expected error for mismatched slice lengths")
		}
	})
}

func TestDuckStore_QueryWindow(t *testing.T) {
	ds := newTestStore(t)
	times, values := rampChannel(1000)
	if err := ds.LoadChannel("ch", times, values); err != nil {
		t.Fatalf("LoadChannel failed: %v", err)
	}
	if err := ds.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	ctx := context.Background()

	t.Run("raw window below limit", func(t *testing.T) {
		batch, err := ds.QueryWindow(ctx, "ch", 0.1, 0.2, 500)
		if err != nil {
			t.Fatalf("QueryWindow failed: %v", err)
		}
		if batch.Decimated {
			t.Error("small window should not be decimated")
		}
		if batch.Total != 101 {
			t.Errorf("Total = %d, want 101", batch.Total)
		}
		if len(batch.Points) != 101 {
			t.Fatalf("Points = %d, want 101", len(batch.Points))
		}
		if batch.Points[0].Value != 100 || batch.Points[100].Value != 200 {
			t.Errorf("window edges = %v, %v, want 100, 200",
				batch.Points[0].Value, batch.Points[100].Value)
		}
		// In-order by sample index.
		for i := 1; i < len(batch.Points); i++ {
			if batch.Points[i].Time < batch.Points[i-1].Time {
				t.Fatalf("points out of order at %d", i)
			}
		}
	})

	t.Run("decimated window keeps extremes", func(t *testing.T) {
		batch, err := ds.QueryWindow(ctx, "ch", 0, 1, 100)
		if err != nil {
			t.Fatalf("QueryWindow failed: %v", err)
		}
		if !batch.Decimated {
			t.Error("expected decimation for 1000 samples with maxPoints=100")
		}
		if len(batch.Points) > 100 {
			t.Errorf("Points = %d, want <= 100", len(batch.Points))
		}

		// The global extremes of the ramp must survive decimation.
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range batch.Points {
			minV = math.Min(minV, p.Value)
			maxV = math.Max(maxV, p.Value)
		}
		if minV != 0 || maxV != 999 {
			t.Errorf("decimated extremes = [%v, %v], want [0, 999]", minV, maxV)
		}
	})

	t.Run("empty window", func(t *testing.T) {
		batch, err := ds.QueryWindow(ctx, "ch", 100, 200, 500)
		if err != nil {
			t.Fatalf("QueryWindow failed: %v", err)
		}
		if batch.Total != 0 || len(batch.Points) != 0 {
			t.Errorf("expected empty batch, got %+v", batch)
		}
	})

	t.Run("unknown channel yields empty batch", func(t *testing.T) {
		batch, err := ds.QueryWindow(ctx, "nope", 0, 1, 500)
		if err != nil {
			t.Fatalf("QueryWindow failed: %v", err)
		}
		if batch.Total != 0 {
			t.Errorf("Total = %d, want 0", batch.Total)
		}
	})
}

func TestDuckStore_ValuesAtTime(t *testing.T) {
	ds := newTestStore(t)
	if err := ds.LoadChannel("a", []float64{0, 1, 2}, []float64{10, 11, 12}); err != nil {
		t.Fatalf("LoadChannel failed: %v", err)
	}
	if err := ds.LoadChannel("b", []float64{5}, []float64{50}); err != nil {
		t.Fatalf("LoadChannel failed: %v", err)
	}
	if err := ds.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	ctx := context.Background()

	vals, err := ds.ValuesAtTime(ctx, []string{"a", "b"}, 1.5)
	if err != nil {
		t.Fatalf("ValuesAtTime failed: %v", err)
	}
	if vals["a"] != 11 {
		t.Errorf(`vals["a"] = %v, want 11 (last sample at t<=1.5)`, vals["a"])
	}
	if _, ok := vals["b"]; ok {
		t.Error(`channel "b" has no sample before t=1.5, should be absent`)
	}

	vals, err = ds.ValuesAtTime(ctx, []string{"b"}, 10)
	if err != nil {
		t.Fatalf("ValuesAtTime failed: %v", err)
	}
	if vals["b"] != 50 {
		t.Errorf(`vals["b"] = %v, want 50`, vals["b"])
	}

	if empty, err := ds.ValuesAtTime(ctx, nil, 1); err != nil || len(empty) != 0 {
		t.Errorf("ValuesAtTime(nil) = %v, %v, want empty, nil", empty, err)
	}
}
