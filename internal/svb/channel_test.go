// channel_test.go - Time axis reconstruction, value decoding and resampling
package svb

import (
	"testing"
	"time"

	"github.com/scope-visualizer/backend/internal/testutil"
)

func openFixture(t *testing.T, f *testutil.SVBFile) *File {
	t.Helper()
	path := testutil.WriteSVBFile(t, f)
	sf, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { sf.Close() })
	return sf
}

func singleChannel(t *testing.T, f *testutil.SVBFile) *Channel {
	t.Helper()
	sf := openFixture(t, f)
	ch, err := sf.Channel(sf.Channels()[0])
	if err != nil {
		t.Fatalf("Channel lookup failed: %v", err)
	}
	return ch
}

func TestUnwrapTicks(t *testing.T) {
	t.Run("wrap boundary", func(t *testing.T) {
		// The wrap between 4294967295 and 5 is a +6 tick step in uint32
		// arithmetic ((5 - 4294967295) mod 2^32), so the axis keeps moving
		// forward through the wrap.
		raw := []uint32{4294967290, 4294967295, 5, 10}
		want := []uint64{4294967290, 4294967295, 4294967301, 4294967306}

		got := unwrapTicks(raw)
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("ticks[%d] = %d, want %d", i, got[i], want[i])
			}
		}
		for i := 1; i < len(got); i++ {
			if got[i] < got[i-1] {
				t.Errorf("ticks not monotonic at %d: %d < %d", i, got[i], got[i-1])
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := unwrapTicks(nil); got != nil {
			t.Errorf("unwrapTicks(nil) = %v, want nil", got)
		}
	})
}

func TestChannel_TimeAxis(t *testing.T) {
	ch := singleChannel(t, testutil.SimpleSVBFile("axis",
		[]uint32{0, 10_000_000, 20_000_000}, []float64{1, 2, 3}))

	got := ch.Time()
	want := []float64{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Time[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Memoized: the second call must hand back the same backing array.
	again := ch.Time()
	if &again[0] != &got[0] {
		t.Error("Time() was recomputed instead of cached")
	}
}

func TestChannel_Datetimes(t *testing.T) {
	ch := singleChannel(t, testutil.SimpleSVBFile("dt",
		[]uint32{0, 5_000_000}, []float64{0, 0}))

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	dts := ch.Datetimes()
	if !dts[0].Equal(start) {
		t.Errorf("Datetimes[0] = %v, want %v", dts[0], start)
	}
	if !dts[1].Equal(start.Add(500 * time.Millisecond)) {
		t.Errorf("Datetimes[1] = %v, want %v", dts[1], start.Add(500*time.Millisecond))
	}
}

func TestChannel_ValueDecoding(t *testing.T) {
	cases := []struct {
		dataType string
		width    uint64
		in       []float64
		want     []float64
	}{
		{"REAL64", 8, []float64{-1.25, 3.5}, []float64{-1.25, 3.5}},
		{"REAL32", 4, []float64{0.5, -2}, []float64{0.5, -2}},
		{"UINT32", 4, []float64{0, 4294967295}, []float64{0, 4294967295}},
		{"UINT16", 2, []float64{65535, 7}, []float64{65535, 7}},
		{"UINT8", 1, []float64{255, 0}, []float64{255, 0}},
		{"INT16", 2, []float64{-32768, 1200}, []float64{-32768, 1200}},
		{"INT8", 1, []float64{-5, 100}, []float64{-5, 100}},
		{"BIT", 1, []float64{0, 1}, []float64{0, 1}},
		{"BIT8", 1, []float64{0, 1}, []float64{0, 1}},
		{"BITARR8", 1, []float64{-1, 127}, []float64{-1, 127}},
		{"BITARR16", 2, []float64{-2, 513}, []float64{-2, 513}},
		{"BITARR32", 4, []float64{-100000, 100000}, []float64{-100000, 100000}},
	}

	for _, tc := range cases {
		t.Run(tc.dataType, func(t *testing.T) {
			f := testutil.SimpleSVBFile("types", []uint32{0, 1000}, tc.in)
			f.Channels[0].DataType = tc.dataType
			f.Channels[0].ValueByteSize = tc.width
			f.Channels[0].Values = tc.in

			ch := singleChannel(t, f)
			got := ch.Values()
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("Values[%d] = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestChannel_Interpolate(t *testing.T) {
	// Values [0,10] at times [0,1] seconds.
	fixture := testutil.SimpleSVBFile("interp",
		[]uint32{0, 10_000_000}, []float64{0, 10})

	t.Run("identical axis fast path", func(t *testing.T) {
		ch := singleChannel(t, fixture)
		got := ch.Interpolate(ch.Time())
		want := ch.Values()
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Interpolate[%d] = %v, want exactly %v", i, got[i], want[i])
			}
		}

		// The fast path must return a copy, not the cached values.
		got[0] = 999
		if ch.Values()[0] == 999 {
			t.Error("Interpolate fast path aliased the cached values")
		}
	})

	t.Run("midpoint", func(t *testing.T) {
		ch := singleChannel(t, fixture)
		got := ch.Interpolate([]float64{0.5})
		if got[0] != 5.0 {
			t.Errorf("Interpolate(0.5) = %v, want 5.0", got[0])
		}
	})

	t.Run("clamps outside the observed range", func(t *testing.T) {
		ch := singleChannel(t, fixture)
		got := ch.Interpolate([]float64{-1, 2})
		if got[0] != 0 {
			t.Errorf("Interpolate(-1) = %v, want boundary value 0", got[0])
		}
		if got[1] != 10 {
			t.Errorf("Interpolate(2) = %v, want boundary value 10", got[1])
		}
	})

	t.Run("exact sample point", func(t *testing.T) {
		ch := singleChannel(t, fixture)
		got := ch.Interpolate([]float64{0, 1})
		if got[0] != 0 || got[1] != 10 {
			t.Errorf("Interpolate at sample points = %v, want [0 10]", got)
		}
	})
}

func TestChannel_Metadata(t *testing.T) {
	f := testutil.SimpleSVBFile("meta", []uint32{0}, []float64{1})
	f.Channels[0].Comment = "axis 1 position"
	f.Channels[0].SymbolBased = true
	f.Channels[0].SymbolName = "Main.fActualPosition"
	f.Channels[0].Offset = 2.5
	f.Channels[0].Scale = 0.001
	f.Channels[0].Bitmask = 0xFF

	ch := singleChannel(t, f)
	h := ch.Header
	if h.NetID != "192.168.1.20.1.1" || h.Port != 851 {
		t.Errorf("NetID/Port = %q/%d", h.NetID, h.Port)
	}
	if h.Comment != "axis 1 position" || !h.SymbolBased || h.SymbolName != "Main.fActualPosition" {
		t.Errorf("symbol fields not preserved: %+v", h)
	}
	// Offset is stored before Scale on disk; a swapped read would show
	// 0.001 here.
	if h.Offset != 2.5 || h.Scale != 0.001 {
		t.Errorf("Offset/Scale = %v/%v, want 2.5/0.001", h.Offset, h.Scale)
	}
	if h.SamplePeriod() != time.Millisecond {
		t.Errorf("SamplePeriod = %v, want 1ms", h.SamplePeriod())
	}
}
