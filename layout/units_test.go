package layout

import (
	"math"
	"testing"
)

// TestPxRoundTrip 验证 px↔mm、px↔pt 换算的往返精度。
func TestPxRoundTrip(t *testing.T) {
	samples := []float64{0, 0.5, 1, 12, 96, 600, 1000}
	for _, px := range samples {
		for _, u := range []Unit{UnitPT, UnitMM, UnitIN} {
			converted := Length{Value: px}.To(u)
			back := Length{Value: converted, Unit: u}.Px()
			if diff := math.Abs(back - px); diff > 1e-9 {
				t.Fatalf("%gpx → %s → px 往返误差过大: %g", px, u, diff)
			}
		}
	}
}

func TestKnownConversions(t *testing.T) {
	if got := (Length{Value: 96}).To(UnitIN); math.Abs(got-1) > 1e-12 {
		t.Fatalf("96px 应为 1in，实际 %g", got)
	}
	if got := (Length{Value: 96}).To(UnitMM); math.Abs(got-25.4) > 1e-9 {
		t.Fatalf("96px 应为 25.4mm，实际 %g", got)
	}
	if got := (Length{Value: 12, Unit: UnitPT}).Px(); math.Abs(got-16) > 1e-9 {
		t.Fatalf("12pt 应为 16px，实际 %g", got)
	}
	if UnitMM.String() != "mm" || Unit(99).String() != "px" {
		t.Fatalf("unexpected unit names")
	}
}
