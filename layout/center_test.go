package layout

import (
	"math"
	"testing"
)

func TestBlockStartSingleLineOnAnchor(t *testing.T) {
	if got := BlockStart(1, 57.6, 420); got != 420 {
		t.Fatalf("single line must land on anchor, got %g", got)
	}
}

// 任意行数下，所有行位置的平均值都等于 anchorY。
func TestLinePositionsSymmetric(t *testing.T) {
	const anchorY = 333.3
	for _, lineHeight := range []float64{12, 38.4, 57.6} {
		for n := 1; n <= 12; n++ {
			ys := LinePositions(n, lineHeight, anchorY)
			if len(ys) != n {
				t.Fatalf("expected %d positions, got %d", n, len(ys))
			}
			var sum float64
			for i, y := range ys {
				sum += y
				if i > 0 && math.Abs(y-ys[i-1]-lineHeight) > 1e-9 {
					t.Fatalf("n=%d: step %d is %g, want %g", n, i, y-ys[i-1], lineHeight)
				}
			}
			if mean := sum / float64(n); math.Abs(mean-anchorY) > 1e-9 {
				t.Fatalf("n=%d lineHeight=%g: mean %g != anchor %g", n, lineHeight, mean, anchorY)
			}
		}
	}
}

func TestLinePositionsTwoLines(t *testing.T) {
	ys := LinePositions(2, 50, 400)
	if ys[0] != 375 || ys[1] != 425 {
		t.Fatalf("unexpected positions: %v", ys)
	}
	if LinePositions(0, 50, 400) != nil {
		t.Fatalf("zero lines should yield nil")
	}
}
