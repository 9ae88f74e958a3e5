package layout

import (
	"testing"
)

// TestParseLengthUnits 覆盖 DSL 数值在各单位上的解析与换算。
func TestParseLengthUnits(t *testing.T) {
	cases := []struct {
		in       string
		fraction float64
		fracErr  bool
		pixels   float64
		pxErr    bool
	}{
		{in: "50%", fraction: 0.5, pxErr: true},
		{in: "0.25", fraction: 0.25, pixels: 0.25},
		{in: "36px", fracErr: true, pixels: 36},
		{in: "36", fraction: 0.36, pixels: 36},
		{in: "1.6x", fracErr: true, pxErr: true},
	}
	for _, tc := range cases {
		l, err := ParseLength(tc.in)
		if err != nil {
			t.Fatalf("ParseLength(%q) error: %v", tc.in, err)
		}
		f, err := l.Fraction()
		if tc.fracErr != (err != nil) {
			t.Fatalf("%q Fraction error mismatch: %v", tc.in, err)
		}
		if err == nil && f != tc.fraction {
			t.Fatalf("%q Fraction 期望 %g，实际 %g", tc.in, tc.fraction, f)
		}
		px, err := l.Pixels()
		if tc.pxErr != (err != nil) {
			t.Fatalf("%q Pixels error mismatch: %v", tc.in, err)
		}
		if err == nil && px != tc.pixels {
			t.Fatalf("%q Pixels 期望 %g，实际 %g", tc.in, tc.pixels, px)
		}
	}

	if _, err := ParseLength("abc"); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
	if _, err := ParseLength("-3px"); err == nil {
		t.Fatalf("expected error for negative value")
	}
	if l, _ := ParseLength("1.6x"); l.String() != "1.6x" {
		t.Fatalf("unexpected String(): %s", l.String())
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]Color{
		"#fff":      {R: 255, G: 255, B: 255, A: 255},
		"#1E1E1E":   {R: 30, G: 30, B: 30, A: 255},
		"#11223380": {R: 0x11, G: 0x22, B: 0x33, A: 0x80},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("ParseColor(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseColor(%q) = %+v, want %+v", in, got, want)
		}
	}
	if _, err := ParseColor("#12345"); err == nil {
		t.Fatalf("expected error for malformed color")
	}
}
