package roadgeom

import (
	"math"
	"testing"
)

func TestVerticalCurveEnds(t *testing.T) {
	vc := NewVerticalCurve(1, 5, 0.1, -0.2, 40)
	if h := vc.GetHeight(0); math.Abs(h-1) > testEps {
		t.Errorf("Height at start should be 1, but got %f", h)
	}
	if h := vc.GetHeight(40); math.Abs(h-5) > testEps {
		t.Errorf("Height at end should be 5, but got %f", h)
	}
	if s := vc.GetSlope(0); math.Abs(s-0.1) > testEps {
		t.Errorf("Slope at start should be 0.1, but got %f", s)
	}
	if s := vc.GetSlope(40); math.Abs(s+0.2) > testEps {
		t.Errorf("Slope at end should be -0.2, but got %f", s)
	}
	if h := vc.GetHeight(100); math.Abs(h-5) > testEps {
		t.Errorf("Height past the end should be clamped to 5, but got %f", h)
	}
}

func TestVerticalCurveLinear(t *testing.T) {
	vc := NewLinearVerticalCurve(0, 10, 100)
	for _, d := range []float64{0, 25, 50, 99} {
		if math.Abs(vc.GetHeight(d)-vc.GetLinearHeight(d)) > testEps {
			t.Errorf("Linear profile at %f should be %f, but got %f", d, vc.GetLinearHeight(d), vc.GetHeight(d))
		}
	}
	if s := vc.LinearSlope(); math.Abs(s-0.1) > testEps {
		t.Errorf("Linear slope should be 0.1, but got %f", s)
	}
	if h := vc.GetHeightNormalized(0.5); math.Abs(h-5) > testEps {
		t.Errorf("Eased height in the middle should be 5, but got %f", h)
	}
}

func TestVerticalCurveReverse(t *testing.T) {
	vc := NewVerticalCurve(2, 7, 0.3, 0.05, 30)
	reversed := vc.Reverse()
	for _, d := range []float64{0, 3, 15, 29, 30} {
		if math.Abs(vc.GetHeight(d)-reversed.GetHeight(30-d)) > testEps {
			t.Errorf("Reversed height at %f should be %f, but got %f", 30-d, vc.GetHeight(d), reversed.GetHeight(30-d))
		}
	}
}

func TestVerticalCurveSliceTruncate(t *testing.T) {
	vc := NewVerticalCurve(0, 6, 0.2, 0, 60)
	sliced := vc.Slice(20)
	if sliced.Length != 40 {
		t.Errorf("Sliced length should be 40, but got %f", sliced.Length)
	}
	for _, d := range []float64{0, 10, 40} {
		if math.Abs(sliced.GetHeight(d)-vc.GetHeight(d+20)) > testEps {
			t.Errorf("Sliced height at %f should be %f, but got %f", d, vc.GetHeight(d+20), sliced.GetHeight(d))
		}
	}
	truncated := vc.Truncate(45)
	for _, d := range []float64{0, 10, 45} {
		if math.Abs(truncated.GetHeight(d)-vc.GetHeight(d)) > testEps {
			t.Errorf("Truncated height at %f should be %f, but got %f", d, vc.GetHeight(d), truncated.GetHeight(d))
		}
	}
}

func TestVerticalCurveZeroLength(t *testing.T) {
	vc := NewVerticalCurve(3, 8, 1, 1, 0)
	if h := vc.GetHeight(10); h != 3 {
		t.Errorf("Zero length profile should stay at 3, but got %f", h)
	}
	if s := vc.LinearSlope(); s != 0 {
		t.Errorf("Zero length profile should have no slope, but got %f", s)
	}
}
