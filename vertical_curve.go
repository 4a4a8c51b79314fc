package roadgeom

import (
	"github.com/samber/lo"
)

// VerticalCurve is a height profile along the arc length of a horizontal curve.
// It is a cubic Hermite segment defined by heights and slopes at both ends
type VerticalCurve struct {
	Height1 float64
	Height2 float64
	Slope1  float64
	Slope2  float64
	Length  float64

	// h(s) = a + b*s + c*s^2 + d*s^3
	a, b, c, d float64
}

// NewVerticalCurve creates profile of given horizontal length
func NewVerticalCurve(height1, height2, slope1, slope2, length float64) VerticalCurve {
	vc := VerticalCurve{
		Height1: height1,
		Height2: height2,
		Slope1:  slope1,
		Slope2:  slope2,
		Length:  length,
	}
	vc.updateCoefficients()
	return vc
}

// NewLinearVerticalCurve creates profile with constant slope between two heights
func NewLinearVerticalCurve(height1, height2, length float64) VerticalCurve {
	slope := 0.0
	if length > pointLengthEps {
		slope = (height2 - height1) / length
	}
	return NewVerticalCurve(height1, height2, slope, slope, length)
}

func (vc *VerticalCurve) updateCoefficients() {
	vc.a = vc.Height1
	vc.b = vc.Slope1
	if vc.Length <= pointLengthEps {
		vc.b, vc.c, vc.d = 0, 0, 0
		return
	}
	l := vc.Length
	dh := vc.Height2 - vc.Height1
	vc.c = (3*dh/l - 2*vc.Slope1 - vc.Slope2) / l
	vc.d = (vc.Slope1 + vc.Slope2 - 2*dh/l) / (l * l)
}

// GetHeight evaluates cubic profile at given distance
func (vc VerticalCurve) GetHeight(distance float64) float64 {
	if vc.Length <= pointLengthEps {
		return vc.Height1
	}
	s := lo.Clamp(distance, 0, vc.Length)
	return vc.a + s*(vc.b+s*(vc.c+s*vc.d))
}

// GetSlope evaluates derivative of cubic profile at given distance
func (vc VerticalCurve) GetSlope(distance float64) float64 {
	if vc.Length <= pointLengthEps {
		return vc.Slope1
	}
	s := lo.Clamp(distance, 0, vc.Length)
	return vc.b + s*(2*vc.c+3*s*vc.d)
}

// GetLinearHeight evaluates straight grade between both end heights
func (vc VerticalCurve) GetLinearHeight(distance float64) float64 {
	if vc.Length <= pointLengthEps {
		return vc.Height1
	}
	return vc.Height1 + (vc.Height2-vc.Height1)*lo.Clamp(distance/vc.Length, 0, 1)
}

// LinearSlope returns grade of straight line between both end heights
func (vc VerticalCurve) LinearSlope() float64 {
	if vc.Length <= pointLengthEps {
		return 0
	}
	return (vc.Height2 - vc.Height1) / vc.Length
}

// GetHeightNormalized evaluates eased height by fraction t of the length
func (vc VerticalCurve) GetHeightNormalized(t float64) float64 {
	t = lo.Clamp(t, 0, 1)
	return vc.Height1 + (vc.Height2-vc.Height1)*t*t*(3-2*t)
}

// Reverse returns profile traversed from the far end
func (vc VerticalCurve) Reverse() VerticalCurve {
	return NewVerticalCurve(vc.Height2, vc.Height1, -vc.Slope2, -vc.Slope1, vc.Length)
}

// Slice drops the first startDistance of profile. Remaining heights stay unchanged
func (vc VerticalCurve) Slice(startDistance float64) VerticalCurve {
	startDistance = lo.Clamp(startDistance, 0, vc.Length)
	return NewVerticalCurve(
		vc.GetHeight(startDistance),
		vc.Height2,
		vc.GetSlope(startDistance),
		vc.Slope2,
		vc.Length-startDistance,
	)
}

// Truncate keeps only the first endDistance of profile
func (vc VerticalCurve) Truncate(endDistance float64) VerticalCurve {
	endDistance = lo.Clamp(endDistance, 0, vc.Length)
	return vc.Reverse().Slice(vc.Length - endDistance).Reverse()
}
