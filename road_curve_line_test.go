package roadgeom

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

func straightLine(length, height1, height2 float64) RoadCurveLine {
	pair := Interpolate(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{length, 0}, orb.Point{1, 0})
	return NewRoadCurveLine(pair, height1, height2, 0, 0)
}

func TestRoadCurveLinePoints(t *testing.T) {
	line := straightLine(20, 0, 4)
	start := line.StartPoint()
	if start.Distance(r3.Vector{}) > testEps {
		t.Errorf("Start should be origin, but got %v", start)
	}
	end := line.EndPoint()
	if end.Distance(r3.Vector{X: 20, Y: 0, Z: 4}) > testEps {
		t.Errorf("End should be (20, 0, 4), but got %v", end)
	}
	mid := line.GetPoint(10)
	if math.Abs(mid.Z-2) > testEps {
		t.Errorf("Height in the middle of symmetric profile should be 2, but got %f", mid.Z)
	}
	tangent := line.GetTangent(0)
	if tangent.Distance(r3.Vector{X: 1}) > testEps {
		t.Errorf("Flat start should have horizontal tangent, but got %v", tangent)
	}
}

func TestRoadCurveLineReverse(t *testing.T) {
	line := straightLine(20, 1, 3).ClipStart(5)
	reversed := line.Reverse()
	if math.Abs(reversed.T1-0) > testEps || math.Abs(reversed.T2-0.75) > testEps {
		t.Errorf("Reversed range should be [0; 0.75], but got [%f; %f]", reversed.T1, reversed.T2)
	}
	if reversed.StartPoint().Distance(line.EndPoint()) > testEps {
		t.Errorf("Reversed line should start at %v, but got %v", line.EndPoint(), reversed.StartPoint())
	}
	if reversed.EndPoint().Distance(line.StartPoint()) > testEps {
		t.Errorf("Reversed line should end at %v, but got %v", line.StartPoint(), reversed.EndPoint())
	}
}

func TestRoadCurveLineClip(t *testing.T) {
	line := straightLine(20, 0, 4)
	clipped := line.ClipStart(8)
	if math.Abs(clipped.Length()-12) > testEps {
		t.Errorf("Clipped length should be 12, but got %f", clipped.Length())
	}
	if clipped.StartPoint().Distance(line.GetPoint(8)) > testEps {
		t.Errorf("Clipped line should start at %v, but got %v", line.GetPoint(8), clipped.StartPoint())
	}
	if math.Abs(clipped.T1-0.4) > testEps || clipped.T2 != 1 {
		t.Errorf("Clipped range should be [0.4; 1], but got [%f; %f]", clipped.T1, clipped.T2)
	}
	clipped = clipped.ClipEnd(6)
	if math.Abs(clipped.Length()-6) > testEps {
		t.Errorf("Clipped length should be 6, but got %f", clipped.Length())
	}
	if clipped.EndPoint().Distance(line.GetPoint(14)) > testEps {
		t.Errorf("Clipped line should end at %v, but got %v", line.GetPoint(14), clipped.EndPoint())
	}
	if math.Abs(clipped.T2-0.7) > testEps {
		t.Errorf("Clipped range should end at 0.7, but got %f", clipped.T2)
	}
	whole := line.ClipStart(0).ClipEnd(line.Length())
	if whole.T1 != 0 || whole.T2 != 1 || math.Abs(whole.Length()-20) > testEps {
		t.Errorf("Clipping nothing should keep line, but got %+v", whole)
	}
	point := line.ClipStart(25)
	if !point.IsPoint() {
		t.Errorf("Clipping past the end should collapse line into a point, but got length %f", point.Length())
	}
}

func TestRoadCurveLineProfiles(t *testing.T) {
	line := straightLine(10, 0, 0).WithStartProfile(2, 0.1).WithEndProfile(3, -0.1)
	if h := line.StartPoint().Z; math.Abs(h-2) > testEps {
		t.Errorf("Start height should be 2, but got %f", h)
	}
	if h := line.EndPoint().Z; math.Abs(h-3) > testEps {
		t.Errorf("End height should be 3, but got %f", h)
	}
	if s := line.Vertical.GetSlope(0); math.Abs(s-0.1) > testEps {
		t.Errorf("Start slope should be 0.1, but got %f", s)
	}
}

func TestRoadCurveLineTessellate(t *testing.T) {
	pair := Interpolate(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{10, 10}, orb.Point{0, 1})
	line := NewRoadCurveLine(pair, 0, 5, 0, 0)
	pts := line.Tessellate(32)
	if len(pts) < 3 {
		t.Errorf("Turn should have several points, but got %d", len(pts))
		return
	}
	if pts[0].Distance(r3.Vector{}) > testEps {
		t.Errorf("First point should be origin, but got %v", pts[0])
	}
	last := pts[len(pts)-1]
	if last.Distance(r3.Vector{X: 10, Y: 10, Z: 5}) > 1e-6 {
		t.Errorf("Last point should be (10, 10, 5), but got %v", last)
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].Z < pts[i-1].Z-testEps {
			t.Errorf("Heights should not decrease on monotonic profile, got %f after %f", pts[i].Z, pts[i-1].Z)
		}
	}
	polyline := line.Polyline(32)
	if len(polyline) != len(pts) {
		t.Errorf("Polyline and spatial tessellation should have the same number of points: %d and %d", len(polyline), len(pts))
	}
}

func TestInterpolate3(t *testing.T) {
	p1 := r3.Vector{X: 0, Y: 0, Z: 0}
	p2 := r3.Vector{X: 10, Y: 10, Z: 0}
	pair := Interpolate3(p1, r3.Vector{X: 1}, p2, r3.Vector{Y: 1})
	correctLength := 5 * math.Pi
	if math.Abs(pair.Length()-correctLength) > 1e-6 {
		t.Errorf("Flat quarter turn length should be %f, but got %f", correctLength, pair.Length())
	}
	if pair.GetPoint(0).Distance(p1) > testEps || pair.GetPoint(pair.Length()).Distance(p2) > testEps {
		t.Errorf("Pair should join %v and %v", p1, p2)
	}
	reversed := pair.Reverse()
	if reversed.GetPoint(0).Distance(p2) > testEps {
		t.Errorf("Reversed pair should start at %v, but got %v", p2, reversed.GetPoint(0))
	}
	flat := Interpolate(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{10, 10}, orb.Point{0, 1})
	mid2D := flat.GetPoint(flat.Length() / 2)
	mid3D := pair.GetPoint(pair.Length() / 2)
	if math.Abs(mid2D[0]-mid3D.X) > 1e-6 || math.Abs(mid2D[1]-mid3D.Y) > 1e-6 {
		t.Errorf("Flat spatial pair should match planar one: %v and %v", mid2D, mid3D)
	}

	line := NewRoadCurveLine(flat, 0, 2, 0, 0)
	approx := line.ToBiarcPair3()
	if approx.GetPoint(approx.Length()).Distance(line.EndPoint()) > testEps {
		t.Errorf("Spatial approximation should end at %v, but got %v", line.EndPoint(), approx.GetPoint(approx.Length()))
	}
	straight := Interpolate3(p1, r3.Vector{X: 1}, r3.Vector{X: 10}, r3.Vector{X: 1})
	if math.Abs(straight.Length()-10) > testEps || !straight.First().IsStraight() {
		t.Errorf("Colinear spatial pair should be straight with length 10, but got %f", straight.Length())
	}
}
