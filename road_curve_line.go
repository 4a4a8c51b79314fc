package roadgeom

import (
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

// RoadCurveLine is a drivable line: horizontal biarc pair plus a height profile along it.
// T1 and T2 mark the sub-range of the originally built line which is still in use
type RoadCurveLine struct {
	Horizontal BiarcPair
	Vertical   VerticalCurve
	T1         float64
	T2         float64
}

// NewRoadCurveLine composes horizontal curve with a cubic height profile
func NewRoadCurveLine(horizontal BiarcPair, height1, height2, slope1, slope2 float64) RoadCurveLine {
	return RoadCurveLine{
		Horizontal: horizontal,
		Vertical:   NewVerticalCurve(height1, height2, slope1, slope2, horizontal.Length()),
		T1:         0,
		T2:         1,
	}
}

func (line RoadCurveLine) Length() float64 {
	return line.Horizontal.Length()
}

func (line RoadCurveLine) IsPoint() bool {
	return line.Horizontal.IsPoint()
}

// GetPoint returns spatial point at given horizontal distance
func (line RoadCurveLine) GetPoint(distance float64) r3.Vector {
	pt := line.Horizontal.GetPoint(distance)
	return r3.Vector{X: pt[0], Y: pt[1], Z: line.Vertical.GetHeight(distance)}
}

// GetPoint2D returns horizontal projection of point at given distance
func (line RoadCurveLine) GetPoint2D(distance float64) orb.Point {
	return line.Horizontal.GetPoint(distance)
}

// GetTangent returns unit spatial tangent at given distance
func (line RoadCurveLine) GetTangent(distance float64) r3.Vector {
	t := line.Horizontal.GetTangent(distance)
	return r3.Vector{X: t[0], Y: t[1], Z: line.Vertical.GetSlope(distance)}.Normalize()
}

func (line RoadCurveLine) StartPoint() r3.Vector {
	return line.GetPoint(0)
}

func (line RoadCurveLine) EndPoint() r3.Vector {
	return line.GetPoint(line.Length())
}

func (line RoadCurveLine) Reverse() RoadCurveLine {
	return RoadCurveLine{
		Horizontal: line.Horizontal.Reverse(),
		Vertical:   line.Vertical.Reverse(),
		T1:         1 - line.T2,
		T2:         1 - line.T1,
	}
}

// ClipStart drops everything before given distance
func (line RoadCurveLine) ClipStart(distance float64) RoadCurveLine {
	total := line.Length()
	if distance <= 0 {
		return line
	}
	if distance >= total {
		distance = total
	}
	clipped := RoadCurveLine{
		Horizontal: clipPairStart(line.Horizontal, distance),
		Vertical:   line.Vertical.Slice(distance),
		T1:         line.T1,
		T2:         line.T2,
	}
	if total > 0 {
		clipped.T1 = line.T1 + (line.T2-line.T1)*distance/total
	}
	return clipped
}

// ClipEnd drops everything after given distance
func (line RoadCurveLine) ClipEnd(distance float64) RoadCurveLine {
	total := line.Length()
	if distance >= total {
		return line
	}
	if distance < 0 {
		distance = 0
	}
	clipped := RoadCurveLine{
		Horizontal: clipPairEnd(line.Horizontal, distance),
		Vertical:   line.Vertical.Truncate(distance),
		T1:         line.T1,
		T2:         line.T2,
	}
	if total > 0 {
		clipped.T2 = line.T1 + (line.T2-line.T1)*distance/total
	}
	return clipped
}

// WithStartProfile replaces height and slope at the start keeping the far end
func (line RoadCurveLine) WithStartProfile(height, slope float64) RoadCurveLine {
	line.Vertical = NewVerticalCurve(height, line.Vertical.Height2, slope, line.Vertical.Slope2, line.Length())
	return line
}

// WithEndProfile replaces height and slope at the end keeping the start
func (line RoadCurveLine) WithEndProfile(height, slope float64) RoadCurveLine {
	line.Vertical = NewVerticalCurve(line.Vertical.Height1, height, line.Vertical.Slope1, slope, line.Length())
	return line
}

// Polyline tessellates horizontal projection
func (line RoadCurveLine) Polyline(segmentsPerTurn int) orb.LineString {
	return line.Horizontal.Tessellate(segmentsPerTurn)
}

// Tessellate samples spatial points along the line
func (line RoadCurveLine) Tessellate(segmentsPerTurn int) []r3.Vector {
	pts := make([]r3.Vector, 0, 8)
	travelled := 0.0
	for i, arc := range line.Horizontal.Arcs {
		if i == 1 {
			travelled = line.Horizontal.Arcs[0].Length
		}
		for _, pt := range arc.Tessellate(segmentsPerTurn) {
			d, _ := arc.DistanceAt(pt)
			p := r3.Vector{X: pt[0], Y: pt[1], Z: line.Vertical.GetHeight(travelled + d)}
			if len(pts) > 0 && pts[len(pts)-1].Distance(p) < dedupEps {
				continue
			}
			pts = append(pts, p)
		}
	}
	return pts
}

// ToBiarcPair3 approximates the line by a spatial biarc pair through its end points
func (line RoadCurveLine) ToBiarcPair3() BiarcPair3 {
	return Interpolate3(line.StartPoint(), line.GetTangent(0), line.EndPoint(), line.GetTangent(line.Length()))
}

func clipPairStart(pair BiarcPair, distance float64) BiarcPair {
	first, second := pair.Arcs[0], pair.Arcs[1]
	if distance <= first.Length {
		_, rest := first.Split(distance)
		return NewBiarcPair(rest, second)
	}
	_, rest := second.Split(distance - first.Length)
	return NewBiarcPair(newPointBiarc(rest.Start), rest)
}

func clipPairEnd(pair BiarcPair, distance float64) BiarcPair {
	first, second := pair.Arcs[0], pair.Arcs[1]
	if distance >= first.Length {
		rest, _ := second.Split(distance - first.Length)
		return NewBiarcPair(first, rest)
	}
	rest, _ := first.Split(distance)
	return NewBiarcPair(rest, newPointBiarc(rest.End))
}
