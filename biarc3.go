package roadgeom

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
)

// Biarc3 is a circular arc or straight segment in space. The arc lies in the plane
// orthogonal to Axis and sweeps counter-clockwise around it
type Biarc3 struct {
	Center r3.Vector
	Start  r3.Vector
	End    r3.Vector
	Axis   r3.Vector
	Radius float64
	Angle  float64
	Length float64
}

func newStraightBiarc3(start, end r3.Vector) Biarc3 {
	return Biarc3{
		Center: start.Add(end).Mul(0.5),
		Start:  start,
		End:    end,
		Length: start.Distance(end),
	}
}

// rotateAround rotates v around unit axis k by angle (Rodrigues' formula)
func rotateAround(v, k r3.Vector, angle float64) r3.Vector {
	sin, cos := math.Sincos(angle)
	return v.Mul(cos).Add(k.Cross(v).Mul(sin)).Add(k.Mul(k.Dot(v) * (1 - cos)))
}

func arc3FromTangent(start, tangent, end r3.Vector) Biarc3 {
	w := end.Sub(start)
	if w.Norm() < coincidentEps3 {
		return Biarc3{Center: start, Start: start, End: start}
	}
	axis := tangent.Cross(w)
	if axis.Norm() < coincidentEps3 {
		return newStraightBiarc3(start, end)
	}
	axis = axis.Normalize()
	n := axis.Cross(tangent).Normalize()
	s := w.Norm2() / (2 * n.Dot(w))
	center := start.Add(n.Mul(s))
	cos := lo.Clamp(start.Sub(center).Dot(end.Sub(center))/(s*s), -1.0, 1.0)
	angle := math.Acos(cos)
	if w.Dot(tangent) < 0 {
		angle = twoPi - angle
	}
	return Biarc3{
		Center: center,
		Start:  start,
		End:    end,
		Axis:   axis,
		Radius: s,
		Angle:  angle,
		Length: angle * s,
	}
}

func (b Biarc3) IsStraight() bool {
	return b.Radius == 0
}

func (b Biarc3) IsPoint() bool {
	return b.Length <= pointLengthEps
}

func (b Biarc3) GetPoint(distance float64) r3.Vector {
	if distance <= 0 {
		return b.Start
	}
	if distance >= b.Length {
		return b.End
	}
	fraction := distance / b.Length
	if b.IsStraight() {
		return b.Start.Add(b.End.Sub(b.Start).Mul(fraction))
	}
	return b.Center.Add(rotateAround(b.Start.Sub(b.Center), b.Axis, b.Angle*fraction))
}

func (b Biarc3) GetTangent(distance float64) r3.Vector {
	if b.IsPoint() {
		return r3.Vector{}
	}
	if b.IsStraight() {
		return b.End.Sub(b.Start).Normalize()
	}
	return b.Axis.Cross(b.GetPoint(distance).Sub(b.Center)).Normalize()
}

func (b Biarc3) Reverse() Biarc3 {
	return Biarc3{
		Center: b.Center,
		Start:  b.End,
		End:    b.Start,
		Axis:   b.Axis.Mul(-1),
		Radius: b.Radius,
		Angle:  b.Angle,
		Length: b.Length,
	}
}

// BiarcPair3 is the spatial counterpart of BiarcPair
type BiarcPair3 struct {
	Arcs [2]Biarc3
}

func (pair BiarcPair3) First() Biarc3 {
	return pair.Arcs[0]
}

func (pair BiarcPair3) Second() Biarc3 {
	return pair.Arcs[1]
}

func (pair BiarcPair3) Length() float64 {
	return pair.Arcs[0].Length + pair.Arcs[1].Length
}

func (pair BiarcPair3) GetPoint(distance float64) r3.Vector {
	if distance <= pair.Arcs[0].Length {
		return pair.Arcs[0].GetPoint(distance)
	}
	return pair.Arcs[1].GetPoint(distance - pair.Arcs[0].Length)
}

func (pair BiarcPair3) Reverse() BiarcPair3 {
	return BiarcPair3{Arcs: [2]Biarc3{pair.Arcs[1].Reverse(), pair.Arcs[0].Reverse()}}
}

// Interpolate3 is Interpolate for points and tangents in space
func Interpolate3(p1, t1, p2, t2 r3.Vector) BiarcPair3 {
	t1 = t1.Normalize()
	t2 = t2.Normalize()
	v := p2.Sub(p1)
	vv := v.Norm2()
	if v.Norm() < coincidentEps3 {
		pt := Biarc3{Center: p1, Start: p1, End: p1}
		return BiarcPair3{Arcs: [2]Biarc3{pt, pt}}
	}
	t := t1.Add(t2)
	vt := v.Dot(t)
	denom := 2 * (1 - t1.Dot(t2))

	var pm r3.Vector
	if math.Abs(denom) > parallelEps {
		root := math.Sqrt(vt*vt + denom*vv)
		var d float64
		if vt+root > parallelEps {
			d = vv / (vt + root)
		} else {
			d = (-vt + root) / denom
		}
		pm = p1.Add(t1.Mul(d)).Add(p2.Sub(t2.Mul(d))).Mul(0.5)
	} else {
		vt2 := v.Dot(t2)
		if math.Abs(vt2) <= parallelEps {
			pm = p1.Add(p2).Mul(0.5)
		} else {
			d := vv / (4 * vt2)
			pm = p1.Add(t1.Mul(d)).Add(p2.Sub(t2.Mul(d))).Mul(0.5)
		}
	}
	return BiarcPair3{Arcs: [2]Biarc3{
		arc3FromTangent(p1, t1, pm),
		arc3FromTangent(p2, t2.Mul(-1), pm).Reverse(),
	}}
}
