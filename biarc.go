package roadgeom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

const (
	parallelEps            = 1e-12
	spanEps                = 1e-6
	maxExpandingIterations = 10
	defaultSegmentsPerTurn = 32
)

// Biarc is a single circular arc or straight segment, one half of a BiarcPair.
// Radius equal to zero denotes a straight segment.
type Biarc struct {
	Center orb.Point
	Start  orb.Point
	End    orb.Point
	Radius float64
	// Signed sweep in radians. Positive is counter-clockwise
	Angle  float64
	Length float64
}

func newStraightBiarc(start, end orb.Point) Biarc {
	return Biarc{
		Center: lerp(start, end, 0.5),
		Start:  start,
		End:    end,
		Length: findDistance(start, end),
	}
}

func newPointBiarc(pt orb.Point) Biarc {
	return Biarc{
		Center: pt,
		Start:  pt,
		End:    pt,
	}
}

// arcFromTangent builds the arc leaving start along tangent and passing through end
func arcFromTangent(start, tangent, end orb.Point) Biarc {
	w := sub(end, start)
	n := leftNormal(tangent)
	denom := 2 * dot(n, w)
	if math.Abs(denom) <= arcDenominatorEps {
		return newStraightBiarc(start, end)
	}
	s := lengthSquared(w) / denom
	center := add(start, scale(n, s))
	radius := math.Abs(s)
	cos := lo.Clamp(dot(sub(start, center), sub(end, center))/(radius*radius), -1.0, 1.0)
	angle := math.Acos(cos)
	if dot(w, tangent) < 0 {
		// Chord runs against the tangent: sweep exceeds half a turn
		angle = twoPi - angle
	}
	if s < 0 {
		angle = -angle
	}
	return Biarc{
		Center: center,
		Start:  start,
		End:    end,
		Radius: radius,
		Angle:  angle,
		Length: math.Abs(angle) * radius,
	}
}

// arcToTangent builds the arc from start which arrives at end along endTangent
func arcToTangent(start, end, endTangent orb.Point) Biarc {
	return arcFromTangent(end, scale(endTangent, -1), start).Reverse()
}

// IsStraight reports whether biarc is a line segment (possibly of zero length)
func (b Biarc) IsStraight() bool {
	return b.Radius == 0
}

// IsPoint reports whether biarc has collapsed to a single point
func (b Biarc) IsPoint() bool {
	return b.Length <= pointLengthEps
}

// GetPoint returns point at given distance from the start
func (b Biarc) GetPoint(distance float64) orb.Point {
	if distance <= 0 {
		return b.Start
	}
	if distance >= b.Length {
		return b.End
	}
	if b.IsStraight() {
		return lerp(b.Start, b.End, distance/b.Length)
	}
	return add(b.Center, rotate(sub(b.Start, b.Center), b.Angle*distance/b.Length))
}

// GetTangent returns unit tangent at given distance. Zero vector for a point
func (b Biarc) GetTangent(distance float64) orb.Point {
	if b.IsStraight() {
		return normalize(sub(b.End, b.Start))
	}
	r := sub(b.GetPoint(distance), b.Center)
	if b.Angle > 0 {
		return normalize(leftNormal(r))
	}
	return normalize(rightNormal(r))
}

func (b Biarc) StartTangent() orb.Point {
	return b.GetTangent(0)
}

func (b Biarc) EndTangent() orb.Point {
	return b.GetTangent(b.Length)
}

// Reverse returns the same biarc traversed from end to start
func (b Biarc) Reverse() Biarc {
	return Biarc{
		Center: b.Center,
		Start:  b.End,
		End:    b.Start,
		Radius: b.Radius,
		Angle:  -b.Angle,
		Length: b.Length,
	}
}

// parallel offsets biarc to the right of travel direction.
// tangentHint is used to place point biarcs which carry no direction of their own
func (b Biarc) parallel(offset float64, tangentHint orb.Point) Biarc {
	if b.IsPoint() {
		pt := add(b.Start, scale(rightNormal(tangentHint), offset))
		return newPointBiarc(pt)
	}
	if b.IsStraight() {
		n := scale(rightNormal(normalize(sub(b.End, b.Start))), offset)
		return Biarc{
			Center: add(b.Center, n),
			Start:  add(b.Start, n),
			End:    add(b.End, n),
			Length: b.Length,
		}
	}
	signed := offset
	if b.Angle < 0 {
		signed = -offset
	}
	radius := b.Radius + signed
	if radius <= 0 {
		return newPointBiarc(b.Center)
	}
	k := radius / b.Radius
	return Biarc{
		Center: b.Center,
		Start:  add(b.Center, scale(sub(b.Start, b.Center), k)),
		End:    add(b.Center, scale(sub(b.End, b.Center), k)),
		Radius: radius,
		Angle:  b.Angle,
		Length: math.Abs(b.Angle) * radius,
	}
}

// DistanceAt returns distance along biarc to the given point, which is assumed to lie on
// the biarc's line or circle. The flag is false when point is outside of the biarc span
func (b Biarc) DistanceAt(pt orb.Point) (float64, bool) {
	if b.IsPoint() {
		return 0, findDistance(pt, b.Start) < spanEps
	}
	if b.IsStraight() {
		t := dot(sub(pt, b.Start), normalize(sub(b.End, b.Start)))
		if t < -spanEps || t > b.Length+spanEps {
			return 0, false
		}
		return lo.Clamp(t, 0, b.Length), true
	}
	a := sub(b.Start, b.Center)
	p := sub(pt, b.Center)
	theta := math.Atan2(cross(a, p), dot(a, p))
	angEps := spanEps / b.Radius
	if b.Angle > 0 {
		if theta < 0 {
			theta += twoPi
		}
		if theta > b.Angle+angEps {
			if theta > twoPi-angEps {
				return 0, true
			}
			return 0, false
		}
	} else {
		if theta > 0 {
			theta -= twoPi
		}
		if theta < b.Angle-angEps {
			if theta < -twoPi+angEps {
				return 0, true
			}
			return 0, false
		}
	}
	return lo.Clamp(math.Abs(theta)*b.Radius, 0, b.Length), true
}

// Split cuts biarc at given distance into two biarcs sharing the cut point
func (b Biarc) Split(distance float64) (Biarc, Biarc) {
	distance = lo.Clamp(distance, 0, b.Length)
	pt := b.GetPoint(distance)
	if b.IsStraight() {
		return newStraightBiarc(b.Start, pt), newStraightBiarc(pt, b.End)
	}
	fraction := 0.0
	if b.Length > 0 {
		fraction = distance / b.Length
	}
	angle1 := b.Angle * fraction
	angle2 := b.Angle - angle1
	first := Biarc{Center: b.Center, Start: b.Start, End: pt, Radius: b.Radius, Angle: angle1, Length: math.Abs(angle1) * b.Radius}
	second := Biarc{Center: b.Center, Start: pt, End: b.End, Radius: b.Radius, Angle: angle2, Length: math.Abs(angle2) * b.Radius}
	if first.IsPoint() {
		first = newPointBiarc(pt)
	}
	if second.IsPoint() {
		second = newPointBiarc(pt)
	}
	return first, second
}

// Tessellate samples biarc; arcs get segments proportionally to their sweep
func (b Biarc) Tessellate(segmentsPerTurn int) orb.LineString {
	if b.IsPoint() {
		return orb.LineString{b.Start}
	}
	if b.IsStraight() {
		return orb.LineString{b.Start, b.End}
	}
	n := int(math.Ceil(float64(segmentsPerTurn) * math.Abs(b.Angle) / twoPi))
	if n < 1 {
		n = 1
	}
	line := make(orb.LineString, 0, n+1)
	for i := 0; i <= n; i++ {
		line = append(line, b.GetPoint(b.Length*float64(i)/float64(n)))
	}
	return line
}

// BiarcPair is two joined biarcs with matching tangent at the join
type BiarcPair struct {
	Arcs [2]Biarc
}

func NewBiarcPair(first, second Biarc) BiarcPair {
	return BiarcPair{Arcs: [2]Biarc{first, second}}
}

func (pair BiarcPair) First() Biarc {
	return pair.Arcs[0]
}

func (pair BiarcPair) Second() Biarc {
	return pair.Arcs[1]
}

func (pair BiarcPair) Length() float64 {
	return pair.Arcs[0].Length + pair.Arcs[1].Length
}

func (pair BiarcPair) Start() orb.Point {
	return pair.Arcs[0].Start
}

func (pair BiarcPair) End() orb.Point {
	return pair.Arcs[1].End
}

// Joint returns the point where the two biarcs meet
func (pair BiarcPair) Joint() orb.Point {
	return pair.Arcs[0].End
}

func (pair BiarcPair) IsPoint() bool {
	return pair.Arcs[0].IsPoint() && pair.Arcs[1].IsPoint()
}

func (pair BiarcPair) IsStraight() bool {
	return pair.Arcs[0].IsStraight() && pair.Arcs[1].IsStraight()
}

// StartTangent returns tangent at start skipping collapsed halves
func (pair BiarcPair) StartTangent() orb.Point {
	if !pair.Arcs[0].IsPoint() {
		return pair.Arcs[0].StartTangent()
	}
	return pair.Arcs[1].StartTangent()
}

// EndTangent returns tangent at end skipping collapsed halves
func (pair BiarcPair) EndTangent() orb.Point {
	if !pair.Arcs[1].IsPoint() {
		return pair.Arcs[1].EndTangent()
	}
	return pair.Arcs[0].EndTangent()
}

// JointTangent returns tangent at the joint
func (pair BiarcPair) JointTangent() orb.Point {
	if !pair.Arcs[0].IsPoint() {
		return pair.Arcs[0].EndTangent()
	}
	return pair.Arcs[1].StartTangent()
}

func (pair BiarcPair) GetPoint(distance float64) orb.Point {
	if distance <= 0 {
		return pair.Start()
	}
	if distance >= pair.Length() {
		return pair.End()
	}
	if distance <= pair.Arcs[0].Length {
		return pair.Arcs[0].GetPoint(distance)
	}
	return pair.Arcs[1].GetPoint(distance - pair.Arcs[0].Length)
}

func (pair BiarcPair) GetTangent(distance float64) orb.Point {
	if pair.Arcs[1].IsPoint() || (distance <= pair.Arcs[0].Length && !pair.Arcs[0].IsPoint()) {
		return pair.Arcs[0].GetTangent(distance)
	}
	return pair.Arcs[1].GetTangent(distance - pair.Arcs[0].Length)
}

// Reverse returns the pair traversed from end to start
func (pair BiarcPair) Reverse() BiarcPair {
	return NewBiarcPair(pair.Arcs[1].Reverse(), pair.Arcs[0].Reverse())
}

// Tessellate samples the whole pair into a polyline without duplicated vertices
func (pair BiarcPair) Tessellate(segmentsPerTurn int) orb.LineString {
	line := make(orb.LineString, 0, 8)
	for _, arc := range pair.Arcs {
		for _, pt := range arc.Tessellate(segmentsPerTurn) {
			line = appendDedup(line, pt)
		}
	}
	if len(line) == 1 {
		line = append(line, line[0])
	}
	return line
}

// Interpolate finds symmetric biarc pair joining p1 (tangent t1) with p2 (tangent t2)
func Interpolate(p1, t1, p2, t2 orb.Point) BiarcPair {
	t1 = normalize(t1)
	t2 = normalize(t2)
	v := sub(p2, p1)
	vv := lengthSquared(v)
	if vv <= pointLengthEps {
		return NewBiarcPair(newPointBiarc(p1), newPointBiarc(p1))
	}
	t := add(t1, t2)
	vt := dot(v, t)
	denom := 2 * (1 - dot(t1, t2))

	var pm orb.Point
	if math.Abs(denom) > parallelEps {
		root := math.Sqrt(vt*vt + denom*vv)
		var d float64
		if vt+root > parallelEps {
			// Same root as (-vt + root) / denom without cancellation
			d = vv / (vt + root)
		} else {
			d = (-vt + root) / denom
		}
		pm = lerp(add(p1, scale(t1, d)), sub(p2, scale(t2, d)), 0.5)
	} else {
		vt2 := dot(v, t2)
		if math.Abs(vt2) <= parallelEps {
			// Parallel tangents perpendicular to the chord: two half circles
			pm = lerp(p1, p2, 0.5)
		} else {
			d := vv / (4 * vt2)
			pm = lerp(add(p1, scale(t1, d)), sub(p2, scale(t2, d)), 0.5)
		}
	}
	return NewBiarcPair(arcFromTangent(p1, t1, pm), arcToTangent(pm, p2, t2))
}

// CreateParallel offsets pair uniformly; positive offset is to the right of travel direction
func CreateParallel(pair BiarcPair, offset float64) BiarcPair {
	if offset == 0 {
		return pair
	}
	joint := pair.JointTangent()
	return NewBiarcPair(
		pair.Arcs[0].parallel(offset, joint),
		pair.Arcs[1].parallel(offset, joint),
	)
}

// CreateTaperedParallel offsets pair by offset1 at the start and offset2 at the end
func CreateTaperedParallel(pair BiarcPair, offset1, offset2 float64) BiarcPair {
	if offset1 == offset2 {
		return CreateParallel(pair, offset1)
	}
	return CreateExpanding(pair, offset1, offset2)
}

// CreateExpanding builds a pair between the start offset by offset1 and the end offset by
// offset2, keeping the original end tangents. The joint slides along the normal at the
// original joint until both halves agree on the tangent there. Result of the last
// bisection step is returned when tolerance is not reached
func CreateExpanding(pair BiarcPair, offset1, offset2 float64) BiarcPair {
	t1 := pair.StartTangent()
	t2 := pair.EndTangent()
	if pair.IsPoint() || lengthSquared(t1) == 0 || lengthSquared(t2) == 0 {
		return CreateParallel(pair, (offset1+offset2)/2)
	}
	s1 := add(pair.Start(), scale(rightNormal(t1), offset1))
	s2 := add(pair.End(), scale(rightNormal(t2), offset2))
	joint := pair.Joint()
	nj := rightNormal(pair.JointTangent())

	type candidate struct {
		first, second Biarc
		cross, dot    float64
	}
	build := func(t float64) candidate {
		q := add(joint, scale(nj, offset1+(offset2-offset1)*t))
		first := arcFromTangent(s1, t1, q)
		second := arcToTangent(q, s2, t2)
		ta := first.EndTangent()
		tb := second.StartTangent()
		if first.IsPoint() {
			ta = t1
		}
		if second.IsPoint() {
			tb = t2
		}
		return candidate{first: first, second: second, cross: cross(ta, tb), dot: dot(ta, tb)}
	}

	low, high := 0.0, 1.0
	cLow := build(low)
	cHigh := build(high)
	best := cLow
	if cHigh.dot > cLow.dot {
		best = cHigh
	}
	if 1-best.dot < alignmentEps || math.Signbit(cLow.cross) == math.Signbit(cHigh.cross) {
		return NewBiarcPair(best.first, best.second)
	}
	for i := 0; i < maxExpandingIterations; i++ {
		mid := (low + high) / 2
		best = build(mid)
		if 1-best.dot < alignmentEps {
			break
		}
		if math.Signbit(best.cross) == math.Signbit(cLow.cross) {
			low = mid
			cLow = best
		} else {
			high = mid
		}
	}
	return NewBiarcPair(best.first, best.second)
}

// IntersectArcs returns intersection point of two biarcs and distances to it along each.
// The flag is false when biarcs do not intersect within their spans
func IntersectArcs(a, b Biarc) (orb.Point, float64, float64, bool) {
	if a.IsPoint() || b.IsPoint() {
		return orb.Point{}, 0, 0, false
	}
	var candidates []orb.Point
	switch {
	case a.IsStraight() && b.IsStraight():
		pt, err := intersect(a.Start, a.End, b.Start, b.End)
		if err != nil {
			return orb.Point{}, 0, 0, false
		}
		candidates = []orb.Point{pt}
	case a.IsStraight():
		candidates = intersectLineCircle(a, b.Center, b.Radius)
	case b.IsStraight():
		candidates = intersectLineCircle(b, a.Center, a.Radius)
	default:
		candidates = intersectCircles(a.Center, a.Radius, b.Center, b.Radius)
	}
	found := false
	var bestPt orb.Point
	var bestA, bestB float64
	for _, pt := range candidates {
		da, okA := a.DistanceAt(pt)
		if !okA {
			continue
		}
		db, okB := b.DistanceAt(pt)
		if !okB {
			continue
		}
		if !found || da < bestA {
			found = true
			bestPt, bestA, bestB = pt, da, db
		}
	}
	return bestPt, bestA, bestB, found
}

// intersectCircles returns up to two intersection points of circles (c1, r1) and (c2, r2)
func intersectCircles(c1 orb.Point, r1 float64, c2 orb.Point, r2 float64) []orb.Point {
	dv := sub(c2, c1)
	d := length(dv)
	if d == 0 || d > r1+r2 || d < math.Abs(r1-r2) {
		return nil
	}
	k := d*d - r2*r2 + r1*r1
	x := k / (2 * d)
	ySq := 4*d*d*r1*r1 - k*k
	if ySq < 0 {
		return nil
	}
	y := math.Sqrt(ySq) / (2 * d)
	u := scale(dv, 1/d)
	base := add(c1, scale(u, x))
	n := leftNormal(u)
	return []orb.Point{add(base, scale(n, y)), sub(base, scale(n, y))}
}

// intersectLineCircle returns intersections of segment's supporting line with a circle
func intersectLineCircle(segment Biarc, center orb.Point, radius float64) []orb.Point {
	u := normalize(sub(segment.End, segment.Start))
	f := sub(segment.Start, center)
	b := dot(f, u)
	c := lengthSquared(f) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return nil
	}
	root := math.Sqrt(disc)
	return []orb.Point{
		add(segment.Start, scale(u, -b-root)),
		add(segment.Start, scale(u, -b+root)),
	}
}
