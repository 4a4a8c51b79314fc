package roadgeom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// Tolerances used across the kernel
	arcDenominatorEps = 0.01
	coincidentEps3    = 1e-4
	alignmentEps      = 1e-7
	dedupEps          = 0.001
	pointLengthEps    = 1e-9

	twoPi = 2 * math.Pi
)

func add(a, b orb.Point) orb.Point {
	return orb.Point{a[0] + b[0], a[1] + b[1]}
}

func sub(a, b orb.Point) orb.Point {
	return orb.Point{a[0] - b[0], a[1] - b[1]}
}

func scale(a orb.Point, k float64) orb.Point {
	return orb.Point{a[0] * k, a[1] * k}
}

func dot(a, b orb.Point) float64 {
	return a[0]*b[0] + a[1]*b[1]
}

func cross(a, b orb.Point) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

func length(a orb.Point) float64 {
	return math.Hypot(a[0], a[1])
}

func lengthSquared(a orb.Point) float64 {
	return a[0]*a[0] + a[1]*a[1]
}

// findDistance returns distance between two points
func findDistance(p, q orb.Point) float64 {
	return length(sub(p, q))
}

// normalize returns unit vector. Zero vector stays zero
func normalize(a orb.Point) orb.Point {
	l := length(a)
	if l == 0 {
		return orb.Point{}
	}
	return orb.Point{a[0] / l, a[1] / l}
}

// leftNormal rotates vector by 90 degrees counter-clockwise
func leftNormal(a orb.Point) orb.Point {
	return orb.Point{-a[1], a[0]}
}

// rightNormal rotates vector by 90 degrees clockwise
func rightNormal(a orb.Point) orb.Point {
	return orb.Point{a[1], -a[0]}
}

// rotate rotates vector by given angle (radians, counter-clockwise)
func rotate(a orb.Point, angle float64) orb.Point {
	sin, cos := math.Sincos(angle)
	return orb.Point{
		a[0]*cos - a[1]*sin,
		a[0]*sin + a[1]*cos,
	}
}

func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
	}
}

// Check if two lines intersects and returns intersections Point
// p1, p2 - first line
// p3, p4 - second line
func intersect(p1, p2, p3, p4 orb.Point) (orb.Point, error) {
	// Calculate the coefficients of the linear equations
	a1 := p2[1] - p1[1]
	b1 := p1[0] - p2[0]
	c1 := a1*p1[0] + b1*p1[1]
	a2 := p4[1] - p3[1]
	b2 := p3[0] - p4[0]
	c2 := a2*p3[0] + b2*p3[1]

	// Calculate the determinant
	det := a1*b2 - a2*b1
	if det == 0 {
		return orb.Point{}, fmt.Errorf("The lines are parallel")
	}

	// Calculate the intersection point
	x := (b2*c1 - b1*c2) / det
	y := (a1*c2 - a2*c1) / det
	return orb.Point{x, y}, nil
}

// normalizeAngle wraps angle into (-pi; pi]
func normalizeAngle(angle float64) float64 {
	for angle <= -math.Pi {
		angle += twoPi
	}
	for angle > math.Pi {
		angle -= twoPi
	}
	return angle
}

// angleBetweenDirections returns signed angle needed to rotate d1 onto d2
func angleBetweenDirections(d1, d2 orb.Point) float64 {
	return normalizeAngle(math.Atan2(d2[1], d2[0]) - math.Atan2(d1[1], d1[0]))
}

// appendDedup appends point unless it duplicates the last one
func appendDedup(line orb.LineString, pt orb.Point) orb.LineString {
	if len(line) > 0 && findDistance(line[len(line)-1], pt) < dedupEps {
		return line
	}
	return append(line, pt)
}
