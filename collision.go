package roadgeom

import (
	"math"

	"github.com/paulmach/orb"
)

// Transform is 2x3 affine matrix: [ A C E ; B D F ]
type Transform struct {
	A, B, C, D, E, F float64
}

func identityTransform() Transform {
	return Transform{A: 1, D: 1}
}

// NewTransform returns local-to-world transform of a frame with X axis along heading
func NewTransform(position, heading orb.Point) Transform {
	h := normalize(heading)
	return Transform{A: h[0], B: h[1], C: -h[1], D: h[0], E: position[0], F: position[1]}
}

// Mul returns t ∘ u (apply u, then t)
func (t Transform) Mul(u Transform) Transform {
	return Transform{
		A: t.A*u.A + t.C*u.B,
		B: t.B*u.A + t.D*u.B,
		C: t.A*u.C + t.C*u.D,
		D: t.B*u.C + t.D*u.D,
		E: t.A*u.E + t.C*u.F + t.E,
		F: t.B*u.E + t.D*u.F + t.F,
	}
}

func (t Transform) Apply(p orb.Point) orb.Point {
	return orb.Point{
		t.A*p[0] + t.C*p[1] + t.E,
		t.B*p[0] + t.D*p[1] + t.F,
	}
}

// Inverse returns inverse transform. Singular matrix gives identity
func (t Transform) Inverse() Transform {
	det := t.A*t.D - t.B*t.C
	if det == 0 {
		return identityTransform()
	}
	inv := 1 / det
	return Transform{
		A: t.D * inv,
		B: -t.B * inv,
		C: -t.C * inv,
		D: t.A * inv,
		E: (t.C*t.F - t.D*t.E) * inv,
		F: (t.B*t.E - t.A*t.F) * inv,
	}
}

// VehicleSegment is one rigid unit of a vehicle: tractor or trailer.
// Pivots are distances from the front and rear ends to hitch points
type VehicleSegment struct {
	Length     float64
	Width      float64
	FrontPivot float64
	RearPivot  float64
}

type VehicleParams struct {
	Segments        []VehicleSegment
	MaxSpeed        float64
	MaxAcceleration float64
	MaxDeceleration float64
}

// TotalLength returns length of the vehicle with all trailers coupled
func (params VehicleParams) TotalLength() float64 {
	total := 0.0
	for i, seg := range params.Segments {
		total += seg.Length
		if i > 0 {
			total -= seg.FrontPivot + params.Segments[i-1].RearPivot
		}
	}
	return total
}

// halfDiagonal returns the largest half diagonal among segments
func (params VehicleParams) halfDiagonal() float64 {
	best := 0.0
	for _, seg := range params.Segments {
		best = math.Max(best, math.Hypot(seg.Length, seg.Width)/2)
	}
	return best
}

// SegmentState is world position of segment center and its heading
type SegmentState struct {
	Position orb.Point
	Heading  orb.Point
}

func (state SegmentState) Transform() Transform {
	return NewTransform(state.Position, state.Heading)
}

// DriverCollisionState holds every segment of a vehicle at one sampled time
type DriverCollisionState struct {
	Segments []SegmentState
}

func (state DriverCollisionState) lead() SegmentState {
	if len(state.Segments) == 0 {
		return SegmentState{Heading: orb.Point{1, 0}}
	}
	return state.Segments[0]
}

// CheckCollision tests every segment pair of two vehicles for rectangle overlap
func CheckCollision(paramsA VehicleParams, a DriverCollisionState, paramsB VehicleParams, b DriverCollisionState) bool {
	for i, segA := range a.Segments {
		if i >= len(paramsA.Segments) {
			break
		}
		for j, segB := range b.Segments {
			if j >= len(paramsB.Segments) {
				break
			}
			if rectanglesOverlap(paramsA.Segments[i], segA.Transform(), paramsB.Segments[j], segB.Transform()) {
				return true
			}
		}
	}
	return false
}

// rectanglesOverlap projects corners of every rectangle into the other's local frame and
// checks axis-aligned overlap there, in both directions
func rectanglesOverlap(a VehicleSegment, ta Transform, b VehicleSegment, tb Transform) bool {
	return cornersOverlap(a, ta.Inverse().Mul(tb), b) && cornersOverlap(b, tb.Inverse().Mul(ta), a)
}

// cornersOverlap checks if rectangle other, brought into frame of rect by local, overlaps rect
func cornersOverlap(rect VehicleSegment, local Transform, other VehicleSegment) bool {
	hl, hw := other.Length/2, other.Width/2
	bound := orb.MultiPoint{
		local.Apply(orb.Point{hl, hw}),
		local.Apply(orb.Point{hl, -hw}),
		local.Apply(orb.Point{-hl, hw}),
		local.Apply(orb.Point{-hl, -hw}),
	}.Bound()
	own := orb.Bound{
		Min: orb.Point{-rect.Length / 2, -rect.Width / 2},
		Max: orb.Point{rect.Length / 2, rect.Width / 2},
	}
	return own.Intersects(bound)
}

// CellKey represents a cell in the spatial grid
type CellKey struct {
	X, Y int64
}

// SpatialGrid buckets drivers by the area swept by their future states
type SpatialGrid struct {
	cellSize float64
	cells    map[CellKey][]DriverID
}

func NewSpatialGrid(cellSize float64) *SpatialGrid {
	return &SpatialGrid{
		cellSize: cellSize,
		cells:    make(map[CellKey][]DriverID),
	}
}

func (g *SpatialGrid) getCellKey(x, y float64) CellKey {
	return CellKey{
		X: int64(math.Floor(x / g.cellSize)),
		Y: int64(math.Floor(y / g.cellSize)),
	}
}

// Clear removes all drivers from the grid
func (g *SpatialGrid) Clear() {
	g.cells = make(map[CellKey][]DriverID)
}

// Insert adds driver to every cell covered by bound
func (g *SpatialGrid) Insert(id DriverID, bound orb.Bound) {
	first := g.getCellKey(bound.Min[0], bound.Min[1])
	last := g.getCellKey(bound.Max[0], bound.Max[1])
	for x := first.X; x <= last.X; x++ {
		for y := first.Y; y <= last.Y; y++ {
			key := CellKey{X: x, Y: y}
			g.cells[key] = append(g.cells[key], id)
		}
	}
}

// Nearby returns drivers sharing at least one cell with bound, except given one
func (g *SpatialGrid) Nearby(id DriverID, bound orb.Bound) []DriverID {
	seen := make(map[DriverID]struct{})
	nearby := make([]DriverID, 0)
	first := g.getCellKey(bound.Min[0], bound.Min[1])
	last := g.getCellKey(bound.Max[0], bound.Max[1])
	for x := first.X; x <= last.X; x++ {
		for y := first.Y; y <= last.Y; y++ {
			for _, other := range g.cells[CellKey{X: x, Y: y}] {
				if other == id {
					continue
				}
				if _, ok := seen[other]; ok {
					continue
				}
				seen[other] = struct{}{}
				nearby = append(nearby, other)
			}
		}
	}
	return nearby
}
