package roadgeom

import (
	"github.com/paulmach/orb"
)

type DriverID int

type DriverState uint16

const (
	DRIVER_DRIVING = DriverState(iota + 1)
	DRIVER_STOPPING
	DRIVER_STOPPED
)

func (iotaIdx DriverState) String() string {
	return [...]string{"driving", "stopping", "stopped"}[iotaIdx-1]
}

const (
	futureStatesNum  = 8
	futureStatesStep = 0.25
)

// Driver follows a path of lane lines. Distance is position of the lead segment center
// along the first path node
type Driver struct {
	Params       VehicleParams
	Path         []DriverPathNode
	Route        []NodeRef
	futureStates [futureStatesNum]DriverCollisionState
	Distance     float64
	Speed        float64
	stopDistance float64
	State        DriverState
	ID           DriverID
	placed       bool
}

func newDriver(id DriverID, params VehicleParams, first DriverPathNode, distance float64) *Driver {
	return &Driver{
		Params:   params,
		Path:     []DriverPathNode{first},
		Distance: distance,
		State:    DRIVER_DRIVING,
		ID:       id,
	}
}

// FutureState returns predicted state at sample k (k * 0.25s ahead)
func (driver *Driver) FutureState(k int) DriverCollisionState {
	return driver.futureStates[k]
}

// SegmentTransforms returns world transform of every segment at sample k
func (driver *Driver) SegmentTransforms(k int) []Transform {
	state := driver.futureStates[k]
	transforms := make([]Transform, len(state.Segments))
	for i, seg := range state.Segments {
		transforms[i] = seg.Transform()
	}
	return transforms
}

// Position returns current center of the lead segment
func (driver *Driver) Position() orb.Point {
	return driver.futureStates[0].lead().Position
}

// Heading returns current heading of the lead segment
func (driver *Driver) Heading() orb.Point {
	return driver.futureStates[0].lead().Heading
}

// remaining returns path length ahead of the lead segment
func (driver *Driver) remaining() float64 {
	return pathLength(driver.Path) - driver.Distance
}

// isBehind checks if other vehicle is ahead along own heading
func (driver *Driver) isBehind(other *Driver) bool {
	return dot(sub(other.Position(), driver.Position()), driver.Heading()) > 0
}

// placeSegments lays trailers straight behind the lead along the path
func (driver *Driver) placeSegments(distance float64) DriverCollisionState {
	state := DriverCollisionState{Segments: make([]SegmentState, len(driver.Params.Segments))}
	center := distance
	for i, seg := range driver.Params.Segments {
		if i > 0 {
			prev := driver.Params.Segments[i-1]
			center -= prev.Length/2 - prev.RearPivot + seg.Length/2 - seg.FrontPivot
		}
		pos, tangent := pathPoint(driver.Path, center)
		state.Segments[i] = SegmentState{Position: pos, Heading: normalize(tangent)}
	}
	return state
}

// updateFutureStates samples lead positions along the path and moves trailers by pursuit
// of the previous sample
func (driver *Driver) updateFutureStates() {
	prev := driver.futureStates[0]
	if !driver.placed || len(prev.Segments) != len(driver.Params.Segments) {
		prev = driver.placeSegments(driver.Distance)
		driver.placed = true
	}
	for k := 0; k < futureStatesNum; k++ {
		pos, tangent := pathPoint(driver.Path, driver.Distance+driver.Speed*futureStatesStep*float64(k))
		heading := normalize(tangent)
		if lengthSquared(heading) == 0 {
			heading = prev.lead().Heading
		}
		state := DriverCollisionState{Segments: make([]SegmentState, len(driver.Params.Segments))}
		if len(state.Segments) == 0 {
			driver.futureStates[k] = state
			continue
		}
		state.Segments[0] = SegmentState{Position: pos, Heading: heading}
		for i := 1; i < len(state.Segments); i++ {
			state.Segments[i] = pursue(driver.Params.Segments[i-1], state.Segments[i-1], driver.Params.Segments[i], prev.Segments[i])
		}
		driver.futureStates[k] = state
		prev = state
	}
}

// pursue moves trailer towards hitch point of the unit pulling it
func pursue(leadSegment VehicleSegment, lead SegmentState, segment VehicleSegment, previous SegmentState) SegmentState {
	hitch := sub(lead.Position, scale(lead.Heading, leadSegment.Length/2-leadSegment.RearPivot))
	heading := previous.Heading
	if dir := sub(hitch, previous.Position); length(dir) > pointLengthEps {
		heading = normalize(dir)
	}
	return SegmentState{
		Position: sub(hitch, scale(heading, segment.Length/2-segment.FrontPivot)),
		Heading:  heading,
	}
}

// footprint returns bound swept by all future states
func (driver *Driver) footprint() orb.Bound {
	points := make(orb.MultiPoint, 0, futureStatesNum*len(driver.Params.Segments))
	for _, state := range driver.futureStates {
		for _, seg := range state.Segments {
			points = append(points, seg.Position)
		}
	}
	if len(points) == 0 {
		return orb.Bound{}
	}
	return points.Bound().Pad(driver.Params.halfDiagonal())
}
