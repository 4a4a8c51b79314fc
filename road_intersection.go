package roadgeom

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

type IntersectionPointType uint16

const (
	INTERSECTION_INPUT = IntersectionPointType(iota + 1)
	INTERSECTION_OUTPUT
)

func (iotaIdx IntersectionPointType) String() string {
	return [...]string{"input", "output"}[iotaIdx-1]
}

// IntersectionPoint is a group touching the junction. INPUT groups feed traffic into it
type IntersectionPoint struct {
	Group NodeGroupID
	Type  IntersectionPointType
	Angle float64
}

// IntersectionEdge is a corner between two adjacent points. Outer follows shoulders,
// Inner follows lane edges
type IntersectionEdge struct {
	Outer    RoadCurveLine
	Inner    RoadCurveLine
	A        int
	B        int
	Fallback bool
}

type RoadIntersection struct {
	Program      TrafficLightProgram
	Groups       []NodeGroupID
	Points       []IntersectionPoint
	Edges        []IntersectionEdge
	Center       orb.Point
	CornerRadius float64
	ID           IntersectionID
}

// stubLengthFactor scales corner radius into length of straight boundaries used
// when a point has no connection on the needed side
const stubLengthFactor = 4.0

// Construct collects points around the junction, orders them by descending polar angle
// around the centroid and creates corner edges between adjacent non-twin points
func (inter *RoadIntersection) Construct(groups []*NodeGroup, connections map[ConnectionID]*NodeGroupConnection) {
	inter.Points = make([]IntersectionPoint, 0, len(groups))
	inter.Edges = make([]IntersectionEdge, 0, len(groups))
	if len(groups) == 0 {
		return
	}
	members := make(map[NodeGroupID]struct{}, len(groups))
	sum := orb.Point{}
	weight := 0.0
	for _, group := range groups {
		members[group.ID] = struct{}{}
		if group.Twin >= 0 {
			sum = add(sum, scale(group.Position, 2))
			weight += 2
			continue
		}
		sum = add(sum, group.Position)
		weight++
	}
	inter.Center = scale(sum, 1/weight)

	for _, group := range groups {
		into := lo.ContainsBy(group.Outputs, func(id ConnectionID) bool {
			conn, ok := connections[id]
			if !ok {
				return false
			}
			_, member := members[conn.Output.Group]
			return member
		})
		from := lo.ContainsBy(group.Inputs, func(id ConnectionID) bool {
			conn, ok := connections[id]
			if !ok {
				return false
			}
			_, member := members[conn.Input.Group]
			return member
		})
		pointType := INTERSECTION_OUTPUT
		switch {
		case into && !from:
			pointType = INTERSECTION_INPUT
		case !into && !from && dot(group.Direction, sub(inter.Center, group.Position)) > 0:
			pointType = INTERSECTION_INPUT
		}
		rel := sub(group.Position, inter.Center)
		inter.Points = append(inter.Points, IntersectionPoint{
			Group: group.ID,
			Type:  pointType,
			Angle: math.Atan2(rel[1], rel[0]),
		})
	}
	sort.SliceStable(inter.Points, func(i, j int) bool {
		return inter.Points[i].Angle > inter.Points[j].Angle
	})

	twins := make(map[NodeGroupID]NodeGroupID, len(groups))
	for _, group := range groups {
		twins[group.ID] = group.Twin
	}
	n := len(inter.Points)
	if n < 2 {
		return
	}
	pairs := n
	if n == 2 {
		pairs = 1
	}
	for i := 0; i < pairs; i++ {
		a, b := i, (i+1)%n
		if twins[inter.Points[a].Group] == inter.Points[b].Group {
			continue
		}
		inter.Edges = append(inter.Edges, IntersectionEdge{A: a, B: b})
	}
}

// PointIndex returns index of the point of given group or -1
func (inter *RoadIntersection) PointIndex(group NodeGroupID) int {
	for i, pt := range inter.Points {
		if pt.Group == group {
			return i
		}
	}
	return -1
}

// awayDirection returns direction pointing out of the junction at given point
func awayDirection(pt IntersectionPoint, group *NodeGroup) orb.Point {
	if pt.Type == INTERSECTION_INPUT {
		return scale(group.Direction, -1)
	}
	return group.Direction
}

// boundary returns shoulder curve running away from the junction on the given side of the
// away direction, and shoulder width on that side
func (inter *RoadIntersection) boundary(pt IntersectionPoint, group *NodeGroup, side LaneSide, connections map[ConnectionID]*NodeGroupConnection) (RoadCurveLine, float64) {
	travelSide := side
	ids := group.Outputs
	if pt.Type == INTERSECTION_INPUT {
		travelSide = 1 - side
		ids = group.Inputs
	}
	shoulder := group.LeftShoulder
	if travelSide == SIDE_RIGHT {
		shoulder = group.RightShoulder
	}
	for _, id := range ids {
		conn, ok := connections[id]
		if !ok {
			continue
		}
		lanes := conn.Input
		if pt.Type == INTERSECTION_INPUT {
			lanes = conn.Output
		}
		if (travelSide == SIDE_LEFT && lanes.Index != 0) || (travelSide == SIDE_RIGHT && lanes.End() != group.LanesNum()) {
			continue
		}
		line := conn.VisualShoulderLines[travelSide]
		if pt.Type == INTERSECTION_INPUT {
			line = line.Reverse()
		}
		return line, shoulder
	}
	start := sub(group.LeftEdge(), scale(group.Right(), group.LeftShoulder))
	if travelSide == SIDE_RIGHT {
		start = add(group.RightEdge(), scale(group.Right(), group.RightShoulder))
	}
	away := awayDirection(pt, group)
	stub := stubLengthFactor * math.Max(inter.CornerRadius, 1)
	mid := add(start, scale(away, stub/2))
	end := add(start, scale(away, stub))
	pair := NewBiarcPair(newStraightBiarc(start, mid), newStraightBiarc(mid, end))
	return NewRoadCurveLine(pair, group.Height, group.Height, 0, 0), shoulder
}

// UpdateGeometry builds a fillet of CornerRadius between boundaries of every edge.
// Reflex corners and boundaries without a common tangent circle fall back to a direct
// tangent interpolation between boundary starts
func (inter *RoadIntersection) UpdateGeometry(groups map[NodeGroupID]*NodeGroup, connections map[ConnectionID]*NodeGroupConnection) {
	for i := range inter.Edges {
		edge := &inter.Edges[i]
		pa, pb := inter.Points[edge.A], inter.Points[edge.B]
		ga, okA := groups[pa.Group]
		gb, okB := groups[pb.Group]
		if !okA || !okB {
			continue
		}
		boundA, shoulderA := inter.boundary(pa, ga, SIDE_RIGHT, connections)
		boundB, shoulderB := inter.boundary(pb, gb, SIDE_LEFT, connections)

		gap := pa.Angle - pb.Angle
		if gap <= 0 {
			gap += twoPi
		}
		fillet, heightA, heightB, ok := BiarcPair{}, ga.Height, gb.Height, false
		if gap < math.Pi && inter.CornerRadius > 0 {
			fillet, heightA, heightB, ok = inter.fillet(boundA, boundB)
		}
		edge.Fallback = !ok
		if !ok {
			fillet = Interpolate(boundA.Horizontal.Start(), scale(boundA.Horizontal.StartTangent(), -1), boundB.Horizontal.Start(), boundB.Horizontal.StartTangent())
			heightA, heightB = boundA.Vertical.Height1, boundB.Vertical.Height1
		}
		edge.Outer = NewRoadCurveLine(fillet, heightA, heightB, 0, 0)
		edge.Inner = NewRoadCurveLine(CreateTaperedParallel(fillet, shoulderA, shoulderB), heightA, heightB, 0, 0)
	}
}

// fillet finds circle of CornerRadius tangent to both boundaries and returns the arc
// between tangent points with heights of boundaries there
func (inter *RoadIntersection) fillet(boundA, boundB RoadCurveLine) (BiarcPair, float64, float64, bool) {
	r := inter.CornerRadius
	offA := CreateParallel(boundA.Horizontal, r)
	offB := CreateParallel(boundB.Horizontal, -r)
	center, da, db, ok := IntersectArcPairs(offA, offB)
	if !ok {
		return BiarcPair{}, 0, 0, false
	}
	tA := offA.GetTangent(da)
	tB := offB.GetTangent(db)
	touchA := sub(center, scale(rightNormal(tA), r))
	touchB := add(center, scale(rightNormal(tB), r))
	heightA := boundA.Vertical.GetHeight(lo.Clamp(da, 0, boundA.Length()))
	heightB := boundB.Vertical.GetHeight(lo.Clamp(db, 0, boundB.Length()))
	return Interpolate(touchA, scale(tA, -1), touchB, tB), heightA, heightB, true
}

// Polylines tessellates outer and inner corners of every edge
func (inter *RoadIntersection) Polylines(segmentsPerTurn int) []orb.LineString {
	lines := make([]orb.LineString, 0, 2*len(inter.Edges))
	for _, edge := range inter.Edges {
		lines = append(lines, edge.Outer.Polyline(segmentsPerTurn), edge.Inner.Polyline(segmentsPerTurn))
	}
	return lines
}
