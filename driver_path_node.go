package roadgeom

import (
	"github.com/paulmach/orb"
)

type PathNodeType uint16

const (
	PATH_LANE = PathNodeType(iota + 1)
	PATH_TURN
)

func (iotaIdx PathNodeType) String() string {
	return [...]string{"lane", "turn"}[iotaIdx-1]
}

// DriverPathNode is one drivable piece of a driver path: connection strip or intersection turn
type DriverPathNode struct {
	Line         RoadCurveLine
	Link         LaneLink
	From         NodeRef
	To           NodeRef
	Intersection IntersectionID
	Movement     MovementType
	Type         PathNodeType
}

func (node DriverPathNode) Length() float64 {
	return node.Line.Length()
}

// pathPoint projects distance along path onto its lines.
// Distances beyond the path end stick to the end point
func pathPoint(path []DriverPathNode, distance float64) (orb.Point, orb.Point) {
	if len(path) == 0 {
		return orb.Point{}, orb.Point{1, 0}
	}
	for i, node := range path {
		l := node.Length()
		if distance <= l || i == len(path)-1 {
			distance = max(0, min(distance, l))
			return node.Line.GetPoint2D(distance), node.Line.Horizontal.GetTangent(distance)
		}
		distance -= l
	}
	return orb.Point{}, orb.Point{1, 0}
}

// pathLength returns summary length of path nodes
func pathLength(path []DriverPathNode) float64 {
	total := 0.0
	for _, node := range path {
		total += node.Length()
	}
	return total
}
