package roadgeom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// NodeGroup is a cross-section of adjacent same-direction lanes.
// Position is the center of the cross-section, lanes are laid out left-to-right
type NodeGroup struct {
	Nodes         []*Node
	Inputs        []ConnectionID
	Outputs       []ConnectionID
	Position      orb.Point
	Direction     orb.Point
	Height        float64
	Slope         float64
	LeftShoulder  float64
	RightShoulder float64
	ID            NodeGroupID
	Twin          NodeGroupID
	Tie           TieID
	Intersection  IntersectionID
}

func newNodeGroup(id NodeGroupID, position, direction orb.Point, lanes int, laneWidth, shoulderWidth float64) *NodeGroup {
	group := &NodeGroup{
		Nodes:         make([]*Node, 0, lanes),
		Inputs:        make([]ConnectionID, 0),
		Outputs:       make([]ConnectionID, 0),
		Position:      position,
		Direction:     normalize(direction),
		LeftShoulder:  shoulderWidth,
		RightShoulder: shoulderWidth,
		ID:            id,
		Twin:          -1,
		Tie:           -1,
		Intersection:  -1,
	}
	for i := 0; i < lanes; i++ {
		group.Nodes = append(group.Nodes, newNode(id, i, laneWidth))
	}
	group.UpdateGeometry()
	return group
}

// LanesNum returns number of lanes in the group
func (group *NodeGroup) LanesNum() int {
	return len(group.Nodes)
}

// Width returns sum of lanes widths (shoulders excluded)
func (group *NodeGroup) Width() float64 {
	return lo.SumBy(group.Nodes, func(node *Node) float64 { return node.Width })
}

// Right returns unit vector pointing to the right of travel direction
func (group *NodeGroup) Right() orb.Point {
	return rightNormal(group.Direction)
}

// LeftEdge returns left border of the left-most lane
func (group *NodeGroup) LeftEdge() orb.Point {
	return sub(group.Position, scale(group.Right(), group.Width()/2))
}

// RightEdge returns right border of the right-most lane
func (group *NodeGroup) RightEdge() orb.Point {
	return add(group.Position, scale(group.Right(), group.Width()/2))
}

// LaneOffset returns distance from the left edge to the left divider of given lane
func (group *NodeGroup) LaneOffset(index int) float64 {
	offset := 0.0
	for i := 0; i < index && i < len(group.Nodes); i++ {
		offset += group.Nodes[i].Width
	}
	return offset
}

// UpdateGeometry places nodes left-to-right across the group position
func (group *NodeGroup) UpdateGeometry() {
	right := group.Right()
	left := group.LeftEdge()
	offset := 0.0
	for i, node := range group.Nodes {
		node.Index = i
		node.Group = group.ID
		node.Direction = group.Direction
		node.LeftDivider = add(left, scale(right, offset))
		node.Position = add(node.LeftDivider, scale(right, node.Width/2))
		offset += node.Width
	}
}

// updateSlope picks the most gradual slope among given ones.
// Mixed upward and downward slopes flatten the group
func (group *NodeGroup) updateSlope(slopes []float64) {
	if len(slopes) == 0 {
		group.Slope = 0
		return
	}
	hasUp := lo.ContainsBy(slopes, func(s float64) bool { return s > 0 })
	hasDown := lo.ContainsBy(slopes, func(s float64) bool { return s < 0 })
	if hasUp && hasDown {
		group.Slope = 0
		return
	}
	best := slopes[0]
	for _, s := range slopes[1:] {
		if math.Abs(s) < math.Abs(best) {
			best = s
		}
	}
	group.Slope = best
}

// clearLinks drops lane links of every node; links are rebuilt by network
func (group *NodeGroup) clearLinks() {
	for _, node := range group.Nodes {
		node.Inputs = node.Inputs[:0]
		node.Outputs = node.Outputs[:0]
	}
}

func removeConnectionID(ids []ConnectionID, id ConnectionID) []ConnectionID {
	return lo.Filter(ids, func(item ConnectionID, _ int) bool { return item != id })
}
