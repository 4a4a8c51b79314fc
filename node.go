package roadgeom

import (
	"github.com/paulmach/orb"
)

/* Lanes stuff */

type NodeGroupID int
type ConnectionID int
type TieID int
type IntersectionID int

// NodeRef addresses single lane: group handle plus lane index within group
type NodeRef struct {
	Group NodeGroupID
	Index int
}

// LaneLink points to lane strip of a connection. Lane is strip index inside connection
type LaneLink struct {
	Connection ConnectionID
	Lane       int
}

// Node is a single lane of a cross-section
type Node struct {
	Inputs      []LaneLink
	Outputs     []LaneLink
	Width       float64
	Position    orb.Point
	Direction   orb.Point
	LeftDivider orb.Point
	Index       int
	Group       NodeGroupID
}

func newNode(group NodeGroupID, index int, width float64) *Node {
	return &Node{
		Inputs:  make([]LaneLink, 0),
		Outputs: make([]LaneLink, 0),
		Width:   width,
		Index:   index,
		Group:   group,
	}
}

// Ref returns the node handle
func (node *Node) Ref() NodeRef {
	return NodeRef{Group: node.Group, Index: node.Index}
}

// RightDivider returns right edge of the lane
func (node *Node) RightDivider() orb.Point {
	return add(node.LeftDivider, scale(rightNormal(node.Direction), node.Width))
}
