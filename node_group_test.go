package roadgeom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestNodeGroupGeometry(t *testing.T) {
	group := newNodeGroup(0, orb.Point{0, 0}, orb.Point{2, 0}, 3, 3.5, 0.5)
	if group.LanesNum() != 3 {
		t.Errorf("Group should have 3 lanes, but got %d", group.LanesNum())
	}
	if math.Abs(group.Width()-10.5) > testEps {
		t.Errorf("Width should be 10.5, but got %f", group.Width())
	}
	if !almostEqualPoint(group.Direction, orb.Point{1, 0}, testEps) {
		t.Errorf("Direction should be normalized, but got %v", group.Direction)
	}
	if !almostEqualPoint(group.LeftEdge(), orb.Point{0, 5.25}, testEps) || !almostEqualPoint(group.RightEdge(), orb.Point{0, -5.25}, testEps) {
		t.Errorf("Edges should be [0 5.25] and [0 -5.25], but got %v and %v", group.LeftEdge(), group.RightEdge())
	}
	correctCenters := []orb.Point{{0, 3.5}, {0, 0}, {0, -3.5}}
	for i, node := range group.Nodes {
		if !almostEqualPoint(node.Position, correctCenters[i], testEps) {
			t.Errorf("Lane %d center should be %v, but got %v", i, correctCenters[i], node.Position)
		}
		if node.Ref() != (NodeRef{Group: 0, Index: i}) {
			t.Errorf("Lane %d reference is wrong: %v", i, node.Ref())
		}
	}
	if !almostEqualPoint(group.Nodes[2].RightDivider(), group.RightEdge(), testEps) {
		t.Errorf("Right divider of the last lane should be right edge, but got %v", group.Nodes[2].RightDivider())
	}
	if math.Abs(group.LaneOffset(2)-7) > testEps {
		t.Errorf("Offset of lane 2 should be 7, but got %f", group.LaneOffset(2))
	}
}

func TestNodeGroupSlope(t *testing.T) {
	group := newNodeGroup(0, orb.Point{0, 0}, orb.Point{1, 0}, 1, 3.5, 0.5)
	group.updateSlope([]float64{0.05, 0.02, 0.1})
	if group.Slope != 0.02 {
		t.Errorf("Most gradual slope should be chosen: 0.02, but got %f", group.Slope)
	}
	group.updateSlope([]float64{-0.05, -0.03})
	if group.Slope != -0.03 {
		t.Errorf("Most gradual slope should be chosen: -0.03, but got %f", group.Slope)
	}
	group.updateSlope([]float64{0.05, -0.03})
	if group.Slope != 0 {
		t.Errorf("Mixed slopes should flatten group, but got %f", group.Slope)
	}
	group.updateSlope(nil)
	if group.Slope != 0 {
		t.Errorf("No slopes should flatten group, but got %f", group.Slope)
	}
}

func TestNodeGroupTie(t *testing.T) {
	first := newNodeGroup(0, orb.Point{}, orb.Point{1, 0}, 2, 3.5, 0.5)
	second := newNodeGroup(1, orb.Point{}, orb.Point{-1, 0}, 1, 3.5, 0.5)
	tie := &NodeGroupTie{
		Groups:      [2]NodeGroupID{0, 1},
		Position:    orb.Point{10, 0},
		Direction:   orb.Point{1, 0},
		MedianWidth: 2,
	}
	tie.UpdateGeometry(first, second)
	if !almostEqualPoint(first.LeftEdge(), orb.Point{10, -1}, testEps) {
		t.Errorf("Left edge of first group should face median at [10 -1], but got %v", first.LeftEdge())
	}
	if !almostEqualPoint(second.LeftEdge(), orb.Point{10, 1}, testEps) {
		t.Errorf("Left edge of second group should face median at [10 1], but got %v", second.LeftEdge())
	}
	if !almostEqualPoint(second.Direction, orb.Point{-1, 0}, testEps) {
		t.Errorf("Second group should run opposite, but got %v", second.Direction)
	}
	if tie.Other(0) != 1 || tie.Other(1) != 0 || tie.Other(5) != -1 {
		t.Errorf("Other should return the paired group")
	}
}
