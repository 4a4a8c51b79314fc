package roadgeom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

// buildTJunction makes one approach from the south and two exits to the east and west
func buildTJunction(t *testing.T) (*RoadNetwork, IntersectionID, [3]NodeGroupID) {
	net := NewRoadNetwork()
	south, _ := net.CreateNodeGroup(orb.Point{0, -6}, orb.Point{0, 1}, 1)
	east, _ := net.CreateNodeGroup(orb.Point{6, 0}, orb.Point{1, 0}, 1)
	west, _ := net.CreateNodeGroup(orb.Point{-6, 0}, orb.Point{-1, 0}, 1)
	id, err := net.CreateIntersection([]NodeGroupID{south, east, west})
	if err != nil {
		t.Fatal(err)
	}
	net.Update()
	return net, id, [3]NodeGroupID{south, east, west}
}

func TestIntersectionConstruct(t *testing.T) {
	net, id, groups := buildTJunction(t)
	inter := net.Intersections[id]
	if !almostEqualPoint(inter.Center, orb.Point{0, -2}, testEps) {
		t.Errorf("Center should be [0 -2], but got %v", inter.Center)
	}
	correctOrder := []NodeGroupID{groups[2], groups[1], groups[0]}
	for i, pt := range inter.Points {
		if pt.Group != correctOrder[i] {
			t.Errorf("Point %d should be group %d, but got %d", i, correctOrder[i], pt.Group)
		}
	}
	if inter.Points[inter.PointIndex(groups[0])].Type != INTERSECTION_INPUT {
		t.Errorf("Approach should be input point")
	}
	if inter.Points[inter.PointIndex(groups[1])].Type != INTERSECTION_OUTPUT || inter.Points[inter.PointIndex(groups[2])].Type != INTERSECTION_OUTPUT {
		t.Errorf("Exits should be output points")
	}
	if inter.PointIndex(100) != -1 {
		t.Errorf("Unknown group should not be found")
	}
	if len(inter.Edges) != 3 {
		t.Errorf("T-junction should have 3 corners, but got %d", len(inter.Edges))
	}
}

func TestIntersectionFillet(t *testing.T) {
	net, id, _ := buildTJunction(t)
	inter := net.Intersections[id]
	if len(inter.Edges) != 3 {
		t.Errorf("T-junction should have 3 corners, but got %d", len(inter.Edges))
		return
	}
	// Exits look in opposite directions, the corner between them cannot be rounded
	if !inter.Edges[0].Fallback {
		t.Errorf("Corner between opposite exits should fall back to interpolation")
	}
	straight := inter.Edges[0].Outer
	if math.Abs(straight.Length()-12) > testEps {
		t.Errorf("Fallback corner should be straight line of length 12, but got %f", straight.Length())
	}

	corner := inter.Edges[1]
	if corner.Fallback {
		t.Errorf("Right angle corner should be rounded")
	}
	if math.Abs(corner.Outer.Length()-2.5*math.Pi) > 1e-6 {
		t.Errorf("Outer corner should be quarter circle of radius 5: %f, but got %f", 2.5*math.Pi, corner.Outer.Length())
	}
	if !almostEqualPoint(corner.Outer.GetPoint2D(0), orb.Point{7.25, -2.25}, 1e-6) {
		t.Errorf("Outer corner should start at [7.25 -2.25], but got %v", corner.Outer.GetPoint2D(0))
	}
	if !almostEqualPoint(corner.Outer.GetPoint2D(corner.Outer.Length()), orb.Point{2.25, -7.25}, 1e-6) {
		t.Errorf("Outer corner should end at [2.25 -7.25], but got %v", corner.Outer.GetPoint2D(corner.Outer.Length()))
	}
	if math.Abs(corner.Inner.Length()-2.75*math.Pi) > 1e-6 {
		t.Errorf("Inner corner should be quarter circle of radius 5.5: %f, but got %f", 2.75*math.Pi, corner.Inner.Length())
	}
	mirrored := inter.Edges[2]
	if mirrored.Fallback || math.Abs(mirrored.Outer.Length()-corner.Outer.Length()) > 1e-6 {
		t.Errorf("Symmetric corner should be rounded the same way")
	}
	if lines := inter.Polylines(32); len(lines) != 6 {
		t.Errorf("Every corner should give outer and inner polyline, but got %d lines", len(lines))
	}
}

func TestIntersectionUsesConnectionShoulders(t *testing.T) {
	net := NewRoadNetwork()
	far, _ := net.CreateNodeGroup(orb.Point{0, -60}, orb.Point{0, 1}, 1)
	south, _ := net.CreateNodeGroup(orb.Point{0, -6}, orb.Point{0, 1}, 1)
	east, _ := net.CreateNodeGroup(orb.Point{6, 0}, orb.Point{1, 0}, 1)
	_, _ = net.Connect(NodeSubGroup{Group: far, Index: 0, Count: 1}, NodeSubGroup{Group: south, Index: 0, Count: 1})
	id, err := net.CreateIntersection([]NodeGroupID{south, east})
	if err != nil {
		t.Error(err)
		return
	}
	net.Update()
	inter := net.Intersections[id]
	if inter.Points[inter.PointIndex(south)].Type != INTERSECTION_INPUT {
		t.Errorf("Approach should be input point")
	}
	if len(inter.Edges) != 1 {
		t.Errorf("Two points should give one corner, but got %d", len(inter.Edges))
	}
}

func TestCreateIntersectionErrors(t *testing.T) {
	net := NewRoadNetwork()
	a, _ := net.CreateNodeGroup(orb.Point{0, 0}, orb.Point{1, 0}, 1)
	b, _ := net.CreateNodeGroup(orb.Point{10, 0}, orb.Point{1, 0}, 1)
	if _, err := net.CreateIntersection([]NodeGroupID{a, a}); err == nil {
		t.Errorf("Intersection of single group should fail")
	}
	id, err := net.CreateIntersection([]NodeGroupID{a, b})
	if err != nil {
		t.Error(err)
		return
	}
	if _, err := net.CreateIntersection([]NodeGroupID{a, b}); err == nil {
		t.Errorf("Group should not join two intersections")
	}
	if err := net.DeleteIntersection(id); err != nil {
		t.Error(err)
	}
	if net.Groups[a].Intersection != -1 {
		t.Errorf("Deleted intersection should release groups")
	}
	if err := net.DeleteIntersection(id); err == nil {
		t.Errorf("Second delete should fail")
	}
}
