package roadgeom

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

const testHighwaysXML = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
	<node id="1" lat="0" lon="0">
		<tag k="highway" v="traffic_signals"/>
	</node>
	<node id="2" lat="0" lon="0.001"/>
	<node id="3" lat="0" lon="-0.001"/>
	<node id="4" lat="-0.001" lon="0"/>
	<node id="5" lat="0.001" lon="0"/>
	<way id="10">
		<nd ref="3"/>
		<nd ref="1"/>
		<nd ref="2"/>
		<tag k="highway" v="primary"/>
		<tag k="lanes" v="2"/>
	</way>
	<way id="11">
		<nd ref="4"/>
		<nd ref="1"/>
		<tag k="highway" v="residential"/>
		<tag k="oneway" v="yes"/>
	</way>
	<way id="12">
		<nd ref="1"/>
		<nd ref="5"/>
		<tag k="highway" v="footway"/>
	</way>
</osm>`

func TestHighwayImport(t *testing.T) {
	importer := NewHighwayImporter(WithImportOrigin(0, 0), WithImportLogger(quietLogger()))
	net, ref, err := importer.Import(context.Background(), strings.NewReader(testHighwaysXML), false)
	if err != nil {
		t.Fatal(err)
	}
	if !ref.Enabled || ref.Origin != (orb.Point{0, 0}) {
		t.Errorf("Reference should be enabled at [0 0], but got %v", ref)
	}
	if len(net.Groups) != 10 {
		t.Errorf("Number of groups should be %d, but got %d", 10, len(net.Groups))
	}
	if len(net.Ties) != 4 {
		t.Errorf("Number of ties should be %d, but got %d", 4, len(net.Ties))
	}
	if len(net.Connections) != 5 {
		t.Errorf("Number of connections should be %d, but got %d", 5, len(net.Connections))
	}
	if len(net.Intersections) != 1 {
		t.Fatalf("Number of intersections should be %d, but got %d", 1, len(net.Intersections))
	}
	inter := net.Intersections[net.IntersectionIDs()[0]]
	if len(inter.Groups) != 5 {
		t.Errorf("Intersection should join %d groups, but got %d", 5, len(inter.Groups))
	}
	program, ok := inter.Program.(*FixedCycleProgram)
	if !ok {
		t.Fatalf("Signal node should give fixed cycle program, but got %T", inter.Program)
	}
	if len(program.Phases) != 3 {
		t.Errorf("Every approach should get own phase, but got %d phases", len(program.Phases))
	}
	if math.Abs(program.CycleLength()-69) > testEps {
		t.Errorf("Cycle length should be %f, but got %f", 69.0, program.CycleLength())
	}
	for _, pt := range inter.Points {
		if findDistance(net.Groups[pt.Group].Position, orb.Point{0, 0}) > 2*defaultJunctionSetback {
			t.Errorf("Group %d should stay near junction node, but got %v", pt.Group, net.Groups[pt.Group].Position)
		}
	}
	net.Update()
	movements := net.Movements()
	if len(movements) != 4 {
		t.Errorf("Number of movements should be %d, but got %d", 4, len(movements))
	}
	for _, mvmt := range movements {
		if mvmt.Type == MOVEMENT_U_TURN {
			t.Errorf("Movement %d should not be U-turn", mvmt.ID)
		}
	}
}

func TestHighwayImportTypes(t *testing.T) {
	importer := NewHighwayImporter(WithHighwayTypes(HIGHWAY_RESIDENTIAL), WithImportOrigin(0, 0), WithImportLogger(quietLogger()))
	net, _, err := importer.Import(context.Background(), strings.NewReader(testHighwaysXML), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(net.Groups) != 2 || len(net.Connections) != 1 {
		t.Errorf("Only oneway residential road should be imported, but got %d groups and %d connections", len(net.Groups), len(net.Connections))
	}
	if len(net.Intersections) != 0 || len(net.Ties) != 0 {
		t.Errorf("Single road should not produce junctions or ties")
	}
	for _, group := range net.Groups {
		if !almostEqualPoint(group.Direction, orb.Point{0, 1}, testEps) {
			t.Errorf("Residential road goes north, but group direction is %v", group.Direction)
		}
	}
}

func TestImportFileExtension(t *testing.T) {
	_, _, err := NewHighwayImporter().ImportFile("roads.geojson")
	if errors.Cause(err) != ErrUnknownExtension {
		t.Errorf("Error should be %v, but got %v", ErrUnknownExtension, err)
	}
}

func TestDirectionLanes(t *testing.T) {
	cases := []struct {
		tags     osm.Tags
		forward  int
		backward int
	}{
		{osm.Tags{{Key: "highway", Value: "primary"}}, 2, 2},
		{osm.Tags{{Key: "highway", Value: "residential"}, {Key: "lanes", Value: "3"}}, 2, 1},
		{osm.Tags{{Key: "highway", Value: "residential"}, {Key: "lanes", Value: "1"}}, 1, 1},
		{osm.Tags{{Key: "highway", Value: "residential"}, {Key: "oneway", Value: "yes"}, {Key: "lanes", Value: "2"}}, 2, 0},
		{osm.Tags{{Key: "highway", Value: "motorway"}}, 2, 0},
		{osm.Tags{{Key: "highway", Value: "tertiary"}, {Key: "lanes:forward", Value: "2"}, {Key: "lanes:backward", Value: "1"}}, 2, 1},
	}
	for i, c := range cases {
		way := newHighwayWay(&osm.Way{ID: osm.WayID(i), Tags: c.tags}, quietLogger())
		forward, backward := way.directionLanes()
		if forward != c.forward || backward != c.backward {
			t.Errorf("Case %d: lanes should be %d/%d, but got %d/%d", i, c.forward, c.backward, forward, backward)
		}
	}
}

func TestReversedOneway(t *testing.T) {
	way := newHighwayWay(&osm.Way{
		ID:    1,
		Nodes: osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 3}},
		Tags:  osm.Tags{{Key: "highway", Value: "secondary"}, {Key: "oneway", Value: "-1"}},
	}, quietLogger())
	if !way.Oneway {
		t.Errorf("Way should be oneway")
	}
	correctNodes := []osm.NodeID{3, 2, 1}
	for i, id := range way.Nodes {
		if id != correctNodes[i] {
			t.Errorf("Node %d should be %d, but got %d", i, correctNodes[i], id)
		}
	}
}

func TestAutoAccess(t *testing.T) {
	if isAutoAccessible(osm.Tags{{Key: "access", Value: "private"}}) {
		t.Errorf("Private road should not be accessible")
	}
	if isAutoAccessible(osm.Tags{{Key: "service", Value: "parking_aisle"}}) {
		t.Errorf("Parking aisle should not be accessible")
	}
	if !isAutoAccessible(osm.Tags{{Key: "highway", Value: "primary"}, {Key: "access", Value: "yes"}}) {
		t.Errorf("Public road should be accessible")
	}
}

func TestSubPolyline(t *testing.T) {
	line := orb.LineString{{0, 0}, {10, 0}, {10, 10}}
	part := subPolyline(line, 5, 15)
	correctLine := "[[5.000000, 0.000000],[10.000000, 0.000000],[10.000000, 5.000000]]"
	if lineAsString(part) != correctLine {
		t.Errorf("Part should be %s, but got %s", correctLine, lineAsString(part))
	}
	if math.Abs(polylineLength(line)-20) > testEps {
		t.Errorf("Length should be 20, but got %f", polylineLength(line))
	}
	sampled := samplePolyline(orb.LineString{{0, 0}, {1, 0}, {5, 0}, {9, 0}, {10, 0}}, 2)
	if len(sampled) != 3 {
		t.Errorf("Sampled line should have 3 points, but got %d", len(sampled))
	}
	directions := polylineDirections([]orb.Point{{0, 0}, {10, 0}, {10, 10}})
	if !almostEqualPoint(directions[1], orb.Point{math.Sqrt2 / 2, math.Sqrt2 / 2}, testEps) {
		t.Errorf("Inner direction should be bisector, but got %v", directions[1])
	}
}
