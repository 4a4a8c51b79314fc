package roadgeom

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

func buildTiedNetwork(t *testing.T) *RoadNetwork {
	net := NewRoadNetwork(WithLogger(quietLogger()))
	a, _ := net.CreateNodeGroup(orb.Point{0, 0}, orb.Point{1, 0}, 2)
	aOpp, _ := net.CreateNodeGroup(orb.Point{0, 0}, orb.Point{-1, 0}, 2)
	b, _ := net.CreateNodeGroup(orb.Point{40, 0}, orb.Point{1, 0}, 3)
	c, _ := net.CreateNodeGroup(orb.Point{60, 0}, orb.Point{1, 0}, 3)
	if _, err := net.Tie(a, aOpp, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := net.ConnectWithSplit(NodeSubGroup{Group: a, Index: 0, Count: 2}, NodeSubGroup{Group: b, Index: 0, Count: 3}, []int{1, 2}); err != nil {
		t.Fatal(err)
	}
	inter, err := net.CreateIntersection([]NodeGroupID{b, c})
	if err != nil {
		t.Fatal(err)
	}
	program := &FixedCycleProgram{Phases: []SignalPhase{
		{Groups: []NodeGroupID{b}, Green: 25, Yellow: 4},
		{Groups: []NodeGroupID{}, Green: 10.5, Yellow: 0},
	}}
	if err := net.SetTrafficLight(inter, program); err != nil {
		t.Fatal(err)
	}
	if err := net.SetGroupHeight(c, 2); err != nil {
		t.Fatal(err)
	}
	net.Update()
	return net
}

func TestOSMRoundTrip(t *testing.T) {
	net := buildTiedNetwork(t)
	buf := &bytes.Buffer{}
	if err := net.SaveOSM(buf); err != nil {
		t.Error(err)
		return
	}
	loaded, err := LoadOSM(context.Background(), buf, WithLogger(quietLogger()))
	if err != nil {
		t.Error(err)
		return
	}
	loaded.Update()
	if len(loaded.Groups) != len(net.Groups) || len(loaded.Connections) != len(net.Connections) || len(loaded.Ties) != len(net.Ties) || len(loaded.Intersections) != len(net.Intersections) {
		t.Errorf("Loaded network should keep object counts, but got %d groups, %d connections, %d ties, %d intersections",
			len(loaded.Groups), len(loaded.Connections), len(loaded.Ties), len(loaded.Intersections))
		return
	}
	for _, id := range net.GroupIDs() {
		group, other := net.Groups[id], loaded.Groups[id]
		if other == nil {
			t.Errorf("Group %d should be loaded", id)
			continue
		}
		if group.LanesNum() != other.LanesNum() || group.Twin != other.Twin || group.Intersection != other.Intersection {
			t.Errorf("Group %d should keep lanes, twin and intersection", id)
		}
		if !almostEqualPoint(group.Position, other.Position, testEps) || math.Abs(group.Height-other.Height) > testEps {
			t.Errorf("Group %d should keep position %v, but got %v", id, group.Position, other.Position)
		}
	}
	for _, id := range net.ConnectionIDs() {
		conn, other := net.Connections[id], loaded.Connections[id]
		if other == nil {
			t.Errorf("Connection %d should be loaded", id)
			continue
		}
		if conn.Input != other.Input || conn.Output != other.Output || formatInts(conn.LaneSplit) != formatInts(other.LaneSplit) {
			t.Errorf("Connection %d should keep ranges and split %v, but got %v", id, conn.LaneSplit, other.LaneSplit)
		}
		if math.Abs(conn.Length()-other.Length()) > testEps {
			t.Errorf("Connection %d should keep length %f, but got %f", id, conn.Length(), other.Length())
		}
	}
	for _, id := range net.TieIDs() {
		if loaded.Ties[id] == nil || loaded.Ties[id].MedianWidth != net.Ties[id].MedianWidth {
			t.Errorf("Tie %d should keep median width", id)
		}
	}
	for _, id := range net.IntersectionIDs() {
		program := net.Intersections[id].Program.(*FixedCycleProgram)
		other, ok := loaded.Intersections[id].Program.(*FixedCycleProgram)
		if !ok {
			t.Errorf("Intersection %d should keep fixed cycle program, but got %T", id, loaded.Intersections[id].Program)
			continue
		}
		if len(other.Phases) != len(program.Phases) {
			t.Errorf("Program should have %d phases, but got %d", len(program.Phases), len(other.Phases))
			continue
		}
		for i, phase := range program.Phases {
			otherPhase := other.Phases[i]
			if otherPhase.Green != phase.Green || otherPhase.Yellow != phase.Yellow || len(otherPhase.Groups) != len(phase.Groups) {
				t.Errorf("Phase %d should be %v, but got %v", i, phase, otherPhase)
				continue
			}
			for j := range phase.Groups {
				if otherPhase.Groups[j] != phase.Groups[j] {
					t.Errorf("Phase %d group %d should be %d, but got %d", i, j, phase.Groups[j], otherPhase.Groups[j])
				}
			}
		}
		for _, clock := range []float64{0, 26, 30, 39} {
			for _, groupID := range net.Intersections[id].Groups {
				if program.Signal(groupID, clock) != other.Signal(groupID, clock) {
					t.Errorf("Signal of group %d at %f should be %s, but got %s", groupID, clock, program.Signal(groupID, clock), other.Signal(groupID, clock))
				}
			}
		}
	}
	if next, _ := loaded.CreateNodeGroup(orb.Point{100, 0}, orb.Point{1, 0}, 1); loaded.Groups[next] == nil || next != NodeGroupID(len(net.Groups)) {
		t.Errorf("New handles should continue after loaded ones, but got %d", next)
	}
}

func TestLoadBadOSM(t *testing.T) {
	data := `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="0" lon="0" visible="true" version="1">
    <tag k="roadgeom" v="node_group"/>
    <tag k="id" v="first"/>
  </node>
</osm>`
	_, err := LoadOSM(context.Background(), strings.NewReader(data))
	if errors.Cause(err) != ErrBadOSM {
		t.Errorf("Broken tags should give ErrBadOSM, but got %v", err)
	}
}

func TestLoadBadSignalOSM(t *testing.T) {
	data := `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="0" lon="0" visible="true" version="1">
    <tag k="roadgeom" v="node_group"/>
    <tag k="id" v="0"/>
    <tag k="dir_x" v="1"/>
    <tag k="dir_y" v="0"/>
    <tag k="height" v="0"/>
    <tag k="lane_widths" v="3.5"/>
    <tag k="left_shoulder" v="0.5"/>
    <tag k="right_shoulder" v="0.5"/>
  </node>
  <relation id="1" visible="true" version="1">
    <member type="node" ref="1" role="member"/>
    <tag k="roadgeom" v="intersection"/>
    <tag k="id" v="0"/>
    <tag k="corner_radius" v="5"/>
    <tag k="signal_phases" v="1"/>
    <tag k="signal_phase_0_groups" v="7"/>
    <tag k="signal_phase_0_green" v="20"/>
    <tag k="signal_phase_0_yellow" v="3"/>
  </relation>
</osm>`
	_, err := LoadOSM(context.Background(), strings.NewReader(data), WithLogger(quietLogger()))
	if errors.Cause(err) != ErrBadOSM {
		t.Errorf("Phase with unknown group should give ErrBadOSM, but got %v", err)
	}
}
