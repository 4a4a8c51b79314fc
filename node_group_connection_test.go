package roadgeom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestDefaultLaneSplit(t *testing.T) {
	cases := []struct {
		in, out  int
		expected []int
	}{
		{2, 3, []int{1, 2}},
		{3, 2, []int{1, 2}},
		{2, 2, []int{1, 1}},
		{1, 4, []int{4}},
		{3, 7, []int{2, 2, 3}},
	}
	for _, c := range cases {
		split := defaultLaneSplit(c.in, c.out)
		if len(split) != len(c.expected) {
			t.Errorf("Split of %d:%d should be %v, but got %v", c.in, c.out, c.expected, split)
			continue
		}
		for i := range split {
			if split[i] != c.expected[i] {
				t.Errorf("Split of %d:%d should be %v, but got %v", c.in, c.out, c.expected, split)
				break
			}
		}
		if !validLaneSplit(split, c.in, c.out) {
			t.Errorf("Default split %v of %d:%d should be valid", split, c.in, c.out)
		}
	}
	if validLaneSplit([]int{2, 2}, 2, 3) || validLaneSplit([]int{3, 0}, 2, 3) || validLaneSplit([]int{3}, 2, 3) {
		t.Errorf("Split not covering larger side should be invalid")
	}
}

func TestLaneStripMapping(t *testing.T) {
	conn := newNodeGroupConnection(0, NodeSubGroup{Group: 0, Index: 0, Count: 2}, NodeSubGroup{Group: 1, Index: 1, Count: 3}, []int{1, 2})
	if conn.StripsNum() != 3 {
		t.Errorf("Connection should have 3 strips, but got %d", conn.StripsNum())
	}
	correctInput := []int{0, 1, 1}
	correctOutput := []int{1, 2, 3}
	for k := 0; k < conn.StripsNum(); k++ {
		if conn.InputLane(k) != correctInput[k] {
			t.Errorf("Strip %d should start at lane %d, but got %d", k, correctInput[k], conn.InputLane(k))
		}
		if conn.OutputLane(k) != correctOutput[k] {
			t.Errorf("Strip %d should end at lane %d, but got %d", k, correctOutput[k], conn.OutputLane(k))
		}
	}
	merge := newNodeGroupConnection(1, NodeSubGroup{Group: 0, Index: 0, Count: 3}, NodeSubGroup{Group: 1, Index: 0, Count: 1}, nil)
	for k := 0; k < merge.StripsNum(); k++ {
		if merge.InputLane(k) != k || merge.OutputLane(k) != 0 {
			t.Errorf("Strip %d of merge should run from lane %d to lane 0, but got %d to %d", k, k, merge.InputLane(k), merge.OutputLane(k))
		}
	}
}

func TestConnectionWidening(t *testing.T) {
	net := NewRoadNetwork()
	a, _ := net.CreateNodeGroup(orb.Point{0, 0}, orb.Point{1, 0}, 2)
	b, _ := net.CreateNodeGroup(orb.Point{50, 0}, orb.Point{1, 0}, 3)
	id, err := net.ConnectWithSplit(NodeSubGroup{Group: a, Index: 0, Count: 2}, NodeSubGroup{Group: b, Index: 0, Count: 3}, []int{1, 2})
	if err != nil {
		t.Error(err)
		return
	}
	net.Update()
	conn := net.Connections[id]
	if len(conn.DividerLines) != 4 || len(conn.LaneLines) != 3 {
		t.Errorf("Connection should have 4 dividers and 3 lane lines, but got %d and %d", len(conn.DividerLines), len(conn.LaneLines))
		return
	}
	dividers := conn.DividerLines
	inWidth := findDistance(dividers[0].GetPoint2D(0), dividers[3].GetPoint2D(0))
	outWidth := findDistance(dividers[0].GetPoint2D(dividers[0].Length()), dividers[3].GetPoint2D(dividers[3].Length()))
	if math.Abs(inWidth-7) > testEps {
		t.Errorf("Width at input should be 7, but got %f", inWidth)
	}
	if math.Abs(outWidth-10.5) > testEps {
		t.Errorf("Width at output should be 10.5, but got %f", outWidth)
	}
	// Dividers never cross: offsets from the left-most divider grow left-to-right at both ends
	for k := 1; k < len(dividers); k++ {
		for _, s := range []float64{0, 0.25, 0.5, 0.75, 1} {
			prev := dividers[k-1].GetPoint2D(s * dividers[k-1].Length())
			cur := dividers[k].GetPoint2D(s * dividers[k].Length())
			if cur[1] >= prev[1] {
				t.Errorf("Divider %d should stay to the right of divider %d at fraction %f: %v vs %v", k, k-1, s, cur, prev)
			}
		}
	}
	correctInput := []float64{3.5, 0, -1.75, -3.5}
	for k, divider := range dividers {
		if y := divider.GetPoint2D(0)[1]; math.Abs(y-correctInput[k]) > testEps {
			t.Errorf("Divider %d should start at y=%f, but got %f", k, correctInput[k], y)
		}
	}
	leftShoulder := conn.ShoulderLines[SIDE_LEFT].GetPoint2D(0)
	if math.Abs(leftShoulder[1]-4) > testEps {
		t.Errorf("Left shoulder should start at y=4, but got %f", leftShoulder[1])
	}
	if conn.Length() <= 49 {
		t.Errorf("Connection length should be about 50, but got %f", conn.Length())
	}
}

func TestConnectionHeights(t *testing.T) {
	net := NewRoadNetwork()
	a, _ := net.CreateNodeGroup(orb.Point{0, 0}, orb.Point{1, 0}, 1)
	b, _ := net.CreateNodeGroup(orb.Point{100, 0}, orb.Point{1, 0}, 1)
	id, _ := net.Connect(NodeSubGroup{Group: a, Index: 0, Count: 1}, NodeSubGroup{Group: b, Index: 0, Count: 1})
	_ = net.SetGroupHeight(b, 5)
	net.Update()
	if s := net.Groups[a].Slope; math.Abs(s-0.05) > testEps {
		t.Errorf("Slope of the group should follow chord: 0.05, but got %f", s)
	}
	lane := net.Connections[id].LaneLines[0]
	if h := lane.EndPoint().Z; math.Abs(h-5) > testEps {
		t.Errorf("Lane should reach height 5, but got %f", h)
	}
	if h := lane.GetPoint(50).Z; math.Abs(h-2.5) > 1e-3 {
		t.Errorf("Lane should be halfway up in the middle: 2.5, but got %f", h)
	}
}

func TestTwinConnections(t *testing.T) {
	net := NewRoadNetwork()
	a, _ := net.CreateNodeGroup(orb.Point{0, 0}, orb.Point{1, 0}, 2)
	aOpp, _ := net.CreateNodeGroup(orb.Point{0, 0}, orb.Point{-1, 0}, 2)
	b, _ := net.CreateNodeGroup(orb.Point{60, 20}, orb.Point{1, 0}, 2)
	bOpp, _ := net.CreateNodeGroup(orb.Point{60, 20}, orb.Point{-1, 0}, 2)
	if _, err := net.Tie(a, aOpp, 1); err != nil {
		t.Error(err)
		return
	}
	if _, err := net.Tie(b, bOpp, 1); err != nil {
		t.Error(err)
		return
	}
	forward, _ := net.Connect(NodeSubGroup{Group: a, Index: 0, Count: 2}, NodeSubGroup{Group: b, Index: 0, Count: 2})
	backward, _ := net.Connect(NodeSubGroup{Group: bOpp, Index: 0, Count: 2}, NodeSubGroup{Group: aOpp, Index: 0, Count: 2})
	net.Update()
	f, bw := net.Connections[forward], net.Connections[backward]
	if f.Twin != backward || bw.Twin != forward {
		t.Errorf("Connections should be twins, but got %d and %d", f.Twin, bw.Twin)
		return
	}
	// Left dividers of twins run along both sides of the median
	fl, bl := f.DividerLines[0].Horizontal, bw.DividerLines[0].Horizontal
	pairs := [][2]orb.Point{{fl.Start(), bl.End()}, {fl.Joint(), bl.Joint()}, {fl.End(), bl.Start()}}
	for i, pair := range pairs {
		if d := findDistance(pair[0], pair[1]); math.Abs(d-1) > 1e-6 {
			t.Errorf("Twin left dividers should be 1 apart at control point %d, but got %f", i, d)
		}
	}
	if !almostEqualPoint(bw.DividerLines[0].GetPoint2D(0), net.Groups[bOpp].LeftEdge(), 1e-6) {
		t.Errorf("Mirrored divider should start at left edge of its input group %v, but got %v", net.Groups[bOpp].LeftEdge(), bw.DividerLines[0].GetPoint2D(0))
	}
}
