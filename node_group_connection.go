package roadgeom

// IOType tells which end of a connection is shared with siblings
type IOType int

const (
	IO_INPUT = IOType(iota)
	IO_OUTPUT
)

func (iotaIdx IOType) String() string {
	return [...]string{"input", "output"}[iotaIdx]
}

// LaneSide is a side of lane strip or connection
type LaneSide int

const (
	SIDE_LEFT = LaneSide(iota)
	SIDE_RIGHT
)

func (iotaIdx LaneSide) String() string {
	return [...]string{"left", "right"}[iotaIdx]
}

// NodeGroupConnection is a directed edge between lane ranges of two groups.
// Lanes of the smaller side are spread over the larger side by LaneSplit.
// Each strip of the larger side gets its own lane line
type NodeGroupConnection struct {
	Input               NodeSubGroup
	Output              NodeSubGroup
	LaneSplit           []int
	DividerLines        []RoadCurveLine
	LaneLines           []RoadCurveLine
	ShoulderLines       [2]RoadCurveLine
	VisualShoulderLines [2]RoadCurveLine
	CenterLine          RoadCurveLine
	Seams               [2][2][]RoadCurveLine
	base                BiarcPair
	ID                  ConnectionID
	Twin                ConnectionID
	customSplit         bool
}

func newNodeGroupConnection(id ConnectionID, input, output NodeSubGroup, split []int) *NodeGroupConnection {
	conn := &NodeGroupConnection{
		Input:  input,
		Output: output,
		ID:     id,
		Twin:   -1,
	}
	if split != nil {
		conn.LaneSplit = append([]int{}, split...)
		conn.customSplit = true
	} else {
		conn.LaneSplit = defaultLaneSplit(input.Count, output.Count)
	}
	return conn
}

// defaultLaneSplit shares larger side lanes equally among smaller side lanes,
// remainder goes to the right-most lanes
func defaultLaneSplit(inputCount, outputCount int) []int {
	small, large := inputCount, outputCount
	if small > large {
		small, large = large, small
	}
	if small <= 0 {
		return []int{}
	}
	split := make([]int, small)
	share, rem := large/small, large%small
	for i := range split {
		split[i] = share
		if i >= small-rem {
			split[i]++
		}
	}
	return split
}

// validLaneSplit checks split has value per smaller side lane and covers the larger side
func validLaneSplit(split []int, inputCount, outputCount int) bool {
	small, large := inputCount, outputCount
	if small > large {
		small, large = large, small
	}
	if len(split) != small {
		return false
	}
	sum := 0
	for _, s := range split {
		if s <= 0 {
			return false
		}
		sum += s
	}
	return sum == large
}

// resetLaneSplit recomputes default split after lane counts change. Reports if custom split
// had to be dropped
func (conn *NodeGroupConnection) resetLaneSplit() bool {
	if conn.customSplit && validLaneSplit(conn.LaneSplit, conn.Input.Count, conn.Output.Count) {
		return false
	}
	dropped := conn.customSplit
	conn.customSplit = false
	conn.LaneSplit = defaultLaneSplit(conn.Input.Count, conn.Output.Count)
	return dropped
}

// StripsNum returns number of lane strips (lanes of the larger side)
func (conn *NodeGroupConnection) StripsNum() int {
	return max(conn.Input.Count, conn.Output.Count)
}

func (conn *NodeGroupConnection) inputIsLarger() bool {
	return conn.Input.Count >= conn.Output.Count
}

// smallLane returns smaller side lane (relative to its range) owning given strip
// and the strip position inside that lane
func (conn *NodeGroupConnection) smallLane(strip int) (int, int) {
	acc := 0
	for i, s := range conn.LaneSplit {
		if strip < acc+s {
			return i, strip - acc
		}
		acc += s
	}
	last := len(conn.LaneSplit) - 1
	return last, conn.LaneSplit[last] - 1
}

// InputLane returns group lane index the strip starts from
func (conn *NodeGroupConnection) InputLane(strip int) int {
	if conn.inputIsLarger() {
		return conn.Input.Index + strip
	}
	lane, _ := conn.smallLane(strip)
	return conn.Input.Index + lane
}

// OutputLane returns group lane index the strip ends on
func (conn *NodeGroupConnection) OutputLane(strip int) int {
	if !conn.inputIsLarger() || conn.Input.Count == conn.Output.Count {
		return conn.Output.Index + strip
	}
	lane, _ := conn.smallLane(strip)
	return conn.Output.Index + lane
}

// Base returns left-most divider curve without vertical data
func (conn *NodeGroupConnection) Base() BiarcPair {
	return conn.base
}

// dividerOffsets returns offsets of every strip divider from the left-most divider at both ends
func (conn *NodeGroupConnection) dividerOffsets(in, out *NodeGroup) ([]float64, []float64) {
	strips := conn.StripsNum()
	large, small := in, out
	largeSub, smallSub := conn.Input, conn.Output
	if !conn.inputIsLarger() {
		large, small = out, in
		largeSub, smallSub = conn.Output, conn.Input
	}
	largeOffsets := make([]float64, strips+1)
	smallOffsets := make([]float64, strips+1)
	largeStart := large.LaneOffset(largeSub.Index)
	smallStart := small.LaneOffset(smallSub.Index)
	for k := 0; k <= strips; k++ {
		largeOffsets[k] = large.LaneOffset(largeSub.Index+k) - largeStart
		if k == strips {
			smallOffsets[k] = small.LaneOffset(smallSub.End()) - smallStart
			continue
		}
		lane, m := conn.smallLane(k)
		node := small.Nodes[smallSub.Index+lane]
		smallOffsets[k] = small.LaneOffset(smallSub.Index+lane) - smallStart + node.Width*float64(m)/float64(conn.LaneSplit[lane])
	}
	if conn.inputIsLarger() {
		return largeOffsets, smallOffsets
	}
	return smallOffsets, largeOffsets
}

// LinearSlope returns chord slope between the groups positions
func LinearSlope(in, out *NodeGroup) float64 {
	d := findDistance(in.Position, out.Position)
	if d < pointLengthEps {
		return 0
	}
	return (out.Height - in.Height) / d
}

// UpdateGeometry rebuilds dividers, lane lines and shoulders. A twin with lower ID
// is mirrored across the median instead of computing own base curve
func (conn *NodeGroupConnection) UpdateGeometry(in, out *NodeGroup, twin *NodeGroupConnection) {
	if twin != nil && twin.ID < conn.ID {
		gapStart := findDistance(out.LeftEdge(), twin.base.Start())
		gapEnd := findDistance(in.LeftEdge(), twin.base.End())
		conn.base = CreateTaperedParallel(twin.base, -gapStart, -gapEnd).Reverse()
	} else {
		inLeft := in.Nodes[conn.Input.Index].LeftDivider
		outLeft := out.Nodes[conn.Output.Index].LeftDivider
		conn.base = Interpolate(inLeft, in.Direction, outLeft, out.Direction)
	}

	line := func(offsetIn, offsetOut float64) RoadCurveLine {
		return NewRoadCurveLine(CreateTaperedParallel(conn.base, offsetIn, offsetOut), in.Height, out.Height, in.Slope, out.Slope)
	}

	offIn, offOut := conn.dividerOffsets(in, out)
	strips := conn.StripsNum()
	conn.DividerLines = make([]RoadCurveLine, 0, strips+1)
	conn.LaneLines = make([]RoadCurveLine, 0, strips)
	for k := 0; k <= strips; k++ {
		conn.DividerLines = append(conn.DividerLines, line(offIn[k], offOut[k]))
		if k < strips {
			conn.LaneLines = append(conn.LaneLines, line((offIn[k]+offIn[k+1])/2, (offOut[k]+offOut[k+1])/2))
		}
	}
	conn.CenterLine = line(offIn[strips]/2, offOut[strips]/2)

	leftIn, leftOut := 0.0, 0.0
	if conn.Input.Index == 0 {
		leftIn = in.LeftShoulder
	}
	if conn.Output.Index == 0 {
		leftOut = out.LeftShoulder
	}
	rightIn, rightOut := 0.0, 0.0
	if conn.Input.End() == in.LanesNum() {
		rightIn = in.RightShoulder
	}
	if conn.Output.End() == out.LanesNum() {
		rightOut = out.RightShoulder
	}
	conn.ShoulderLines[SIDE_LEFT] = line(offIn[0]-leftIn, offOut[0]-leftOut)
	conn.ShoulderLines[SIDE_RIGHT] = line(offIn[strips]+rightIn, offOut[strips]+rightOut)
	conn.VisualShoulderLines = conn.ShoulderLines
	conn.Seams = [2][2][]RoadCurveLine{}
}

// Length returns length of the center line
func (conn *NodeGroupConnection) Length() float64 {
	return conn.CenterLine.Length()
}

// isTwinOf checks if connections run between twin groups in opposite directions
func (conn *NodeGroupConnection) isTwinOf(other *NodeGroupConnection, groups map[NodeGroupID]*NodeGroup) bool {
	if conn.ID == other.ID || conn.Input.Index != 0 || conn.Output.Index != 0 || other.Input.Index != 0 || other.Output.Index != 0 {
		return false
	}
	in, okIn := groups[conn.Input.Group]
	out, okOut := groups[conn.Output.Group]
	if !okIn || !okOut || in.Twin < 0 || out.Twin < 0 {
		return false
	}
	return other.Input.Group == out.Twin && other.Output.Group == in.Twin
}
