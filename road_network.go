package roadgeom

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var (
	ErrNodeGroupNotFound    = errors.New("node group not found")
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrTieNotFound          = errors.New("tie not found")
	ErrIntersectionNotFound = errors.New("intersection not found")
	ErrInvalidSubGroup      = errors.New("invalid lane range")
	ErrInvalidLaneSplit     = errors.New("invalid lane split")
	ErrInvalidLanes         = errors.New("invalid number of lanes")
	ErrInvalidDirection     = errors.New("invalid direction")
	ErrNodeGroupTied        = errors.New("node group is tied")
	ErrNodeGroupJunction    = errors.New("node group already belongs to intersection")
	ErrNotOpposite          = errors.New("node groups are not opposite")
	ErrNotEnoughGroups      = errors.New("not enough node groups")
	ErrLaneNotFound         = errors.New("lane not found")
)

const (
	defaultLaneWidth     = 3.5
	defaultShoulderWidth = 0.5
	defaultCornerRadius  = 5.0
)

// RoadNetwork owns lane graph entities and runs the geometry pipeline
type RoadNetwork struct {
	Groups        map[NodeGroupID]*NodeGroup
	Connections   map[ConnectionID]*NodeGroupConnection
	Ties          map[TieID]*NodeGroupTie
	Intersections map[IntersectionID]*RoadIntersection

	logger          *logrus.Logger
	connectionOrder []ConnectionID
	laneWidth       float64
	shoulderWidth   float64
	cornerRadius    float64
	segmentsPerTurn int
	verbose         bool

	nextGroupID        NodeGroupID
	nextConnectionID   ConnectionID
	nextTieID          TieID
	nextIntersectionID IntersectionID

	unresolvedSeams int
	batchDepth      int
	topologyDirty   bool
}

func (net *RoadNetwork) String() string {
	return fmt.Sprintf(`
Road network parameters:
	lane_width: %f
	shoulder_width: %f
	corner_radius: %f
	segments_per_turn: %d
	verbose?: %t
	`,
		net.laneWidth,
		net.shoulderWidth,
		net.cornerRadius,
		net.segmentsPerTurn,
		net.verbose,
	)
}

func NewRoadNetwork(options ...func(*RoadNetwork)) *RoadNetwork {
	net := &RoadNetwork{
		Groups:          make(map[NodeGroupID]*NodeGroup),
		Connections:     make(map[ConnectionID]*NodeGroupConnection),
		Ties:            make(map[TieID]*NodeGroupTie),
		Intersections:   make(map[IntersectionID]*RoadIntersection),
		logger:          logrus.StandardLogger(),
		connectionOrder: make([]ConnectionID, 0),
		laneWidth:       defaultLaneWidth,
		shoulderWidth:   defaultShoulderWidth,
		cornerRadius:    defaultCornerRadius,
		segmentsPerTurn: defaultSegmentsPerTurn,
	}
	for _, option := range options {
		option(net)
	}
	return net
}

func WithLaneWidth(laneWidth float64) func(*RoadNetwork) {
	return func(net *RoadNetwork) {
		net.laneWidth = laneWidth
	}
}

func WithShoulderWidth(shoulderWidth float64) func(*RoadNetwork) {
	return func(net *RoadNetwork) {
		net.shoulderWidth = shoulderWidth
	}
}

func WithCornerRadius(cornerRadius float64) func(*RoadNetwork) {
	return func(net *RoadNetwork) {
		net.cornerRadius = cornerRadius
	}
}

func WithSegmentsPerTurn(segments int) func(*RoadNetwork) {
	return func(net *RoadNetwork) {
		net.segmentsPerTurn = segments
	}
}

func WithVerbose(verbose bool) func(*RoadNetwork) {
	return func(net *RoadNetwork) {
		net.verbose = verbose
	}
}

func WithLogger(logger *logrus.Logger) func(*RoadNetwork) {
	return func(net *RoadNetwork) {
		net.logger = logger
	}
}

// SegmentsPerTurn returns tessellation density used for exports
func (net *RoadNetwork) SegmentsPerTurn() int {
	return net.segmentsPerTurn
}

// UnresolvedSeams returns number of overlapping sibling pairs left unclipped by the last Update
func (net *RoadNetwork) UnresolvedSeams() int {
	return net.unresolvedSeams
}

func (net *RoadNetwork) Group(id NodeGroupID) (*NodeGroup, error) {
	group, ok := net.Groups[id]
	if !ok {
		return nil, errors.Wrapf(ErrNodeGroupNotFound, "group %d", id)
	}
	return group, nil
}

func (net *RoadNetwork) Connection(id ConnectionID) (*NodeGroupConnection, error) {
	conn, ok := net.Connections[id]
	if !ok {
		return nil, errors.Wrapf(ErrConnectionNotFound, "connection %d", id)
	}
	return conn, nil
}

func (net *RoadNetwork) Node(ref NodeRef) (*Node, error) {
	group, err := net.Group(ref.Group)
	if err != nil {
		return nil, err
	}
	if ref.Index < 0 || ref.Index >= group.LanesNum() {
		return nil, errors.Wrapf(ErrLaneNotFound, "lane %d of group %d", ref.Index, ref.Group)
	}
	return group.Nodes[ref.Index], nil
}

// LaneLine returns drivable line of connection strip
func (net *RoadNetwork) LaneLine(link LaneLink) (RoadCurveLine, error) {
	conn, err := net.Connection(link.Connection)
	if err != nil {
		return RoadCurveLine{}, err
	}
	if link.Lane < 0 || link.Lane >= len(conn.LaneLines) {
		return RoadCurveLine{}, errors.Wrapf(ErrLaneNotFound, "strip %d of connection %d", link.Lane, link.Connection)
	}
	return conn.LaneLines[link.Lane], nil
}

// LinkEnd returns lane where connection strip ends
func (net *RoadNetwork) LinkEnd(link LaneLink) (NodeRef, error) {
	conn, err := net.Connection(link.Connection)
	if err != nil {
		return NodeRef{}, err
	}
	return NodeRef{Group: conn.Output.Group, Index: conn.OutputLane(link.Lane)}, nil
}

// LinkStart returns lane where connection strip starts
func (net *RoadNetwork) LinkStart(link LaneLink) (NodeRef, error) {
	conn, err := net.Connection(link.Connection)
	if err != nil {
		return NodeRef{}, err
	}
	return NodeRef{Group: conn.Input.Group, Index: conn.InputLane(link.Lane)}, nil
}

// GroupIDs returns group identifiers in ascending order
func (net *RoadNetwork) GroupIDs() []NodeGroupID {
	ids := lo.Keys(net.Groups)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (net *RoadNetwork) ConnectionIDs() []ConnectionID {
	ids := lo.Keys(net.Connections)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (net *RoadNetwork) TieIDs() []TieID {
	ids := lo.Keys(net.Ties)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (net *RoadNetwork) IntersectionIDs() []IntersectionID {
	ids := lo.Keys(net.Intersections)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// groupPair is key of connections index by their end groups
type groupPair struct {
	input  NodeGroupID
	output NodeGroupID
}

// Batch applies edits with topology refresh postponed until edits return. Nested batches
// refresh once at the outermost level
func (net *RoadNetwork) Batch(edits func() error) error {
	net.batchDepth++
	err := edits()
	net.batchDepth--
	if net.batchDepth == 0 && net.topologyDirty {
		net.refreshTopology()
	}
	return err
}

// refreshTopology recomputes twin pairing, lane links and connection ordering
func (net *RoadNetwork) refreshTopology() {
	if net.batchDepth > 0 {
		net.topologyDirty = true
		return
	}
	net.topologyDirty = false
	ids := net.ConnectionIDs()
	// only connections starting and ending at left-most lanes may have twins
	byEnds := make(map[groupPair]ConnectionID, len(ids))
	for _, id := range ids {
		conn := net.Connections[id]
		conn.Twin = -1
		if conn.Input.Index != 0 || conn.Output.Index != 0 {
			continue
		}
		key := groupPair{input: conn.Input.Group, output: conn.Output.Group}
		if _, ok := byEnds[key]; !ok {
			byEnds[key] = id
		}
	}
	for _, id := range ids {
		conn := net.Connections[id]
		if conn.Twin >= 0 || conn.Input.Index != 0 || conn.Output.Index != 0 {
			continue
		}
		in, okIn := net.Groups[conn.Input.Group]
		out, okOut := net.Groups[conn.Output.Group]
		if !okIn || !okOut || in.Twin < 0 || out.Twin < 0 {
			continue
		}
		otherID, ok := byEnds[groupPair{input: out.Twin, output: in.Twin}]
		if !ok {
			continue
		}
		other := net.Connections[otherID]
		if other.Twin < 0 && conn.isTwinOf(other, net.Groups) {
			conn.Twin = other.ID
			other.Twin = conn.ID
		}
	}

	for _, group := range net.Groups {
		group.clearLinks()
	}
	for _, id := range ids {
		conn := net.Connections[id]
		in, okIn := net.Groups[conn.Input.Group]
		out, okOut := net.Groups[conn.Output.Group]
		if !okIn || !okOut {
			continue
		}
		for k := 0; k < conn.StripsNum(); k++ {
			link := LaneLink{Connection: conn.ID, Lane: k}
			inNode := in.Nodes[conn.InputLane(k)]
			outNode := out.Nodes[conn.OutputLane(k)]
			inNode.Outputs = append(inNode.Outputs, link)
			outNode.Inputs = append(outNode.Inputs, link)
		}
	}
	net.UpdateConnectionSorting()
}

// UpdateConnectionSorting places twinned connections first in every group list and in
// the update order, mirrored twins go last. Order matters in two places: updateConnections
// builds a mirrored twin from base curve of its original, so the original goes first;
// resolveSeams keeps list order for siblings starting at the same lane, the earlier one
// keeps its shoulder profile and the later one takes height and slope of the joint
func (net *RoadNetwork) UpdateConnectionSorting() {
	ids := net.ConnectionIDs()
	ranks := make(map[ConnectionID]int, len(ids))
	var buckets [3][]ConnectionID
	for _, id := range ids {
		conn := net.Connections[id]
		rank := 1
		switch {
		case conn.Twin >= 0 && conn.ID < conn.Twin:
			rank = 0
		case conn.Twin >= 0:
			rank = 2
		}
		ranks[id] = rank
		buckets[rank] = append(buckets[rank], id)
	}
	less := func(list []ConnectionID) func(i, j int) bool {
		return func(i, j int) bool {
			ri, rj := ranks[list[i]], ranks[list[j]]
			if ri != rj {
				return ri < rj
			}
			return list[i] < list[j]
		}
	}
	for _, group := range net.Groups {
		sort.SliceStable(group.Inputs, less(group.Inputs))
		sort.SliceStable(group.Outputs, less(group.Outputs))
	}
	// ids are ascending so every bucket is ordered by ID already
	net.connectionOrder = append(append(buckets[0], buckets[1]...), buckets[2]...)
}

// Update runs geometry pipeline: ties, groups, connections, seams, intersections
func (net *RoadNetwork) Update() {
	net.timed("ties", net.updateTies)
	net.timed("groups", net.updateGroups)
	net.timed("connections", net.updateConnections)
	net.timed("seams", net.updateSeams)
	net.timed("intersections", net.updateIntersections)
}

func (net *RoadNetwork) timed(phase string, fn func()) {
	if !net.verbose {
		fn()
		return
	}
	st := time.Now()
	fn()
	net.logger.WithField("phase", phase).Infof("Preparing %s...Done in %v", phase, time.Since(st))
}

func (net *RoadNetwork) updateTies() {
	for _, id := range net.TieIDs() {
		tie := net.Ties[id]
		first, okFirst := net.Groups[tie.Groups[0]]
		second, okSecond := net.Groups[tie.Groups[1]]
		if !okFirst || !okSecond {
			continue
		}
		tie.UpdateGeometry(first, second)
	}
}

func (net *RoadNetwork) updateGroups() {
	ids := net.GroupIDs()
	for _, id := range ids {
		group := net.Groups[id]
		if group.Tie < 0 {
			group.UpdateGeometry()
		}
	}
	for _, id := range ids {
		group := net.Groups[id]
		slopes := make([]float64, 0, len(group.Inputs)+len(group.Outputs))
		for _, connID := range group.Inputs {
			if in, ok := net.inputGroup(connID); ok {
				slopes = append(slopes, LinearSlope(in, group))
			}
		}
		for _, connID := range group.Outputs {
			if out, ok := net.outputGroup(connID); ok {
				slopes = append(slopes, LinearSlope(group, out))
			}
		}
		group.updateSlope(slopes)
	}
}

func (net *RoadNetwork) inputGroup(id ConnectionID) (*NodeGroup, bool) {
	conn, ok := net.Connections[id]
	if !ok {
		return nil, false
	}
	group, ok := net.Groups[conn.Input.Group]
	return group, ok
}

func (net *RoadNetwork) outputGroup(id ConnectionID) (*NodeGroup, bool) {
	conn, ok := net.Connections[id]
	if !ok {
		return nil, false
	}
	group, ok := net.Groups[conn.Output.Group]
	return group, ok
}

func (net *RoadNetwork) updateConnections() {
	for _, id := range net.connectionOrder {
		conn, ok := net.Connections[id]
		if !ok {
			continue
		}
		in, okIn := net.Groups[conn.Input.Group]
		out, okOut := net.Groups[conn.Output.Group]
		if !okIn || !okOut {
			continue
		}
		var twin *NodeGroupConnection
		if conn.Twin >= 0 {
			twin = net.Connections[conn.Twin]
		}
		conn.UpdateGeometry(in, out, twin)
	}
}

func (net *RoadNetwork) updateSeams() {
	net.unresolvedSeams = 0
	for _, id := range net.GroupIDs() {
		group := net.Groups[id]
		net.unresolvedSeams += resolveSeams(group, net.Connections, IO_INPUT)
		net.unresolvedSeams += resolveSeams(group, net.Connections, IO_OUTPUT)
	}
	if net.unresolvedSeams > 0 {
		net.logger.WithField("unresolved", net.unresolvedSeams).Debug("Some seams left unclipped")
	}
}

func (net *RoadNetwork) updateIntersections() {
	for _, id := range net.IntersectionIDs() {
		inter := net.Intersections[id]
		groups := make([]*NodeGroup, 0, len(inter.Groups))
		for _, groupID := range inter.Groups {
			if group, ok := net.Groups[groupID]; ok {
				groups = append(groups, group)
			}
		}
		inter.Construct(groups, net.Connections)
		inter.UpdateGeometry(net.Groups, net.Connections)
	}
}
