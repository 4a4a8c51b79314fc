package roadgeom

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// oppositeEps is the lowest allowed value of -dot(dirA, dirB) for tied groups
const oppositeEps = 0.99

// CreateNodeGroup adds cross-section with given number of lanes of default width
func (net *RoadNetwork) CreateNodeGroup(position, direction orb.Point, lanes int) (NodeGroupID, error) {
	if lanes <= 0 {
		return -1, errors.Wrapf(ErrInvalidLanes, "lanes %d", lanes)
	}
	if length(direction) < pointLengthEps {
		return -1, errors.Wrapf(ErrInvalidDirection, "direction %v", direction)
	}
	id := net.nextGroupID
	net.nextGroupID++
	net.Groups[id] = newNodeGroup(id, position, direction, lanes, net.laneWidth, net.shoulderWidth)
	net.logger.WithFields(logrus.Fields{"group": id, "lanes": lanes}).Debug("Node group created")
	return id, nil
}

// DeleteNodeGroup removes group with every connection touching it, its tie and its
// intersection membership
func (net *RoadNetwork) DeleteNodeGroup(id NodeGroupID) error {
	group, err := net.Group(id)
	if err != nil {
		return errors.Wrap(err, "Can't delete node group")
	}
	for _, connID := range append(append([]ConnectionID{}, group.Inputs...), group.Outputs...) {
		net.removeConnection(connID)
	}
	if group.Tie >= 0 {
		net.removeTie(group.Tie)
	}
	if group.Intersection >= 0 {
		if inter, ok := net.Intersections[group.Intersection]; ok {
			inter.Groups = lo.Without(inter.Groups, id)
			if len(inter.Groups) < 2 {
				net.removeIntersection(inter.ID)
			}
		}
	}
	delete(net.Groups, id)
	net.refreshTopology()
	net.logger.WithField("group", id).Debug("Node group deleted")
	return nil
}

// SetGroupHeight sets elevation of the cross-section
func (net *RoadNetwork) SetGroupHeight(id NodeGroupID, height float64) error {
	group, err := net.Group(id)
	if err != nil {
		return err
	}
	group.Height = height
	return nil
}

// MoveNodeGroup changes position and direction of untied group
func (net *RoadNetwork) MoveNodeGroup(id NodeGroupID, position, direction orb.Point) error {
	group, err := net.Group(id)
	if err != nil {
		return errors.Wrap(err, "Can't move node group")
	}
	if group.Tie >= 0 {
		return errors.Wrapf(ErrNodeGroupTied, "group %d tie %d", id, group.Tie)
	}
	if length(direction) < pointLengthEps {
		return errors.Wrapf(ErrInvalidDirection, "direction %v", direction)
	}
	group.Position = position
	group.Direction = normalize(direction)
	group.UpdateGeometry()
	return nil
}

func (net *RoadNetwork) validSubGroup(sub NodeSubGroup) error {
	group, err := net.Group(sub.Group)
	if err != nil {
		return err
	}
	if !sub.valid(group.LanesNum()) {
		return errors.Wrapf(ErrInvalidSubGroup, "range %s of %d lanes", sub, group.LanesNum())
	}
	return nil
}

// Connect joins two lane ranges with default lane split. A request overlapping an existing
// connection between the same groups widens that connection instead
func (net *RoadNetwork) Connect(input, output NodeSubGroup) (ConnectionID, error) {
	return net.connect(input, output, nil)
}

// ConnectWithSplit joins two lane ranges distributing smaller side lanes by split
func (net *RoadNetwork) ConnectWithSplit(input, output NodeSubGroup, split []int) (ConnectionID, error) {
	if !validLaneSplit(split, input.Count, output.Count) {
		return -1, errors.Wrapf(ErrInvalidLaneSplit, "split %v for %d:%d", split, input.Count, output.Count)
	}
	return net.connect(input, output, split)
}

func (net *RoadNetwork) connect(input, output NodeSubGroup, split []int) (ConnectionID, error) {
	if err := net.validSubGroup(input); err != nil {
		return -1, errors.Wrap(err, "Can't connect input")
	}
	if err := net.validSubGroup(output); err != nil {
		return -1, errors.Wrap(err, "Can't connect output")
	}
	if input.Group == output.Group {
		return -1, errors.Wrapf(ErrInvalidSubGroup, "input and output share group %d", input.Group)
	}
	in := net.Groups[input.Group]
	for _, connID := range in.Outputs {
		conn := net.Connections[connID]
		if conn.Output.Group != output.Group {
			continue
		}
		if GetOverlap(conn.Input, input) > 0 || GetOverlap(conn.Output, output) > 0 {
			widenedInput, widenedOutput := conn.Input.union(input), conn.Output.union(output)
			if split != nil && !validLaneSplit(split, widenedInput.Count, widenedOutput.Count) {
				return -1, errors.Wrapf(ErrInvalidLaneSplit, "split %v for widened connection %d of %d:%d", split, conn.ID, widenedInput.Count, widenedOutput.Count)
			}
			conn.Input, conn.Output = widenedInput, widenedOutput
			if split != nil {
				conn.LaneSplit = append([]int{}, split...)
				conn.customSplit = true
			}
			net.resetLaneSplit(conn)
			net.refreshTopology()
			net.logger.WithFields(logrus.Fields{"connection": conn.ID, "input": conn.Input.String(), "output": conn.Output.String()}).Debug("Connection widened")
			return conn.ID, nil
		}
	}
	id := net.nextConnectionID
	net.nextConnectionID++
	conn := newNodeGroupConnection(id, input, output, split)
	net.Connections[id] = conn
	in.Outputs = append(in.Outputs, id)
	out := net.Groups[output.Group]
	out.Inputs = append(out.Inputs, id)
	net.refreshTopology()
	net.logger.WithFields(logrus.Fields{"connection": id, "input": input.String(), "output": output.String()}).Debug("Connection created")
	return id, nil
}

// Disconnect removes connection
func (net *RoadNetwork) Disconnect(id ConnectionID) error {
	if _, err := net.Connection(id); err != nil {
		return errors.Wrap(err, "Can't disconnect")
	}
	net.removeConnection(id)
	net.refreshTopology()
	return nil
}

func (net *RoadNetwork) removeConnection(id ConnectionID) {
	conn, ok := net.Connections[id]
	if !ok {
		return
	}
	if in, ok := net.Groups[conn.Input.Group]; ok {
		in.Outputs = removeConnectionID(in.Outputs, id)
	}
	if out, ok := net.Groups[conn.Output.Group]; ok {
		out.Inputs = removeConnectionID(out.Inputs, id)
	}
	if twin, ok := net.Connections[conn.Twin]; ok {
		twin.Twin = -1
	}
	delete(net.Connections, id)
}

// AddLanes inserts count lanes before lane index. Ranges starting at or after index shift,
// ranges spanning the insertion point grow
func (net *RoadNetwork) AddLanes(id NodeGroupID, index, count int) error {
	group, err := net.Group(id)
	if err != nil {
		return errors.Wrap(err, "Can't add lanes")
	}
	if count <= 0 || index < 0 || index > group.LanesNum() {
		return errors.Wrapf(ErrInvalidLanes, "insert %d lanes at %d of %d", count, index, group.LanesNum())
	}
	width := net.laneWidth
	inserted := make([]*Node, count)
	for i := range inserted {
		inserted[i] = newNode(id, index+i, width)
	}
	nodes := make([]*Node, 0, group.LanesNum()+count)
	nodes = append(nodes, group.Nodes[:index]...)
	nodes = append(nodes, inserted...)
	nodes = append(nodes, group.Nodes[index:]...)
	group.Nodes = nodes

	shift := func(sub NodeSubGroup) NodeSubGroup {
		switch {
		case sub.Index >= index:
			sub.Index += count
		case sub.End() > index:
			sub.Count += count
		}
		return sub
	}
	net.repairRanges(group, shift)
	group.UpdateGeometry()
	net.refreshTopology()
	return nil
}

// RemoveLanes deletes count lanes starting from index. Ranges shrink or shift, ranges left
// without lanes lose their connection
func (net *RoadNetwork) RemoveLanes(id NodeGroupID, index, count int) error {
	group, err := net.Group(id)
	if err != nil {
		return errors.Wrap(err, "Can't remove lanes")
	}
	if count <= 0 || index < 0 || index+count > group.LanesNum() || count >= group.LanesNum() {
		return errors.Wrapf(ErrInvalidLanes, "remove %d lanes at %d of %d", count, index, group.LanesNum())
	}
	group.Nodes = append(group.Nodes[:index:index], group.Nodes[index+count:]...)

	removedEnd := index + count
	shrink := func(sub NodeSubGroup) NodeSubGroup {
		before := max(0, min(sub.End(), index)-sub.Index)
		after := max(0, sub.End()-max(sub.Index, removedEnd))
		switch {
		case sub.Index < index:
		case sub.Index >= removedEnd:
			sub.Index -= count
		default:
			sub.Index = index
		}
		sub.Count = before + after
		return sub
	}
	net.repairRanges(group, shrink)
	group.UpdateGeometry()
	net.refreshTopology()
	return nil
}

// resetLaneSplit keeps custom split of connection while it fits lane counts
func (net *RoadNetwork) resetLaneSplit(conn *NodeGroupConnection) {
	custom := append([]int{}, conn.LaneSplit...)
	if conn.resetLaneSplit() {
		net.logger.WithFields(logrus.Fields{
			"connection": conn.ID,
			"split":      custom,
			"input":      conn.Input.String(),
			"output":     conn.Output.String(),
		}).Warn("Custom lane split doesn't fit lanes anymore, default split is used")
	}
}

// repairRanges applies fix to every range of the group; emptied connections are removed
func (net *RoadNetwork) repairRanges(group *NodeGroup, fix func(NodeSubGroup) NodeSubGroup) {
	empty := make([]ConnectionID, 0)
	for _, connID := range group.Outputs {
		conn := net.Connections[connID]
		conn.Input = fix(conn.Input)
		if conn.Input.Count <= 0 {
			empty = append(empty, connID)
			continue
		}
		net.resetLaneSplit(conn)
	}
	for _, connID := range group.Inputs {
		conn := net.Connections[connID]
		conn.Output = fix(conn.Output)
		if conn.Output.Count <= 0 {
			empty = append(empty, connID)
			continue
		}
		net.resetLaneSplit(conn)
	}
	for _, connID := range empty {
		net.removeConnection(connID)
		net.logger.WithField("connection", connID).Debug("Connection removed with its lanes")
	}
}

// Tie binds two opposite-direction groups across a median of given width
func (net *RoadNetwork) Tie(a, b NodeGroupID, medianWidth float64) (TieID, error) {
	first, err := net.Group(a)
	if err != nil {
		return -1, errors.Wrap(err, "Can't tie")
	}
	second, err := net.Group(b)
	if err != nil {
		return -1, errors.Wrap(err, "Can't tie")
	}
	if first.Tie >= 0 || second.Tie >= 0 {
		return -1, errors.Wrapf(ErrNodeGroupTied, "groups %d and %d", a, b)
	}
	if a == b || dot(first.Direction, second.Direction) > -oppositeEps {
		return -1, errors.Wrapf(ErrNotOpposite, "groups %d and %d", a, b)
	}
	id := net.nextTieID
	net.nextTieID++
	tie := &NodeGroupTie{
		Groups:      [2]NodeGroupID{a, b},
		Position:    lerp(first.LeftEdge(), second.LeftEdge(), 0.5),
		Direction:   first.Direction,
		MedianWidth: medianWidth,
		ID:          id,
	}
	net.Ties[id] = tie
	first.Tie, second.Tie = id, id
	first.Twin, second.Twin = b, a
	tie.UpdateGeometry(first, second)
	net.refreshTopology()
	net.logger.WithFields(logrus.Fields{"tie": id, "groups": tie.Groups}).Debug("Node groups tied")
	return id, nil
}

// Untie releases tied groups keeping their positions
func (net *RoadNetwork) Untie(id TieID) error {
	if _, ok := net.Ties[id]; !ok {
		return errors.Wrapf(ErrTieNotFound, "tie %d", id)
	}
	net.removeTie(id)
	net.refreshTopology()
	return nil
}

func (net *RoadNetwork) removeTie(id TieID) {
	tie, ok := net.Ties[id]
	if !ok {
		return
	}
	for _, groupID := range tie.Groups {
		if group, ok := net.Groups[groupID]; ok {
			group.Tie = -1
			group.Twin = -1
		}
	}
	delete(net.Ties, id)
}

// MoveTie moves median of tied groups
func (net *RoadNetwork) MoveTie(id TieID, position, direction orb.Point) error {
	tie, ok := net.Ties[id]
	if !ok {
		return errors.Wrapf(ErrTieNotFound, "tie %d", id)
	}
	if length(direction) < pointLengthEps {
		return errors.Wrapf(ErrInvalidDirection, "direction %v", direction)
	}
	tie.Position = position
	tie.Direction = normalize(direction)
	net.updateTies()
	return nil
}

// CreateIntersection makes junction of given groups
func (net *RoadNetwork) CreateIntersection(groups []NodeGroupID) (IntersectionID, error) {
	groups = lo.Uniq(groups)
	if len(groups) < 2 {
		return -1, errors.Wrapf(ErrNotEnoughGroups, "got %d", len(groups))
	}
	for _, groupID := range groups {
		group, err := net.Group(groupID)
		if err != nil {
			return -1, errors.Wrap(err, "Can't create intersection")
		}
		if group.Intersection >= 0 {
			return -1, errors.Wrapf(ErrNodeGroupJunction, "group %d intersection %d", groupID, group.Intersection)
		}
	}
	id := net.nextIntersectionID
	net.nextIntersectionID++
	inter := &RoadIntersection{
		Groups:       append([]NodeGroupID{}, groups...),
		CornerRadius: net.cornerRadius,
		ID:           id,
	}
	net.Intersections[id] = inter
	for _, groupID := range groups {
		net.Groups[groupID].Intersection = id
	}
	inter.Construct(lo.Map(groups, func(groupID NodeGroupID, _ int) *NodeGroup { return net.Groups[groupID] }), net.Connections)
	net.logger.WithFields(logrus.Fields{"intersection": id, "groups": groups}).Debug("Intersection created")
	return id, nil
}

// DeleteIntersection removes junction keeping its groups
func (net *RoadNetwork) DeleteIntersection(id IntersectionID) error {
	if _, ok := net.Intersections[id]; !ok {
		return errors.Wrapf(ErrIntersectionNotFound, "intersection %d", id)
	}
	net.removeIntersection(id)
	return nil
}

// SetTrafficLight attaches signal program to intersection; nil removes it
func (net *RoadNetwork) SetTrafficLight(id IntersectionID, program TrafficLightProgram) error {
	inter, ok := net.Intersections[id]
	if !ok {
		return errors.Wrapf(ErrIntersectionNotFound, "intersection %d", id)
	}
	inter.Program = program
	return nil
}

func (net *RoadNetwork) removeIntersection(id IntersectionID) {
	inter, ok := net.Intersections[id]
	if !ok {
		return
	}
	for _, groupID := range inter.Groups {
		if group, ok := net.Groups[groupID]; ok {
			group.Intersection = -1
		}
	}
	delete(net.Intersections, id)
}
