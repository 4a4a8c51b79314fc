package roadgeom

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Lane graph is persisted as OSM XML: groups are nodes (planar X/Y in lon/lat),
// connections are two-node ways, ties and intersections are relations.
// Every object keeps its handle in the "id" tag. Fixed cycle signal programs are kept in
// intersection tags: "signal_phases" and "signal_phase_<i>_groups|green|yellow"
const (
	tagKind            = "roadgeom"
	kindNodeGroup      = "node_group"
	kindConnection     = "connection"
	kindTie            = "tie"
	kindIntersection   = "intersection"
	relationRoleMember = "member"
)

var ErrBadOSM = errors.New("malformed road network OSM data")

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloats(values []float64) string {
	return strings.Join(lo.Map(values, func(v float64, _ int) string { return formatFloat(v) }), ",")
}

func formatInts(values []int) string {
	return strings.Join(lo.Map(values, func(v int, _ int) string { return strconv.Itoa(v) }), ",")
}

// ToOSM converts lane graph topology into OSM objects
func (net *RoadNetwork) ToOSM() *osm.OSM {
	data := &osm.OSM{}
	for _, id := range net.GroupIDs() {
		group := net.Groups[id]
		widths := lo.Map(group.Nodes, func(node *Node, _ int) float64 { return node.Width })
		data.Nodes = append(data.Nodes, &osm.Node{
			ID:      osm.NodeID(id + 1),
			Lon:     group.Position[0],
			Lat:     group.Position[1],
			Visible: true,
			Version: 1,
			Tags: osm.Tags{
				{Key: tagKind, Value: kindNodeGroup},
				{Key: "id", Value: strconv.Itoa(int(id))},
				{Key: "dir_x", Value: formatFloat(group.Direction[0])},
				{Key: "dir_y", Value: formatFloat(group.Direction[1])},
				{Key: "height", Value: formatFloat(group.Height)},
				{Key: "lane_widths", Value: formatFloats(widths)},
				{Key: "left_shoulder", Value: formatFloat(group.LeftShoulder)},
				{Key: "right_shoulder", Value: formatFloat(group.RightShoulder)},
			},
		})
	}
	for _, id := range net.ConnectionIDs() {
		conn := net.Connections[id]
		tags := osm.Tags{
			{Key: tagKind, Value: kindConnection},
			{Key: "id", Value: strconv.Itoa(int(id))},
			{Key: "input_index", Value: strconv.Itoa(conn.Input.Index)},
			{Key: "input_count", Value: strconv.Itoa(conn.Input.Count)},
			{Key: "output_index", Value: strconv.Itoa(conn.Output.Index)},
			{Key: "output_count", Value: strconv.Itoa(conn.Output.Count)},
		}
		if conn.customSplit {
			tags = append(tags, osm.Tag{Key: "lane_split", Value: formatInts(conn.LaneSplit)})
		}
		data.Ways = append(data.Ways, &osm.Way{
			ID:      osm.WayID(id + 1),
			Visible: true,
			Version: 1,
			Nodes: osm.WayNodes{
				{ID: osm.NodeID(conn.Input.Group + 1)},
				{ID: osm.NodeID(conn.Output.Group + 1)},
			},
			Tags: tags,
		})
	}
	relationID := osm.RelationID(1)
	for _, id := range net.TieIDs() {
		tie := net.Ties[id]
		data.Relations = append(data.Relations, &osm.Relation{
			ID:      relationID,
			Visible: true,
			Version: 1,
			Members: osm.Members{
				{Type: osm.TypeNode, Ref: int64(tie.Groups[0] + 1), Role: "first"},
				{Type: osm.TypeNode, Ref: int64(tie.Groups[1] + 1), Role: "second"},
			},
			Tags: osm.Tags{
				{Key: tagKind, Value: kindTie},
				{Key: "id", Value: strconv.Itoa(int(id))},
				{Key: "x", Value: formatFloat(tie.Position[0])},
				{Key: "y", Value: formatFloat(tie.Position[1])},
				{Key: "dir_x", Value: formatFloat(tie.Direction[0])},
				{Key: "dir_y", Value: formatFloat(tie.Direction[1])},
				{Key: "median", Value: formatFloat(tie.MedianWidth)},
			},
		})
		relationID++
	}
	for _, id := range net.IntersectionIDs() {
		inter := net.Intersections[id]
		members := make(osm.Members, 0, len(inter.Groups))
		for _, groupID := range inter.Groups {
			members = append(members, osm.Member{Type: osm.TypeNode, Ref: int64(groupID + 1), Role: relationRoleMember})
		}
		tags := osm.Tags{
			{Key: tagKind, Value: kindIntersection},
			{Key: "id", Value: strconv.Itoa(int(id))},
			{Key: "corner_radius", Value: formatFloat(inter.CornerRadius)},
		}
		data.Relations = append(data.Relations, &osm.Relation{
			ID:      relationID,
			Visible: true,
			Version: 1,
			Members: members,
			Tags:    append(tags, net.signalTags(inter)...),
		})
		relationID++
	}
	return data
}

func signalPhaseKey(i int, field string) string {
	return fmt.Sprintf("signal_phase_%d_%s", i, field)
}

// signalTags keeps groups, green and yellow seconds of every phase of fixed cycle program
func (net *RoadNetwork) signalTags(inter *RoadIntersection) osm.Tags {
	switch program := inter.Program.(type) {
	case nil:
		return nil
	case *FixedCycleProgram:
		tags := osm.Tags{{Key: "signal_phases", Value: strconv.Itoa(len(program.Phases))}}
		for i, phase := range program.Phases {
			groups := lo.Map(phase.Groups, func(id NodeGroupID, _ int) int { return int(id) })
			tags = append(tags,
				osm.Tag{Key: signalPhaseKey(i, "groups"), Value: formatInts(groups)},
				osm.Tag{Key: signalPhaseKey(i, "green"), Value: formatFloat(phase.Green)},
				osm.Tag{Key: signalPhaseKey(i, "yellow"), Value: formatFloat(phase.Yellow)},
			)
		}
		return tags
	default:
		net.logger.WithFields(logrus.Fields{"intersection": inter.ID, "program": fmt.Sprintf("%T", program)}).Warn("Traffic light program can't be saved")
		return nil
	}
}

// SaveOSM writes lane graph topology as OSM XML
func (net *RoadNetwork) SaveOSM(w io.Writer) error {
	_, err := io.WriteString(w, xml.Header)
	if err != nil {
		return errors.Wrap(err, "Can't write XML header")
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	err = encoder.Encode(net.ToOSM())
	if err != nil {
		return errors.Wrap(err, "Can't encode OSM data")
	}
	return nil
}

// SaveOSMFile writes lane graph topology into file
func (net *RoadNetwork) SaveOSMFile(fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()
	return net.SaveOSM(file)
}

// LoadOSM reads lane graph topology written by SaveOSM. Geometry is derived on next Update
func LoadOSM(ctx context.Context, r io.Reader, options ...func(*RoadNetwork)) (*RoadNetwork, error) {
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()

	nodes := make([]*osm.Node, 0)
	ways := make([]*osm.Way, 0)
	relations := make([]*osm.Relation, 0)
	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Node:
			nodes = append(nodes, obj)
		case *osm.Way:
			ways = append(ways, obj)
		case *osm.Relation:
			relations = append(relations, obj)
		}
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "Scanner error")
	}

	net := NewRoadNetwork(options...)
	groupByOSM := make(map[int64]NodeGroupID, len(nodes))
	for _, node := range nodes {
		if node.Tags.Find(tagKind) != kindNodeGroup {
			continue
		}
		group, err := groupFromOSM(node)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't read node %d", node.ID)
		}
		net.Groups[group.ID] = group
		groupByOSM[int64(node.ID)] = group.ID
		net.nextGroupID = max(net.nextGroupID, group.ID+1)
	}

	sort.SliceStable(ways, func(i, j int) bool { return ways[i].ID < ways[j].ID })
	for _, way := range ways {
		if way.Tags.Find(tagKind) != kindConnection {
			continue
		}
		conn, err := connectionFromOSM(way, groupByOSM)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't read way %d", way.ID)
		}
		in, okIn := net.Groups[conn.Input.Group]
		out, okOut := net.Groups[conn.Output.Group]
		if !okIn || !okOut || !conn.Input.valid(in.LanesNum()) || !conn.Output.valid(out.LanesNum()) {
			return nil, errors.Wrapf(ErrBadOSM, "way %d refers to bad lanes", way.ID)
		}
		net.Connections[conn.ID] = conn
		in.Outputs = append(in.Outputs, conn.ID)
		out.Inputs = append(out.Inputs, conn.ID)
		net.nextConnectionID = max(net.nextConnectionID, conn.ID+1)
	}

	for _, relation := range relations {
		var err error
		switch relation.Tags.Find(tagKind) {
		case kindTie:
			err = net.tieFromOSM(relation, groupByOSM)
		case kindIntersection:
			err = net.intersectionFromOSM(relation, groupByOSM)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "Can't read relation %d", relation.ID)
		}
	}
	net.refreshTopology()
	return net, nil
}

// LoadOSMFile reads lane graph topology from file
func LoadOSMFile(fname string, options ...func(*RoadNetwork)) (*RoadNetwork, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()
	return LoadOSM(context.Background(), file, options...)
}

type tagReader struct {
	tags osm.Tags
	err  error
}

func (reader *tagReader) float(key string) float64 {
	if reader.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(reader.tags.Find(key), 64)
	if err != nil {
		reader.err = errors.Wrapf(ErrBadOSM, "tag '%s'", key)
	}
	return v
}

func (reader *tagReader) int(key string) int {
	if reader.err != nil {
		return 0
	}
	v, err := strconv.Atoi(reader.tags.Find(key))
	if err != nil {
		reader.err = errors.Wrapf(ErrBadOSM, "tag '%s'", key)
	}
	return v
}

func (reader *tagReader) floats(key string) []float64 {
	if reader.err != nil {
		return nil
	}
	parts := strings.Split(reader.tags.Find(key), ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			reader.err = errors.Wrapf(ErrBadOSM, "tag '%s'", key)
			return nil
		}
		values = append(values, v)
	}
	return values
}

func (reader *tagReader) ints(key string) []int {
	floats := reader.floats(key)
	return lo.Map(floats, func(v float64, _ int) int { return int(v) })
}

func groupFromOSM(node *osm.Node) (*NodeGroup, error) {
	reader := &tagReader{tags: node.Tags}
	id := NodeGroupID(reader.int("id"))
	direction := orb.Point{reader.float("dir_x"), reader.float("dir_y")}
	widths := reader.floats("lane_widths")
	height := reader.float("height")
	left := reader.float("left_shoulder")
	right := reader.float("right_shoulder")
	if reader.err != nil {
		return nil, reader.err
	}
	if len(widths) == 0 || length(direction) < pointLengthEps {
		return nil, errors.Wrap(ErrBadOSM, "empty group")
	}
	group := newNodeGroup(id, orb.Point{node.Lon, node.Lat}, direction, len(widths), 0, 0)
	for i, w := range widths {
		group.Nodes[i].Width = w
	}
	group.Height = height
	group.LeftShoulder = left
	group.RightShoulder = right
	group.UpdateGeometry()
	return group, nil
}

func connectionFromOSM(way *osm.Way, groups map[int64]NodeGroupID) (*NodeGroupConnection, error) {
	if len(way.Nodes) != 2 {
		return nil, errors.Wrapf(ErrBadOSM, "%d nodes in connection", len(way.Nodes))
	}
	in, okIn := groups[int64(way.Nodes[0].ID)]
	out, okOut := groups[int64(way.Nodes[1].ID)]
	if !okIn || !okOut {
		return nil, errors.Wrap(ErrBadOSM, "connection refers to unknown group")
	}
	reader := &tagReader{tags: way.Tags}
	id := ConnectionID(reader.int("id"))
	input := NodeSubGroup{Group: in, Index: reader.int("input_index"), Count: reader.int("input_count")}
	output := NodeSubGroup{Group: out, Index: reader.int("output_index"), Count: reader.int("output_count")}
	var split []int
	if way.Tags.Find("lane_split") != "" {
		split = reader.ints("lane_split")
	}
	if reader.err != nil {
		return nil, reader.err
	}
	if split != nil && !validLaneSplit(split, input.Count, output.Count) {
		return nil, errors.Wrapf(ErrInvalidLaneSplit, "split %v", split)
	}
	return newNodeGroupConnection(id, input, output, split), nil
}

func (net *RoadNetwork) relationGroups(relation *osm.Relation, groups map[int64]NodeGroupID) ([]NodeGroupID, error) {
	ids := make([]NodeGroupID, 0, len(relation.Members))
	for _, member := range relation.Members {
		id, ok := groups[member.Ref]
		if member.Type != osm.TypeNode || !ok {
			return nil, errors.Wrapf(ErrBadOSM, "unknown member %d", member.Ref)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (net *RoadNetwork) tieFromOSM(relation *osm.Relation, groups map[int64]NodeGroupID) error {
	members, err := net.relationGroups(relation, groups)
	if err != nil {
		return err
	}
	if len(members) != 2 {
		return errors.Wrapf(ErrBadOSM, "%d members in tie", len(members))
	}
	reader := &tagReader{tags: relation.Tags}
	tie := &NodeGroupTie{
		Groups:      [2]NodeGroupID{members[0], members[1]},
		Position:    orb.Point{reader.float("x"), reader.float("y")},
		Direction:   orb.Point{reader.float("dir_x"), reader.float("dir_y")},
		MedianWidth: reader.float("median"),
		ID:          TieID(reader.int("id")),
	}
	if reader.err != nil {
		return reader.err
	}
	first, second := net.Groups[members[0]], net.Groups[members[1]]
	first.Tie, second.Tie = tie.ID, tie.ID
	first.Twin, second.Twin = second.ID, first.ID
	net.Ties[tie.ID] = tie
	net.nextTieID = max(net.nextTieID, tie.ID+1)
	tie.UpdateGeometry(first, second)
	return nil
}

func (net *RoadNetwork) intersectionFromOSM(relation *osm.Relation, groups map[int64]NodeGroupID) error {
	members, err := net.relationGroups(relation, groups)
	if err != nil {
		return err
	}
	reader := &tagReader{tags: relation.Tags}
	inter := &RoadIntersection{
		Groups:       members,
		CornerRadius: reader.float("corner_radius"),
		ID:           IntersectionID(reader.int("id")),
	}
	if reader.err != nil {
		return reader.err
	}
	if relation.Tags.Find("signal_phases") != "" {
		program, err := net.signalFromOSM(reader)
		if err != nil {
			return err
		}
		inter.Program = program
	}
	for _, id := range members {
		net.Groups[id].Intersection = inter.ID
	}
	net.Intersections[inter.ID] = inter
	net.nextIntersectionID = max(net.nextIntersectionID, inter.ID+1)
	return nil
}

func (net *RoadNetwork) signalFromOSM(reader *tagReader) (*FixedCycleProgram, error) {
	phasesNum := reader.int("signal_phases")
	if reader.err != nil {
		return nil, reader.err
	}
	if phasesNum < 0 {
		return nil, errors.Wrapf(ErrBadOSM, "%d signal phases", phasesNum)
	}
	program := &FixedCycleProgram{Phases: make([]SignalPhase, 0, phasesNum)}
	for i := 0; i < phasesNum; i++ {
		phase := SignalPhase{
			Groups: make([]NodeGroupID, 0),
			Green:  reader.float(signalPhaseKey(i, "green")),
			Yellow: reader.float(signalPhaseKey(i, "yellow")),
		}
		if reader.tags.Find(signalPhaseKey(i, "groups")) != "" {
			for _, id := range reader.ints(signalPhaseKey(i, "groups")) {
				if _, ok := net.Groups[NodeGroupID(id)]; !ok {
					return nil, errors.Wrapf(ErrBadOSM, "signal phase %d refers to unknown group %d", i, id)
				}
				phase.Groups = append(phase.Groups, NodeGroupID(id))
			}
		}
		if reader.err != nil {
			return nil, reader.err
		}
		program.Phases = append(program.Phases, phase)
	}
	return program, nil
}
