package roadgeom

import (
	"time"

	"github.com/LdDl/ch"
	"github.com/pkg/errors"
)

var ErrNoRoute = errors.New("no route")

// laneVertexStride splits vertex label into group and lane parts
const laneVertexStride = 65536

// LaneVertex returns routing graph vertex label of a lane
func LaneVertex(ref NodeRef) int64 {
	return int64(ref.Group)*laneVertexStride + int64(ref.Index)
}

// VertexLane is the inverse of LaneVertex
func VertexLane(vertex int64) NodeRef {
	return NodeRef{Group: NodeGroupID(vertex / laneVertexStride), Index: int(vertex % laneVertexStride)}
}

// RoutePlanner answers lane-to-lane shortest path queries over contraction hierarchies.
// Edges are connection strips and intersection turns weighted by their length
type RoutePlanner struct {
	graph    ch.Graph
	vertices map[int64]struct{}
	edges    int
}

// NewRoutePlanner builds and contracts routing graph from network geometry.
// Network has to be updated before
func NewRoutePlanner(net *RoadNetwork) (*RoutePlanner, error) {
	st := time.Now()
	planner := &RoutePlanner{
		graph:    ch.Graph{},
		vertices: make(map[int64]struct{}),
	}
	for _, id := range net.ConnectionIDs() {
		conn := net.Connections[id]
		for k := 0; k < conn.StripsNum() && k < len(conn.LaneLines); k++ {
			source := NodeRef{Group: conn.Input.Group, Index: conn.InputLane(k)}
			target := NodeRef{Group: conn.Output.Group, Index: conn.OutputLane(k)}
			err := planner.addEdge(source, target, conn.LaneLines[k].Length())
			if err != nil {
				return nil, errors.Wrapf(err, "Can't add strip %d of connection %d", k, id)
			}
		}
	}
	for _, movement := range net.Movements() {
		from := net.Groups[movement.From.Group]
		to := net.Groups[movement.To.Group]
		cost := turnLine(from, to, movement.From.Index, movement.To.Index).Length()
		err := planner.addEdge(movement.From, movement.To, cost)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't add movement %d", movement.ID)
		}
	}
	planner.graph.PrepareContractionHierarchies()
	net.logger.WithField("vertices", len(planner.vertices)).WithField("edges", planner.edges).Debugf("Routing graph contracted in %v", time.Since(st))
	return planner, nil
}

func (planner *RoutePlanner) addEdge(source, target NodeRef, cost float64) error {
	for _, ref := range []NodeRef{source, target} {
		vertex := LaneVertex(ref)
		if _, ok := planner.vertices[vertex]; ok {
			continue
		}
		err := planner.graph.CreateVertex(vertex)
		if err != nil {
			return errors.Wrap(err, "Can't create vertex")
		}
		planner.vertices[vertex] = struct{}{}
	}
	err := planner.graph.AddEdge(LaneVertex(source), LaneVertex(target), cost)
	if err != nil {
		return errors.Wrap(err, "Can't wrap source and target vertices as edge")
	}
	planner.edges++
	return nil
}

// Route returns sequence of lanes from source to target and its cost
func (planner *RoutePlanner) Route(source, target NodeRef) ([]NodeRef, float64, error) {
	_, okSource := planner.vertices[LaneVertex(source)]
	_, okTarget := planner.vertices[LaneVertex(target)]
	if !okSource || !okTarget {
		return nil, -1, errors.Wrapf(ErrNoRoute, "from %v to %v", source, target)
	}
	if source == target {
		return []NodeRef{source}, 0, nil
	}
	cost, path := planner.graph.ShortestPath(LaneVertex(source), LaneVertex(target))
	if cost < 0 || len(path) == 0 {
		return nil, -1, errors.Wrapf(ErrNoRoute, "from %v to %v", source, target)
	}
	route := make([]NodeRef, len(path))
	for i, vertex := range path {
		route[i] = VertexLane(vertex)
	}
	return route, cost, nil
}

// Graph returns contracted routing graph
func (planner *RoutePlanner) Graph() *ch.Graph {
	return &planner.graph
}
