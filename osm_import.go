package roadgeom

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var ErrUnknownExtension = errors.New("file extension is not handled")

const (
	defaultJunctionSetback = 10.0
	defaultMinSpacing      = 2.0
	// minSegmentLength drops way pieces too short to carry lanes
	minSegmentLength = 1.0
)

type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// HighwayImporter builds lane graph out of raw OSM highways. Every way piece between
// junction nodes becomes a chain of node groups (tied pairs for two-way roads), junctions
// of three and more pieces become intersections
type HighwayImporter struct {
	logger       *logrus.Logger
	highways     map[HighwayType]struct{}
	origin       orb.Point
	setback      float64
	minSpacing   float64
	signalGreen  float64
	signalYellow float64
	hasOrigin    bool
	verbose      bool
}

func (importer *HighwayImporter) String() string {
	types := lo.Map(lo.Keys(importer.highways), func(h HighwayType, _ int) string { return h.String() })
	sort.Strings(types)
	return fmt.Sprintf(`
Highway importer parameters:
	highways: '%s'
	origin: %v
	junction_setback: %f
	min_spacing: %f
	signal timings (green/yellow): %f/%f
	`,
		strings.Join(types, ","),
		importer.origin,
		importer.setback,
		importer.minSpacing,
		importer.signalGreen,
		importer.signalYellow,
	)
}

func NewHighwayImporter(options ...func(*HighwayImporter)) *HighwayImporter {
	importer := &HighwayImporter{
		logger:       logrus.StandardLogger(),
		setback:      defaultJunctionSetback,
		minSpacing:   defaultMinSpacing,
		signalGreen:  20,
		signalYellow: 3,
	}
	for _, option := range options {
		option(importer)
	}
	if len(importer.highways) == 0 {
		importer.highways = lo.SliceToMap(drivableHighways, func(h HighwayType) (HighwayType, struct{}) { return h, struct{}{} })
	}
	return importer
}

func WithHighwayTypes(types ...HighwayType) func(*HighwayImporter) {
	return func(importer *HighwayImporter) {
		importer.highways = lo.SliceToMap(types, func(h HighwayType) (HighwayType, struct{}) { return h, struct{}{} })
	}
}

// WithImportOrigin sets lon/lat of local (0, 0). Center of imported nodes is used otherwise
func WithImportOrigin(lon, lat float64) func(*HighwayImporter) {
	return func(importer *HighwayImporter) {
		importer.origin = orb.Point{lon, lat}
		importer.hasOrigin = true
	}
}

// WithJunctionSetback sets distance between junction node and node groups around it
func WithJunctionSetback(meters float64) func(*HighwayImporter) {
	return func(importer *HighwayImporter) {
		importer.setback = meters
	}
}

func WithSignalTimings(green, yellow float64) func(*HighwayImporter) {
	return func(importer *HighwayImporter) {
		importer.signalGreen = green
		importer.signalYellow = yellow
	}
}

func WithImportLogger(logger *logrus.Logger) func(*HighwayImporter) {
	return func(importer *HighwayImporter) {
		importer.logger = logger
	}
}

func WithImportVerbose(verbose bool) func(*HighwayImporter) {
	return func(importer *HighwayImporter) {
		importer.verbose = verbose
	}
}

func newOSMScanner(ctx context.Context, r io.Reader, pbf bool) OSMScanner {
	if pbf {
		return osmpbf.New(ctx, r, 4)
	}
	return osmxml.New(ctx, r)
}

// ImportFile guesses data format by file extension: .osm/.xml or .pbf
func (importer *HighwayImporter) ImportFile(fname string, options ...func(*RoadNetwork)) (*RoadNetwork, GeoReference, error) {
	pbf := false
	switch filepath.Ext(fname) {
	case ".osm", ".xml":
	case ".pbf":
		pbf = true
	default:
		return nil, GeoReference{}, errors.Wrapf(ErrUnknownExtension, "file '%s'", fname)
	}
	file, err := os.Open(fname)
	if err != nil {
		return nil, GeoReference{}, errors.Wrap(err, "Can't open file")
	}
	defer file.Close()
	return importer.Import(context.Background(), file, pbf, options...)
}

// Import scans data twice: ways first, then coordinates of nodes used by accepted ways
func (importer *HighwayImporter) Import(ctx context.Context, r io.ReadSeeker, pbf bool, options ...func(*RoadNetwork)) (*RoadNetwork, GeoReference, error) {
	st := time.Now()
	ways, err := importer.scanWays(ctx, r, pbf)
	if err != nil {
		return nil, GeoReference{}, errors.Wrap(err, "Can't scan ways")
	}
	_, err = r.Seek(0, io.SeekStart)
	if err != nil {
		return nil, GeoReference{}, errors.Wrap(err, "Can't repeat seeking after ways scanning")
	}
	nodes, signals, err := importer.scanNodes(ctx, r, pbf, ways)
	if err != nil {
		return nil, GeoReference{}, errors.Wrap(err, "Can't scan nodes")
	}
	origin := importer.origin
	if !importer.hasOrigin && len(nodes) > 0 {
		origin = orb.MultiPoint(lo.Values(nodes)).Bound().Center()
	}
	ref := NewGeoReference(origin.Lon(), origin.Lat())
	local := make(map[osm.NodeID]orb.Point, len(nodes))
	for id, pt := range nodes {
		local[id] = ref.Local(pt)
	}

	net := NewRoadNetwork(options...)
	builder := &highwayBuilder{
		importer:  importer,
		net:       net,
		junctions: make(map[osm.NodeID]*importedJunction),
	}
	err = net.Batch(func() error {
		return builder.build(ways, local, signals)
	})
	if err != nil {
		return nil, GeoReference{}, errors.Wrap(err, "Can't build lane graph")
	}
	if importer.verbose {
		importer.logger.WithFields(logrus.Fields{
			"ways":          len(ways),
			"groups":        len(net.Groups),
			"connections":   len(net.Connections),
			"intersections": len(net.Intersections),
		}).Infof("Importing highways...Done in %v", time.Since(st))
	}
	return net, ref, nil
}

func (importer *HighwayImporter) scanWays(ctx context.Context, r io.Reader, pbf bool) ([]*highwayWay, error) {
	scanner := newOSMScanner(ctx, r, pbf)
	defer scanner.Close()
	ways := make([]*highwayWay, 0)
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if _, ok := importer.highways[getHighwayType(way.Tags.Find("highway"))]; !ok {
			continue
		}
		if len(way.Nodes) < 2 || !isAutoAccessible(way.Tags) {
			continue
		}
		ways = append(ways, newHighwayWay(way, importer.logger))
	}
	if scanner.Err() != nil {
		return nil, scanner.Err()
	}
	sort.Slice(ways, func(i, j int) bool { return ways[i].ID < ways[j].ID })
	return ways, nil
}

func (importer *HighwayImporter) scanNodes(ctx context.Context, r io.Reader, pbf bool, ways []*highwayWay) (map[osm.NodeID]orb.Point, map[osm.NodeID]struct{}, error) {
	nodesSeen := make(map[osm.NodeID]struct{})
	for _, way := range ways {
		for _, id := range way.Nodes {
			nodesSeen[id] = struct{}{}
		}
	}
	scanner := newOSMScanner(ctx, r, pbf)
	defer scanner.Close()
	nodes := make(map[osm.NodeID]orb.Point, len(nodesSeen))
	signals := make(map[osm.NodeID]struct{})
	for scanner.Scan() {
		node, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, ok := nodesSeen[node.ID]; !ok {
			continue
		}
		nodes[node.ID] = orb.Point{node.Lon, node.Lat}
		if node.Tags.Find("highway") == "traffic_signals" {
			signals[node.ID] = struct{}{}
		}
	}
	if scanner.Err() != nil {
		return nil, nil, scanner.Err()
	}
	return nodes, signals, nil
}

// importedJunction collects end groups of way pieces meeting at OSM node
type importedJunction struct {
	incoming []NodeGroupID
	outgoing []NodeGroupID
	ends     int
}

type highwayBuilder struct {
	importer  *HighwayImporter
	net       *RoadNetwork
	junctions map[osm.NodeID]*importedJunction
	// piece of every end group, turns back onto the same piece are not connected
	pieceOf map[NodeGroupID]int
	pieces  int
}

func (builder *highwayBuilder) junction(id osm.NodeID) *importedJunction {
	junction, ok := builder.junctions[id]
	if !ok {
		junction = &importedJunction{}
		builder.junctions[id] = junction
	}
	return junction
}

func (builder *highwayBuilder) build(ways []*highwayWay, nodes map[osm.NodeID]orb.Point, signals map[osm.NodeID]struct{}) error {
	builder.pieceOf = make(map[NodeGroupID]int)
	useCount := make(map[osm.NodeID]int)
	for _, way := range ways {
		for _, id := range way.Nodes {
			useCount[id]++
		}
	}
	for _, way := range ways {
		start := 0
		for i := 1; i < len(way.Nodes); i++ {
			if i != len(way.Nodes)-1 && useCount[way.Nodes[i]] < 2 {
				continue
			}
			err := builder.addPiece(way, way.Nodes[start:i+1], nodes)
			if err != nil {
				return errors.Wrapf(err, "Can't add piece of way %d", way.ID)
			}
			start = i
		}
	}

	ids := lo.Keys(builder.junctions)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		junction := builder.junctions[id]
		var err error
		switch {
		case junction.ends == 2:
			err = builder.joinPieces(junction)
		case junction.ends > 2:
			_, isSignal := signals[id]
			err = builder.addIntersection(junction, isSignal)
		}
		if err != nil {
			return errors.Wrapf(err, "Can't process junction node %d", id)
		}
	}
	return nil
}

// addPiece creates group chains along way piece trimmed by junction setback on both ends
func (builder *highwayBuilder) addPiece(way *highwayWay, nodeIDs []osm.NodeID, nodes map[osm.NodeID]orb.Point) error {
	line := make(orb.LineString, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		pt, ok := nodes[id]
		if !ok {
			builder.importer.logger.WithFields(logrus.Fields{"way": way.ID, "node": id}).Warn("Way refers to missing node, piece skipped")
			return nil
		}
		line = appendDedup(line, pt)
	}
	total := polylineLength(line)
	if len(line) < 2 || total < minSegmentLength {
		return nil
	}
	setback := min(builder.importer.setback, total/3)
	points := samplePolyline(subPolyline(line, setback, total-setback), builder.importer.minSpacing)
	if len(points) < 2 {
		return nil
	}
	directions := polylineDirections(points)

	piece := builder.pieces
	builder.pieces++
	first, last := nodeIDs[0], nodeIDs[len(nodeIDs)-1]
	forwardLanes, backwardLanes := way.directionLanes()

	forward, err := builder.addChain(points, directions, forwardLanes)
	if err != nil {
		return err
	}
	builder.junction(first).outgoing = append(builder.junction(first).outgoing, forward[0])
	builder.junction(last).incoming = append(builder.junction(last).incoming, forward[len(forward)-1])
	builder.junction(first).ends++
	builder.junction(last).ends++
	builder.pieceOf[forward[0]] = piece
	builder.pieceOf[forward[len(forward)-1]] = piece
	if backwardLanes <= 0 {
		return nil
	}

	reversedPoints := lo.Reverse(append([]orb.Point{}, points...))
	reversedDirections := lo.Map(lo.Reverse(append([]orb.Point{}, directions...)), func(dir orb.Point, _ int) orb.Point { return scale(dir, -1) })
	backward, err := builder.addChain(reversedPoints, reversedDirections, backwardLanes)
	if err != nil {
		return err
	}
	builder.junction(last).outgoing = append(builder.junction(last).outgoing, backward[0])
	builder.junction(first).incoming = append(builder.junction(first).incoming, backward[len(backward)-1])
	builder.pieceOf[backward[0]] = piece
	builder.pieceOf[backward[len(backward)-1]] = piece
	for i, groupID := range forward {
		_, err := builder.net.Tie(groupID, backward[len(backward)-1-i], 0)
		if err != nil {
			return errors.Wrap(err, "Can't tie carriageways")
		}
	}
	return nil
}

func (builder *highwayBuilder) addChain(points, directions []orb.Point, lanes int) ([]NodeGroupID, error) {
	chain := make([]NodeGroupID, 0, len(points))
	for i, pt := range points {
		id, err := builder.net.CreateNodeGroup(pt, directions[i], lanes)
		if err != nil {
			return nil, err
		}
		if len(chain) > 0 {
			prev := chain[len(chain)-1]
			_, err = builder.net.Connect(NodeSubGroup{Group: prev, Index: 0, Count: lanes}, NodeSubGroup{Group: id, Index: 0, Count: lanes})
			if err != nil {
				return nil, err
			}
		}
		chain = append(chain, id)
	}
	return chain, nil
}

// joinPieces connects pieces continuing each other at a node of two way ends
func (builder *highwayBuilder) joinPieces(junction *importedJunction) error {
	for _, in := range junction.incoming {
		for _, out := range junction.outgoing {
			if builder.pieceOf[in] == builder.pieceOf[out] {
				continue
			}
			inGroup, outGroup := builder.net.Groups[in], builder.net.Groups[out]
			_, err := builder.net.Connect(
				NodeSubGroup{Group: in, Index: 0, Count: inGroup.LanesNum()},
				NodeSubGroup{Group: out, Index: 0, Count: outGroup.LanesNum()},
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// addIntersection makes junction of end groups; signal nodes give every approach own phase
func (builder *highwayBuilder) addIntersection(junction *importedJunction, isSignal bool) error {
	groups := append(append([]NodeGroupID{}, junction.incoming...), junction.outgoing...)
	id, err := builder.net.CreateIntersection(groups)
	if err != nil {
		return err
	}
	if !isSignal || len(junction.incoming) < 2 {
		return nil
	}
	program := &FixedCycleProgram{Phases: make([]SignalPhase, 0, len(junction.incoming))}
	for _, groupID := range junction.incoming {
		program.Phases = append(program.Phases, SignalPhase{
			Groups: []NodeGroupID{groupID},
			Green:  builder.importer.signalGreen,
			Yellow: builder.importer.signalYellow,
		})
	}
	return builder.net.SetTrafficLight(id, program)
}

func polylineLength(line orb.LineString) float64 {
	total := 0.0
	for i := 1; i < len(line); i++ {
		total += findDistance(line[i-1], line[i])
	}
	return total
}

// subPolyline cuts part of line between two distances from its start
func subPolyline(line orb.LineString, from, to float64) orb.LineString {
	part := make(orb.LineString, 0, len(line))
	acc := 0.0
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		l := findDistance(a, b)
		if l < pointLengthEps {
			continue
		}
		if acc+l >= from && acc <= to {
			start := lerp(a, b, max(0, (from-acc)/l))
			end := lerp(a, b, min(1, (to-acc)/l))
			part = appendDedup(part, start)
			part = appendDedup(part, end)
		}
		acc += l
	}
	return part
}

// samplePolyline keeps both ends and inner vertices not closer than spacing to kept ones
func samplePolyline(line orb.LineString, spacing float64) []orb.Point {
	if len(line) < 2 {
		return line
	}
	points := []orb.Point{line[0]}
	for _, pt := range line[1 : len(line)-1] {
		if findDistance(points[len(points)-1], pt) >= spacing && findDistance(pt, line[len(line)-1]) >= spacing {
			points = append(points, pt)
		}
	}
	return append(points, line[len(line)-1])
}

// polylineDirections returns edge directions at ends and bisectors at inner vertices
func polylineDirections(points []orb.Point) []orb.Point {
	directions := make([]orb.Point, len(points))
	for i := range points {
		prev, next := max(0, i-1), min(len(points)-1, i+1)
		directions[i] = normalize(sub(points[next], points[prev]))
	}
	return directions
}
