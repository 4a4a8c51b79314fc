package roadgeom

import (
	"regexp"
	"strconv"

	"github.com/paulmach/osm"
	"github.com/sirupsen/logrus"
)

var lanesRegExp = regexp.MustCompile(`\d+`)

var (
	// See ref.: https://wiki.openstreetmap.org/wiki/Tag:oneway%3Dreversible
	onewayReversible = map[string]struct{}{
		"reversible":  {},
		"alternating": {},
	}

	junctionTypes = map[string]struct{}{
		"circular":   {},
		"roundabout": {},
	}

	// autoAccessExclude lists tag values closing the way for cars
	autoAccessExclude = map[string]map[string]struct{}{
		"motor_vehicle": {"no": {}},
		"motorcar":      {"no": {}},
		"access":        {"no": {}, "private": {}},
		"area":          {"yes": {}},
		"service": {
			"parking":          {},
			"parking_aisle":    {},
			"driveway":         {},
			"private":          {},
			"emergency_access": {},
		},
	}
)

// highwayWay is OSM way prepared for lane graph import. Nodes always follow travel direction
// of forward lanes, ways tagged as "oneway=-1" are reversed
type highwayWay struct {
	Nodes         []osm.NodeID
	ID            osm.WayID
	Highway       HighwayType
	lanes         int
	lanesForward  int
	lanesBackward int
	Oneway        bool
}

func newHighwayWay(way *osm.Way, logger *logrus.Logger) *highwayWay {
	prepared := &highwayWay{
		Nodes:         make([]osm.NodeID, 0, len(way.Nodes)),
		ID:            way.ID,
		Highway:       getHighwayType(way.Tags.Find("highway")),
		lanes:         parseLanes(way.Tags.Find("lanes")),
		lanesForward:  parseLanes(way.Tags.Find("lanes:forward")),
		lanesBackward: parseLanes(way.Tags.Find("lanes:backward")),
	}
	isReversed := false
	onewayText := way.Tags.Find("oneway")
	switch onewayText {
	case "yes", "1", "true":
		prepared.Oneway = true
	case "no", "0", "false":
		prepared.Oneway = false
	case "-1":
		prepared.Oneway = true
		isReversed = true
	case "":
		if _, ok := junctionTypes[way.Tags.Find("junction")]; ok {
			prepared.Oneway = true
		} else {
			prepared.Oneway = onewayDefaultByHighway[prepared.Highway]
		}
	default:
		// Time dependent values are treated as two-way roads
		if _, ok := onewayReversible[onewayText]; !ok {
			logger.WithFields(logrus.Fields{"way": way.ID, "oneway": onewayText}).Warn("Unhandled `oneway` tag value")
		}
	}
	for _, node := range way.Nodes {
		prepared.Nodes = append(prepared.Nodes, node.ID)
	}
	if isReversed {
		for i, j := 0, len(prepared.Nodes)-1; i < j; i, j = i+1, j-1 {
			prepared.Nodes[i], prepared.Nodes[j] = prepared.Nodes[j], prepared.Nodes[i]
		}
	}
	return prepared
}

// parseLanes returns first integer of lanes tag or -1
func parseLanes(text string) int {
	lanesNum := lanesRegExp.FindString(text)
	if lanesNum == "" {
		return -1
	}
	lanes, err := strconv.Atoi(lanesNum)
	if err != nil {
		return -1
	}
	return lanes
}

// isAutoAccessible checks access tags of the way for car traffic
func isAutoAccessible(tags osm.Tags) bool {
	for key, values := range autoAccessExclude {
		if _, ok := values[tags.Find(key)]; ok {
			return false
		}
	}
	return true
}

// directionLanes returns lanes count along and against node order. Total lanes of a two-way
// road are shared between directions, remainder goes forward
func (way *highwayWay) directionLanes() (int, int) {
	def := defaultLanesByHighway[way.Highway]
	if def <= 0 {
		def = 1
	}
	if way.Oneway {
		switch {
		case way.lanes > 0:
			return way.lanes, 0
		case way.lanesForward > 0:
			return way.lanesForward, 0
		default:
			return def, 0
		}
	}
	forward, backward := way.lanesForward, way.lanesBackward
	if way.lanes > 0 {
		switch {
		case forward <= 0 && backward <= 0:
			backward = max(1, way.lanes/2)
			forward = max(1, way.lanes-backward)
		case forward <= 0:
			forward = max(1, way.lanes-backward)
		case backward <= 0:
			backward = max(1, way.lanes-forward)
		}
	}
	if forward <= 0 {
		forward = def
	}
	if backward <= 0 {
		backward = def
	}
	return forward, backward
}
