package roadgeom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

type MovementID int

// Movement is a turn through intersection from INPUT group lane to OUTPUT group lane
type Movement struct {
	Geom          orb.LineString
	ID            MovementID
	Intersection  IntersectionID
	From          NodeRef
	To            NodeRef
	Type          MovementType
	CompositeType MovementCompositeType
}

// movementBetweenDirections classifies turn by approach heading and heading change
func movementBetweenDirections(in, out orb.Point) (MovementCompositeType, MovementType) {
	var bound int
	angle1 := math.Atan2(in[1], in[0])
	if -0.75*math.Pi <= angle1 && angle1 < -0.25*math.Pi {
		bound = 0 // SB
	} else if -0.25*math.Pi <= angle1 && angle1 < 0.25*math.Pi {
		bound = 1 // EB
	} else if 0.25*math.Pi <= angle1 && angle1 < 0.75*math.Pi {
		bound = 2 // NB
	} else {
		bound = 3 // WB
	}

	angleDiff := angleBetweenDirections(in, out)

	var movementType MovementType
	if -0.25*math.Pi <= angleDiff && angleDiff <= 0.25*math.Pi {
		movementType = MOVEMENT_THRU
	} else if angleDiff < -0.25*math.Pi {
		movementType = MOVEMENT_RIGHT
	} else if angleDiff <= 0.75*math.Pi {
		movementType = MOVEMENT_LEFT
	} else {
		movementType = MOVEMENT_U_TURN
	}
	return MovementCompositeType(bound*4 + int(movementType)), movementType
}

// targetLane picks lane of output group for given movement: right turns go to the
// right-most lane, left turns and U-turns to the left-most one, through traffic keeps index
func targetLane(movement MovementType, fromIndex, lanes int) int {
	switch movement {
	case MOVEMENT_RIGHT:
		return lanes - 1
	case MOVEMENT_LEFT, MOVEMENT_U_TURN:
		return 0
	default:
		return max(0, min(fromIndex, lanes-1))
	}
}

type MovementType uint16

const (
	MOVEMENT_THRU = MovementType(iota + 1)
	MOVEMENT_RIGHT
	MOVEMENT_LEFT
	MOVEMENT_U_TURN

	MOVEMENT_UNDEFINED = MovementType(0)
)

func (iotaIdx MovementType) String() string {
	return [...]string{"undefined", "thru", "right", "left", "uturn"}[iotaIdx]
}

type MovementCompositeType uint16

const (
	MOVEMENT_SBT = MovementCompositeType(iota + 1)
	MOVEMENT_SBR
	MOVEMENT_SBL
	MOVEMENT_SBU
	MOVEMENT_EBT
	MOVEMENT_EBR
	MOVEMENT_EBL
	MOVEMENT_EBU
	MOVEMENT_NBT
	MOVEMENT_NBR
	MOVEMENT_NBL
	MOVEMENT_NBU
	MOVEMENT_WBT
	MOVEMENT_WBR
	MOVEMENT_WBL
	MOVEMENT_WBU
	MOVEMENT_NONE = MovementCompositeType(0)
)

func (iotaIdx MovementCompositeType) String() string {
	return [...]string{"undefined", "SBT", "SBR", "SBL", "SBU", "EBT", "EBR", "EBL", "EBU", "NBT", "NBR", "NBL", "NBU", "WBT", "WBR", "WBL", "WBU"}[iotaIdx]
}

// turnLine builds drivable curve from lane center of an INPUT group to lane center of an OUTPUT group
func turnLine(from, to *NodeGroup, fromIndex, toIndex int) RoadCurveLine {
	a, b := from.Nodes[fromIndex], to.Nodes[toIndex]
	pair := Interpolate(a.Position, from.Direction, b.Position, to.Direction)
	return NewRoadCurveLine(pair, from.Height, to.Height, from.Slope, to.Slope)
}

// turnTargets returns OUTPUT points reachable from given INPUT group of the intersection
func (inter *RoadIntersection) turnTargets(from *NodeGroup) []IntersectionPoint {
	idx := inter.PointIndex(from.ID)
	if idx < 0 || inter.Points[idx].Type != INTERSECTION_INPUT {
		return nil
	}
	targets := make([]IntersectionPoint, 0, len(inter.Points))
	for _, pt := range inter.Points {
		if pt.Type != INTERSECTION_OUTPUT || pt.Group == from.ID || pt.Group == from.Twin {
			continue
		}
		targets = append(targets, pt)
	}
	return targets
}

// laneAllowsMovement tells if lane of a group with given number of lanes may make the
// movement. Right turns leave from the right-most lane, left turns and U-turns from the
// left-most one. Without through exit lanes are shared between left and right halves
func laneAllowsMovement(movement MovementType, lane, lanes int, hasThru bool) bool {
	if lanes <= 1 {
		return true
	}
	switch movement {
	case MOVEMENT_RIGHT:
		if hasThru {
			return lane == lanes-1
		}
		return 2*lane >= lanes
	case MOVEMENT_LEFT, MOVEMENT_U_TURN:
		if hasThru {
			return lane == 0
		}
		return 2*lane < lanes
	default:
		return true
	}
}

// laneTargets returns indices of targets every lane of INPUT group may turn to. A lane
// allowed to make no movement may use any target
func laneTargets(from *NodeGroup, targets []*NodeGroup) [][]int {
	movements := make([]MovementType, len(targets))
	hasThru := false
	for i, to := range targets {
		_, movements[i] = movementBetweenDirections(from.Direction, to.Direction)
		hasThru = hasThru || movements[i] == MOVEMENT_THRU
	}
	allowed := make([][]int, from.LanesNum())
	for lane := range allowed {
		for i, movement := range movements {
			if laneAllowsMovement(movement, lane, from.LanesNum(), hasThru) {
				allowed[lane] = append(allowed[lane], i)
			}
		}
		if len(allowed[lane]) == 0 {
			allowed[lane] = lo.Range(len(targets))
		}
	}
	return allowed
}

// turnGroups resolves groups of turn targets skipping deleted ones
func (net *RoadNetwork) turnGroups(targets []IntersectionPoint) []*NodeGroup {
	groups := make([]*NodeGroup, 0, len(targets))
	for _, target := range targets {
		if to, ok := net.Groups[target.Group]; ok {
			groups = append(groups, to)
		}
	}
	return groups
}

// Movements lists every lane-to-lane turn of every intersection
func (net *RoadNetwork) Movements() []Movement {
	movements := make([]Movement, 0)
	mvmtID := MovementID(0)
	for _, interID := range net.IntersectionIDs() {
		inter := net.Intersections[interID]
		for _, pt := range inter.Points {
			from, ok := net.Groups[pt.Group]
			if !ok {
				continue
			}
			targets := net.turnGroups(inter.turnTargets(from))
			allowed := laneTargets(from, targets)
			for i, to := range targets {
				composite, movementType := movementBetweenDirections(from.Direction, to.Direction)
				for lane := 0; lane < from.LanesNum(); lane++ {
					if !lo.Contains(allowed[lane], i) {
						continue
					}
					toLane := targetLane(movementType, lane, to.LanesNum())
					movements = append(movements, Movement{
						Geom:          turnLine(from, to, lane, toLane).Polyline(net.segmentsPerTurn),
						ID:            mvmtID,
						Intersection:  interID,
						From:          NodeRef{Group: from.ID, Index: lane},
						To:            NodeRef{Group: to.ID, Index: toLane},
						Type:          movementType,
						CompositeType: composite,
					})
					mvmtID++
				}
			}
		}
	}
	return movements
}
