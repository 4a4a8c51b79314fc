package roadgeom

import (
	"sort"

	"github.com/paulmach/orb"
)

// arcPairsOrder is the order in which halves of two pairs are tested for intersection.
// The joints are the usual overlap location so second halves go first
var arcPairsOrder = [4][2]int{{1, 1}, {0, 1}, {1, 0}, {0, 0}}

// IntersectArcPairs returns first found intersection of two biarc pairs and distances to it
// along each pair
func IntersectArcPairs(a, b BiarcPair) (orb.Point, float64, float64, bool) {
	for _, order := range arcPairsOrder {
		pt, da, db, ok := IntersectArcs(a.Arcs[order[0]], b.Arcs[order[1]])
		if !ok {
			continue
		}
		if order[0] == 1 {
			da += a.Arcs[0].Length
		}
		if order[1] == 1 {
			db += b.Arcs[0].Length
		}
		return pt, da, db, true
	}
	return orb.Point{}, 0, 0, false
}

// sharedSubGroup returns connection's range on the shared side
func (conn *NodeGroupConnection) sharedSubGroup(io IOType) NodeSubGroup {
	if io == IO_INPUT {
		return conn.Input
	}
	return conn.Output
}

// resolveSeams clips shoulders of sibling connections sharing given group on the given side.
// Siblings are taken by shared lane index, equal ones in group list order.
// Returns number of overlapping pairs left unclipped
func resolveSeams(group *NodeGroup, connections map[ConnectionID]*NodeGroupConnection, io IOType) int {
	ids := group.Outputs
	if io == IO_OUTPUT {
		ids = group.Inputs
	}
	siblings := make([]*NodeGroupConnection, 0, len(ids))
	for _, id := range ids {
		if conn, ok := connections[id]; ok {
			siblings = append(siblings, conn)
		}
	}
	sort.SliceStable(siblings, func(i, j int) bool {
		return siblings[i].sharedSubGroup(io).Index < siblings[j].sharedSubGroup(io).Index
	})

	unresolved := 0
	for i := 0; i < len(siblings); i++ {
		for j := i + 1; j < len(siblings); j++ {
			left, right := siblings[i], siblings[j]
			if GetOverlap(left.sharedSubGroup(io), right.sharedSubGroup(io)) <= 0 {
				continue
			}
			if !clipSeam(left, right, io) {
				unresolved++
			}
		}
	}
	return unresolved
}

// clipSeam intersects right shoulder of the left sibling with left shoulder of the right one.
// Parts lying over the shared group are moved to seams
func clipSeam(left, right *NodeGroupConnection, io IOType) bool {
	a := left.VisualShoulderLines[SIDE_RIGHT]
	b := right.VisualShoulderLines[SIDE_LEFT]
	_, da, db, ok := IntersectArcPairs(a.Horizontal, b.Horizontal)
	if !ok {
		return false
	}
	height := a.Vertical.GetHeight(da)
	slope := a.Vertical.GetSlope(da)
	if io == IO_INPUT {
		left.Seams[io][SIDE_RIGHT] = append(left.Seams[io][SIDE_RIGHT], a.ClipEnd(da))
		right.Seams[io][SIDE_LEFT] = append(right.Seams[io][SIDE_LEFT], b.ClipEnd(db))
		left.VisualShoulderLines[SIDE_RIGHT] = a.ClipStart(da)
		right.VisualShoulderLines[SIDE_LEFT] = b.ClipStart(db).WithStartProfile(height, slope)
		return true
	}
	left.Seams[io][SIDE_RIGHT] = append(left.Seams[io][SIDE_RIGHT], a.ClipStart(da))
	right.Seams[io][SIDE_LEFT] = append(right.Seams[io][SIDE_LEFT], b.ClipStart(db))
	left.VisualShoulderLines[SIDE_RIGHT] = a.ClipEnd(da)
	right.VisualShoulderLines[SIDE_LEFT] = b.ClipEnd(db).WithEndProfile(height, slope)
	return true
}
