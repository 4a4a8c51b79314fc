package roadgeom

import (
	"github.com/paulmach/orb"
)

// NodeGroupTie binds two opposite-direction groups into one carriageway.
// Position is the median center, Direction is the travel direction of Groups[0]
type NodeGroupTie struct {
	Groups      [2]NodeGroupID
	Position    orb.Point
	Direction   orb.Point
	MedianWidth float64
	ID          TieID
}

// UpdateGeometry derives positions of both tied groups. Left edges of the groups face the median
func (tie *NodeGroupTie) UpdateGeometry(first, second *NodeGroup) {
	dir := normalize(tie.Direction)
	right := rightNormal(dir)
	half := tie.MedianWidth / 2

	first.Direction = dir
	first.Position = add(tie.Position, scale(right, half+first.Width()/2))
	first.UpdateGeometry()

	second.Direction = scale(dir, -1)
	second.Position = sub(tie.Position, scale(right, half+second.Width()/2))
	second.UpdateGeometry()
}

// Other returns group tied with given one
func (tie *NodeGroupTie) Other(group NodeGroupID) NodeGroupID {
	if tie.Groups[0] == group {
		return tie.Groups[1]
	}
	if tie.Groups[1] == group {
		return tie.Groups[0]
	}
	return -1
}
