package roadgeom

import (
	"fmt"
)

// NodeSubGroup is a contiguous lane range inside a NodeGroup
type NodeSubGroup struct {
	Group NodeGroupID
	Index int
	Count int
}

func (sub NodeSubGroup) String() string {
	return fmt.Sprintf("%d[%d:%d]", sub.Group, sub.Index, sub.End())
}

// End returns index next to the last lane of the range
func (sub NodeSubGroup) End() int {
	return sub.Index + sub.Count
}

// Contains checks if lane index lies in the range
func (sub NodeSubGroup) Contains(index int) bool {
	return index >= sub.Index && index < sub.End()
}

// GetOverlap returns number of shared lanes. Negative or zero value means no overlap.
// Ranges of different groups never overlap
func GetOverlap(a, b NodeSubGroup) int {
	if a.Group != b.Group {
		return 0
	}
	return min(a.End(), b.End()) - max(a.Index, b.Index)
}

// union returns the smallest range covering both ranges of the same group
func (sub NodeSubGroup) union(other NodeSubGroup) NodeSubGroup {
	start := min(sub.Index, other.Index)
	end := max(sub.End(), other.End())
	return NodeSubGroup{Group: sub.Group, Index: start, Count: end - start}
}

func (sub NodeSubGroup) valid(lanes int) bool {
	return sub.Count > 0 && sub.Index >= 0 && sub.End() <= lanes
}
