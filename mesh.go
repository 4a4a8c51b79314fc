package roadgeom

import (
	"github.com/golang/geo/r3"
)

// Mesh is triangle list: every three indices make one triangle
type Mesh struct {
	Vertices []r3.Vector
	Indices  []uint32
}

// Append merges other mesh into this one
func (mesh *Mesh) Append(other Mesh) {
	base := uint32(len(mesh.Vertices))
	mesh.Vertices = append(mesh.Vertices, other.Vertices...)
	for _, idx := range other.Indices {
		mesh.Indices = append(mesh.Indices, base+idx)
	}
}

// TrianglesNum returns number of triangles
func (mesh *Mesh) TrianglesNum() int {
	return len(mesh.Indices) / 3
}

// stripMesh triangulates band between two lines sampled at equal length fractions
func stripMesh(left, right RoadCurveLine, segmentsPerTurn int) Mesh {
	samples := max(len(left.Polyline(segmentsPerTurn)), len(right.Polyline(segmentsPerTurn)), 2)
	mesh := Mesh{
		Vertices: make([]r3.Vector, 0, 2*samples),
		Indices:  make([]uint32, 0, 6*(samples-1)),
	}
	for i := 0; i < samples; i++ {
		t := float64(i) / float64(samples-1)
		mesh.Vertices = append(mesh.Vertices, left.GetPoint(t*left.Length()), right.GetPoint(t*right.Length()))
	}
	for i := 0; i < samples-1; i++ {
		l0, r0 := uint32(2*i), uint32(2*i+1)
		l1, r1 := l0+2, r0+2
		mesh.Indices = append(mesh.Indices, l0, r0, l1, l1, r0, r1)
	}
	return mesh
}

// Mesh triangulates road surface between visual shoulders
func (conn *NodeGroupConnection) Mesh(segmentsPerTurn int) Mesh {
	return stripMesh(conn.VisualShoulderLines[SIDE_LEFT], conn.VisualShoulderLines[SIDE_RIGHT], segmentsPerTurn)
}

// Mesh triangulates shoulder bands of intersection corners
func (inter *RoadIntersection) Mesh(segmentsPerTurn int) Mesh {
	mesh := Mesh{}
	for _, edge := range inter.Edges {
		mesh.Append(stripMesh(edge.Outer, edge.Inner, segmentsPerTurn))
	}
	return mesh
}

// Mesh merges surfaces of every connection and intersection
func (net *RoadNetwork) Mesh() Mesh {
	mesh := Mesh{}
	for _, id := range net.ConnectionIDs() {
		mesh.Append(net.Connections[id].Mesh(net.segmentsPerTurn))
	}
	for _, id := range net.IntersectionIDs() {
		mesh.Append(net.Intersections[id].Mesh(net.segmentsPerTurn))
	}
	return mesh
}
