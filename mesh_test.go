package roadgeom

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func TestMeshAppend(t *testing.T) {
	mesh := Mesh{Vertices: []r3.Vector{{}, {X: 1}, {Y: 1}}, Indices: []uint32{0, 1, 2}}
	mesh.Append(Mesh{Vertices: []r3.Vector{{Z: 1}, {X: 1, Z: 1}, {Y: 1, Z: 1}}, Indices: []uint32{0, 1, 2}})
	if mesh.TrianglesNum() != 2 {
		t.Errorf("Mesh should have 2 triangles, but got %d", mesh.TrianglesNum())
	}
	correctIndices := []uint32{0, 1, 2, 3, 4, 5}
	for i, idx := range mesh.Indices {
		if idx != correctIndices[i] {
			t.Errorf("Index %d should be %d, but got %d", i, correctIndices[i], idx)
		}
	}
}

func TestConnectionMesh(t *testing.T) {
	net, _, conns := buildStraightRoad(t, 2, 0, 40)
	conn := net.Connections[conns[0]]
	samples := max(len(conn.VisualShoulderLines[SIDE_LEFT].Polyline(net.SegmentsPerTurn())), 2)
	mesh := conn.Mesh(net.SegmentsPerTurn())
	if len(mesh.Vertices) != 2*samples || mesh.TrianglesNum() != 2*(samples-1) {
		t.Errorf("Mesh should have %d vertices and %d triangles, but got %d and %d", 2*samples, 2*(samples-1), len(mesh.Vertices), mesh.TrianglesNum())
		return
	}
	first, last := mesh.Vertices[0], mesh.Vertices[len(mesh.Vertices)-1]
	if math.Abs(first.X) > testEps || math.Abs(first.Y-4) > testEps {
		t.Errorf("First vertex should be left shoulder start (0, 4), but got %v", first)
	}
	if math.Abs(last.X-40) > testEps || math.Abs(last.Y+4) > testEps {
		t.Errorf("Last vertex should be right shoulder end (40, -4), but got %v", last)
	}
	for _, idx := range mesh.Indices {
		if int(idx) >= len(mesh.Vertices) {
			t.Errorf("Index %d is out of %d vertices", idx, len(mesh.Vertices))
			return
		}
	}
}

func TestNetworkMesh(t *testing.T) {
	net, id, _ := buildTJunction(t)
	mesh := net.Mesh()
	interMesh := net.Intersections[id].Mesh(net.SegmentsPerTurn())
	correct := interMesh.TrianglesNum()
	if correct == 0 || mesh.TrianglesNum() != correct {
		t.Errorf("Network mesh should hold %d intersection triangles, but got %d", correct, mesh.TrianglesNum())
	}
}
