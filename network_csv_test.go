package roadgeom

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"
)

func TestPrepareGeometry(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 1}}
	if PrepareWKTLinestring(line) != "LINESTRING(0 0,1 1)" {
		t.Errorf("WKT should be 'LINESTRING(0 0,1 1)', but got '%s'", PrepareWKTLinestring(line))
	}
	if PrepareWKTPoint(orb.Point{1, 2}) != "POINT(1 2)" {
		t.Errorf("WKT should be 'POINT(1 2)', but got '%s'", PrepareWKTPoint(orb.Point{1, 2}))
	}
	if PrepareGeoJSONLinestring(line) != `{"type":"LineString","coordinates":[[0,0],[1,1]]}` {
		t.Errorf("GeoJSON line is wrong: '%s'", PrepareGeoJSONLinestring(line))
	}
	if PrepareGeoJSONPoint(orb.Point{1, 2}) != `{"type":"Point","coordinates":[1,2]}` {
		t.Errorf("GeoJSON point is wrong: '%s'", PrepareGeoJSONPoint(orb.Point{1, 2}))
	}
}

func TestParseGeomFormat(t *testing.T) {
	if ParseGeomFormat("GeoJSON") != GEOM_GEOJSON {
		t.Errorf("Format should be %s, but got %s", GEOM_GEOJSON, ParseGeomFormat("GeoJSON"))
	}
	if ParseGeomFormat("shapefile") != GEOM_WKT {
		t.Errorf("Unknown format should fall back to %s, but got %s", GEOM_WKT, ParseGeomFormat("shapefile"))
	}
}

func readCSV(t *testing.T, fname string) [][]string {
	file, err := os.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.Comma = ';'
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func TestExportToCSV(t *testing.T) {
	net, _, groups := buildTJunction(t)
	entry, _ := net.CreateNodeGroup(orb.Point{0, -50}, orb.Point{0, 1}, 1)
	if _, err := net.Connect(NodeSubGroup{Group: entry, Index: 0, Count: 1}, NodeSubGroup{Group: groups[0], Index: 0, Count: 1}); err != nil {
		t.Error(err)
		return
	}
	net.Update()

	fname := filepath.Join(t.TempDir(), "network.csv")
	if err := net.ExportToCSV(fname, GEOM_WKT, GeoReference{}); err != nil {
		t.Error(err)
		return
	}
	dir := filepath.Dir(fname)
	rows := readCSV(t, filepath.Join(dir, "network_groups.csv"))
	if len(rows) != len(net.Groups)+1 {
		t.Errorf("Groups file should have %d rows, but got %d", len(net.Groups)+1, len(rows))
		return
	}
	if rows[1][len(rows[1])-1] != "POINT(0 -6)" {
		t.Errorf("Group geometry should be 'POINT(0 -6)', but got '%s'", rows[1][len(rows[1])-1])
	}
	lanes := readCSV(t, filepath.Join(dir, "network_lanes.csv"))
	if len(lanes) != 2 {
		t.Errorf("Lanes file should have 2 rows, but got %d", len(lanes))
	}
	movement := readCSV(t, filepath.Join(dir, "network_movement.csv"))
	if len(movement) != len(net.Movements())+1 {
		t.Errorf("Movement file should have %d rows, but got %d", len(net.Movements())+1, len(movement))
	}
}

func TestExportGeoJSON(t *testing.T) {
	net, _, _ := buildTJunction(t)
	buf := &bytes.Buffer{}
	if err := net.ExportGeoJSON(buf, NewGeoReference(37.6, 55.7)); err != nil {
		t.Error(err)
		return
	}
	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	if err != nil {
		t.Error(err)
		return
	}
	inter := net.Intersections[net.IntersectionIDs()[0]]
	if len(fc.Features) != 2*len(inter.Edges) {
		t.Errorf("Collection should hold %d corner features, but got %d", 2*len(inter.Edges), len(fc.Features))
		return
	}
	start := fc.Features[0].Geometry.LineString[0]
	if start[0] < 37.5 || start[0] > 37.7 || start[1] < 55.6 || start[1] > 55.8 {
		t.Errorf("Coordinates should be placed around origin, but got %v", start)
	}
}
