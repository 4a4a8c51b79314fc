package roadgeom

import (
	"fmt"
	"io"

	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// PrepareGeoJSONLinestring returns GeoJSON representation of LineString
func PrepareGeoJSONLinestring(line orb.LineString) string {
	b, err := geojson.NewLineStringGeometry(lineToCoordinates(line)).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// PrepareGeoJSONPoint returns GeoJSON representation of Point
func PrepareGeoJSONPoint(pt orb.Point) string {
	b, err := geojson.NewPointGeometry([]float64{pt[0], pt[1]}).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

func lineToCoordinates(line orb.LineString) [][]float64 {
	pts2d := make([][]float64, len(line))
	for i := range line {
		pts2d[i] = []float64{line[i][0], line[i][1]}
	}
	return pts2d
}

// ToGeoJSON collects lane lines, shoulders and intersection corners as features
func (net *RoadNetwork) ToGeoJSON(ref GeoReference) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	addLine := func(line orb.LineString, props map[string]interface{}) {
		if len(line) < 2 {
			return
		}
		feature := geojson.NewLineStringFeature(lineToCoordinates(ref.LineString(line)))
		for key, value := range props {
			feature.SetProperty(key, value)
		}
		fc.AddFeature(feature)
	}
	for _, id := range net.ConnectionIDs() {
		conn := net.Connections[id]
		for k, lane := range conn.LaneLines {
			addLine(lane.Polyline(net.segmentsPerTurn), map[string]interface{}{"kind": "lane", "connection": int(id), "lane": k})
		}
		for side, shoulder := range conn.VisualShoulderLines {
			addLine(shoulder.Polyline(net.segmentsPerTurn), map[string]interface{}{"kind": "shoulder", "connection": int(id), "side": LaneSide(side).String()})
		}
	}
	for _, id := range net.IntersectionIDs() {
		inter := net.Intersections[id]
		for i, edge := range inter.Edges {
			props := map[string]interface{}{"intersection": int(id), "edge": i, "fallback": edge.Fallback}
			outer := map[string]interface{}{"kind": "corner_outer"}
			inner := map[string]interface{}{"kind": "corner_inner"}
			for key, value := range props {
				outer[key] = value
				inner[key] = value
			}
			addLine(edge.Outer.Polyline(net.segmentsPerTurn), outer)
			addLine(edge.Inner.Polyline(net.segmentsPerTurn), inner)
		}
	}
	return fc
}

// ExportGeoJSON writes network feature collection
func (net *RoadNetwork) ExportGeoJSON(w io.Writer, ref GeoReference) error {
	b, err := net.ToGeoJSON(ref).MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Can't marshal feature collection")
	}
	_, err = w.Write(b)
	if err != nil {
		return errors.Wrap(err, "Can't write feature collection")
	}
	return nil
}
