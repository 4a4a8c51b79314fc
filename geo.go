package roadgeom

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	earthR = 20037508.34
)

func epsg3857To4326(x, y float64) (float64, float64) {
	lon := x * 180 / earthR
	lat := math.Atan(math.Exp(y*math.Pi/earthR))*360/math.Pi - 90
	return lon, lat
}

func epsg4326To3857(lon, lat float64) (float64, float64) {
	x := lon * earthR / 180
	y := math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180)
	y = y * earthR / 180
	return x, y
}

// GeoReference places local metric frame on the globe: local (0, 0) is Origin (lon, lat).
// Zero value keeps local coordinates as they are
type GeoReference struct {
	Origin  orb.Point
	Enabled bool
}

func NewGeoReference(lon, lat float64) GeoReference {
	return GeoReference{Origin: orb.Point{lon, lat}, Enabled: true}
}

// Point converts local point into lon/lat
func (ref GeoReference) Point(pt orb.Point) orb.Point {
	if !ref.Enabled {
		return pt
	}
	x0, y0 := epsg4326To3857(ref.Origin.Lon(), ref.Origin.Lat())
	// mercator stretches distances by 1/cos(lat)
	k := 1 / math.Cos(ref.Origin.Lat()*math.Pi/180)
	lon, lat := epsg3857To4326(x0+pt[0]*k, y0+pt[1]*k)
	return orb.Point{lon, lat}
}

// Local converts lon/lat point into local metric frame. Inverse of Point
func (ref GeoReference) Local(pt orb.Point) orb.Point {
	if !ref.Enabled {
		return pt
	}
	x0, y0 := epsg4326To3857(ref.Origin.Lon(), ref.Origin.Lat())
	x, y := epsg4326To3857(pt.Lon(), pt.Lat())
	k := 1 / math.Cos(ref.Origin.Lat()*math.Pi/180)
	return orb.Point{(x - x0) / k, (y - y0) / k}
}

// LineString converts local line into lon/lat
func (ref GeoReference) LineString(line orb.LineString) orb.LineString {
	newLine := make(orb.LineString, len(line))
	for i, pt := range line {
		newLine[i] = ref.Point(pt)
	}
	return newLine
}
