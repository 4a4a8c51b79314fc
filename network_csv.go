package roadgeom

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

type GeomFormat uint16

const (
	GEOM_WKT = GeomFormat(iota + 1)
	GEOM_GEOJSON
)

func (iotaIdx GeomFormat) String() string {
	return [...]string{"wkt", "geojson"}[iotaIdx-1]
}

// ParseGeomFormat accepts "wkt" or "geojson"; anything else is WKT
func ParseGeomFormat(s string) GeomFormat {
	if strings.ToLower(s) == "geojson" {
		return GEOM_GEOJSON
	}
	return GEOM_WKT
}

func (iotaIdx GeomFormat) line(line orb.LineString) string {
	if iotaIdx == GEOM_GEOJSON {
		return PrepareGeoJSONLinestring(line)
	}
	return PrepareWKTLinestring(line)
}

func (iotaIdx GeomFormat) point(pt orb.Point) string {
	if iotaIdx == GEOM_GEOJSON {
		return PrepareGeoJSONPoint(pt)
	}
	return PrepareWKTPoint(pt)
}

// ExportToCSV writes groups, lane strips and movements into three ';'-separated files
func (net *RoadNetwork) ExportToCSV(fname string, format GeomFormat, ref GeoReference) error {
	fnameParts := strings.Split(fname, ".csv")
	fnameGroups := fnameParts[0] + "_groups.csv"
	fnameLanes := fnameParts[0] + "_lanes.csv"
	fnameMovement := fnameParts[0] + "_movement.csv"

	err := net.exportGroupsToCSV(fnameGroups, format, ref)
	if err != nil {
		return errors.Wrap(err, "Can't export groups")
	}

	err = net.exportLanesToCSV(fnameLanes, format, ref)
	if err != nil {
		return errors.Wrap(err, "Can't export lanes")
	}

	err = net.exportMovementToCSV(fnameMovement, format, ref)
	if err != nil {
		return errors.Wrap(err, "Can't export movement")
	}

	return nil
}

func (net *RoadNetwork) exportGroupsToCSV(fname string, format GeomFormat, ref GeoReference) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "lanes", "width", "height", "slope", "twin_id", "tie_id", "intersection_id", "dir_x", "dir_y", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, id := range net.GroupIDs() {
		group := net.Groups[id]
		err = writer.Write([]string{
			fmt.Sprintf("%d", group.ID),
			fmt.Sprintf("%d", group.LanesNum()),
			fmt.Sprintf("%f", group.Width()),
			fmt.Sprintf("%f", group.Height),
			fmt.Sprintf("%f", group.Slope),
			fmt.Sprintf("%d", group.Twin),
			fmt.Sprintf("%d", group.Tie),
			fmt.Sprintf("%d", group.Intersection),
			fmt.Sprintf("%f", group.Direction[0]),
			fmt.Sprintf("%f", group.Direction[1]),
			format.point(ref.Point(group.Position)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write group")
		}
	}
	return nil
}

func (net *RoadNetwork) exportLanesToCSV(fname string, format GeomFormat, ref GeoReference) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"connection_id", "strip", "source_group", "source_lane", "target_group", "target_lane", "twin_id", "lane_split", "length", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, id := range net.ConnectionIDs() {
		conn := net.Connections[id]
		for k, lane := range conn.LaneLines {
			err = writer.Write([]string{
				fmt.Sprintf("%d", conn.ID),
				fmt.Sprintf("%d", k),
				fmt.Sprintf("%d", conn.Input.Group),
				fmt.Sprintf("%d", conn.InputLane(k)),
				fmt.Sprintf("%d", conn.Output.Group),
				fmt.Sprintf("%d", conn.OutputLane(k)),
				fmt.Sprintf("%d", conn.Twin),
				formatInts(conn.LaneSplit),
				fmt.Sprintf("%f", lane.Length()),
				format.line(ref.LineString(lane.Polyline(net.segmentsPerTurn))),
			})
			if err != nil {
				return errors.Wrap(err, "Can't write lane")
			}
		}
	}
	return nil
}

func (net *RoadNetwork) exportMovementToCSV(fname string, format GeomFormat, ref GeoReference) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "intersection_id", "in_group", "in_lane", "out_group", "out_lane", "type", "movement_composite_type", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, mvmt := range net.Movements() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", mvmt.ID),
			fmt.Sprintf("%d", mvmt.Intersection),
			fmt.Sprintf("%d", mvmt.From.Group),
			fmt.Sprintf("%d", mvmt.From.Index),
			fmt.Sprintf("%d", mvmt.To.Group),
			fmt.Sprintf("%d", mvmt.To.Index),
			fmt.Sprintf("%s", mvmt.Type),
			fmt.Sprintf("%s", mvmt.CompositeType),
			format.line(ref.LineString(mvmt.Geom)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write movement")
		}
	}
	return nil
}
