package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/LdDl/roadgeom"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	lanesNum      = flag.Int("lanes", 2, "Number of lanes in each direction of every crossroad arm")
	armLength     = flag.Float64("arm", 120.0, "Length of every crossroad arm (meters)")
	segments      = flag.Int("segments", 16, "Number of polyline segments per full turn of an arc")
	driversNum    = flag.Int("drivers", 8, "Number of drivers spawned on incoming lanes")
	ticks         = flag.Int("ticks", 600, "Number of simulation steps")
	dt            = flag.Float64("dt", 0.1, "Simulation step (seconds)")
	seed          = flag.Int64("seed", 1, "Seed of random lane choices")
	osmIn         = flag.String("osm", "", "Filename of *.osm (XML) file with saved network. If empty then demo crossroad is built")
	importIn      = flag.String("import", "", "Filename of raw OpenStreetMap data (*.osm / *.pbf) to build network from highways. Overrides 'osm' and 'origin' flags")
	setback       = flag.Float64("setback", 10.0, "Distance between imported junction node and road ends (meters)")
	out           = flag.String("out", "my_network.csv", "Filename of 'Comma-Separated Values' (CSV) formatted file. E.g.: if file name is 'map.csv' then 4 files will be produced: 'map_groups.csv', 'map_lanes.csv', 'map_movement.csv', 'map_trace.csv'")
	geomFormat    = flag.String("geomf", "wkt", "Format of output geometry. Expected values: wkt / geojson")
	geojsonOut    = flag.String("geojson", "", "Filename of GeoJSON file with lane, shoulder and corner lines. Empty to skip")
	osmOut        = flag.String("save", "", "Filename of *.osm (XML) file to save network into. Empty to skip")
	doContraction = flag.Bool("contract", true, "Prepare contraction hierarchies and route drivers to random exits?")
	geoOrigin     = flag.String("origin", "", "Longitude and latitude (separated by comma) to place local meters onto map. Empty to keep local coordinates")
	verbose       = flag.Bool("verbose", false, "Print every network update phase")
)

func main() {

	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	options := []func(*roadgeom.RoadNetwork){
		roadgeom.WithSegmentsPerTurn(*segments),
		roadgeom.WithVerbose(*verbose),
		roadgeom.WithLogger(logger),
	}

	ref, err := parseOrigin(*geoOrigin)
	if err != nil {
		fmt.Println(err)
		return
	}

	var net *roadgeom.RoadNetwork
	switch {
	case *importIn != "":
		importOptions := []func(*roadgeom.HighwayImporter){
			roadgeom.WithJunctionSetback(*setback),
			roadgeom.WithImportLogger(logger),
			roadgeom.WithImportVerbose(*verbose),
		}
		if ref.Enabled {
			importOptions = append(importOptions, roadgeom.WithImportOrigin(ref.Origin.Lon(), ref.Origin.Lat()))
		}
		importer := roadgeom.NewHighwayImporter(importOptions...)
		if *verbose {
			fmt.Println(importer)
		}
		net, ref, err = importer.ImportFile(*importIn, options...)
	case *osmIn != "":
		net, err = roadgeom.LoadOSMFile(*osmIn, options...)
	default:
		net, err = buildCrossroad(*lanesNum, *armLength, options...)
	}
	if err != nil {
		fmt.Println(err)
		return
	}
	net.Update()
	fmt.Println(net)

	systemOptions := []func(*roadgeom.DrivingSystem){
		roadgeom.WithSeed(*seed),
		roadgeom.WithSystemLogger(logger),
	}
	if *doContraction {
		fmt.Println("Starting contraction process....")
		st := time.Now()
		planner, err := roadgeom.NewRoutePlanner(net)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("Done contraction process in %v\n", time.Since(st))
		systemOptions = append(systemOptions, roadgeom.WithRoutePlanner(planner))
	}
	system := roadgeom.NewDrivingSystem(net, systemOptions...)

	err = spawnDrivers(net, system, *driversNum, *doContraction)
	if err != nil {
		fmt.Println(err)
		return
	}

	err = simulate(system, *ticks, *dt, *out, roadgeom.ParseGeomFormat(*geomFormat), ref)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(system)

	err = net.ExportToCSV(*out, roadgeom.ParseGeomFormat(*geomFormat), ref)
	if err != nil {
		fmt.Println(err)
		return
	}
	if *geojsonOut != "" {
		err = exportGeoJSON(net, *geojsonOut, ref)
		if err != nil {
			fmt.Println(err)
			return
		}
	}
	if *osmOut != "" {
		err = net.SaveOSMFile(*osmOut)
		if err != nil {
			fmt.Println(err)
			return
		}
	}
}

func parseOrigin(s string) (roadgeom.GeoReference, error) {
	if s == "" {
		return roadgeom.GeoReference{}, nil
	}
	var lon, lat float64
	_, err := fmt.Sscanf(strings.ReplaceAll(s, " ", ""), "%f,%f", &lon, &lat)
	if err != nil {
		return roadgeom.GeoReference{}, errors.Wrapf(err, "Can't parse origin '%s'", s)
	}
	return roadgeom.NewGeoReference(lon, lat), nil
}

// buildCrossroad makes four two-way arms meeting at signalized intersection in the origin
func buildCrossroad(lanes int, length float64, options ...func(*roadgeom.RoadNetwork)) (*roadgeom.RoadNetwork, error) {
	net := roadgeom.NewRoadNetwork(options...)
	const junctionHalfSize = 15.0
	const medianWidth = 1.0
	arms := []orb.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	junctionGroups := make([]roadgeom.NodeGroupID, 0, 2*len(arms))
	approaches := make([]roadgeom.NodeGroupID, 0, len(arms))
	for _, arm := range arms {
		near := orb.Point{arm[0] * junctionHalfSize, arm[1] * junctionHalfSize}
		far := orb.Point{arm[0] * (junctionHalfSize + length), arm[1] * (junctionHalfSize + length)}
		inward := orb.Point{-arm[0], -arm[1]}

		farIn, err := net.CreateNodeGroup(far, inward, lanes)
		if err != nil {
			return nil, errors.Wrap(err, "Can't create entry group")
		}
		nearIn, err := net.CreateNodeGroup(near, inward, lanes)
		if err != nil {
			return nil, errors.Wrap(err, "Can't create approach group")
		}
		nearOut, err := net.CreateNodeGroup(near, arm, lanes)
		if err != nil {
			return nil, errors.Wrap(err, "Can't create departure group")
		}
		farOut, err := net.CreateNodeGroup(far, arm, lanes)
		if err != nil {
			return nil, errors.Wrap(err, "Can't create exit group")
		}

		_, err = net.Connect(roadgeom.NodeSubGroup{Group: farIn, Index: 0, Count: lanes}, roadgeom.NodeSubGroup{Group: nearIn, Index: 0, Count: lanes})
		if err != nil {
			return nil, errors.Wrap(err, "Can't connect incoming carriageway")
		}
		_, err = net.Connect(roadgeom.NodeSubGroup{Group: nearOut, Index: 0, Count: lanes}, roadgeom.NodeSubGroup{Group: farOut, Index: 0, Count: lanes})
		if err != nil {
			return nil, errors.Wrap(err, "Can't connect outgoing carriageway")
		}
		_, err = net.Tie(farIn, farOut, medianWidth)
		if err != nil {
			return nil, errors.Wrap(err, "Can't tie far end")
		}
		_, err = net.Tie(nearIn, nearOut, medianWidth)
		if err != nil {
			return nil, errors.Wrap(err, "Can't tie near end")
		}
		junctionGroups = append(junctionGroups, nearIn, nearOut)
		approaches = append(approaches, nearIn)
	}

	inter, err := net.CreateIntersection(junctionGroups)
	if err != nil {
		return nil, errors.Wrap(err, "Can't create intersection")
	}
	program := &roadgeom.FixedCycleProgram{
		Phases: []roadgeom.SignalPhase{
			{Groups: []roadgeom.NodeGroupID{approaches[0], approaches[2]}, Green: 20, Yellow: 3},
			{Groups: []roadgeom.NodeGroupID{approaches[1], approaches[3]}, Green: 20, Yellow: 3},
		},
	}
	err = net.SetTrafficLight(inter, program)
	if err != nil {
		return nil, errors.Wrap(err, "Can't set traffic light")
	}
	return net, nil
}

// spawnDrivers places drivers round-robin onto lanes of connections which start at dead ends
func spawnDrivers(net *roadgeom.RoadNetwork, system *roadgeom.DrivingSystem, n int, routed bool) error {
	car := roadgeom.VehicleParams{
		Segments:        []roadgeom.VehicleSegment{{Length: 4.5, Width: 1.8}},
		MaxSpeed:        13.9,
		MaxAcceleration: 2.5,
		MaxDeceleration: 6.0,
	}
	entries := []roadgeom.LaneLink{}
	exits := []roadgeom.NodeRef{}
	for _, id := range net.ConnectionIDs() {
		conn := net.Connections[id]
		if group := net.Groups[conn.Input.Group]; len(group.Inputs) == 0 {
			for k := 0; k < conn.StripsNum(); k++ {
				entries = append(entries, roadgeom.LaneLink{Connection: id, Lane: k})
			}
		}
		if group := net.Groups[conn.Output.Group]; len(group.Outputs) == 0 {
			for k := 0; k < conn.StripsNum(); k++ {
				exits = append(exits, roadgeom.NodeRef{Group: conn.Output.Group, Index: conn.OutputLane(k)})
			}
		}
	}
	if len(entries) == 0 {
		return errors.New("Network has no entry lanes")
	}
	for i := 0; i < n; i++ {
		link := entries[i%len(entries)]
		// Drivers sharing a lane start two car lengths apart
		distance := float64(i/len(entries)) * 2 * car.TotalLength()
		if routed && len(exits) > 0 && distance == 0 {
			target := exits[(i*7+3)%len(exits)]
			_, err := system.SpawnDriverWithDestination(car, link, target)
			if err == nil {
				continue
			}
		}
		_, err := system.SpawnDriver(car, link, distance)
		if err != nil {
			return errors.Wrapf(err, "Can't spawn driver %d", i)
		}
	}
	return nil
}

// simulate steps the system and writes driver positions of every step into '<out>_trace.csv'
func simulate(system *roadgeom.DrivingSystem, ticks int, dt float64, out string, format roadgeom.GeomFormat, ref roadgeom.GeoReference) error {
	fnamePart := strings.Split(out, ".csv")
	file, err := os.Create(fnamePart[0] + "_trace.csv")
	if err != nil {
		return errors.Wrap(err, "Can't create trace file")
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'
	err = writer.Write([]string{"tick", "clock", "driver_id", "state", "speed", "heading", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	st := time.Now()
	for tick := 0; tick < ticks; tick++ {
		system.Update(dt)
		for _, id := range system.DriverIDs() {
			driver := system.Drivers[id]
			heading := driver.Heading()
			pos := ref.Point(driver.Position())
			geomStr := roadgeom.PrepareWKTPoint(pos)
			if format == roadgeom.GEOM_GEOJSON {
				geomStr = roadgeom.PrepareGeoJSONPoint(pos)
			}
			err = writer.Write([]string{
				fmt.Sprintf("%d", tick),
				fmt.Sprintf("%f", system.Clock()),
				fmt.Sprintf("%d", id),
				driver.State.String(),
				fmt.Sprintf("%f", driver.Speed),
				fmt.Sprintf("%f", math.Atan2(heading[1], heading[0])),
				geomStr,
			})
			if err != nil {
				return errors.Wrap(err, "Can't write trace")
			}
		}
	}
	fmt.Printf("Done %d simulation steps in %v\n", ticks, time.Since(st))
	return nil
}

func exportGeoJSON(net *roadgeom.RoadNetwork, fname string, ref roadgeom.GeoReference) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create GeoJSON file")
	}
	defer file.Close()
	return net.ExportGeoJSON(file, ref)
}
