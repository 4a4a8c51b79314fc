package roadgeom

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var (
	ErrDriverNotFound = errors.New("driver not found")
	ErrNoPlanner      = errors.New("route planner is not set")
	ErrInvalidVehicle = errors.New("invalid vehicle parameters")
)

const (
	defaultLookAheadTime = 1.0
	// pathHorizonTime is how far ahead (seconds at current speed) the path is kept extended
	pathHorizonTime = futureStatesStep * futureStatesNum
	stopLineEps     = 0.05
	gridCellSize    = 32.0
)

// RandomSource is uniform random generator; *rand.Rand satisfies it
type RandomSource interface {
	Float64() float64
	Intn(n int) int
}

// weightedChoice returns index picked with probability proportional to weight.
// Returns -1 when there is nothing to pick
func weightedChoice(random RandomSource, weights []float64) int {
	total := lo.Sum(weights)
	if total <= 0 {
		return -1
	}
	x := random.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}

// DrivingSystem moves drivers over the network and resolves predicted collisions
type DrivingSystem struct {
	Drivers      map[DriverID]*Driver
	network      *RoadNetwork
	random       RandomSource
	planner      *RoutePlanner
	logger       *logrus.Logger
	grid         *SpatialGrid
	lookAhead    float64
	clock        float64
	seed         int64
	nextDriverID DriverID
}

func (system *DrivingSystem) String() string {
	return fmt.Sprintf(`
Driving system parameters:
	look_ahead: %f
	seed: %d
	routing enabled?: %t
	`,
		system.lookAhead,
		system.seed,
		system.planner != nil,
	)
}

func NewDrivingSystem(net *RoadNetwork, options ...func(*DrivingSystem)) *DrivingSystem {
	system := &DrivingSystem{
		Drivers:   make(map[DriverID]*Driver),
		network:   net,
		logger:    net.logger,
		grid:      NewSpatialGrid(gridCellSize),
		lookAhead: defaultLookAheadTime,
		seed:      1,
	}
	for _, option := range options {
		option(system)
	}
	if system.random == nil {
		system.random = rand.New(rand.NewSource(system.seed))
	}
	return system
}

func WithRandomSource(random RandomSource) func(*DrivingSystem) {
	return func(system *DrivingSystem) {
		system.random = random
	}
}

func WithSeed(seed int64) func(*DrivingSystem) {
	return func(system *DrivingSystem) {
		system.seed = seed
	}
}

func WithLookAheadTime(seconds float64) func(*DrivingSystem) {
	return func(system *DrivingSystem) {
		system.lookAhead = seconds
	}
}

func WithSystemLogger(logger *logrus.Logger) func(*DrivingSystem) {
	return func(system *DrivingSystem) {
		system.logger = logger
	}
}

func WithRoutePlanner(planner *RoutePlanner) func(*DrivingSystem) {
	return func(system *DrivingSystem) {
		system.planner = planner
	}
}

// Clock returns simulated time
func (system *DrivingSystem) Clock() float64 {
	return system.clock
}

func (system *DrivingSystem) Driver(id DriverID) (*Driver, error) {
	driver, ok := system.Drivers[id]
	if !ok {
		return nil, errors.Wrapf(ErrDriverNotFound, "driver %d", id)
	}
	return driver, nil
}

func (system *DrivingSystem) DriverIDs() []DriverID {
	ids := lo.Keys(system.Drivers)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// lanePathNode returns path node of connection strip
func (system *DrivingSystem) lanePathNode(link LaneLink) (DriverPathNode, error) {
	line, err := system.network.LaneLine(link)
	if err != nil {
		return DriverPathNode{}, err
	}
	from, _ := system.network.LinkStart(link)
	to, _ := system.network.LinkEnd(link)
	return DriverPathNode{
		Line:         line,
		Link:         link,
		From:         from,
		To:           to,
		Intersection: -1,
		Type:         PATH_LANE,
	}, nil
}

// SpawnDriver puts driver at given distance along connection strip
func (system *DrivingSystem) SpawnDriver(params VehicleParams, link LaneLink, distance float64) (DriverID, error) {
	if len(params.Segments) == 0 {
		return -1, errors.Wrap(ErrInvalidVehicle, "no segments")
	}
	first, err := system.lanePathNode(link)
	if err != nil {
		return -1, errors.Wrap(err, "Can't spawn driver")
	}
	id := system.nextDriverID
	system.nextDriverID++
	driver := newDriver(id, params, first, math.Max(0, math.Min(distance, first.Length())))
	system.Drivers[id] = driver
	system.extendPath(driver)
	driver.updateFutureStates()
	system.logger.WithFields(logrus.Fields{"driver": id, "connection": link.Connection, "lane": link.Lane}).Debug("Driver spawned")
	return id, nil
}

// SpawnDriverWithDestination spawns driver following shortest route to target lane
func (system *DrivingSystem) SpawnDriverWithDestination(params VehicleParams, link LaneLink, target NodeRef) (DriverID, error) {
	if system.planner == nil {
		return -1, ErrNoPlanner
	}
	to, err := system.network.LinkEnd(link)
	if err != nil {
		return -1, errors.Wrap(err, "Can't spawn driver")
	}
	route, _, err := system.planner.Route(to, target)
	if err != nil {
		return -1, errors.Wrap(err, "Can't route driver")
	}
	id, err := system.SpawnDriver(params, link, 0)
	if err != nil {
		return -1, err
	}
	driver := system.Drivers[id]
	driver.Route = route
	driver.Path = driver.Path[:1]
	system.extendPath(driver)
	driver.placed = false
	driver.updateFutureStates()
	return id, nil
}

// RemoveDriver takes driver off the network
func (system *DrivingSystem) RemoveDriver(id DriverID) error {
	if _, ok := system.Drivers[id]; !ok {
		return errors.Wrapf(ErrDriverNotFound, "driver %d", id)
	}
	delete(system.Drivers, id)
	return nil
}

// Next picks path node following given lane: a random lane link when the lane has outputs,
// or a turn to a random OUTPUT point the lane may turn to, weighted by lanes, when lane
// enters an intersection. Route of the driver (if any) overrides random choice
func (system *DrivingSystem) Next(driver *Driver, ref NodeRef) (DriverPathNode, bool) {
	node, err := system.network.Node(ref)
	if err != nil {
		return DriverPathNode{}, false
	}
	wanted, routed := driver.nextRouteLane(ref)
	if len(node.Outputs) > 0 {
		link := node.Outputs[system.random.Intn(len(node.Outputs))]
		if routed {
			for _, candidate := range node.Outputs {
				if end, err := system.network.LinkEnd(candidate); err == nil && end == wanted {
					link = candidate
					break
				}
			}
		}
		next, err := system.lanePathNode(link)
		return next, err == nil
	}

	group := system.network.Groups[ref.Group]
	inter, ok := system.network.Intersections[group.Intersection]
	if !ok {
		return DriverPathNode{}, false
	}
	targets := system.network.turnGroups(inter.turnTargets(group))
	if len(targets) == 0 || ref.Index >= group.LanesNum() {
		return DriverPathNode{}, false
	}
	allowed := laneTargets(group, targets)[ref.Index]
	weights := make([]float64, len(allowed))
	for i, idx := range allowed {
		weights[i] = float64(targets[idx].LanesNum())
	}
	picked := weightedChoice(system.random, weights)
	if routed {
		for i, idx := range allowed {
			if targets[idx].ID == wanted.Group {
				picked = i
				break
			}
		}
	}
	if picked < 0 {
		return DriverPathNode{}, false
	}
	to := targets[allowed[picked]]
	_, movement := movementBetweenDirections(group.Direction, to.Direction)
	lane := targetLane(movement, ref.Index, to.LanesNum())
	return DriverPathNode{
		Line:         turnLine(group, to, ref.Index, lane),
		From:         ref,
		To:           NodeRef{Group: to.ID, Index: lane},
		Intersection: inter.ID,
		Movement:     movement,
		Type:         PATH_TURN,
	}, true
}

// nextRouteLane returns lane following ref on the route
func (driver *Driver) nextRouteLane(ref NodeRef) (NodeRef, bool) {
	for i := 0; i+1 < len(driver.Route); i++ {
		if driver.Route[i] == ref {
			return driver.Route[i+1], true
		}
	}
	return NodeRef{}, false
}

// arrived checks if driver reached end of its route
func (driver *Driver) arrived(ref NodeRef) bool {
	return len(driver.Route) > 0 && driver.Route[len(driver.Route)-1] == ref
}

// extendPath appends next path nodes until path covers prediction horizon.
// Returns false when path ends before it
func (system *DrivingSystem) extendPath(driver *Driver) bool {
	horizon := driver.Speed*pathHorizonTime + driver.Params.TotalLength() + 1
	for driver.remaining() < horizon {
		last := driver.Path[len(driver.Path)-1]
		if driver.arrived(last.To) {
			return false
		}
		next, ok := system.Next(driver, last.To)
		if !ok {
			return false
		}
		driver.Path = append(driver.Path, next)
	}
	return true
}

// Update advances simulation by dt: speeds and future states, avoidance, positions
func (system *DrivingSystem) Update(dt float64) {
	ids := system.DriverIDs()
	for _, id := range ids {
		driver := system.Drivers[id]
		system.updateSignal(driver)
		system.integrateSpeed(driver, dt)
		system.extendPath(driver)
		driver.updateFutureStates()
	}

	system.grid.Clear()
	for _, id := range ids {
		system.grid.Insert(id, system.Drivers[id].footprint())
	}
	speeds := make(map[DriverID]float64, len(ids))
	for _, id := range ids {
		speeds[id] = system.avoid(system.Drivers[id], dt)
	}

	for _, id := range ids {
		driver := system.Drivers[id]
		driver.Speed = speeds[id]
		system.advance(driver, dt)
	}
	system.clock += dt
}

// updateSignal switches driver between driving and stopping by signal of the turn ahead
func (system *DrivingSystem) updateSignal(driver *Driver) {
	if len(driver.Path) < 2 || driver.Path[0].Type != PATH_LANE || driver.Path[1].Type != PATH_TURN {
		driver.State = DRIVER_DRIVING
		return
	}
	inter, ok := system.network.Intersections[driver.Path[1].Intersection]
	if !ok || inter.Program == nil {
		driver.State = DRIVER_DRIVING
		return
	}
	signal := inter.Program.Signal(driver.Path[1].From.Group, system.clock)
	stopAt := driver.Path[0].Length() - driver.Params.Segments[0].Length/2
	gap := stopAt - driver.Distance
	switch signal {
	case SIGNAL_GREEN:
		driver.State = DRIVER_DRIVING
	case SIGNAL_YELLOW:
		if driver.State == DRIVER_DRIVING && (gap <= 0 || driver.Speed*driver.Speed/(2*gap) > driver.Params.MaxDeceleration) {
			return
		}
		fallthrough
	default:
		if gap < -stopLineEps {
			driver.State = DRIVER_DRIVING
			return
		}
		if driver.State == DRIVER_DRIVING {
			driver.State = DRIVER_STOPPING
		}
		driver.stopDistance = stopAt
	}
}

// integrateSpeed accelerates towards max speed or brakes towards the stop line
func (system *DrivingSystem) integrateSpeed(driver *Driver, dt float64) {
	params := driver.Params
	switch driver.State {
	case DRIVER_STOPPED:
		driver.Speed = 0
	case DRIVER_STOPPING:
		gap := driver.stopDistance - driver.Distance
		if gap <= stopLineEps {
			driver.Speed = 0
			driver.State = DRIVER_STOPPED
			return
		}
		// highest speed which still allows to stop at the line
		limit := math.Min(params.MaxSpeed, math.Sqrt(2*gap*params.MaxDeceleration))
		if driver.Speed > limit {
			driver.Speed = math.Max(limit, driver.Speed-params.MaxDeceleration*dt)
			return
		}
		driver.Speed = math.Min(limit, driver.Speed+params.MaxAcceleration*dt)
	default:
		driver.Speed = lo.Clamp(driver.Speed+params.MaxAcceleration*dt, 0, params.MaxSpeed)
	}
}

// avoid returns speed after checking predicted collisions with drivers ahead. Of two drivers
// ahead of each other the one with lower ID keeps going
func (system *DrivingSystem) avoid(driver *Driver, dt float64) float64 {
	speed := driver.Speed
	for _, otherID := range system.grid.Nearby(driver.ID, driver.footprint()) {
		other := system.Drivers[otherID]
		if !driver.isBehind(other) {
			continue
		}
		if other.isBehind(driver) && driver.ID < other.ID {
			continue
		}
		for k := 0; k < futureStatesNum; k++ {
			if !CheckCollision(driver.Params, driver.futureStates[k], other.Params, other.futureStates[k]) {
				continue
			}
			if k == 0 {
				return 0
			}
			if float64(k)*futureStatesStep <= system.lookAhead {
				speed = math.Min(speed, math.Max(0, driver.Speed-driver.Params.MaxDeceleration*dt))
			}
			break
		}
	}
	return speed
}

// advance moves driver along path, drops passed nodes and despawns drivers at dead ends
func (system *DrivingSystem) advance(driver *Driver, dt float64) {
	driver.Distance += driver.Speed * dt
	for len(driver.Path) > 1 && driver.Distance > driver.Path[0].Length() {
		driver.Distance -= driver.Path[0].Length()
		driver.stopDistance -= driver.Path[0].Length()
		driver.Path = driver.Path[1:]
	}
	if len(driver.Path) == 1 && driver.Distance >= driver.Path[0].Length() && !system.extendPath(driver) {
		system.logger.WithFields(logrus.Fields{"driver": driver.ID, "arrived": driver.arrived(driver.Path[0].To)}).Debug("Driver left the network")
		delete(system.Drivers, driver.ID)
	}
}
