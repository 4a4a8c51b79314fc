package roadgeom

import (
	"math"

	"github.com/samber/lo"
)

type SignalState uint16

const (
	SIGNAL_GREEN = SignalState(iota + 1)
	SIGNAL_YELLOW
	SIGNAL_RED
)

func (iotaIdx SignalState) String() string {
	return [...]string{"green", "yellow", "red"}[iotaIdx-1]
}

// TrafficLightProgram tells signal for traffic entering the junction from given group
type TrafficLightProgram interface {
	Signal(group NodeGroupID, clock float64) SignalState
}

// SignalPhase gives right of way to groups for Green seconds followed by Yellow seconds
type SignalPhase struct {
	Groups []NodeGroupID
	Green  float64
	Yellow float64
}

// FixedCycleProgram loops over phases. Groups not listed in any phase always get green
type FixedCycleProgram struct {
	Phases []SignalPhase
}

func (program *FixedCycleProgram) CycleLength() float64 {
	return lo.SumBy(program.Phases, func(phase SignalPhase) float64 { return phase.Green + phase.Yellow })
}

func (program *FixedCycleProgram) Signal(group NodeGroupID, clock float64) SignalState {
	listed := lo.ContainsBy(program.Phases, func(phase SignalPhase) bool { return lo.Contains(phase.Groups, group) })
	if !listed {
		return SIGNAL_GREEN
	}
	cycle := program.CycleLength()
	if cycle <= 0 {
		return SIGNAL_GREEN
	}
	t := math.Mod(clock, cycle)
	if t < 0 {
		t += cycle
	}
	for _, phase := range program.Phases {
		length := phase.Green + phase.Yellow
		if t < length {
			if !lo.Contains(phase.Groups, group) {
				return SIGNAL_RED
			}
			if t < phase.Green {
				return SIGNAL_GREEN
			}
			return SIGNAL_YELLOW
		}
		t -= length
	}
	return SIGNAL_RED
}
