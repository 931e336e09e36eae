package sim

import "strings"

const (
	StageOnGround = "on_the_ground"
	StageClimb    = "climb"
	StageCruise   = "cruise"
	StageDescend  = "descend"
	StageArrived  = "arrived"
)

// Vertical speed thresholds in ft/min.
const (
	climbThreshold   = 300.0
	descendThreshold = -300.0
	levelBand        = 200.0
)

// StageMachine classifies the flight stage from successive vertical speed readings.
// A change of stage must be seen on two consecutive updates before it is adopted.
type StageMachine struct {
	current       string
	candidate     string
	confirmations int
}

// NewStageMachine creates a stage machine for an aircraft on the ground.
func NewStageMachine() *StageMachine {
	return &StageMachine{current: StageOnGround}
}

// Current returns the adopted stage.
func (m *StageMachine) Current() string {
	return m.current
}

// Update evaluates one step and returns the current stage.
func (m *StageMachine) Update(verticalSpeed float64, phase Phase) string {
	if phase == PhaseCompleted {
		m.current = StageArrived
		m.candidate = ""
		m.confirmations = 0
		return m.current
	}
	if phase != PhaseRunning {
		return m.current
	}

	candidate := m.detectCandidate(verticalSpeed)

	// Hysteresis: require 2 ticks to confirm state change
	switch {
	case candidate == m.current:
		m.candidate = ""
		m.confirmations = 0
	case candidate == m.candidate:
		m.confirmations++
		if m.confirmations >= 1 {
			m.current = candidate
			m.candidate = ""
			m.confirmations = 0
		}
	default:
		m.candidate = candidate
		m.confirmations = 0
	}

	return m.current
}

func (m *StageMachine) detectCandidate(vs float64) string {
	if vs > climbThreshold {
		return StageClimb
	}
	if vs < descendThreshold {
		return StageDescend
	}
	if vs > -levelBand && vs < levelBand {
		return StageCruise
	}

	// Between the level band and a trend threshold: keep the airborne stage we have.
	if m.current == StageOnGround {
		return StageClimb
	}
	return m.current
}

// FormatStage returns a human-readable title for the stage.
func FormatStage(s string) string {
	if s == "" {
		return "Unknown"
	}
	// on_the_ground -> On the Ground
	parts := strings.Split(s, "_")
	for i, p := range parts {
		if p == "the" && i > 0 {
			continue
		}
		if p != "" {
			parts[i] = strings.ToUpper(p[0:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
