package rules

import (
	"fmt"
	"strings"
)

// Phase represents the broad phases of a game.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseReady
	PhaseExecution
	PhaseCylon
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseSetup:     "SETUP",
	PhaseReady:     "READY",
	PhaseExecution: "EXECUTION",
	PhaseCylon:     "CYLON",
	PhaseGameOver:  "GAME_OVER",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for phase, n := range phaseNames {
		if n == name {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", string(text))
}

// Step represents the sub-steps of the ready phase. Outside the ready phase
// the step is StepNone.
type Step int

const (
	StepNone Step = iota
	StepReadying
	StepRestore
	StepDraw
	StepResource
	StepReorder
)

var stepNames = map[Step]string{
	StepNone:     "NONE",
	StepReadying: "READYING",
	StepRestore:  "RESTORE",
	StepDraw:     "DRAW",
	StepResource: "RESOURCE",
	StepReorder:  "REORDER",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STEP_%d", int(s))
}

// Number returns the printed step number (1..5), or 0 outside the ready phase.
func (s Step) Number() int {
	return int(s)
}

type turnEntry struct {
	phase Phase
	step  Step
}

// turnSequence is the order of phases and steps within one turn.
var turnSequence = []turnEntry{
	{PhaseReady, StepReadying},
	{PhaseReady, StepRestore},
	{PhaseReady, StepDraw},
	{PhaseReady, StepResource},
	{PhaseReady, StepReorder},
	{PhaseExecution, StepNone},
	{PhaseCylon, StepNone},
}

// Advance returns the phase and step following (phase, step). Setup advances
// to the first ready step. When the end of the turn is reached the sequence
// wraps to the first ready step and newTurn is true. Game over is terminal.
func Advance(phase Phase, step Step) (next Phase, nextStep Step, newTurn bool) {
	switch phase {
	case PhaseGameOver:
		return PhaseGameOver, StepNone, false
	case PhaseSetup:
		return turnSequence[0].phase, turnSequence[0].step, true
	}

	for i, entry := range turnSequence {
		if entry.phase != phase || entry.step != step {
			continue
		}
		if i+1 < len(turnSequence) {
			return turnSequence[i+1].phase, turnSequence[i+1].step, false
		}
		return turnSequence[0].phase, turnSequence[0].step, true
	}

	// Unknown position: restart the turn.
	return turnSequence[0].phase, turnSequence[0].step, true
}
