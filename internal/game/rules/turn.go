package rules

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Phase represents the phases of a duel turn.
type Phase int

const (
	PhaseDraw Phase = iota
	PhaseMain
	PhaseCombat
	PhasePreEnd
	PhaseEnd
)

var phaseNames = map[Phase]string{
	PhaseDraw:   "DRAW",
	PhaseMain:   "MAIN",
	PhaseCombat: "COMBAT",
	PhasePreEnd: "PRE_END",
	PhaseEnd:    "END",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// ParsePhase parses a phase name as produced by String.
func ParsePhase(name string) (Phase, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for phase, n := range phaseNames {
		if n == name {
			return phase, nil
		}
	}
	return PhaseDraw, fmt.Errorf("unknown phase %q", name)
}

// MarshalJSON encodes the phase by name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParsePhase(name)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Next returns the phase that follows p in an uninterrupted turn.
func (p Phase) Next() Phase {
	if p == PhaseEnd {
		return PhaseDraw
	}
	return p + 1
}

// transitions lists the legal forward moves out of each phase. Main may skip
// combat straight to PreEnd, PreEnd passes through to End, and End wraps to
// the next player's Draw.
var transitions = map[Phase][]Phase{
	PhaseDraw:   {PhaseMain},
	PhaseMain:   {PhaseCombat, PhasePreEnd},
	PhaseCombat: {PhasePreEnd},
	PhasePreEnd: {PhaseEnd},
	PhaseEnd:    {PhaseDraw},
}

// CanAdvance reports whether the phase machine allows moving from -> to.
func CanAdvance(from, to Phase) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Turn tracks the active player, turn number and current phase.
type Turn struct {
	Number       int    `json:"turnNumber"`
	ActivePlayer string `json:"activePlayerId"`
	Phase        Phase  `json:"currentPhase"`
}

// NewTurn creates the first turn of a match, starting in the draw phase.
func NewTurn(activePlayer string) Turn {
	return Turn{
		Number:       1,
		ActivePlayer: strings.TrimSpace(activePlayer),
		Phase:        PhaseDraw,
	}
}

// Advance moves to the given phase inside the current turn.
func (t *Turn) Advance(to Phase) error {
	if to == PhaseDraw {
		return fmt.Errorf("draw phase starts a new turn; use Rotate")
	}
	if !CanAdvance(t.Phase, to) {
		return fmt.Errorf("cannot move from %s to %s", t.Phase, to)
	}
	t.Phase = to
	return nil
}

// Rotate ends the turn: the turn number is incremented, nextActivePlayer
// becomes active and the phase resets to Draw. Only legal from End.
func (t *Turn) Rotate(nextActivePlayer string) error {
	if t.Phase != PhaseEnd {
		return fmt.Errorf("cannot end turn during %s", t.Phase)
	}
	next := strings.TrimSpace(nextActivePlayer)
	if next == "" {
		return fmt.Errorf("next active player is required")
	}
	t.Number++
	t.ActivePlayer = next
	t.Phase = PhaseDraw
	return nil
}
