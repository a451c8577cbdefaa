package rules

import (
	"encoding/json"
	"testing"
)

func TestTurnSequence(t *testing.T) {
	turn := NewTurn("Alice")

	if turn.Phase != PhaseDraw || turn.Number != 1 {
		t.Fatalf("expected turn 1 in DRAW, got turn %d in %s", turn.Number, turn.Phase)
	}

	for _, next := range []Phase{PhaseMain, PhaseCombat, PhasePreEnd, PhaseEnd} {
		if err := turn.Advance(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
		if turn.Phase != next {
			t.Fatalf("expected phase %s, got %s", next, turn.Phase)
		}
	}

	if err := turn.Rotate("Bob"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if turn.Number != 2 {
		t.Fatalf("expected turn number 2 after rotate, got %d", turn.Number)
	}
	if turn.ActivePlayer != "Bob" {
		t.Fatalf("expected active player Bob after rotate, got %s", turn.ActivePlayer)
	}
	if turn.Phase != PhaseDraw {
		t.Fatalf("expected new turn to start in DRAW, got %s", turn.Phase)
	}
}

func TestTurnRejectsIllegalMoves(t *testing.T) {
	turn := NewTurn("Alice")

	if err := turn.Advance(PhaseCombat); err == nil {
		t.Error("expected DRAW -> COMBAT to be rejected")
	}
	if err := turn.Rotate("Bob"); err == nil {
		t.Error("expected rotate outside END to be rejected")
	}

	_ = turn.Advance(PhaseMain)
	if err := turn.Advance(PhasePreEnd); err != nil {
		t.Errorf("expected MAIN -> PRE_END (skipping combat) to be legal: %v", err)
	}
	if err := turn.Advance(PhaseMain); err == nil {
		t.Error("expected PRE_END -> MAIN to be rejected")
	}
	if err := turn.Advance(PhaseDraw); err == nil {
		t.Error("expected direct move to DRAW to be rejected")
	}
}

func TestPhaseJSON(t *testing.T) {
	data, err := json.Marshal(PhasePreEnd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"PRE_END"` {
		t.Fatalf("expected \"PRE_END\", got %s", data)
	}

	var p Phase
	if err := json.Unmarshal([]byte(`"combat"`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p != PhaseCombat {
		t.Fatalf("expected COMBAT, got %s", p)
	}

	if err := json.Unmarshal([]byte(`"UPKEEP"`), &p); err == nil {
		t.Fatal("expected unknown phase to fail")
	}
}
