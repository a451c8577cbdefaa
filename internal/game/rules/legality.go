package rules

import (
	"fmt"
	"strings"
)

// ActionType identifies a player action.
type ActionType string

const (
	ActionDraw         ActionType = "Draw"
	ActionPlayLand     ActionType = "PlayLand"
	ActionPlayCard     ActionType = "PlayCard"
	ActionCastInstant  ActionType = "CastInstant"
	ActionPassToCombat ActionType = "PassToCombat"
	ActionAttack       ActionType = "Attack"
	ActionBlock        ActionType = "Block"
	ActionDiscard      ActionType = "Discard"
	ActionPreEnd       ActionType = "PreEnd"
	ActionEndTurn      ActionType = "EndTurn"
)

// ParseActionType matches an action name case-insensitively.
func ParseActionType(name string) (ActionType, error) {
	name = strings.TrimSpace(name)
	for actionType := range actionPhases {
		if strings.EqualFold(string(actionType), name) {
			return actionType, nil
		}
	}
	return "", fmt.Errorf("unknown action type %q", name)
}

// actionPhases lists the phases in which each action may be taken.
var actionPhases = map[ActionType][]Phase{
	ActionDraw:         {PhaseDraw},
	ActionPlayLand:     {PhaseMain},
	ActionPlayCard:     {PhaseMain},
	ActionCastInstant:  {PhaseMain, PhaseCombat},
	ActionPassToCombat: {PhaseMain},
	ActionAttack:       {PhaseCombat},
	ActionBlock:        {PhaseCombat},
	ActionDiscard:      {PhasePreEnd},
	ActionPreEnd:       {PhaseMain, PhaseCombat},
	ActionEndTurn:      {PhaseEnd},
}

// AllowedIn reports whether the action may be taken during phase.
func AllowedIn(actionType ActionType, phase Phase) bool {
	for _, p := range actionPhases[actionType] {
		if p == phase {
			return true
		}
	}
	return false
}

// TurnContext is the slice of session state the timing guard needs.
type TurnContext struct {
	Turn     Turn
	Players  []string
	Defender string
	GameOver bool
	// AttackersDeclared is true once the active player has declared attackers
	// that still wait for blocks.
	AttackersDeclared bool
	// CombatResolved is true once this turn's combat damage has been dealt.
	CombatResolved bool
}

// LegalityResult represents the result of a legality check.
type LegalityResult struct {
	Legal   bool
	Reason  string
	Details map[string]string
}

func illegal(reason string, details map[string]string) LegalityResult {
	return LegalityResult{Legal: false, Reason: reason, Details: details}
}

// CheckTiming validates who may act and when. It runs before an action
// touches the session: game still running, actor seated, actor is the
// active player (or the defender for Block), phase allows the action,
// and the combat sub-state fits.
func CheckTiming(tc TurnContext, actorID string, actionType ActionType) LegalityResult {
	if tc.GameOver {
		return illegal("game is over", nil)
	}
	if _, ok := actionPhases[actionType]; !ok {
		return illegal("unknown action", map[string]string{"action": string(actionType)})
	}

	seated := false
	for _, p := range tc.Players {
		if p == actorID {
			seated = true
			break
		}
	}
	if !seated {
		return illegal("player is not part of this game", map[string]string{"player_id": actorID})
	}

	if actionType == ActionBlock {
		if actorID != tc.Defender {
			return illegal("only the defending player may block", map[string]string{"player_id": actorID})
		}
	} else if actorID != tc.Turn.ActivePlayer {
		return illegal("not the active player", map[string]string{
			"player_id":        actorID,
			"active_player_id": tc.Turn.ActivePlayer,
		})
	}

	if !AllowedIn(actionType, tc.Turn.Phase) {
		return illegal(fmt.Sprintf("%s is not allowed during %s", actionType, tc.Turn.Phase), map[string]string{
			"action": string(actionType),
			"phase":  tc.Turn.Phase.String(),
		})
	}

	switch actionType {
	case ActionAttack:
		if tc.AttackersDeclared {
			return illegal("attackers already declared", nil)
		}
		if tc.CombatResolved {
			return illegal("combat already resolved this turn", nil)
		}
	case ActionBlock:
		if !tc.AttackersDeclared {
			return illegal("no attackers to block", nil)
		}
	case ActionPreEnd:
		if tc.AttackersDeclared {
			return illegal("combat is waiting for blockers", nil)
		}
	}

	return LegalityResult{Legal: true, Reason: "timing satisfied"}
}
