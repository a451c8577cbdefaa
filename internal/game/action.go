package game

import "github.com/magefree/mage-duel-server/internal/game/rules"

// Action is one discrete player request. CardID, TargetID and the id lists
// accept card instance ids; a plain card id resolves to the first matching
// instance in the relevant zone.
type Action struct {
	PlayerID       string            `json:"playerId"`
	Type           rules.ActionType  `json:"type"`
	CardID         string            `json:"cardId,omitempty"`
	TargetID       string            `json:"targetId,omitempty"`
	Attackers      []string          `json:"attackers,omitempty"`
	Blockers       map[string]string `json:"blockers,omitempty"` // attacker -> blocker
	CardsToDiscard []string          `json:"cardsToDiscard,omitempty"`
}

// CombatReport summarizes one combat damage step.
type CombatReport struct {
	DefenderID   string   `json:"defenderId"`
	PlayerDamage int      `json:"playerDamage"`
	Destroyed    []string `json:"destroyed,omitempty"`
	Blocks       []Block  `json:"blocks,omitempty"`
}

// Block pairs an attacker with the creature blocking it.
type Block struct {
	AttackerID string `json:"attackerId"`
	BlockerID  string `json:"blockerId"`
}

// Outcome describes what a successful action did.
type Outcome struct {
	Message string         `json:"message,omitempty"`
	Combat  *CombatReport  `json:"combat,omitempty"`
	EndGame *EndGameResult `json:"endGame,omitempty"`
}
