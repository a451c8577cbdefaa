// Package ai proposes actions for a computer-controlled player. Everything
// here is a pure function of the state it is given; card data is resolved by
// the caller.
package ai

import (
	"sort"

	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/magefree/mage-duel-server/internal/game/mana"
	"github.com/magefree/mage-duel-server/internal/game/rules"
	"github.com/magefree/mage-duel-server/internal/oracle"
)

// HandCard is a card in hand together with its static data.
type HandCard struct {
	InstanceID string
	Card       oracle.Card
}

// Decision is the next step for the AI. EndTurn means nothing more is worth
// playing this turn.
type Decision struct {
	Action  game.Action
	EndTurn bool
}

func endTurn() Decision {
	return Decision{EndTurn: true}
}

// Decide picks the next action for player. The priority is:
//
//  1. play the first land in hand if no land was played this turn
//  2. cast the affordable non-land card with the lowest mana value,
//     preferring creatures on ties and then hand order
//  3. end the turn
//
// Only the main phase is considered; anywhere else the AI ends its turn.
func Decide(player game.PlayerState, s *game.Session, hand []HandCard) Decision {
	if s == nil || s.IsOver() || s.Turn.Phase != rules.PhaseMain || s.ActivePlayerID() != player.PlayerID {
		return endTurn()
	}

	if player.LandsPlayedThisTurn == 0 {
		for _, hc := range hand {
			if hc.Card.IsLand() {
				return Decision{Action: game.Action{
					PlayerID: player.PlayerID,
					Type:     rules.ActionPlayLand,
					CardID:   hc.InstanceID,
				}}
			}
		}
	}

	type candidate struct {
		hc        HandCard
		manaValue int
	}
	var candidates []candidate
	for _, hc := range hand {
		// Auras need a target choice the AI does not make.
		if hc.Card.IsLand() || hc.Card.IsAura() {
			continue
		}
		req, err := mana.ParseCost(hc.Card.ManaCost)
		if err != nil || !mana.CanAfford(player.ManaPool, req) {
			continue
		}
		candidates = append(candidates, candidate{hc: hc, manaValue: req.ManaValue()})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].manaValue != candidates[j].manaValue {
			return candidates[i].manaValue < candidates[j].manaValue
		}
		return candidates[i].hc.Card.IsCreature() && !candidates[j].hc.Card.IsCreature()
	})

	if len(candidates) > 0 {
		best := candidates[0].hc
		actionType := rules.ActionPlayCard
		if best.Card.IsInstant() {
			actionType = rules.ActionCastInstant
		}
		return Decision{Action: game.Action{PlayerID: player.PlayerID, Type: actionType, CardID: best.InstanceID}}
	}

	return endTurn()
}
