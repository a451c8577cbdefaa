package autopilot

import (
	"context"
	"strings"

	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/magefree/mage-duel-server/internal/game/ai"
	"github.com/magefree/mage-duel-server/internal/game/rules"
	"go.uber.org/zap"
)

// Attack declares attackers and, when the defender is computer-controlled,
// lets the AI block and resolves combat in the same call. Either both steps
// apply or neither does. Actions other than Attack go straight to the engine.
func (o *Orchestrator) Attack(ctx context.Context, s *game.Session, action game.Action) (game.Outcome, error) {
	if action.Type != rules.ActionAttack {
		return o.engine.Apply(ctx, s, action)
	}

	work := s.Clone()
	declared, err := o.engine.Apply(ctx, work, action)
	if err != nil {
		return game.Outcome{}, err
	}

	defender, err := work.Player(work.DefendingPlayerID())
	if err != nil || !defender.IsAI || !work.Combat.Pending() || work.IsOver() {
		*s = *work
		return declared, nil
	}

	attackers, err := o.combatants(ctx, work, work.ActivePlayerID(), work.Combat.Attackers)
	if err != nil {
		return game.Outcome{}, err
	}
	var candidates []string
	for _, inst := range work.Battlefield(defender.PlayerID) {
		if inst.Tapped {
			continue
		}
		card, err := o.engine.Card(ctx, inst.CardID)
		if err != nil {
			return game.Outcome{}, err
		}
		if card.IsCreature() {
			candidates = append(candidates, inst.InstanceID)
		}
	}
	available, err := o.combatants(ctx, work, defender.PlayerID, candidates)
	if err != nil {
		return game.Outcome{}, err
	}

	blocks := ai.ChooseBlockers(attackers, available)
	o.logger.Debug("ai blocks",
		zap.String("session_id", work.ID),
		zap.String("player_id", defender.PlayerID),
		zap.Int("attackers", len(attackers)),
		zap.Int("blocks", len(blocks)),
	)

	resolved, err := o.engine.Apply(ctx, work, game.Action{
		PlayerID: defender.PlayerID,
		Type:     rules.ActionBlock,
		Blockers: blocks,
	})
	if err != nil {
		return game.Outcome{}, err
	}

	*s = *work
	resolved.Message = strings.TrimSpace(declared.Message + "; " + resolved.Message)
	return resolved, nil
}

func (o *Orchestrator) combatants(ctx context.Context, s *game.Session, playerID string, instanceIDs []string) ([]ai.Combatant, error) {
	out := make([]ai.Combatant, 0, len(instanceIDs))
	for _, id := range instanceIDs {
		inst, _, ok := s.FindInZone(game.ZoneKey{PlayerID: playerID, Kind: game.ZoneBattlefield}, id)
		if !ok {
			continue
		}
		power, toughness, err := o.engine.CreatureStats(ctx, inst)
		if err != nil {
			return nil, err
		}
		out = append(out, ai.Combatant{InstanceID: inst.InstanceID, Power: power, Toughness: toughness})
	}
	return out, nil
}
