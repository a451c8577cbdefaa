package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// CreatureStats returns the effective power and toughness of a creature,
// counting +1/+1 counters.
func (e *Engine) CreatureStats(ctx context.Context, inst *CardInstance) (int, int, error) {
	card, err := e.Card(ctx, inst.CardID)
	if err != nil {
		return 0, 0, err
	}
	return card.PowerValue() + inst.PlusOneCounters, card.ToughnessValue() + inst.PlusOneCounters, nil
}

func (e *Engine) creatureStats(sc *actionScope, inst *CardInstance) (int, int, error) {
	card, err := sc.card(inst.CardID)
	if err != nil {
		return 0, 0, err
	}
	return card.PowerValue() + inst.PlusOneCounters, card.ToughnessValue() + inst.PlusOneCounters, nil
}

// declareAttackers taps the chosen creatures and records them in declaration
// order. An empty declaration skips combat damage entirely.
func (e *Engine) declareAttackers(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	defender := s.Opponent(a.PlayerID)
	key := ZoneKey{a.PlayerID, ZoneBattlefield}

	chosen, err := resolveDistinct(s, key, a.Attackers)
	if err != nil {
		return Outcome{}, err
	}
	for _, inst := range chosen {
		card, err := sc.card(inst.CardID)
		if err != nil {
			return Outcome{}, err
		}
		if !card.IsCreature() {
			return Outcome{}, illegalf("%s is not a creature", card.Name)
		}
		if inst.Tapped {
			return Outcome{}, illegalf("%s is tapped", card.Name)
		}
		if inst.SummoningSick {
			return Outcome{}, illegalf("%s has summoning sickness", card.Name)
		}
	}

	if len(chosen) == 0 {
		s.Combat = CombatState{Resolved: true}
		s.addMessage(fmt.Sprintf("%s declares no attackers", a.PlayerID))
		return Outcome{
			Message: "no attackers declared",
			Combat:  &CombatReport{DefenderID: defender},
		}, nil
	}

	ids := make([]string, 0, len(chosen))
	for _, inst := range chosen {
		inst.Tapped = true
		ids = append(ids, inst.InstanceID)
	}
	s.Combat = CombatState{Attackers: ids}

	s.addMessage(fmt.Sprintf("%s attacks with %d creature(s)", a.PlayerID, len(ids)))
	return Outcome{Message: fmt.Sprintf("declared %d attacker(s)", len(ids))}, nil
}

// declareBlockers validates the defender's assignments and resolves combat.
func (e *Engine) declareBlockers(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	blockerZone := ZoneKey{a.PlayerID, ZoneBattlefield}

	// Sorted keys keep card-id resolution deterministic.
	refs := make([]string, 0, len(a.Blockers))
	for attackerRef := range a.Blockers {
		refs = append(refs, attackerRef)
	}
	sort.Strings(refs)

	blocks := make([]Block, 0, len(refs))
	blockedAttackers := make(map[string]bool, len(refs))
	usedBlockers := make(map[string]bool, len(refs))

	for _, attackerRef := range refs {
		attackerID, ok := e.matchAttacker(sc, attackerRef, blockedAttackers)
		if !ok {
			return Outcome{}, illegalf("%s is not an unblocked attacker", attackerRef)
		}

		blockerRef := a.Blockers[attackerRef]
		blocker := e.matchBlocker(s, blockerZone, blockerRef, usedBlockers)
		if blocker == nil {
			if inst, _, found := s.FindInZone(blockerZone, blockerRef); found && usedBlockers[inst.InstanceID] {
				return Outcome{}, illegalf("%s is already blocking", blockerRef)
			}
			return Outcome{}, notFoundf("blocker %s on the battlefield of %s", blockerRef, a.PlayerID)
		}
		card, err := sc.card(blocker.CardID)
		if err != nil {
			return Outcome{}, err
		}
		if !card.IsCreature() {
			return Outcome{}, illegalf("%s is not a creature", card.Name)
		}
		if blocker.Tapped {
			return Outcome{}, illegalf("%s is tapped", card.Name)
		}

		blockedAttackers[attackerID] = true
		usedBlockers[blocker.InstanceID] = true
		blocks = append(blocks, Block{AttackerID: attackerID, BlockerID: blocker.InstanceID})
	}

	report, err := e.resolveCombat(sc, blocks)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Message: fmt.Sprintf("combat resolved: %d damage to %s", report.PlayerDamage, report.DefenderID),
		Combat:  report,
	}, nil
}

// matchAttacker resolves a reference to a declared attacker that has no
// blocker yet.
func (e *Engine) matchAttacker(sc *actionScope, ref string, taken map[string]bool) (string, bool) {
	s := sc.session
	for _, id := range s.Combat.Attackers {
		if id == ref {
			return id, !taken[id]
		}
	}
	attackerZone := ZoneKey{s.ActivePlayerID(), ZoneBattlefield}
	for _, id := range s.Combat.Attackers {
		if taken[id] {
			continue
		}
		if inst, _, ok := s.FindInZone(attackerZone, id); ok && inst.CardID == ref {
			return id, true
		}
	}
	return "", false
}

func (e *Engine) matchBlocker(s *Session, zone ZoneKey, ref string, used map[string]bool) *CardInstance {
	for _, c := range s.Zones[zone] {
		if c.InstanceID == ref {
			if used[c.InstanceID] {
				return nil
			}
			return c
		}
	}
	for _, c := range s.Zones[zone] {
		if c.CardID == ref && !used[c.InstanceID] {
			return c
		}
	}
	return nil
}

// resolveCombat deals all combat damage at once. Blocked pairs trade damage,
// unblocked attackers hit the defending player, and destroyed creatures go to
// their owners' graveyards together with any auras attached to them.
func (e *Engine) resolveCombat(sc *actionScope, blocks []Block) (*CombatReport, error) {
	s := sc.session
	active := s.ActivePlayerID()
	defenderID := s.Opponent(active)
	defender, err := s.Player(defenderID)
	if err != nil {
		return nil, inconsistentf("defending player %s missing", defenderID)
	}

	blockerOf := make(map[string]string, len(blocks))
	for _, b := range blocks {
		blockerOf[b.AttackerID] = b.BlockerID
	}

	attackZone := ZoneKey{active, ZoneBattlefield}
	blockZone := ZoneKey{defenderID, ZoneBattlefield}
	report := &CombatReport{DefenderID: defenderID, Blocks: blocks}
	var dead []*CardInstance

	for _, attackerID := range s.Combat.Attackers {
		attacker, _, ok := s.FindInZone(attackZone, attackerID)
		if !ok || attacker.InstanceID != attackerID {
			return nil, inconsistentf("attacker %s left the battlefield", attackerID)
		}
		ap, at, err := e.creatureStats(sc, attacker)
		if err != nil {
			return nil, err
		}

		blockerID, blocked := blockerOf[attackerID]
		if !blocked {
			report.PlayerDamage += ap
			continue
		}
		blocker, _, ok := s.FindInZone(blockZone, blockerID)
		if !ok || blocker.InstanceID != blockerID {
			return nil, inconsistentf("blocker %s left the battlefield", blockerID)
		}
		bp, bt, err := e.creatureStats(sc, blocker)
		if err != nil {
			return nil, err
		}
		if ap >= bt {
			dead = append(dead, blocker)
		}
		if bp >= at {
			dead = append(dead, attacker)
		}
	}

	defender.Life -= report.PlayerDamage

	for _, inst := range dead {
		if err := e.destroy(s, inst); err != nil {
			return nil, err
		}
		report.Destroyed = append(report.Destroyed, inst.InstanceID)
	}

	s.Combat = CombatState{Resolved: true}

	text := fmt.Sprintf("%s takes %d combat damage", defenderID, report.PlayerDamage)
	if len(report.Destroyed) > 0 {
		text += "; destroyed " + strings.Join(report.Destroyed, ", ")
	}
	s.addMessage(text)
	return report, nil
}

// destroy moves a creature from the battlefield to its owner's graveyard.
// Auras attached to it follow it.
func (e *Engine) destroy(s *Session, inst *CardInstance) error {
	from, _, ok := s.Locate(inst.InstanceID)
	if !ok || from.Kind != ZoneBattlefield {
		return inconsistentf("card %s is not on the battlefield", inst.InstanceID)
	}

	attached := append([]string(nil), inst.Attachments...)
	for _, auraID := range attached {
		auraZone, aura, ok := s.Locate(auraID)
		if !ok || auraZone.Kind != ZoneBattlefield {
			continue
		}
		if _, err := s.moveCard(auraID, auraZone, ZoneKey{aura.OwnerID, ZoneGraveyard}); err != nil {
			return err
		}
	}

	_, err := s.moveCard(inst.InstanceID, from, ZoneKey{inst.OwnerID, ZoneGraveyard})
	return err
}
