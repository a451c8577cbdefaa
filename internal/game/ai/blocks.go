package ai

// Combatant is a creature taking part in combat with its effective stats.
type Combatant struct {
	InstanceID string
	Power      int
	Toughness  int
}

// tradeThreshold is the attacking power at which the AI accepts losing its
// blocker to kill the attacker.
const tradeThreshold = 3

// ChooseBlockers assigns the defender's available creatures to attackers, in
// attacker declaration order. For each attacker it picks the first unused
// blocker that survives the block; failing that, when the attacker would deal
// at least tradeThreshold damage, the first one that kills it. Otherwise the
// attacker goes unblocked. The result maps attacker id to blocker id.
func ChooseBlockers(attackers, available []Combatant) map[string]string {
	blocks := make(map[string]string)
	used := make(map[string]bool, len(available))

	pick := func(ok func(Combatant) bool) (Combatant, bool) {
		for _, b := range available {
			if !used[b.InstanceID] && ok(b) {
				return b, true
			}
		}
		return Combatant{}, false
	}

	for _, a := range attackers {
		attacker := a
		blocker, found := pick(func(b Combatant) bool { return b.Toughness > attacker.Power })
		if !found && attacker.Power >= tradeThreshold {
			blocker, found = pick(func(b Combatant) bool { return b.Power >= attacker.Toughness })
		}
		if !found {
			continue
		}
		used[blocker.InstanceID] = true
		blocks[attacker.InstanceID] = blocker.InstanceID
	}
	return blocks
}
