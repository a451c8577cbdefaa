package autopilot

import (
	"context"
	"testing"

	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/magefree/mage-duel-server/internal/game/gametest"
	"github.com/magefree/mage-duel-server/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestAttackAgainstAIBlocksAndResolves(t *testing.T) {
	h := gametest.New(t, gametest.Options{BobIsAI: true})
	h.Phase(rules.PhaseCombat)
	brute := h.Creature(alice, "brute") // 4/2
	bears := h.Creature(alice, "bears") // 2/2
	wall := h.Creature(bob, "wall")     // 2/3
	elves := h.Creature(bob, "elves")   // 1/1
	o := New(h.Engine, zaptest.NewLogger(t))

	out, err := o.Attack(context.Background(), h.Session, game.Action{
		PlayerID:  alice,
		Type:      rules.ActionAttack,
		Attackers: []string{brute.InstanceID, bears.InstanceID},
	})
	require.NoError(t, err)

	require.NotNil(t, out.Combat)
	assert.Equal(t, []game.Block{{AttackerID: brute.InstanceID, BlockerID: wall.InstanceID}}, out.Combat.Blocks)
	assert.Equal(t, 2, out.Combat.PlayerDamage)
	assert.Equal(t, game.DefaultStartingLife-2, h.Player(bob).Life)
	assert.True(t, h.In(brute.InstanceID, alice, game.ZoneGraveyard))
	assert.True(t, h.In(wall.InstanceID, bob, game.ZoneGraveyard))
	assert.True(t, h.In(elves.InstanceID, bob, game.ZoneBattlefield))
	assert.True(t, h.Session.Combat.Resolved)
}

func TestAttackAgainstHumanWaitsForBlocks(t *testing.T) {
	h := gametest.New(t, gametest.Options{})
	h.Phase(rules.PhaseCombat)
	bears := h.Creature(alice, "bears")
	o := New(h.Engine, zaptest.NewLogger(t))

	out, err := o.Attack(context.Background(), h.Session, game.Action{
		PlayerID:  alice,
		Type:      rules.ActionAttack,
		Attackers: []string{bears.InstanceID},
	})
	require.NoError(t, err)

	assert.Nil(t, out.Combat)
	assert.True(t, h.Session.Combat.Pending())
	assert.Equal(t, game.DefaultStartingLife, h.Player(bob).Life)
}

func TestAttackFailureLeavesSessionUntouched(t *testing.T) {
	h := gametest.New(t, gametest.Options{BobIsAI: true})
	h.Phase(rules.PhaseMain)
	h.Creature(alice, "bears")
	before := h.Session.Snapshot().Checksum
	o := New(h.Engine, zaptest.NewLogger(t))

	_, err := o.Attack(context.Background(), h.Session, game.Action{PlayerID: alice, Type: rules.ActionAttack, Attackers: []string{"bears"}})

	assert.ErrorIs(t, err, game.ErrIllegalAction)
	assert.Equal(t, before, h.Session.Snapshot().Checksum)
}
