package game

import (
	"errors"
	"testing"

	"github.com/magefree/mage-duel-server/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeck(n int) []string {
	cards := []string{"forest", "bears", "mountain", "shock", "giant"}
	deck := make([]string, n)
	for i := range deck {
		deck[i] = cards[i%len(cards)]
	}
	return deck
}

func newTestSession(t *testing.T, shuffle bool, seed int64) *Session {
	t.Helper()
	s, err := NewSession(NewSessionParams{
		ID:          "s1",
		PlayerOne:   SeatConfig{PlayerID: "alice", Deck: testDeck(20)},
		PlayerTwo:   SeatConfig{PlayerID: "bob", Deck: testDeck(20), IsAI: true},
		Seed:        seed,
		Shuffle:     shuffle,
		OpeningHand: DefaultOpeningHand,
	})
	require.NoError(t, err)
	return s
}

func TestNewSessionDealsOpeningHands(t *testing.T) {
	s := newTestSession(t, false, 0)

	assert.Equal(t, "alice", s.ActivePlayerID())
	assert.Equal(t, "bob", s.DefendingPlayerID())
	assert.Equal(t, 1, s.Turn.Number)
	assert.Equal(t, rules.PhaseDraw, s.Turn.Phase)

	for _, id := range s.PlayerIDs() {
		p, err := s.Player(id)
		require.NoError(t, err)
		assert.Equal(t, DefaultStartingLife, p.Life)
		assert.Len(t, s.Hand(id), DefaultOpeningHand)
		assert.Len(t, s.Zone(id, ZoneLibrary), 20-DefaultOpeningHand)
		assert.Empty(t, s.Battlefield(id))
		assert.Empty(t, s.Zone(id, ZoneGraveyard))
		assert.Equal(t, 20, s.CardCount(id))
	}
	assert.True(t, s.Players["bob"].IsAI)
	assert.Equal(t, "forest", s.Hand("alice")[0].CardID, "unshuffled decks deal from the top")
}

func TestNewSessionIsDeterministicForASeed(t *testing.T) {
	a := newTestSession(t, true, 42)
	b := newTestSession(t, true, 42)

	for _, kind := range ZoneKinds {
		za, zb := a.Zone("alice", kind), b.Zone("alice", kind)
		require.Len(t, zb, len(za))
		for i := range za {
			assert.Equal(t, za[i].InstanceID, zb[i].InstanceID)
			assert.Equal(t, za[i].CardID, zb[i].CardID)
		}
	}
}

func TestNewSessionValidation(t *testing.T) {
	tests := []struct {
		name   string
		params NewSessionParams
	}{
		{name: "missing player", params: NewSessionParams{PlayerOne: SeatConfig{PlayerID: "alice"}}},
		{name: "same player twice", params: NewSessionParams{PlayerOne: SeatConfig{PlayerID: "alice"}, PlayerTwo: SeatConfig{PlayerID: "alice"}}},
		{name: "two ai players", params: NewSessionParams{
			PlayerOne: SeatConfig{PlayerID: "alice", IsAI: true},
			PlayerTwo: SeatConfig{PlayerID: "bob", IsAI: true},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestMoveCard(t *testing.T) {
	s := newTestSession(t, false, 0)
	card := s.Hand("alice")[0]
	card.Tapped = true
	card.Attachments = []string{"aura"}

	_, err := s.moveCard(card.InstanceID, ZoneKey{"alice", ZoneHand}, ZoneKey{"alice", ZoneBattlefield})
	require.NoError(t, err)
	assert.True(t, card.Tapped, "flags survive entering the battlefield")

	_, err = s.moveCard(card.InstanceID, ZoneKey{"alice", ZoneBattlefield}, ZoneKey{"alice", ZoneGraveyard})
	require.NoError(t, err)
	assert.False(t, card.Tapped)
	assert.Nil(t, card.Attachments)
	assert.Equal(t, 20, s.CardCount("alice"))

	_, err = s.moveCard(card.InstanceID, ZoneKey{"alice", ZoneHand}, ZoneKey{"alice", ZoneGraveyard})
	assert.True(t, errors.Is(err, ErrInternalInconsistency))

	_, err = s.moveCard(card.InstanceID, ZoneKey{"alice", ZoneGraveyard}, ZoneKey{"carol", ZoneHand})
	assert.ErrorIs(t, err, ErrInternalInconsistency)
	assert.Len(t, s.Zone("alice", ZoneGraveyard), 1, "nothing moves on error")
}

func TestFindInZonePrefersInstanceID(t *testing.T) {
	s := newTestSession(t, false, 0)
	hand := s.Hand("alice")

	byCard, idx, ok := s.FindInZone(ZoneKey{"alice", ZoneHand}, "bears")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, hand[1], byCard)

	byID, _, ok := s.FindInZone(ZoneKey{"alice", ZoneHand}, hand[6].InstanceID)
	require.True(t, ok)
	assert.Equal(t, hand[6], byID)

	_, _, ok = s.FindInZone(ZoneKey{"alice", ZoneHand}, "wall")
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	s := newTestSession(t, false, 0)
	s.Combat.Attackers = []string{"x"}
	cp := s.Clone()

	cp.Players["alice"].Life = 1
	cp.Hand("alice")[0].Tapped = true
	cp.Zones[ZoneKey{"alice", ZoneHand}] = nil
	cp.Combat.Attackers[0] = "y"

	assert.Equal(t, DefaultStartingLife, s.Players["alice"].Life)
	assert.False(t, s.Hand("alice")[0].Tapped)
	assert.Len(t, s.Hand("alice"), DefaultOpeningHand)
	assert.Equal(t, "x", s.Combat.Attackers[0])
}

func TestLogIsBounded(t *testing.T) {
	s := newTestSession(t, false, 0)
	for i := 0; i < maxLogEntries+50; i++ {
		s.addMessage("tick")
	}
	assert.Len(t, s.Log, maxLogEntries)
}
