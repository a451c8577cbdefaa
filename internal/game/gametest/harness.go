// Package gametest provides a duel harness and a small card catalog for
// engine, AI and orchestrator tests.
package gametest

import (
	"context"
	"fmt"
	"testing"

	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/magefree/mage-duel-server/internal/game/mana"
	"github.com/magefree/mage-duel-server/internal/game/rules"
	"github.com/magefree/mage-duel-server/internal/oracle"
	"go.uber.org/zap/zaptest"
)

// Seated player ids.
const (
	Alice = "alice"
	Bob   = "bob"
)

// Catalog returns the cards the harness knows about.
func Catalog() *oracle.Memory {
	return oracle.NewMemory(
		oracle.Card{ID: "forest", Name: "Forest", TypeLine: "Basic Land — Forest"},
		oracle.Card{ID: "mountain", Name: "Mountain", TypeLine: "Basic Land — Mountain"},
		oracle.Card{ID: "plains", Name: "Plains", TypeLine: "Basic Land — Plains"},
		oracle.Card{ID: "bears", Name: "Grizzly Bears", TypeLine: "Creature — Bear", ManaCost: "{1}{G}", Power: "2", Toughness: "2"},
		oracle.Card{ID: "elves", Name: "Llanowar Elves", TypeLine: "Creature — Elf Druid", ManaCost: "{G}", Power: "1", Toughness: "1"},
		oracle.Card{ID: "brute", Name: "Hill Brute", TypeLine: "Creature — Giant", ManaCost: "{3}{R}", Power: "4", Toughness: "2"},
		oracle.Card{ID: "wall", Name: "Stone Wall", TypeLine: "Creature — Wall", ManaCost: "{2}{W}", Power: "2", Toughness: "3"},
		oracle.Card{ID: "giant", Name: "Craw Giant", TypeLine: "Creature — Giant", ManaCost: "{4}{G}", Power: "5", Toughness: "5"},
		oracle.Card{ID: "shock", Name: "Shock", TypeLine: "Instant", ManaCost: "{R}"},
		oracle.Card{ID: "growth", Name: "Rampant Growth", TypeLine: "Sorcery", ManaCost: "{1}{G}"},
		oracle.Card{ID: "rancor", Name: "Rancor", TypeLine: "Enchantment — Aura", ManaCost: "{G}"},
		oracle.Card{ID: "relic", Name: "Bone Relic", TypeLine: "Artifact", ManaCost: "{2}"},
	)
}

// Harness drives one duel between Alice and Bob.
type Harness struct {
	T       testing.TB
	Oracle  *oracle.Memory
	Engine  *game.Engine
	Session *game.Session

	seq int
}

// Options configures New.
type Options struct {
	AliceDeck []string
	BobDeck   []string
	BobIsAI   bool
}

// New starts an unshuffled duel with empty opening hands. Alice is active
// in the draw phase.
func New(t testing.TB, opts Options) *Harness {
	t.Helper()
	cards := Catalog()
	s, err := game.NewSession(game.NewSessionParams{
		ID:          "duel",
		PlayerOne:   game.SeatConfig{PlayerID: Alice, Deck: opts.AliceDeck},
		PlayerTwo:   game.SeatConfig{PlayerID: Bob, Deck: opts.BobDeck, IsAI: opts.BobIsAI},
		OpeningHand: 0,
	})
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	return &Harness{
		T:       t,
		Oracle:  cards,
		Engine:  game.NewEngine(cards, zaptest.NewLogger(t)),
		Session: s,
	}
}

// Put adds a new instance of cardID to the end of a player's zone.
func (h *Harness) Put(playerID string, kind game.ZoneKind, cardID string) *game.CardInstance {
	h.seq++
	inst := &game.CardInstance{
		InstanceID: fmt.Sprintf("%s-%s-%d", playerID, cardID, h.seq),
		CardID:     cardID,
		OwnerID:    playerID,
	}
	key := game.ZoneKey{PlayerID: playerID, Kind: kind}
	h.Session.Zones[key] = append(h.Session.Zones[key], inst)
	return inst
}

// Hand puts cards into a player's hand and returns the instances.
func (h *Harness) Hand(playerID string, cardIDs ...string) []*game.CardInstance {
	out := make([]*game.CardInstance, 0, len(cardIDs))
	for _, id := range cardIDs {
		out = append(out, h.Put(playerID, game.ZoneHand, id))
	}
	return out
}

// Creature puts an untapped creature able to attack onto the battlefield.
func (h *Harness) Creature(playerID, cardID string) *game.CardInstance {
	return h.Put(playerID, game.ZoneBattlefield, cardID)
}

// Mana sets a player's pool.
func (h *Harness) Mana(playerID string, pool mana.Pool) {
	h.Player(playerID).ManaPool = pool
}

// Phase moves the session straight to the given phase of the current turn.
// Anything past Draw marks the active player as having drawn.
func (h *Harness) Phase(phase rules.Phase) {
	h.Session.Turn.Phase = phase
	if phase != rules.PhaseDraw {
		h.Player(h.Session.ActivePlayerID()).HasDrawnThisTurn = true
	}
}

// Player returns a player's state, failing the test when missing.
func (h *Harness) Player(playerID string) *game.PlayerState {
	p, err := h.Session.Player(playerID)
	if err != nil {
		h.T.Fatalf("player %s not found", playerID)
	}
	return p
}

// Count returns the number of cards in a player's zone.
func (h *Harness) Count(playerID string, kind game.ZoneKind) int {
	return len(h.Session.Zone(playerID, kind))
}

// In reports whether an instance is in the given zone.
func (h *Harness) In(instanceID string, playerID string, kind game.ZoneKind) bool {
	for _, c := range h.Session.Zone(playerID, kind) {
		if c.InstanceID == instanceID {
			return true
		}
	}
	return false
}

// Find returns the current instance for an id. Apply commits a copy of the
// session, so instances captured before an action are stale afterwards.
func (h *Harness) Find(instanceID string) *game.CardInstance {
	_, inst, ok := h.Session.Locate(instanceID)
	if !ok {
		h.T.Fatalf("card %s not found in any zone", instanceID)
	}
	return inst
}

// Apply submits an action.
func (h *Harness) Apply(action game.Action) (game.Outcome, error) {
	return h.Engine.Apply(context.Background(), h.Session, action)
}

// MustApply submits an action and fails the test on error.
func (h *Harness) MustApply(action game.Action) game.Outcome {
	h.T.Helper()
	out, err := h.Apply(action)
	if err != nil {
		h.T.Fatalf("%s by %s failed: %v", action.Type, action.PlayerID, err)
	}
	return out
}
