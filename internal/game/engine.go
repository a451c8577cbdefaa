package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/magefree/mage-duel-server/internal/game/mana"
	"github.com/magefree/mage-duel-server/internal/game/rules"
	"github.com/magefree/mage-duel-server/internal/oracle"
	"go.uber.org/zap"
)

// Engine validates and applies one action at a time against a session.
// It keeps no per-session state between calls.
type Engine struct {
	oracle    oracle.Oracle
	logger    *zap.Logger
	handLimit int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithHandLimit overrides the end-of-turn hand size limit.
func WithHandLimit(limit int) EngineOption {
	return func(e *Engine) {
		if limit > 0 {
			e.handLimit = limit
		}
	}
}

// NewEngine creates a rules engine reading card data from the oracle.
func NewEngine(cards oracle.Oracle, logger *zap.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		oracle:    cards,
		logger:    logger,
		handLimit: DefaultHandLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandLimit returns the end-of-turn hand size limit.
func (e *Engine) HandLimit() int {
	return e.handLimit
}

// Card fetches static card data, mapping a missing card to ErrNotFound.
func (e *Engine) Card(ctx context.Context, cardID string) (oracle.Card, error) {
	card, err := e.oracle.GetCardByID(ctx, cardID)
	if errors.Is(err, oracle.ErrNotFound) {
		return oracle.Card{}, notFoundf("card %s", cardID)
	}
	if err != nil {
		return oracle.Card{}, fmt.Errorf("fetch card %s: %w", cardID, err)
	}
	return card, nil
}

// actionScope carries one Apply call. Card data is fetched fresh for every
// call and memoized only until the call returns.
type actionScope struct {
	ctx     context.Context
	engine  *Engine
	session *Session
	cards   map[string]oracle.Card
}

func (sc *actionScope) card(cardID string) (oracle.Card, error) {
	if c, ok := sc.cards[cardID]; ok {
		return c, nil
	}
	c, err := sc.engine.Card(sc.ctx, cardID)
	if err != nil {
		return oracle.Card{}, err
	}
	sc.cards[cardID] = c
	return c, nil
}

// Apply validates action against the session and applies it. The session is
// only modified when the whole action succeeds.
func (e *Engine) Apply(ctx context.Context, s *Session, action Action) (Outcome, error) {
	if s == nil {
		return Outcome{}, notFoundf("session")
	}

	if res := rules.CheckTiming(s.turnContext(), action.PlayerID, action.Type); !res.Legal {
		if e.logger != nil {
			e.logger.Debug("action rejected",
				zap.String("session_id", s.ID),
				zap.String("player_id", action.PlayerID),
				zap.String("action", string(action.Type)),
				zap.String("phase", s.Turn.Phase.String()),
				zap.String("reason", res.Reason),
			)
		}
		return Outcome{}, illegalf("%s", res.Reason)
	}

	return e.run(ctx, s, action, func(sc *actionScope) (Outcome, error) {
		switch action.Type {
		case rules.ActionDraw:
			return e.draw(sc, action)
		case rules.ActionPlayLand:
			return e.playLand(sc, action)
		case rules.ActionPlayCard:
			return e.playCard(sc, action)
		case rules.ActionCastInstant:
			return e.castInstant(sc, action)
		case rules.ActionPassToCombat:
			return e.passToCombat(sc, action)
		case rules.ActionAttack:
			return e.declareAttackers(sc, action)
		case rules.ActionBlock:
			return e.declareBlockers(sc, action)
		case rules.ActionPreEnd:
			return e.preEnd(sc, action)
		case rules.ActionDiscard:
			return e.discard(sc, action)
		case rules.ActionEndTurn:
			return e.endTurn(sc, action)
		default:
			return Outcome{}, illegalf("unknown action type %s", action.Type)
		}
	})
}

// ResolveOpenCombat deals damage for attackers still waiting for blocks, as if
// the defender declared no blockers. It is a no-op outside a pending combat.
func (e *Engine) ResolveOpenCombat(ctx context.Context, s *Session) (Outcome, error) {
	if s == nil {
		return Outcome{}, notFoundf("session")
	}
	if s.IsOver() || s.Turn.Phase != rules.PhaseCombat || !s.Combat.Pending() {
		return Outcome{}, nil
	}
	return e.run(ctx, s, Action{PlayerID: s.DefendingPlayerID(), Type: rules.ActionBlock}, func(sc *actionScope) (Outcome, error) {
		report, err := e.resolveCombat(sc, nil)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Message: "combat resolved without blocks", Combat: report}, nil
	})
}

// run applies fn to a private copy of the session and commits the copy only
// on success, followed by the end-game check.
func (e *Engine) run(ctx context.Context, s *Session, action Action, fn func(*actionScope) (Outcome, error)) (Outcome, error) {
	work := s.Clone()
	sc := &actionScope{
		ctx:     ctx,
		engine:  e,
		session: work,
		cards:   make(map[string]oracle.Card),
	}

	outcome, err := fn(sc)
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("action failed",
				zap.String("session_id", s.ID),
				zap.String("player_id", action.PlayerID),
				zap.String("action", string(action.Type)),
				zap.Error(err),
			)
		}
		return Outcome{}, err
	}

	if work.Result == nil {
		work.Result = CheckEndGame(work)
	}
	if work.Result != nil {
		outcome.EndGame = work.Result
		if work.Result.WinnerID == "" {
			work.addMessage("Game ended in a draw")
		} else {
			work.addMessage(fmt.Sprintf("%s wins (%s)", work.Result.WinnerID, work.Result.Reason))
		}
	}
	work.UpdatedAt = time.Now().UTC()
	*s = *work

	if e.logger != nil {
		e.logger.Debug("action applied",
			zap.String("session_id", s.ID),
			zap.String("player_id", action.PlayerID),
			zap.String("action", string(action.Type)),
			zap.Int("turn", s.Turn.Number),
			zap.String("phase", s.Turn.Phase.String()),
		)
	}
	return outcome, nil
}

// draw runs the start-of-turn upkeep and draws the top card of the library.
func (e *Engine) draw(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	player, err := s.Player(a.PlayerID)
	if err != nil {
		return Outcome{}, err
	}
	if player.HasDrawnThisTurn {
		return Outcome{}, illegalf("already drawn this turn")
	}

	if err := e.untap(sc, player); err != nil {
		return Outcome{}, err
	}
	player.HasDrawnThisTurn = true

	libKey := ZoneKey{a.PlayerID, ZoneLibrary}
	library, ok := s.Zones[libKey]
	if !ok {
		return Outcome{}, inconsistentf("zone %s missing", libKey)
	}
	if len(library) == 0 {
		s.Result = &EndGameResult{WinnerID: s.Opponent(a.PlayerID), Reason: ReasonDeckOut}
		s.addMessage(fmt.Sprintf("%s cannot draw from an empty library", a.PlayerID))
		return Outcome{Message: "library is empty"}, nil
	}

	top := library[0]
	if _, err := s.moveCard(top.InstanceID, libKey, ZoneKey{a.PlayerID, ZoneHand}); err != nil {
		return Outcome{}, err
	}
	if err := s.Turn.Advance(rules.PhaseMain); err != nil {
		return Outcome{}, inconsistentf("%v", err)
	}

	s.addMessage(fmt.Sprintf("%s draws a card", a.PlayerID))
	return Outcome{Message: "drew a card"}, nil
}

// untap readies the player's permanents and adds one mana per land they
// control.
func (e *Engine) untap(sc *actionScope, player *PlayerState) error {
	for _, inst := range sc.session.Battlefield(player.PlayerID) {
		inst.Tapped = false
		inst.SummoningSick = false
		card, err := sc.card(inst.CardID)
		if err != nil {
			return err
		}
		if card.IsLand() {
			player.ManaPool = player.ManaPool.Add(mana.LandColor(card.Subtypes()), 1)
		}
	}
	return nil
}

func (e *Engine) handCard(sc *actionScope, playerID, ref string) (*CardInstance, oracle.Card, error) {
	if ref == "" {
		return nil, oracle.Card{}, illegalf("cardId is required")
	}
	inst, _, ok := sc.session.FindInZone(ZoneKey{playerID, ZoneHand}, ref)
	if !ok {
		return nil, oracle.Card{}, notFoundf("card %s in hand of %s", ref, playerID)
	}
	card, err := sc.card(inst.CardID)
	if err != nil {
		return nil, oracle.Card{}, err
	}
	return inst, card, nil
}

func (e *Engine) playLand(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	player, err := s.Player(a.PlayerID)
	if err != nil {
		return Outcome{}, err
	}
	inst, card, err := e.handCard(sc, a.PlayerID, a.CardID)
	if err != nil {
		return Outcome{}, err
	}
	if !card.IsLand() {
		return Outcome{}, illegalf("%s is not a land", card.Name)
	}
	if player.LandsPlayedThisTurn >= 1 {
		return Outcome{}, illegalf("already played a land this turn")
	}

	if _, err := s.moveCard(inst.InstanceID, ZoneKey{a.PlayerID, ZoneHand}, ZoneKey{a.PlayerID, ZoneBattlefield}); err != nil {
		return Outcome{}, err
	}
	player.LandsPlayedThisTurn++

	// Landfall: the land's mana is available the turn it is played.
	color := mana.LandColor(card.Subtypes())
	player.ManaPool = player.ManaPool.Add(color, 1)

	s.addMessage(fmt.Sprintf("%s plays %s", a.PlayerID, card.Name))
	return Outcome{Message: fmt.Sprintf("played %s", card.Name)}, nil
}

// pay deducts a card's cost from the player's pool.
func (e *Engine) pay(player *PlayerState, card oracle.Card) error {
	req, err := mana.ParseCost(card.ManaCost)
	if err != nil {
		return inconsistentf("card %s has unparseable cost %q: %v", card.ID, card.ManaCost, err)
	}
	if !mana.CanAfford(player.ManaPool, req) {
		return illegalf("cannot afford %s (%s) with %s", card.Name, req, player.ManaPool)
	}
	paid, err := mana.Deduct(player.ManaPool, req)
	if err != nil {
		return illegalf("%v", err)
	}
	player.ManaPool = paid
	return nil
}

// checkTarget verifies that a target id names a player or a card on a
// battlefield.
func (e *Engine) checkTarget(s *Session, targetID string) error {
	if _, ok := s.Players[targetID]; ok {
		return nil
	}
	if key, _, ok := s.Locate(targetID); ok && key.Kind == ZoneBattlefield {
		return nil
	}
	return notFoundf("target %s", targetID)
}

func (e *Engine) playCard(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	player, err := s.Player(a.PlayerID)
	if err != nil {
		return Outcome{}, err
	}
	inst, card, err := e.handCard(sc, a.PlayerID, a.CardID)
	if err != nil {
		return Outcome{}, err
	}
	if card.IsLand() {
		return Outcome{}, illegalf("%s is a land; use PlayLand", card.Name)
	}

	var target *CardInstance
	if card.IsAura() {
		if a.TargetID == "" {
			return Outcome{}, illegalf("%s needs a target creature", card.Name)
		}
		key, t, ok := s.Locate(a.TargetID)
		if !ok || key.Kind != ZoneBattlefield {
			return Outcome{}, notFoundf("target %s on the battlefield", a.TargetID)
		}
		targetCard, err := sc.card(t.CardID)
		if err != nil {
			return Outcome{}, err
		}
		if !targetCard.IsCreature() {
			return Outcome{}, illegalf("%s can only enchant a creature", card.Name)
		}
		target = t
	} else if a.TargetID != "" {
		if err := e.checkTarget(s, a.TargetID); err != nil {
			return Outcome{}, err
		}
	}

	if err := e.pay(player, card); err != nil {
		return Outcome{}, err
	}

	dest := ZoneKey{a.PlayerID, ZoneBattlefield}
	if !card.IsPermanent() {
		dest = ZoneKey{a.PlayerID, ZoneGraveyard}
	}
	moved, err := s.moveCard(inst.InstanceID, ZoneKey{a.PlayerID, ZoneHand}, dest)
	if err != nil {
		return Outcome{}, err
	}
	if card.IsCreature() && dest.Kind == ZoneBattlefield {
		moved.SummoningSick = true
	}
	if target != nil {
		target.Attachments = append(target.Attachments, moved.InstanceID)
	}

	s.addMessage(fmt.Sprintf("%s casts %s", a.PlayerID, card.Name))
	return Outcome{Message: fmt.Sprintf("cast %s", card.Name)}, nil
}

func (e *Engine) castInstant(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	player, err := s.Player(a.PlayerID)
	if err != nil {
		return Outcome{}, err
	}
	inst, card, err := e.handCard(sc, a.PlayerID, a.CardID)
	if err != nil {
		return Outcome{}, err
	}
	if !card.IsInstant() {
		return Outcome{}, illegalf("%s is not an instant", card.Name)
	}
	if a.TargetID != "" {
		if err := e.checkTarget(s, a.TargetID); err != nil {
			return Outcome{}, err
		}
	}
	if err := e.pay(player, card); err != nil {
		return Outcome{}, err
	}
	if _, err := s.moveCard(inst.InstanceID, ZoneKey{a.PlayerID, ZoneHand}, ZoneKey{a.PlayerID, ZoneGraveyard}); err != nil {
		return Outcome{}, err
	}

	text := fmt.Sprintf("%s casts %s", a.PlayerID, card.Name)
	if a.TargetID != "" {
		text += " targeting " + a.TargetID
	}
	s.addMessage(text)
	return Outcome{Message: fmt.Sprintf("cast %s", card.Name)}, nil
}

func (e *Engine) passToCombat(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	if err := s.Turn.Advance(rules.PhaseCombat); err != nil {
		return Outcome{}, illegalf("%v", err)
	}
	s.Combat = CombatState{}
	s.addMessage(fmt.Sprintf("%s moves to combat", a.PlayerID))
	return Outcome{Message: "entered combat"}, nil
}

// preEnd moves to the pre-end checkpoint. With a legal hand size it passes
// straight through to End; otherwise a Discard is required first.
func (e *Engine) preEnd(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	if err := s.Turn.Advance(rules.PhasePreEnd); err != nil {
		return Outcome{}, illegalf("%v", err)
	}
	if excess := len(s.Hand(a.PlayerID)) - e.handLimit; excess > 0 {
		s.addMessage(fmt.Sprintf("%s must discard %d", a.PlayerID, excess))
		return Outcome{Message: fmt.Sprintf("discard %d to reach hand size", excess)}, nil
	}
	if err := s.Turn.Advance(rules.PhaseEnd); err != nil {
		return Outcome{}, inconsistentf("%v", err)
	}
	return Outcome{Message: "end of turn"}, nil
}

func (e *Engine) discard(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	handKey := ZoneKey{a.PlayerID, ZoneHand}
	excess := len(s.Zones[handKey]) - e.handLimit
	if excess < 0 {
		excess = 0
	}
	if len(a.CardsToDiscard) != excess {
		return Outcome{}, illegalf("must discard exactly %d card(s), got %d", excess, len(a.CardsToDiscard))
	}

	chosen, err := resolveDistinct(s, handKey, a.CardsToDiscard)
	if err != nil {
		return Outcome{}, err
	}
	for _, inst := range chosen {
		if _, err := s.moveCard(inst.InstanceID, handKey, ZoneKey{a.PlayerID, ZoneGraveyard}); err != nil {
			return Outcome{}, err
		}
	}
	if err := s.Turn.Advance(rules.PhaseEnd); err != nil {
		return Outcome{}, inconsistentf("%v", err)
	}

	if len(chosen) > 0 {
		s.addMessage(fmt.Sprintf("%s discards %d card(s)", a.PlayerID, len(chosen)))
	}
	return Outcome{Message: fmt.Sprintf("discarded %d", len(chosen))}, nil
}

func (e *Engine) endTurn(sc *actionScope, a Action) (Outcome, error) {
	s := sc.session
	ending, err := s.Player(a.PlayerID)
	if err != nil {
		return Outcome{}, err
	}
	ending.ManaPool = mana.Pool{}

	next := s.Opponent(a.PlayerID)
	if err := s.Turn.Rotate(next); err != nil {
		return Outcome{}, illegalf("%v", err)
	}
	for _, p := range s.Players {
		p.LandsPlayedThisTurn = 0
		p.HasDrawnThisTurn = false
	}
	s.Combat = CombatState{}

	s.addMessage(fmt.Sprintf("%s ends the turn", a.PlayerID))
	return Outcome{Message: fmt.Sprintf("turn %d: %s is active", s.Turn.Number, next)}, nil
}

// resolveDistinct resolves a list of card references inside one zone to
// distinct instances. A card id picks the first instance not chosen yet.
func resolveDistinct(s *Session, key ZoneKey, refs []string) ([]*CardInstance, error) {
	chosen := make([]*CardInstance, 0, len(refs))
	used := make(map[string]bool, len(refs))
	zone := s.Zones[key]

	for _, ref := range refs {
		var match *CardInstance
		for _, c := range zone {
			if c.InstanceID == ref {
				match = c
				break
			}
		}
		if match != nil && used[match.InstanceID] {
			return nil, illegalf("card %s listed twice", ref)
		}
		if match == nil {
			for _, c := range zone {
				if c.CardID == ref && !used[c.InstanceID] {
					match = c
					break
				}
			}
		}
		if match == nil {
			return nil, notFoundf("card %s in %s", ref, key)
		}
		used[match.InstanceID] = true
		chosen = append(chosen, match)
	}
	return chosen, nil
}
