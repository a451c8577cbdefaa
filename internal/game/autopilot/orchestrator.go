// Package autopilot plays whole turns for computer-controlled players by
// feeding ai decisions through the same engine path human actions take.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/magefree/mage-duel-server/internal/game/ai"
	"github.com/magefree/mage-duel-server/internal/game/mana"
	"github.com/magefree/mage-duel-server/internal/game/rules"
	"go.uber.org/zap"
)

// DefaultMaxSteps bounds the number of decisions per turn.
const DefaultMaxSteps = 64

// Orchestrator drives AI turns.
type Orchestrator struct {
	engine   *game.Engine
	logger   *zap.Logger
	maxSteps int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxSteps overrides the per-turn decision cap.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// New creates an orchestrator on top of engine.
func New(engine *game.Engine, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		engine:   engine,
		logger:   logger,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// TurnReport summarizes one AI turn.
type TurnReport struct {
	PlayerID   string
	Actions    []game.Action
	Messages   []string
	Dropped    []string
	HitStepCap bool
	EndGame    *game.EndGameResult
}

func (r *TurnReport) record(a game.Action, out game.Outcome) {
	r.Actions = append(r.Actions, a)
	if out.Message != "" {
		r.Messages = append(r.Messages, out.Message)
	}
	if out.EndGame != nil {
		r.EndGame = out.EndGame
	}
}

// RunTurn plays the active player's turn from Draw (or wherever it currently
// is) through EndTurn. A card whose action fails is dropped for the rest of
// the turn. The session is modified in place; persisting it is up to the
// caller.
func (o *Orchestrator) RunTurn(ctx context.Context, s *game.Session) (TurnReport, error) {
	playerID := s.ActivePlayerID()
	report := TurnReport{PlayerID: playerID}

	player, err := s.Player(playerID)
	if err != nil {
		return report, err
	}
	if !player.IsAI {
		return report, fmt.Errorf("%w: %s is not computer-controlled", game.ErrIllegalAction, playerID)
	}
	logger := o.logger.With(zap.String("session_id", s.ID), zap.String("player_id", playerID), zap.Int("turn", s.Turn.Number))

	if s.Turn.Phase == rules.PhaseDraw && !player.HasDrawnThisTurn {
		if err := o.apply(ctx, s, &report, game.Action{PlayerID: playerID, Type: rules.ActionDraw}); err != nil {
			return report, err
		}
		if s.IsOver() {
			return report, nil
		}
	}

	dropped := make(map[string]bool)
	step := 0
	for ; step < o.maxSteps && s.Turn.Phase == rules.PhaseMain && !s.IsOver(); step++ {
		// Apply commits a fresh copy, so re-read the player every step.
		player, err = s.Player(playerID)
		if err != nil {
			return report, err
		}
		hand, err := o.handCards(ctx, s, playerID, dropped, logger)
		if err != nil {
			return report, err
		}
		decision := ai.Decide(*player, s, hand)
		if decision.EndTurn {
			break
		}

		out, err := o.engine.Apply(ctx, s, decision.Action)
		if err != nil {
			logger.Debug("ai action failed, dropping card",
				zap.String("action", string(decision.Action.Type)),
				zap.String("card", decision.Action.CardID),
				zap.Error(err),
			)
			dropped[decision.Action.CardID] = true
			report.Dropped = append(report.Dropped, decision.Action.CardID)
			continue
		}
		report.record(decision.Action, out)
	}
	if step >= o.maxSteps {
		report.HitStepCap = true
		logger.Warn("ai turn hit the step cap", zap.Int("max_steps", o.maxSteps))
	}
	if s.IsOver() {
		return report, nil
	}

	if err := o.finishTurn(ctx, s, &report); err != nil {
		return report, err
	}
	logger.Debug("ai turn complete", zap.Int("actions", len(report.Actions)))
	return report, nil
}

// finishTurn closes combat, discards to the hand limit and passes the turn.
func (o *Orchestrator) finishTurn(ctx context.Context, s *game.Session, report *TurnReport) error {
	playerID := report.PlayerID

	if s.Turn.Phase == rules.PhaseCombat && s.Combat.Pending() {
		out, err := o.engine.ResolveOpenCombat(ctx, s)
		if err != nil {
			return err
		}
		if out.Message != "" {
			report.Messages = append(report.Messages, out.Message)
		}
		if out.EndGame != nil {
			report.EndGame = out.EndGame
			return nil
		}
	}

	if s.Turn.Phase == rules.PhaseMain || s.Turn.Phase == rules.PhaseCombat {
		if err := o.apply(ctx, s, report, game.Action{PlayerID: playerID, Type: rules.ActionPreEnd}); err != nil {
			return err
		}
	}

	if s.Turn.Phase == rules.PhasePreEnd {
		discard := o.chooseDiscards(ctx, s, playerID)
		if err := o.apply(ctx, s, report, game.Action{PlayerID: playerID, Type: rules.ActionDiscard, CardsToDiscard: discard}); err != nil {
			return err
		}
	}

	if s.Turn.Phase == rules.PhaseEnd && !s.IsOver() {
		return o.apply(ctx, s, report, game.Action{PlayerID: playerID, Type: rules.ActionEndTurn})
	}
	return nil
}

func (o *Orchestrator) apply(ctx context.Context, s *game.Session, report *TurnReport, a game.Action) error {
	out, err := o.engine.Apply(ctx, s, a)
	if err != nil {
		return fmt.Errorf("ai %s: %w", a.Type, err)
	}
	report.record(a, out)
	return nil
}

// handCards resolves the player's hand, leaving out dropped cards and cards
// missing from the oracle. Any other oracle error aborts the turn.
func (o *Orchestrator) handCards(ctx context.Context, s *game.Session, playerID string, dropped map[string]bool, logger *zap.Logger) ([]ai.HandCard, error) {
	var hand []ai.HandCard
	for _, inst := range s.Hand(playerID) {
		if dropped[inst.InstanceID] {
			continue
		}
		card, err := o.engine.Card(ctx, inst.CardID)
		if errors.Is(err, game.ErrNotFound) {
			logger.Debug("skipping unresolvable card", zap.String("card_id", inst.CardID), zap.Error(err))
			dropped[inst.InstanceID] = true
			continue
		}
		if err != nil {
			return nil, err
		}
		hand = append(hand, ai.HandCard{InstanceID: inst.InstanceID, Card: card})
	}
	return hand, nil
}

// chooseDiscards picks the cards above the hand limit, highest mana value
// first. Equal values keep hand order.
func (o *Orchestrator) chooseDiscards(ctx context.Context, s *game.Session, playerID string) []string {
	hand := s.Hand(playerID)
	excess := len(hand) - o.engine.HandLimit()
	if excess <= 0 {
		return nil
	}

	type ranked struct {
		instanceID string
		manaValue  int
	}
	cards := make([]ranked, 0, len(hand))
	for _, inst := range hand {
		mv := 0
		if card, err := o.engine.Card(ctx, inst.CardID); err == nil {
			if req, err := mana.ParseCost(card.ManaCost); err == nil {
				mv = req.ManaValue()
			}
		}
		cards = append(cards, ranked{instanceID: inst.InstanceID, manaValue: mv})
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].manaValue > cards[j].manaValue
	})

	out := make([]string, 0, excess)
	for _, c := range cards[:excess] {
		out = append(out, c.instanceID)
	}
	return out
}
