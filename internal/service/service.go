// Package service is the dispatch boundary between transports and the rules
// engine. It owns the load, apply, save cycle for each session and turns
// engine errors into client-facing results.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/magefree/mage-duel-server/internal/game/autopilot"
	"github.com/magefree/mage-duel-server/internal/game/mana"
	"github.com/magefree/mage-duel-server/internal/game/rules"
	"github.com/magefree/mage-duel-server/internal/oracle"
	"github.com/magefree/mage-duel-server/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/magefree/mage-duel-server/internal/service"

var (
	// ErrInvalidRequest reports a malformed create request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAITurn reports a computer turn that could not be completed. The
	// request that triggered it is not saved.
	ErrAITurn = errors.New("ai turn failed")
)

// Result codes returned with failed results.
const (
	CodeNotFound       = "not_found"
	CodeIllegalAction  = "illegal_action"
	CodeConflict       = "conflict"
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal"
)

// Result is the outcome of one request as reported to clients.
type Result struct {
	Success   bool                  `json:"success"`
	Message   string                `json:"message,omitempty"`
	Code      string                `json:"code,omitempty"`
	GameState *game.SessionSnapshot `json:"gameState,omitempty"`
	EndGame   *game.EndGameResult   `json:"endGame,omitempty"`
}

// Seat is one player in a create request.
type Seat struct {
	PlayerID string   `json:"playerId"`
	Deck     []string `json:"deck"`
	IsAI     bool     `json:"isAi,omitempty"`
}

// CreateSessionRequest starts a new match.
type CreateSessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	PlayerOne Seat   `json:"playerOne"`
	PlayerTwo Seat   `json:"playerTwo"`
	Seed      *int64 `json:"seed,omitempty"`
	Shuffle   *bool  `json:"shuffle,omitempty"`
}

// Listener observes every successful result. It is called with the session
// lock held and must not block.
type Listener func(sessionID string, result Result)

// Service dispatches actions against stored sessions.
type Service struct {
	store     repository.SessionStore
	engine    *game.Engine
	autopilot *autopilot.Orchestrator
	logger    *zap.Logger
	tracer    trace.Tracer
	locks     *keyedMutex
	listeners []Listener

	startingLife int
	openingHand  int
}

// Option configures a Service.
type Option func(*Service)

// WithStartingLife sets the life total of new sessions.
func WithStartingLife(n int) Option {
	return func(s *Service) { s.startingLife = n }
}

// WithOpeningHand sets the number of cards dealt to each player.
func WithOpeningHand(n int) Option {
	return func(s *Service) { s.openingHand = n }
}

// WithListener registers a listener for successful results.
func WithListener(l Listener) Option {
	return func(s *Service) { s.listeners = append(s.listeners, l) }
}

// New creates a service.
func New(store repository.SessionStore, engine *game.Engine, pilot *autopilot.Orchestrator, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:        store,
		engine:       engine,
		autopilot:    pilot,
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
		locks:        newKeyedMutex(),
		startingLife: game.DefaultStartingLife,
		openingHand:  game.DefaultOpeningHand,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddListener registers a listener after construction.
func (s *Service) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// CreateSession builds and stores a new match. When player one is
// computer-controlled its first turn is played before the session is stored,
// and a failed turn fails the create.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) Result {
	ctx, span := s.tracer.Start(ctx, "service.CreateSession")
	defer span.End()

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	shuffle := true
	if req.Shuffle != nil {
		shuffle = *req.Shuffle
	}

	session, err := game.NewSession(game.NewSessionParams{
		ID:           req.SessionID,
		PlayerOne:    game.SeatConfig{PlayerID: req.PlayerOne.PlayerID, Deck: req.PlayerOne.Deck, IsAI: req.PlayerOne.IsAI},
		PlayerTwo:    game.SeatConfig{PlayerID: req.PlayerTwo.PlayerID, Deck: req.PlayerTwo.Deck, IsAI: req.PlayerTwo.IsAI},
		Seed:         seed,
		Shuffle:      shuffle,
		StartingLife: s.startingLife,
		OpeningHand:  s.openingHand,
	})
	if err != nil {
		return s.fail(span, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err))
	}
	span.SetAttributes(attribute.String("session.id", session.ID))

	unlock := s.locks.Lock(session.ID)
	defer unlock()

	var messages []string
	if s.aiToMove(session) {
		if messages, err = s.runAITurn(ctx, session); err != nil {
			return s.fail(span, session.ID, err)
		}
	}

	if err := s.store.Create(ctx, session); err != nil {
		return s.fail(span, session.ID, err)
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("player_one", session.PlayerOneID),
		zap.String("player_two", session.PlayerTwoID),
	)
	messages = append([]string{"session created"}, messages...)
	return s.succeed(session, strings.Join(messages, "; "))
}

// GetSession returns the stored state of a session.
func (s *Service) GetSession(ctx context.Context, sessionID string) Result {
	ctx, span := s.tracer.Start(ctx, "service.GetSession",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return s.fail(span, sessionID, err)
	}
	snap := session.Snapshot()
	return Result{Success: true, GameState: &snap, EndGame: session.Result}
}

// Dispatch applies one action to a stored session and saves the result. When
// the action hands the turn to a computer-controlled player, that player's
// whole turn runs before the save. If the computer turn fails nothing is
// saved and the caller may resubmit the action.
func (s *Service) Dispatch(ctx context.Context, sessionID string, action game.Action) Result {
	ctx, span := s.tracer.Start(ctx, "service.Dispatch", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("action.type", string(action.Type)),
		attribute.String("player.id", action.PlayerID),
	))
	defer span.End()

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return s.fail(span, sessionID, err)
	}

	out, err := s.autopilot.Attack(ctx, session, action)
	if err != nil {
		s.logger.Debug("action rejected",
			zap.String("session_id", sessionID),
			zap.String("player_id", action.PlayerID),
			zap.String("action", string(action.Type)),
			zap.Error(err),
		)
		return s.fail(span, sessionID, err)
	}

	messages := []string{out.Message}
	if s.aiToMove(session) {
		aiMessages, err := s.runAITurn(ctx, session)
		if err != nil {
			return s.fail(span, sessionID, err)
		}
		messages = append(messages, aiMessages...)
	}

	if err := s.store.Save(ctx, session); err != nil {
		return s.fail(span, sessionID, err)
	}
	return s.succeed(session, strings.Join(nonEmpty(messages), "; "))
}

// aiToMove reports whether a computer-controlled player is active at the
// start of its turn.
func (s *Service) aiToMove(session *game.Session) bool {
	if session.IsOver() || session.Turn.Phase != rules.PhaseDraw {
		return false
	}
	p, err := session.Player(session.ActivePlayerID())
	return err == nil && p.IsAI
}

// runAITurn plays the AI turn on a copy and commits it only when the turn
// completes without error.
func (s *Service) runAITurn(ctx context.Context, session *game.Session) ([]string, error) {
	work := session.Clone()
	report, err := s.autopilot.RunTurn(ctx, work)
	if err != nil {
		s.logger.Warn("ai turn failed",
			zap.String("session_id", session.ID),
			zap.String("player_id", report.PlayerID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w for %s: %w", ErrAITurn, report.PlayerID, err)
	}
	*session = *work
	return report.Messages, nil
}

func (s *Service) succeed(session *game.Session, message string) Result {
	snap := session.Snapshot()
	res := Result{
		Success:   true,
		Message:   message,
		GameState: &snap,
		EndGame:   session.Result,
	}
	for _, l := range s.listeners {
		l(session.ID, res)
	}
	return res
}

func (s *Service) fail(span trace.Span, sessionID string, err error) Result {
	code := Classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
	if code == CodeInternal {
		s.logger.Error("request failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return Result{Success: false, Message: err.Error(), Code: code}
}

// Classify maps an error onto a result code.
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrAITurn):
		return CodeInternal
	case errors.Is(err, game.ErrNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, oracle.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, game.ErrIllegalAction),
		errors.Is(err, mana.ErrInsufficientMana):
		return CodeIllegalAction
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrAlreadyExists):
		return CodeConflict
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, m := range in {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
