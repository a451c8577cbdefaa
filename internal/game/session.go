package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/magefree/mage-duel-server/internal/game/mana"
	"github.com/magefree/mage-duel-server/internal/game/rules"
)

const (
	// DefaultStartingLife is each player's life total at the start of a match.
	DefaultStartingLife = 20
	// DefaultHandLimit is the maximum hand size at the end of a turn.
	DefaultHandLimit = 7
	// DefaultOpeningHand is the number of cards dealt before turn 1.
	DefaultOpeningHand = 7

	maxLogEntries = 200
)

// PlayerState is one player's per-match state.
type PlayerState struct {
	PlayerID            string    `json:"playerId"`
	Life                int       `json:"lifeTotal"`
	ManaPool            mana.Pool `json:"manaPool"`
	LandsPlayedThisTurn int       `json:"landsPlayedThisTurn"`
	HasDrawnThisTurn    bool      `json:"hasDrawnThisTurn"`
	IsAI                bool      `json:"isAi,omitempty"`
}

// CombatState tracks the current turn's combat.
type CombatState struct {
	// Attackers holds declared attacker instance ids in declaration order.
	Attackers []string `json:"attackers,omitempty"`
	// Resolved is set once damage has been dealt this turn.
	Resolved bool `json:"resolved,omitempty"`
}

// Pending reports whether attackers wait for blocks.
func (c CombatState) Pending() bool {
	return len(c.Attackers) > 0
}

// End-game reasons.
const (
	ReasonLethal  = "lethal"
	ReasonDeckOut = "deck_out"
	ReasonDraw    = "draw"
)

// EndGameResult describes a finished match. WinnerID is empty for a draw.
type EndGameResult struct {
	WinnerID string `json:"winnerId"`
	Reason   string `json:"reason"`
}

// LogEntry is a game log message.
type LogEntry struct {
	Turn int    `json:"turn"`
	Text string `json:"text"`
}

// Session is the canonical in-memory state of one match.
type Session struct {
	ID          string
	PlayerOneID string
	PlayerTwoID string
	Turn        rules.Turn
	Players     map[string]*PlayerState
	Zones       map[ZoneKey][]*CardInstance
	Combat      CombatState
	Result      *EndGameResult
	Seed        int64
	Log         []LogEntry
	// Version is the store's optimistic concurrency token.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SeatConfig describes one player joining a new session.
type SeatConfig struct {
	PlayerID string
	Deck     []string // card ids, top of library first when not shuffled
	IsAI     bool
}

// NewSessionParams configures NewSession.
type NewSessionParams struct {
	ID           string
	PlayerOne    SeatConfig
	PlayerTwo    SeatConfig
	Seed         int64
	Shuffle      bool
	StartingLife int
	OpeningHand  int
}

// NewSession builds a fresh match. Player one takes the first turn, starting
// in the draw phase. Each deck becomes that player's library, optionally
// shuffled with Seed, and the opening hand is dealt from the top.
func NewSession(params NewSessionParams) (*Session, error) {
	one := strings.TrimSpace(params.PlayerOne.PlayerID)
	two := strings.TrimSpace(params.PlayerTwo.PlayerID)
	if one == "" || two == "" {
		return nil, fmt.Errorf("both player ids are required")
	}
	if one == two {
		return nil, fmt.Errorf("player ids must differ")
	}
	if params.PlayerOne.IsAI && params.PlayerTwo.IsAI {
		return nil, fmt.Errorf("at least one player must be human")
	}

	id := strings.TrimSpace(params.ID)
	if id == "" {
		id = uuid.NewString()
	}
	life := params.StartingLife
	if life <= 0 {
		life = DefaultStartingLife
	}
	opening := params.OpeningHand
	if opening < 0 {
		opening = 0
	}

	now := time.Now().UTC()
	s := &Session{
		ID:          id,
		PlayerOneID: one,
		PlayerTwoID: two,
		Turn:        rules.NewTurn(one),
		Players:     make(map[string]*PlayerState, 2),
		Zones:       make(map[ZoneKey][]*CardInstance, 8),
		Seed:        params.Seed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	rng := rand.New(rand.NewSource(params.Seed))
	for _, seat := range []SeatConfig{params.PlayerOne, params.PlayerTwo} {
		playerID := strings.TrimSpace(seat.PlayerID)
		s.Players[playerID] = &PlayerState{
			PlayerID: playerID,
			Life:     life,
			IsAI:     seat.IsAI,
		}
		for _, kind := range ZoneKinds {
			s.Zones[ZoneKey{playerID, kind}] = make([]*CardInstance, 0)
		}

		library := make([]*CardInstance, 0, len(seat.Deck))
		for i, cardID := range seat.Deck {
			library = append(library, &CardInstance{
				InstanceID: instanceID(id, playerID, i),
				CardID:     cardID,
				OwnerID:    playerID,
			})
		}
		if params.Shuffle {
			rng.Shuffle(len(library), func(i, j int) {
				library[i], library[j] = library[j], library[i]
			})
		}

		n := opening
		if n > len(library) {
			n = len(library)
		}
		s.Zones[ZoneKey{playerID, ZoneHand}] = append(s.Zones[ZoneKey{playerID, ZoneHand}], library[:n]...)
		s.Zones[ZoneKey{playerID, ZoneLibrary}] = append(s.Zones[ZoneKey{playerID, ZoneLibrary}], library[n:]...)
	}

	s.addMessage("Game started")
	return s, nil
}

// instanceID derives a stable instance id so replays of the same deck and
// seed produce identical sessions.
func instanceID(sessionID, playerID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%s/%d", sessionID, playerID, index))).String()
}

// ActivePlayerID returns the player whose turn it is.
func (s *Session) ActivePlayerID() string {
	return s.Turn.ActivePlayer
}

// Opponent returns the other player's id.
func (s *Session) Opponent(playerID string) string {
	if playerID == s.PlayerOneID {
		return s.PlayerTwoID
	}
	return s.PlayerOneID
}

// DefendingPlayerID returns the non-active player.
func (s *Session) DefendingPlayerID() string {
	return s.Opponent(s.Turn.ActivePlayer)
}

// PlayerIDs returns both players in seat order.
func (s *Session) PlayerIDs() []string {
	return []string{s.PlayerOneID, s.PlayerTwoID}
}

// Player returns a player's state.
func (s *Session) Player(playerID string) (*PlayerState, error) {
	p, ok := s.Players[playerID]
	if !ok {
		return nil, notFoundf("player %s", playerID)
	}
	return p, nil
}

// Zone returns the ordered cards of a zone. The slice must not be modified.
func (s *Session) Zone(playerID string, kind ZoneKind) []*CardInstance {
	return s.Zones[ZoneKey{playerID, kind}]
}

// Hand is a shortcut for Zone(playerID, ZoneHand).
func (s *Session) Hand(playerID string) []*CardInstance {
	return s.Zone(playerID, ZoneHand)
}

// Battlefield is a shortcut for Zone(playerID, ZoneBattlefield).
func (s *Session) Battlefield(playerID string) []*CardInstance {
	return s.Zone(playerID, ZoneBattlefield)
}

// IsOver reports whether the match has a result.
func (s *Session) IsOver() bool {
	return s.Result != nil
}

// CardCount returns the number of card instances across all of a player's
// zones.
func (s *Session) CardCount(playerID string) int {
	total := 0
	for _, kind := range ZoneKinds {
		total += len(s.Zones[ZoneKey{playerID, kind}])
	}
	return total
}

// FindInZone resolves a card reference inside one zone. The reference may be
// an instance id or a card id; a card id matches the first instance in zone
// order.
func (s *Session) FindInZone(key ZoneKey, ref string) (*CardInstance, int, bool) {
	cards := s.Zones[key]
	for i, c := range cards {
		if c.InstanceID == ref {
			return c, i, true
		}
	}
	for i, c := range cards {
		if c.CardID == ref {
			return c, i, true
		}
	}
	return nil, -1, false
}

// Locate finds which zone holds an instance id.
func (s *Session) Locate(instanceID string) (ZoneKey, *CardInstance, bool) {
	for key, cards := range s.Zones {
		for _, c := range cards {
			if c.InstanceID == instanceID {
				return key, c, true
			}
		}
	}
	return ZoneKey{}, nil, false
}

// moveCard removes the instance from its source zone and appends it to the
// destination zone. Both zones must exist; nothing changes on error.
func (s *Session) moveCard(instanceID string, from, to ZoneKey) (*CardInstance, error) {
	src, ok := s.Zones[from]
	if !ok {
		return nil, inconsistentf("zone %s missing", from)
	}
	if _, ok := s.Zones[to]; !ok {
		return nil, inconsistentf("zone %s missing", to)
	}

	idx := -1
	for i, c := range src {
		if c.InstanceID == instanceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, inconsistentf("card %s not in %s", instanceID, from)
	}

	card := src[idx]
	remaining := make([]*CardInstance, 0, len(src)-1)
	remaining = append(remaining, src[:idx]...)
	remaining = append(remaining, src[idx+1:]...)
	s.Zones[from] = remaining

	if from.Kind == ZoneBattlefield && to.Kind != ZoneBattlefield {
		card.resetRuntime()
	}
	s.Zones[to] = append(s.Zones[to], card)
	return card, nil
}

func (s *Session) addMessage(text string) {
	s.Log = append(s.Log, LogEntry{Turn: s.Turn.Number, Text: text})
	if len(s.Log) > maxLogEntries {
		s.Log = s.Log[len(s.Log)-maxLogEntries:]
	}
}

func (s *Session) turnContext() rules.TurnContext {
	return rules.TurnContext{
		Turn:              s.Turn,
		Players:           s.PlayerIDs(),
		Defender:          s.DefendingPlayerID(),
		GameOver:          s.IsOver(),
		AttackersDeclared: s.Combat.Pending(),
		CombatResolved:    s.Combat.Resolved,
	}
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Players = make(map[string]*PlayerState, len(s.Players))
	for id, p := range s.Players {
		pc := *p
		cp.Players[id] = &pc
	}
	cp.Zones = make(map[ZoneKey][]*CardInstance, len(s.Zones))
	for key, cards := range s.Zones {
		copied := make([]*CardInstance, len(cards))
		for i, c := range cards {
			copied[i] = c.clone()
		}
		cp.Zones[key] = copied
	}
	cp.Combat.Attackers = append([]string(nil), s.Combat.Attackers...)
	if s.Result != nil {
		r := *s.Result
		cp.Result = &r
	}
	cp.Log = append([]LogEntry(nil), s.Log...)
	return &cp
}
