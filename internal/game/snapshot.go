package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/magefree/mage-duel-server/internal/game/rules"
)

// ErrChecksumMismatch is returned when a decoded snapshot does not match its
// recorded checksum.
var ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

// snapshotVersion is bumped when the JSON layout changes incompatibly.
const snapshotVersion = 1

// ZoneSnapshot is one zone in wire form.
type ZoneSnapshot struct {
	PlayerID string          `json:"playerId"`
	Zone     ZoneKind        `json:"zone"`
	Cards    []*CardInstance `json:"cards"`
}

// SessionSnapshot is the JSON form of a session, used for HTTP and websocket
// payloads and as the stored row body.
type SessionSnapshot struct {
	Format      int            `json:"format"`
	SessionID   string         `json:"sessionId"`
	PlayerOneID string         `json:"playerOneId"`
	PlayerTwoID string         `json:"playerTwoId"`
	Turn        rules.Turn     `json:"turn"`
	Players     []PlayerState  `json:"players"`
	Zones       []ZoneSnapshot `json:"zones"`
	Combat      CombatState    `json:"combat"`
	Result      *EndGameResult `json:"result,omitempty"`
	Seed        int64          `json:"seed"`
	Log         []LogEntry     `json:"log,omitempty"`
	Version     int64          `json:"version"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Checksum    string         `json:"checksum,omitempty"`
}

// Snapshot converts the session to its wire form. Players are listed in seat
// order and zones in seat then zone-kind order.
func (s *Session) Snapshot() SessionSnapshot {
	cp := s.Clone()
	snap := SessionSnapshot{
		Format:      snapshotVersion,
		SessionID:   cp.ID,
		PlayerOneID: cp.PlayerOneID,
		PlayerTwoID: cp.PlayerTwoID,
		Turn:        cp.Turn,
		Combat:      cp.Combat,
		Result:      cp.Result,
		Seed:        cp.Seed,
		Log:         cp.Log,
		Version:     cp.Version,
		CreatedAt:   cp.CreatedAt,
		UpdatedAt:   cp.UpdatedAt,
	}
	for _, id := range cp.PlayerIDs() {
		if p, ok := cp.Players[id]; ok {
			snap.Players = append(snap.Players, *p)
		}
		for _, kind := range ZoneKinds {
			cards := cp.Zones[ZoneKey{id, kind}]
			if cards == nil {
				cards = []*CardInstance{}
			}
			snap.Zones = append(snap.Zones, ZoneSnapshot{PlayerID: id, Zone: kind, Cards: cards})
		}
	}
	snap.Checksum = snap.ComputeChecksum()
	return snap
}

// ComputeChecksum hashes the game-relevant part of the snapshot. Timestamps,
// the store version and the checksum itself are excluded so two sessions that
// played out identically hash the same.
func (snap SessionSnapshot) ComputeChecksum() string {
	snap.Checksum = ""
	snap.Version = 0
	snap.CreatedAt = time.Time{}
	snap.UpdatedAt = time.Time{}
	snap.Log = nil

	data, err := json.Marshal(snap)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Restore rebuilds a session from its wire form, checking that both players
// and all eight zones are present and that no instance appears twice.
func (snap SessionSnapshot) Restore() (*Session, error) {
	if snap.SessionID == "" {
		return nil, fmt.Errorf("snapshot has no session id")
	}
	if snap.Format != 0 && snap.Format != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot format %d", snap.Format)
	}

	s := &Session{
		ID:          snap.SessionID,
		PlayerOneID: snap.PlayerOneID,
		PlayerTwoID: snap.PlayerTwoID,
		Turn:        snap.Turn,
		Players:     make(map[string]*PlayerState, 2),
		Zones:       make(map[ZoneKey][]*CardInstance, len(snap.Zones)),
		Combat:      snap.Combat,
		Seed:        snap.Seed,
		Log:         append([]LogEntry(nil), snap.Log...),
		Version:     snap.Version,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
	if snap.Result != nil {
		r := *snap.Result
		s.Result = &r
	}
	s.Combat.Attackers = append([]string(nil), snap.Combat.Attackers...)

	for _, p := range snap.Players {
		pc := p
		s.Players[p.PlayerID] = &pc
	}
	for _, id := range s.PlayerIDs() {
		if _, ok := s.Players[id]; !ok {
			return nil, fmt.Errorf("snapshot is missing player %q", id)
		}
	}

	seen := make(map[string]bool)
	for _, z := range snap.Zones {
		key := ZoneKey{z.PlayerID, z.Zone}
		if _, ok := s.Players[z.PlayerID]; !ok {
			return nil, fmt.Errorf("zone %s belongs to an unknown player", key)
		}
		cards := make([]*CardInstance, 0, len(z.Cards))
		for _, c := range z.Cards {
			if c == nil {
				continue
			}
			if seen[c.InstanceID] {
				return nil, fmt.Errorf("card %s appears in more than one zone", c.InstanceID)
			}
			seen[c.InstanceID] = true
			cards = append(cards, c.clone())
		}
		s.Zones[key] = cards
	}
	for _, id := range s.PlayerIDs() {
		for _, kind := range ZoneKinds {
			if _, ok := s.Zones[ZoneKey{id, kind}]; !ok {
				return nil, fmt.Errorf("snapshot is missing zone %s", ZoneKey{id, kind})
			}
		}
	}
	return s, nil
}

// EncodeSession serializes a session to JSON with its checksum.
func EncodeSession(s *Session) ([]byte, error) {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return data, nil
}

// DecodeSession parses JSON produced by EncodeSession. A present checksum must
// match the decoded content.
func DecodeSession(data []byte) (*Session, error) {
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if snap.Checksum != "" && snap.Checksum != snap.ComputeChecksum() {
		return nil, fmt.Errorf("%w: session %s", ErrChecksumMismatch, snap.SessionID)
	}
	return snap.Restore()
}
