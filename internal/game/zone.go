package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ZoneKind is one of the four per-player zones.
type ZoneKind int

const (
	ZoneLibrary ZoneKind = iota
	ZoneHand
	ZoneBattlefield
	ZoneGraveyard
)

// ZoneKinds lists every zone kind in display order.
var ZoneKinds = []ZoneKind{ZoneLibrary, ZoneHand, ZoneBattlefield, ZoneGraveyard}

var zoneNames = map[ZoneKind]string{
	ZoneLibrary:     "library",
	ZoneHand:        "hand",
	ZoneBattlefield: "battlefield",
	ZoneGraveyard:   "graveyard",
}

func (k ZoneKind) String() string {
	if name, ok := zoneNames[k]; ok {
		return name
	}
	return fmt.Sprintf("zone_%d", int(k))
}

// ParseZoneKind parses a zone name.
func ParseZoneKind(name string) (ZoneKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, n := range zoneNames {
		if n == name {
			return kind, nil
		}
	}
	return ZoneLibrary, fmt.Errorf("unknown zone %q", name)
}

// MarshalJSON encodes the zone kind by name.
func (k ZoneKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a zone name.
func (k *ZoneKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseZoneKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ZoneKey addresses one player's zone.
type ZoneKey struct {
	PlayerID string
	Kind     ZoneKind
}

func (z ZoneKey) String() string {
	return z.PlayerID + "/" + z.Kind.String()
}

// CardInstance is one physical card in a match. CardID points at the static
// oracle data; the rest is runtime state.
type CardInstance struct {
	InstanceID      string   `json:"instanceId"`
	CardID          string   `json:"cardId"`
	OwnerID         string   `json:"ownerId"`
	Tapped          bool     `json:"tapped,omitempty"`
	SummoningSick   bool     `json:"summoningSick,omitempty"`
	PlusOneCounters int      `json:"plusOneCounters,omitempty"`
	Attachments     []string `json:"attachments,omitempty"`
}

func (c *CardInstance) clone() *CardInstance {
	cp := *c
	if c.Attachments != nil {
		cp.Attachments = append([]string(nil), c.Attachments...)
	}
	return &cp
}

// resetRuntime clears the flags that do not survive leaving the battlefield.
func (c *CardInstance) resetRuntime() {
	c.Tapped = false
	c.SummoningSick = false
	c.PlusOneCounters = 0
	c.Attachments = nil
}
