// Package oracle resolves card ids to their static printed attributes.
package oracle

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrNotFound is returned when no card exists for an id.
var ErrNotFound = errors.New("card not found")

// Oracle resolves a card id to its static data.
type Oracle interface {
	GetCardByID(ctx context.Context, cardID string) (Card, error)
}

// Card is the read-only static data for one card.
type Card struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TypeLine  string `json:"typeLine"`
	ManaCost  string `json:"manaCost"`
	Power     string `json:"power,omitempty"`
	Toughness string `json:"toughness,omitempty"`
}

// Types returns the card types and supertypes, e.g. ["Legendary", "Creature"].
func (c Card) Types() []string {
	left, _ := splitTypeLine(c.TypeLine)
	return strings.Fields(left)
}

// Subtypes returns the words after the type line dash, e.g. ["Elf", "Warrior"].
func (c Card) Subtypes() []string {
	_, right := splitTypeLine(c.TypeLine)
	return strings.Fields(right)
}

// splitTypeLine splits "Basic Land — Forest" (or "Basic Land - Forest")
// into its type and subtype halves.
func splitTypeLine(typeLine string) (string, string) {
	for _, sep := range []string{"—", " - "} {
		if idx := strings.Index(typeLine, sep); idx >= 0 {
			return typeLine[:idx], typeLine[idx+len(sep):]
		}
	}
	return typeLine, ""
}

// Is reports whether cardType appears among the card's types or subtypes.
func (c Card) Is(cardType string) bool {
	for _, t := range c.Types() {
		if strings.EqualFold(t, cardType) {
			return true
		}
	}
	for _, t := range c.Subtypes() {
		if strings.EqualFold(t, cardType) {
			return true
		}
	}
	return false
}

func (c Card) IsLand() bool     { return c.Is("Land") }
func (c Card) IsCreature() bool { return c.Is("Creature") }
func (c Card) IsInstant() bool  { return c.Is("Instant") }
func (c Card) IsSorcery() bool  { return c.Is("Sorcery") }
func (c Card) IsAura() bool     { return c.Is("Enchantment") && c.Is("Aura") }

// IsPermanent reports whether the card stays on the battlefield once played.
func (c Card) IsPermanent() bool {
	return !c.IsInstant() && !c.IsSorcery()
}

// PowerValue parses the printed power. Variable values ("*", "X") count as 0.
func (c Card) PowerValue() int {
	return parseStat(c.Power)
}

// ToughnessValue parses the printed toughness. Variable values count as 0.
func (c Card) ToughnessValue() int {
	return parseStat(c.Toughness)
}

func parseStat(value string) int {
	value = strings.TrimSpace(value)
	if value == "" || value == "*" || strings.EqualFold(value, "X") {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
