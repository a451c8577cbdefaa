package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Memory is an in-process card catalog.
type Memory struct {
	mu    sync.RWMutex
	cards map[string]Card
}

// NewMemory creates a catalog holding the given cards.
func NewMemory(cards ...Card) *Memory {
	m := &Memory{cards: make(map[string]Card, len(cards))}
	for _, c := range cards {
		m.cards[c.ID] = c
	}
	return m
}

// LoadMemoryFile reads a JSON array of cards into a new catalog.
func LoadMemoryFile(path string) (*Memory, error) {
	cards, err := ReadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemory(cards...), nil
}

// ReadCatalogFile reads a JSON array of cards. Every card needs an id.
func ReadCatalogFile(path string) ([]Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card catalog: %w", err)
	}
	var cards []Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("decode card catalog %s: %w", path, err)
	}
	for i, c := range cards {
		if strings.TrimSpace(c.ID) == "" {
			return nil, fmt.Errorf("card %d in %s has no id", i, path)
		}
	}
	return cards, nil
}

// Put adds or replaces a card.
func (m *Memory) Put(card Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.ID] = card
}

// Len returns the number of cards in the catalog.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cards)
}

// GetCardByID implements Oracle.
func (m *Memory) GetCardByID(ctx context.Context, cardID string) (Card, error) {
	if err := ctx.Err(); err != nil {
		return Card{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	card, ok := m.cards[cardID]
	if !ok {
		return Card{}, fmt.Errorf("%w: %s", ErrNotFound, cardID)
	}
	return card, nil
}
