package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(name, power, toughness, types, subtypes, supertypes, cost string) []string {
	r := make([]string, minColumns)
	r[colName] = name
	r[colPower] = power
	r[colToughness] = toughness
	r[colTypes] = types
	r[colSubtypes] = subtypes
	r[colSupertypes] = supertypes
	r[colManaCosts] = cost
	return r
}

func TestParseExport(t *testing.T) {
	records := [][]string{
		make([]string, minColumns),
		row("Grizzly Bears", "2", "2", "Creature", "Bear", "", "{1}{G}"),
		row("Forest", "", "", "Land", "Forest", "Basic", ""),
		row("Grizzly Bears", "2", "2", "Creature", "Bear", "", "{1}{G}"),
		{"short row"},
	}

	cards, err := parseExport(records)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "grizzly-bears", cards[0].ID)
	assert.Equal(t, "Creature — Bear", cards[0].TypeLine)
	assert.True(t, cards[0].IsCreature())
	assert.Equal(t, "forest", cards[1].ID)
	assert.Equal(t, "Basic Land — Forest", cards[1].TypeLine)
	assert.True(t, cards[1].IsLand())
}

func TestParseExportEmpty(t *testing.T) {
	_, err := parseExport([][]string{{"header"}})
	assert.Error(t, err)
}

func TestCardID(t *testing.T) {
	tests := map[string]string{
		"Grizzly Bears":           "grizzly-bears",
		"  Llanowar Elves ":       "llanowar-elves",
		"Jace, the Mind Sculptor": "jace-the-mind-sculptor",
		"Ach! Hans, Run!":         "ach-hans-run",
		"":                        "",
	}
	for in, want := range tests {
		if got := cardID(in); got != want {
			t.Errorf("cardID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadCardsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"shock","name":"Shock","typeLine":"Instant","manaCost":"{R}"}]`), 0o600))

	cards, err := readCards(path)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "shock", cards[0].ID)
}
