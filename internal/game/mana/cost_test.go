package mana

import (
	"testing"
)

func TestParseCost(t *testing.T) {
	tests := []struct {
		input    string
		expected Requirement
		err      bool
	}{
		{"", Requirement{}, false},
		{"{1}", Requirement{ManaGeneric: 1}, false},
		{"{G}", Requirement{ManaGreen: 1}, false},
		{"{1}{G}", Requirement{ManaGeneric: 1, ManaGreen: 1}, false},
		{"{2}{R}{R}", Requirement{ManaGeneric: 2, ManaRed: 2}, false},
		{"{X}{R}", Requirement{ManaRed: 1}, false},
		{"{W}{U}{B}{R}{G}", Requirement{ManaWhite: 1, ManaBlue: 1, ManaBlack: 1, ManaRed: 1, ManaGreen: 1}, false},
		{"{C}", Requirement{ManaColorless: 1}, false},
		{"{10}", Requirement{ManaGeneric: 10}, false},
		{"2GG", Requirement{ManaGeneric: 2, ManaGreen: 2}, false},
		{"12U", Requirement{ManaGeneric: 12, ManaBlue: 1}, false},
		{"wub", Requirement{ManaWhite: 1, ManaBlue: 1, ManaBlack: 1}, false},
		{"1Q", Requirement{ManaGeneric: 1, ManaColorless: 1}, false},
		{"{W/U}", nil, true},
		{"2-G", nil, true},
		{"{2} {G}", Requirement{ManaGeneric: 2, ManaGreen: 1}, false},
		{"{2}G", nil, true},
		{"{1}junk", nil, true},
		{"x{R}", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseCost(tt.input)
			if tt.err {
				if err == nil {
					t.Errorf("Expected error for %s, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
				return
			}
			if len(result) != len(tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
			for manaType, amount := range tt.expected {
				if result[manaType] != amount {
					t.Errorf("%s: expected %d, got %d", manaType, amount, result[manaType])
				}
			}
		})
	}
}

func TestRequirement_ManaValue(t *testing.T) {
	tests := []struct {
		cost  string
		value int
	}{
		{"", 0},
		{"{R}", 1},
		{"{2}{R}{R}", 4},
		{"3GG", 5},
		{"{X}{X}{G}", 1},
	}

	for _, tt := range tests {
		req, err := ParseCost(tt.cost)
		if err != nil {
			t.Fatalf("ParseCost(%q): %v", tt.cost, err)
		}
		if got := req.ManaValue(); got != tt.value {
			t.Errorf("ManaValue(%q) = %d, want %d", tt.cost, got, tt.value)
		}
	}
}

func TestRequirement_String(t *testing.T) {
	req, _ := ParseCost("2GR")
	if got := req.String(); got != "{2}{R}{G}" {
		t.Errorf("expected {2}{R}{G}, got %s", got)
	}
}
