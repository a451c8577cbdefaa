package mana

import (
	"errors"
	"testing"
)

func TestCanAfford(t *testing.T) {
	pool := Pool{White: 1, Blue: 2, Green: 1}

	tests := []struct {
		cost   string
		canPay bool
	}{
		{"{G}", true},
		{"{U}", true},
		{"{W}", true},
		{"{R}", false},
		{"{1}{G}", true},
		{"{3}{G}", true},  // 1 green + 3 generic from blue/white
		{"{4}{G}", false}, // 5 needed, 4 available
		{"{G}{G}", false},
		{"{U}{U}{W}{G}", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.cost, func(t *testing.T) {
			req, err := ParseCost(tt.cost)
			if err != nil {
				t.Fatalf("ParseCost: %v", err)
			}
			if got := CanAfford(pool, req); got != tt.canPay {
				t.Errorf("CanAfford(%s) = %v, want %v", tt.cost, got, tt.canPay)
			}
		})
	}
}

func TestDeduct_ColoredThenGenericFallback(t *testing.T) {
	pool := Pool{White: 1, Blue: 2, Green: 2, Colorless: 1}
	req, _ := ParseCost("{2}{G}")

	paid, err := Deduct(pool, req)
	if err != nil {
		t.Fatalf("Deduct: %v", err)
	}

	// Green pays the colored part; generic takes colorless first, then white.
	want := Pool{White: 0, Blue: 2, Green: 1, Colorless: 0}
	if paid != want {
		t.Errorf("expected %+v, got %+v", want, paid)
	}
}

func TestDeduct_AllOrNothing(t *testing.T) {
	pool := Pool{Red: 1, Green: 1}
	req, _ := ParseCost("{2}{R}")

	paid, err := Deduct(pool, req)
	if err == nil {
		t.Fatal("expected insufficient mana error")
	}
	if !errors.Is(err, ErrInsufficientMana) {
		t.Errorf("expected ErrInsufficientMana, got %v", err)
	}
	if paid != pool {
		t.Errorf("pool mutated on failure: %+v", paid)
	}
}

func TestDeduct_RoundTrip(t *testing.T) {
	pools := []Pool{
		{White: 3, Blue: 1, Black: 2, Red: 0, Green: 4, Colorless: 2},
		{Green: 5},
		{Colorless: 1, Red: 2},
	}
	costs := []string{"", "{G}", "{1}{G}", "2R", "{3}", "{B}{B}{1}", "5", "{R}{R}{C}"}

	for _, pool := range pools {
		for _, cost := range costs {
			req, err := ParseCost(cost)
			if err != nil {
				t.Fatalf("ParseCost(%q): %v", cost, err)
			}
			if !CanAfford(pool, req) {
				continue
			}
			paid, err := Deduct(pool, req)
			if err != nil {
				t.Errorf("CanAfford true but Deduct(%+v, %s) failed: %v", pool, cost, err)
				continue
			}
			if pool.Total()-paid.Total() != req.ManaValue() {
				t.Errorf("Deduct(%+v, %s): total dropped by %d, want %d", pool, cost, pool.Total()-paid.Total(), req.ManaValue())
			}
			if !paid.Valid() {
				t.Errorf("Deduct(%+v, %s) produced negative pool %+v", pool, cost, paid)
			}
		}
	}
}

func TestLandColor(t *testing.T) {
	tests := []struct {
		subtypes []string
		want     ManaType
	}{
		{[]string{"Forest"}, ManaGreen},
		{[]string{"Island"}, ManaBlue},
		{[]string{"Swamp"}, ManaBlack},
		{[]string{"Mountain"}, ManaRed},
		{[]string{"plains"}, ManaWhite},
		{[]string{"Desert"}, ManaColorless},
		{nil, ManaColorless},
	}

	for _, tt := range tests {
		if got := LandColor(tt.subtypes); got != tt.want {
			t.Errorf("LandColor(%v) = %s, want %s", tt.subtypes, got, tt.want)
		}
	}
}
