package mana

import "fmt"

// ManaType represents a type of mana.
type ManaType string

const (
	ManaWhite     ManaType = "WHITE"
	ManaBlue      ManaType = "BLUE"
	ManaBlack     ManaType = "BLACK"
	ManaRed       ManaType = "RED"
	ManaGreen     ManaType = "GREEN"
	ManaColorless ManaType = "COLORLESS"
	ManaGeneric   ManaType = "GENERIC" // cost-side only, payable with any type
)

// Colors lists every mana type a pool can hold, in display order.
var Colors = []ManaType{ManaWhite, ManaBlue, ManaBlack, ManaRed, ManaGreen, ManaColorless}

// genericFallbackOrder is the order in which pool mana is consumed to pay
// generic costs once colored requirements are paid.
var genericFallbackOrder = []ManaType{ManaColorless, ManaWhite, ManaBlue, ManaBlack, ManaRed, ManaGreen}

// Pool is a player's available mana, one counter per color plus colorless.
// It is a value type: copies are independent.
type Pool struct {
	White     int `json:"white"`
	Blue      int `json:"blue"`
	Black     int `json:"black"`
	Red       int `json:"red"`
	Green     int `json:"green"`
	Colorless int `json:"colorless"`
}

// Get returns the amount of a mana type in the pool.
func (p Pool) Get(manaType ManaType) int {
	switch manaType {
	case ManaWhite:
		return p.White
	case ManaBlue:
		return p.Blue
	case ManaBlack:
		return p.Black
	case ManaRed:
		return p.Red
	case ManaGreen:
		return p.Green
	case ManaColorless:
		return p.Colorless
	default:
		return 0
	}
}

// Add returns the pool with amount mana of the given type added.
// Non-positive amounts and non-pool types are ignored.
func (p Pool) Add(manaType ManaType, amount int) Pool {
	if amount <= 0 {
		return p
	}
	switch manaType {
	case ManaWhite:
		p.White += amount
	case ManaBlue:
		p.Blue += amount
	case ManaBlack:
		p.Black += amount
	case ManaRed:
		p.Red += amount
	case ManaGreen:
		p.Green += amount
	case ManaColorless:
		p.Colorless += amount
	}
	return p
}

func (p *Pool) set(manaType ManaType, amount int) {
	switch manaType {
	case ManaWhite:
		p.White = amount
	case ManaBlue:
		p.Blue = amount
	case ManaBlack:
		p.Black = amount
	case ManaRed:
		p.Red = amount
	case ManaGreen:
		p.Green = amount
	case ManaColorless:
		p.Colorless = amount
	}
}

// Total returns the total mana count across all types.
func (p Pool) Total() int {
	return p.White + p.Blue + p.Black + p.Red + p.Green + p.Colorless
}

// Empty reports whether the pool holds no mana.
func (p Pool) Empty() bool {
	return p.Total() == 0
}

// Valid reports whether every counter is non-negative.
func (p Pool) Valid() bool {
	for _, c := range Colors {
		if p.Get(c) < 0 {
			return false
		}
	}
	return true
}

// String renders the pool in cost notation, e.g. "{W}{G}{G}".
func (p Pool) String() string {
	out := ""
	for _, c := range Colors {
		for i := 0; i < p.Get(c); i++ {
			out += fmt.Sprintf("{%s}", symbolFor(c))
		}
	}
	return out
}
