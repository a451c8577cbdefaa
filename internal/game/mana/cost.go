package mana

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Requirement is a parsed mana cost: amount per color, plus the synthetic
// ManaGeneric entry for mana payable with any type. Zero entries are omitted.
type Requirement map[ManaType]int

var symbolPattern = regexp.MustCompile(`\{([^}]+)\}`)

// ParseCost parses a mana cost expression.
//
// Two notations are accepted:
//   - bracketed symbols: "{2}{R}{R}", "{G}", "{X}{U}"
//   - unbracketed: "2GG", where the leading digit run is one generic amount
//     and every letter is one unit of its color.
//
// Unknown color letters count as colorless. X counts as zero.
func ParseCost(cost string) (Requirement, error) {
	cost = strings.TrimSpace(cost)
	req := Requirement{}
	if cost == "" {
		return req, nil
	}

	if strings.Contains(cost, "{") {
		matches := symbolPattern.FindAllStringSubmatchIndex(cost, -1)
		if len(matches) == 0 {
			return nil, fmt.Errorf("malformed mana cost %q", cost)
		}
		// Only whitespace may sit between symbols.
		pos := 0
		for _, match := range matches {
			if strings.TrimSpace(cost[pos:match[0]]) != "" {
				return nil, fmt.Errorf("unexpected text %q in mana cost %q", cost[pos:match[0]], cost)
			}
			pos = match[1]
			symbol := strings.ToUpper(strings.TrimSpace(cost[match[2]:match[3]]))
			if symbol == "" {
				return nil, fmt.Errorf("empty mana symbol in %q", cost)
			}
			if num, err := strconv.Atoi(symbol); err == nil {
				if num < 0 {
					return nil, fmt.Errorf("negative generic amount in %q", cost)
				}
				req.add(ManaGeneric, num)
				continue
			}
			if len(symbol) != 1 {
				return nil, fmt.Errorf("unknown mana symbol {%s}", symbol)
			}
			req.addLetter(rune(symbol[0]))
		}
		if strings.TrimSpace(cost[pos:]) != "" {
			return nil, fmt.Errorf("unexpected text %q in mana cost %q", cost[pos:], cost)
		}
		return req, nil
	}

	digits := strings.Builder{}
	for _, r := range cost {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
		case unicode.IsLetter(r):
			if err := req.flushDigits(&digits); err != nil {
				return nil, err
			}
			req.addLetter(unicode.ToUpper(r))
		case unicode.IsSpace(r):
		default:
			return nil, fmt.Errorf("unexpected character %q in mana cost %q", r, cost)
		}
	}
	if err := req.flushDigits(&digits); err != nil {
		return nil, err
	}
	return req, nil
}

func (r Requirement) flushDigits(digits *strings.Builder) error {
	if digits.Len() == 0 {
		return nil
	}
	num, err := strconv.Atoi(digits.String())
	if err != nil {
		return fmt.Errorf("invalid generic amount %q: %w", digits.String(), err)
	}
	digits.Reset()
	r.add(ManaGeneric, num)
	return nil
}

func (r Requirement) addLetter(letter rune) {
	switch letter {
	case 'X':
		// X is chosen on cast; this model always treats it as zero.
	case 'W':
		r.add(ManaWhite, 1)
	case 'U':
		r.add(ManaBlue, 1)
	case 'B':
		r.add(ManaBlack, 1)
	case 'R':
		r.add(ManaRed, 1)
	case 'G':
		r.add(ManaGreen, 1)
	default:
		r.add(ManaColorless, 1)
	}
}

func (r Requirement) add(manaType ManaType, amount int) {
	if amount <= 0 {
		return
	}
	r[manaType] += amount
}

// Generic returns the generic portion of the requirement.
func (r Requirement) Generic() int {
	return r[ManaGeneric]
}

// Colored returns the sum of all non-generic entries.
func (r Requirement) Colored() int {
	total := 0
	for manaType, amount := range r {
		if manaType != ManaGeneric {
			total += amount
		}
	}
	return total
}

// ManaValue returns the total numeric cost (colored + generic).
func (r Requirement) ManaValue() int {
	return r.Colored() + r.Generic()
}

// String renders the requirement in bracketed notation.
func (r Requirement) String() string {
	var b strings.Builder
	if g := r.Generic(); g > 0 {
		fmt.Fprintf(&b, "{%d}", g)
	}
	for _, c := range Colors {
		for i := 0; i < r[c]; i++ {
			fmt.Fprintf(&b, "{%s}", symbolFor(c))
		}
	}
	return b.String()
}

func symbolFor(manaType ManaType) string {
	switch manaType {
	case ManaWhite:
		return "W"
	case ManaBlue:
		return "U"
	case ManaBlack:
		return "B"
	case ManaRed:
		return "R"
	case ManaGreen:
		return "G"
	default:
		return "C"
	}
}
