package mana

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInsufficientMana is returned when a pool cannot pay a requirement.
var ErrInsufficientMana = errors.New("insufficient mana")

// CanAfford reports whether the pool can pay the requirement.
// Colored amounts are checked directly against the pool; the generic amount
// is covered by whatever is left after colored requirements.
func CanAfford(pool Pool, req Requirement) bool {
	return checkPayment(pool, req) == nil
}

func checkPayment(pool Pool, req Requirement) error {
	coloredRequired := 0
	for _, c := range Colors {
		need := req[c]
		if need < 0 {
			return fmt.Errorf("negative %s requirement", strings.ToLower(string(c)))
		}
		if pool.Get(c) < need {
			return fmt.Errorf("%w: need %d %s, have %d", ErrInsufficientMana, need, strings.ToLower(string(c)), pool.Get(c))
		}
		coloredRequired += need
	}
	generic := req.Generic()
	if generic < 0 {
		return fmt.Errorf("negative generic requirement")
	}
	if remaining := pool.Total() - coloredRequired; remaining < generic {
		return fmt.Errorf("%w: need %d generic, have %d left after colored costs", ErrInsufficientMana, generic, remaining)
	}
	return nil
}

// Deduct pays req from pool and returns the new pool. Colored mana is paid
// first, then generic mana is taken in a fixed fallback order (colorless,
// then W, U, B, R, G). The requirement is validated in full before anything
// is spent, so on error the original pool is returned unchanged.
func Deduct(pool Pool, req Requirement) (Pool, error) {
	if err := checkPayment(pool, req); err != nil {
		return pool, err
	}

	paid := pool
	for _, c := range Colors {
		paid.set(c, paid.Get(c)-req[c])
	}

	generic := req.Generic()
	for _, c := range genericFallbackOrder {
		if generic == 0 {
			break
		}
		available := paid.Get(c)
		take := available
		if take > generic {
			take = generic
		}
		paid.set(c, available-take)
		generic -= take
	}

	if generic != 0 || !paid.Valid() {
		// checkPayment guarantees this cannot happen.
		return pool, fmt.Errorf("payment of %s from %s left an invalid pool", req, pool)
	}
	return paid, nil
}

// LandColor returns the mana type produced by a basic land subtype.
// Lands without a basic subtype produce colorless mana.
func LandColor(subtypes []string) ManaType {
	for _, st := range subtypes {
		switch strings.ToLower(strings.TrimSpace(st)) {
		case "plains":
			return ManaWhite
		case "island":
			return ManaBlue
		case "swamp":
			return ManaBlack
		case "mountain":
			return ManaRed
		case "forest":
			return ManaGreen
		}
	}
	return ManaColorless
}
