package game

// CheckEndGame evaluates life totals. Exactly one player at or below zero
// loses; both at or below zero is a draw; otherwise the match continues
// and nil is returned.
func CheckEndGame(s *Session) *EndGameResult {
	one, okOne := s.Players[s.PlayerOneID]
	two, okTwo := s.Players[s.PlayerTwoID]
	if !okOne || !okTwo {
		return nil
	}

	oneDead := one.Life <= 0
	twoDead := two.Life <= 0
	switch {
	case oneDead && twoDead:
		return &EndGameResult{Reason: ReasonDraw}
	case oneDead:
		return &EndGameResult{WinnerID: s.PlayerTwoID, Reason: ReasonLethal}
	case twoDead:
		return &EndGameResult{WinnerID: s.PlayerOneID, Reason: ReasonLethal}
	default:
		return nil
	}
}
