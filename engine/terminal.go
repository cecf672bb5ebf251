package engine

// Evaluate returns the lifecycle status implied by s for a started game.
// Checks run in priority order; the first match wins:
//   - no failures left → StatusLost
//   - every stack complete → StatusWon
//   - every player has taken a turn with the deck empty → StatusLost
//   - otherwise → StatusStarted
func (s *State) Evaluate() Status {
	switch {
	case s.Failures < 1:
		return StatusLost
	case s.Complete():
		return StatusWon
	case s.FinalTurns >= int(s.Rules.NumPlayers):
		return StatusLost
	}
	return StatusStarted
}
