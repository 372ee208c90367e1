package dicechess

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid game configuration")
	ErrGameOver        = errors.New("game is over")
	ErrNotRollingPhase = errors.New("dice already rolled for this turn")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrNoCandidates    = errors.New("no candidate moves")
)
