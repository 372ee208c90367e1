package dicechess

import (
	"fmt"
	"strings"
)

// Consumption decides how moves spend the roll.
type Consumption string

const (
	// ConsumeSingle ends the turn after one move of any rolled type.
	ConsumeSingle Consumption = "single"
	// ConsumePerDie spends one die of the moved type per move.
	ConsumePerDie Consumption = "per_die"
	// ConsumeMoveBudget lets every rolled type move, MovesPerTurn times.
	ConsumeMoveBudget Consumption = "move_budget"
)

// Rules configures the sequencer.
type Rules struct {
	DiceCount    int         `json:"dice_count"`
	Consumption  Consumption `json:"consumption"`
	MovesPerTurn int         `json:"moves_per_turn,omitempty"`
}

// GameMode names a Rules preset.
type GameMode string

const (
	ModeClassic  GameMode = "classic"
	ModeStandard GameMode = "standard"
	ModeDouble   GameMode = "x2"
	ModeBudget   GameMode = "budget"
)

var modeRules = map[GameMode]Rules{
	ModeClassic:  {DiceCount: 1, Consumption: ConsumeSingle},
	ModeStandard: {DiceCount: 3, Consumption: ConsumePerDie},
	ModeDouble:   {DiceCount: 6, Consumption: ConsumePerDie},
	ModeBudget:   {DiceCount: 3, Consumption: ConsumeMoveBudget, MovesPerTurn: 3},
}

// ParseGameMode accepts mode names case-insensitively; empty means standard.
func ParseGameMode(s string) (GameMode, error) {
	m := GameMode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeStandard, nil
	}
	if _, ok := modeRules[m]; !ok {
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
	return m, nil
}

// RulesFor returns the rules of a mode.
func RulesFor(m GameMode) (Rules, error) {
	r, ok := modeRules[m]
	if !ok {
		return Rules{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, m)
	}
	return r, nil
}

func (r Rules) Validate() error {
	if r.DiceCount <= 0 {
		return fmt.Errorf("%w: dice count must be positive", ErrInvalidConfig)
	}
	switch r.Consumption {
	case ConsumeSingle, ConsumePerDie:
	case ConsumeMoveBudget:
		if r.MovesPerTurn <= 0 {
			return fmt.Errorf("%w: move budget must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown consumption %q", ErrInvalidConfig, r.Consumption)
	}
	return nil
}

// movesPerTurn is the move budget granted by a fresh roll.
func (r Rules) movesPerTurn() int {
	switch r.Consumption {
	case ConsumeSingle:
		return 1
	case ConsumeMoveBudget:
		return r.MovesPerTurn
	default:
		return r.DiceCount
	}
}
