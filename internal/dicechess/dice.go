package dicechess

import "math/rand"

// DiceState is the current roll. Used[i] marks Rolled[i] as spent.
type DiceState struct {
	Rolled []PieceType `json:"rolled"`
	Used   []bool      `json:"used"`
}

// RollDice draws n faces uniformly from AllPieceTypes.
func RollDice(r *rand.Rand, n int) DiceState {
	ds := DiceState{
		Rolled: make([]PieceType, n),
		Used:   make([]bool, n),
	}
	for i := 0; i < n; i++ {
		ds.Rolled[i] = AllPieceTypes[r.Intn(len(AllPieceTypes))]
	}
	return ds
}

func (d DiceState) Empty() bool { return len(d.Rolled) == 0 }

// Remaining returns the unused faces in roll order, duplicates included.
func (d DiceState) Remaining() []PieceType {
	out := make([]PieceType, 0, len(d.Rolled))
	for i, t := range d.Rolled {
		if !d.Used[i] {
			out = append(out, t)
		}
	}
	return out
}

func (d DiceState) Unused() int {
	n := 0
	for _, u := range d.Used {
		if !u {
			n++
		}
	}
	return n
}

// Allows reports whether an unused die shows t.
func (d DiceState) Allows(t PieceType) bool {
	for i, rt := range d.Rolled {
		if rt == t && !d.Used[i] {
			return true
		}
	}
	return false
}

// Shows reports whether any die, used or not, shows t.
func (d DiceState) Shows(t PieceType) bool {
	for _, rt := range d.Rolled {
		if rt == t {
			return true
		}
	}
	return false
}

// Consume marks the first unused die showing t. Any copy satisfies the move.
func (d *DiceState) Consume(t PieceType) bool {
	for i, rt := range d.Rolled {
		if rt == t && !d.Used[i] {
			d.Used[i] = true
			return true
		}
	}
	return false
}

func (d DiceState) clone() DiceState {
	return DiceState{
		Rolled: append([]PieceType(nil), d.Rolled...),
		Used:   append([]bool(nil), d.Used...),
	}
}
