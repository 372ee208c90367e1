package dicechess

import (
	"math"
	"math/rand"
	"sort"
)

const captureMultiplier = 10

var materialValues = map[PieceType]int{
	Pawn:   1,
	Knight: 3,
	Bishop: 3,
	Rook:   5,
	Queen:  9,
	King:   100,
}

// MaterialValue returns the scoring value of a piece type.
func MaterialValue(t PieceType) int { return materialValues[t] }

// Candidate is a scored move. Forced candidates capture a king and always win selection.
type Candidate struct {
	Move   Move
	Piece  PieceType
	Score  float64
	Forced bool
}

// ScoreMoves enumerates and scores every legal move of color whose type passes
// allowed, best first. Equal scores keep board scan order.
func ScoreMoves(b *Board, color Color, allowed func(PieceType) bool, p BotPreset) []Candidate {
	moves := LegalMoves(b, color, allowed)
	out := make([]Candidate, 0, len(moves))
	for _, mv := range moves {
		out = append(out, scoreMove(b, mv, p))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func scoreMove(b *Board, mv Move, p BotPreset) Candidate {
	moved := b.At(mv.From)
	target := b.At(mv.To)
	c := Candidate{Move: mv, Piece: moved.Type}

	if !target.IsEmpty() {
		c.Score = float64(MaterialValue(target.Type) * captureMultiplier)
		c.Forced = target.Type == King
	}
	c.Score -= p.CenterWeight * centerDistance(mv.To)

	if p.SafetyCheck && !c.Forced {
		after := ApplyMove(*b, mv.From, mv.To).Board
		if IsSquareAttacked(&after, mv.To, moved.Color.Opponent()) {
			c.Score -= float64(MaterialValue(moved.Type)) * p.SafetyWeight
		}
	}
	return c
}

func centerDistance(pos Position) float64 {
	return math.Abs(float64(pos.Row)-3.5) + math.Abs(float64(pos.Col)-3.5)
}

// SelectMove scores the candidates, perturbs them with preset noise and draws one of
// the top PrimaryChoices (weighted when the preset carries weights, uniform otherwise).
func SelectMove(p BotPreset, b *Board, color Color, allowed func(PieceType) bool, r *rand.Rand) (Candidate, error) {
	if err := ValidateBotPreset(p); err != nil {
		return Candidate{}, err
	}
	candidates := ScoreMoves(b, color, allowed, p)
	if len(candidates) == 0 {
		return Candidate{}, ErrNoCandidates
	}
	for _, c := range candidates {
		if c.Forced {
			return c, nil
		}
	}

	if p.Noise > 0 {
		for i := range candidates {
			candidates[i].Score += r.Float64()*2*p.Noise - p.Noise
		}
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	}

	primaryLimit := p.PrimaryChoices
	if primaryLimit > len(candidates) {
		primaryLimit = len(candidates)
	}
	if primaryLimit == 1 {
		return candidates[0], nil
	}
	if len(p.CandidateWeights) == 0 {
		return candidates[r.Intn(primaryLimit)], nil
	}

	totalWeight := 0.0
	for i := 0; i < primaryLimit; i++ {
		totalWeight += p.CandidateWeights[i]
	}
	if totalWeight == 0 {
		return candidates[0], nil
	}
	threshold := r.Float64() * totalWeight
	index := 0
	for i := 0; i < primaryLimit; i++ {
		threshold -= p.CandidateWeights[i]
		if threshold <= 0 {
			index = i
			break
		}
	}
	return candidates[index], nil
}
