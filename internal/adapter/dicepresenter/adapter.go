package dicepresenter

import (
	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/internal/domain"
	"github.com/park285/dice-chess/internal/session"
	"github.com/park285/dice-chess/pkg/dicedto"
)

func ToGameState(rec *session.Record) *dicedto.GameState {
	if rec == nil {
		return nil
	}
	snap := rec.Snapshot
	playing := snap.Turn.Status == dicechess.StatusPlaying
	state := &dicedto.GameState{
		ID:              rec.Meta.ID,
		Player:          rec.Meta.Player,
		Mode:            string(snap.Mode),
		Difficulty:      rec.Meta.Difficulty,
		HumanColor:      string(rec.Meta.HumanColor),
		Status:          string(snap.Turn.Status),
		Winner:          string(snap.Turn.Winner),
		Reason:          string(snap.Turn.Reason),
		Turn:            string(snap.Turn.Turn),
		Phase:           string(snap.Turn.Phase),
		TurnNumber:      snap.Turn.TurnNumber,
		MovesLeft:       snap.Turn.MovesLeft,
		Check:           snap.Check && playing,
		BotToMove:       playing && snap.Bot != nil && snap.Bot.Color == snap.Turn.Turn,
		FEN:             snap.FEN,
		Squares:         toSquares(snap.Board),
		Dice:            toDice(snap),
		Moves:           make([]dicedto.MoveDTO, 0, len(snap.Log.Moves)),
		CapturedByWhite: pieceTypes(snap.Log.CapturedByWhite),
		CapturedByBlack: pieceTypes(snap.Log.CapturedByBlack),
		Stake:           int64(snap.Stake),
		Version:         snap.Version,
		UpdatedAt:       rec.Meta.UpdatedAt,
	}
	if snap.Selected != nil {
		state.Selected = snap.Selected.String()
	}
	for _, mv := range snap.Log.Moves {
		state.Moves = append(state.Moves, ToMove(mv))
	}
	if !snap.Clock.Control.Unlimited() {
		state.Clock = &dicedto.ClockDTO{
			Control: snap.Clock.Control.String(),
			WhiteMS: snap.Clock.White.Milliseconds(),
			BlackMS: snap.Clock.Black.Milliseconds(),
		}
	}
	state.Summary = defaultFormatter().Summary(state)
	return state
}

func toSquares(b dicechess.Board) map[string]dicedto.PieceDTO {
	out := make(map[string]dicedto.PieceDTO, 32)
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			pos := dicechess.Position{Row: r, Col: c}
			p := b.At(pos)
			if p.IsEmpty() {
				continue
			}
			out[pos.String()] = dicedto.PieceDTO{Type: string(p.Type), Color: string(p.Color), Symbol: p.Symbol()}
		}
	}
	return out
}

func toDice(snap dicechess.Snapshot) dicedto.DiceDTO {
	d := dicedto.DiceDTO{
		Rolled:  make([]string, len(snap.Dice.Rolled)),
		Used:    append([]bool{}, snap.Dice.Used...),
		Allowed: []string{},
	}
	for i, t := range snap.Dice.Rolled {
		d.Rolled[i] = string(t)
	}
	for _, t := range snap.Allowed() {
		d.Allowed = append(d.Allowed, string(t))
	}
	return d
}

func pieceTypes(list []dicechess.Piece) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, string(p.Type))
	}
	return out
}

func ToMove(rec dicechess.MoveRecord) dicedto.MoveDTO {
	return dicedto.MoveDTO{
		Color:    string(rec.Color),
		Piece:    string(rec.Piece),
		From:     rec.From.String(),
		To:       rec.To.String(),
		Captured: string(rec.Captured),
		Text:     rec.Text,
	}
}

func ToMoveReport(rep *dicechess.MoveReport) *dicedto.MoveReportDTO {
	if rep == nil {
		return nil
	}
	return &dicedto.MoveReportDTO{
		Move:         ToMove(rep.Record),
		KingCaptured: rep.KingCaptured,
		TurnPassed:   rep.TurnPassed,
		AutoPassed:   rep.AutoPassed,
		Check:        rep.Check,
	}
}

func ToDestinations(square string, list []dicechess.Position) dicedto.DestinationsResponse {
	out := dicedto.DestinationsResponse{Square: square, Destinations: make([]string, 0, len(list))}
	for _, p := range list {
		out.Destinations = append(out.Destinations, p.String())
	}
	return out
}

func ToAccount(a domain.PlayerAccount) dicedto.AccountDTO {
	return dicedto.AccountDTO{
		Player:        a.PlayerID,
		Tokens:        a.Tokens,
		TotalGames:    a.TotalGames,
		Wins:          a.Wins,
		Losses:        a.Losses,
		WinRate:       a.WinRate(),
		CurrentStreak: a.CurrentStreak,
		BestWinStreak: a.BestWinStreak,
		TokensWon:     a.TokensWon,
		TokensLost:    a.TokensLost,
	}
}

func ToGameSummaries(list []*domain.DiceGame) []dicedto.GameSummaryDTO {
	out := make([]dicedto.GameSummaryDTO, 0, len(list))
	for _, g := range list {
		if g == nil {
			continue
		}
		out = append(out, dicedto.GameSummaryDTO{
			ID:         g.ID,
			SessionID:  g.SessionID,
			Mode:       g.Mode,
			Difficulty: g.Difficulty,
			Color:      g.PlayerColor,
			Result:     g.Result,
			Reason:     g.Reason,
			Winner:     g.Winner,
			Stake:      g.Stake,
			TokenDelta: g.TokenDelta,
			Moves:      len(g.MovesUCI),
			EndedAt:    g.EndedAt,
			DurationMS: g.Duration.Milliseconds(),
		})
	}
	return out
}
