package domain

import "time"

// DiceGame is a finished game as stored by the results repository.
type DiceGame struct {
	ID          int64
	SessionID   string
	PlayerID    string
	Mode        string
	Difficulty  string
	PlayerColor string
	Winner      string
	Result      string // win, loss or hotseat
	Reason      string
	Stake       int64
	TokenDelta  int64
	MovesUCI    []string
	MovesText   []string
	FinalFEN    string
	TurnCount   int
	StartedAt   time.Time
	EndedAt     time.Time
	Duration    time.Duration
}

const (
	ResultWin     = "win"
	ResultLoss    = "loss"
	ResultHotseat = "hotseat"
)

// PlayerAccount is a player's token balance and record.
type PlayerAccount struct {
	PlayerID      string
	Tokens        int64
	TotalGames    int
	Wins          int
	Losses        int
	CurrentStreak int
	BestWinStreak int
	TokensWon     int64
	TokensLost    int64
}

// WinRate is wins over games played, in percent.
func (a PlayerAccount) WinRate() float64 {
	if a.TotalGames == 0 {
		return 0
	}
	return float64(a.Wins) / float64(a.TotalGames) * 100
}
