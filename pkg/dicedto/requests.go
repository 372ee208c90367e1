package dicedto

import "time"

type CreateGameRequest struct {
	Player      string `json:"player"`
	Mode        string `json:"mode"`
	Difficulty  string `json:"difficulty"`
	Hotseat     bool   `json:"hotseat"`
	Color       string `json:"color"`
	TimeControl string `json:"time_control"`
	Stake       int64  `json:"stake"`
	Seed        int64  `json:"seed"`
}

type SelectRequest struct {
	Square string `json:"square"`
}

type SelectResponse struct {
	Outcome string         `json:"outcome"`
	Report  *MoveReportDTO `json:"report,omitempty"`
	State   *GameState     `json:"state"`
}

type MoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type MoveResponse struct {
	Accepted bool           `json:"accepted"`
	Report   *MoveReportDTO `json:"report,omitempty"`
	State    *GameState     `json:"state"`
}

type ResignRequest struct {
	Color string `json:"color"`
}

type DestinationsResponse struct {
	Square       string   `json:"square"`
	Destinations []string `json:"destinations"`
}

type AccountDTO struct {
	Player        string  `json:"player"`
	Tokens        int64   `json:"tokens"`
	TotalGames    int     `json:"total_games"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	CurrentStreak int     `json:"current_streak"`
	BestWinStreak int     `json:"best_win_streak"`
	TokensWon     int64   `json:"tokens_won"`
	TokensLost    int64   `json:"tokens_lost"`
}

type GameSummaryDTO struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Mode       string    `json:"mode"`
	Difficulty string    `json:"difficulty,omitempty"`
	Color      string    `json:"color,omitempty"`
	Result     string    `json:"result"`
	Reason     string    `json:"reason"`
	Winner     string    `json:"winner"`
	Stake      int64     `json:"stake"`
	TokenDelta int64     `json:"token_delta"`
	Moves      int       `json:"moves"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMS int64     `json:"duration_ms"`
}

type HistoryResponse struct {
	Games []GameSummaryDTO `json:"games"`
}
