package dicedto

import "time"

type PieceDTO struct {
	Type   string `json:"type"`
	Color  string `json:"color"`
	Symbol string `json:"symbol"`
}

type DiceDTO struct {
	Rolled  []string `json:"rolled"`
	Used    []bool   `json:"used"`
	Allowed []string `json:"allowed"`
}

type ClockDTO struct {
	Control string `json:"control"`
	WhiteMS int64  `json:"white_ms"`
	BlackMS int64  `json:"black_ms"`
}

type MoveDTO struct {
	Color    string `json:"color"`
	Piece    string `json:"piece"`
	From     string `json:"from"`
	To       string `json:"to"`
	Captured string `json:"captured,omitempty"`
	Text     string `json:"text"`
}

// GameState is the full observable state of one game.
type GameState struct {
	ID         string `json:"id"`
	Player     string `json:"player"`
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty,omitempty"`
	HumanColor string `json:"human_color,omitempty"`

	Status     string `json:"status"`
	Winner     string `json:"winner,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Turn       string `json:"turn"`
	Phase      string `json:"phase"`
	TurnNumber int    `json:"turn_number"`
	MovesLeft  int    `json:"moves_left"`
	Check      bool   `json:"check"`
	BotToMove  bool   `json:"bot_to_move"`

	FEN      string              `json:"fen"`
	Squares  map[string]PieceDTO `json:"squares"`
	Dice     DiceDTO             `json:"dice"`
	Selected string              `json:"selected,omitempty"`

	Moves           []MoveDTO `json:"moves"`
	CapturedByWhite []string  `json:"captured_by_white"`
	CapturedByBlack []string  `json:"captured_by_black"`
	Clock           *ClockDTO `json:"clock,omitempty"`
	Stake           int64     `json:"stake"`

	Summary   string    `json:"summary"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MoveReportDTO struct {
	Move         MoveDTO `json:"move"`
	KingCaptured bool    `json:"king_captured"`
	TurnPassed   bool    `json:"turn_passed"`
	AutoPassed   bool    `json:"auto_passed"`
	Check        bool    `json:"check"`
}
