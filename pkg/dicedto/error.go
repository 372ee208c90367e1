package dicedto

// Error codes carried by DomainError.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeNotFound          = "not_found"
	CodeNotYourTurn       = "not_your_turn"
	CodeNotRollingPhase   = "not_rolling_phase"
	CodeGameOver          = "game_over"
	CodeInsufficientFunds = "insufficient_funds"
	CodeConflict          = "conflict"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "dice chess service error"
}
