package dicepresenter

import (
	"errors"

	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/internal/results"
	"github.com/park285/dice-chess/internal/session"
	"github.com/park285/dice-chess/internal/wallet"
	"github.com/park285/dice-chess/pkg/dicedto"
)

// ToDomainError maps service errors onto the API error codes. Unknown errors are
// reported as internal without their message.
func ToDomainError(err error) dicedto.DomainError {
	var de dicedto.DomainError
	switch {
	case err == nil:
		return de
	case errors.As(err, &de):
		return de
	case errors.Is(err, session.ErrNotFound), errors.Is(err, results.ErrNotFound):
		return dicedto.DomainError{Code: dicedto.CodeNotFound, Message: "game not found"}
	case errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, dicechess.ErrInvalidConfig),
		errors.Is(err, wallet.ErrInvalidPlayer):
		return dicedto.DomainError{Code: dicedto.CodeInvalidRequest, Message: err.Error()}
	case errors.Is(err, dicechess.ErrNotYourTurn):
		return dicedto.DomainError{Code: dicedto.CodeNotYourTurn, Message: "the bot is still playing its turn", Retryable: true}
	case errors.Is(err, dicechess.ErrNotRollingPhase):
		return dicedto.DomainError{Code: dicedto.CodeNotRollingPhase, Message: "dice already rolled this turn"}
	case errors.Is(err, dicechess.ErrGameOver):
		return dicedto.DomainError{Code: dicedto.CodeGameOver, Message: "game is over"}
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return dicedto.DomainError{Code: dicedto.CodeInsufficientFunds, Message: err.Error()}
	case errors.Is(err, session.ErrConflict):
		return dicedto.DomainError{Code: dicedto.CodeConflict, Message: "game changed elsewhere, reload it", Retryable: true}
	}
	return dicedto.DomainError{Code: dicedto.CodeInternal, Message: "internal error", Retryable: true}
}
