package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/dice-chess/internal/domain"
)

var (
	ErrNotFound    = errors.New("dice game not found")
	ErrInvalidGame = errors.New("invalid dice game payload")
)

const defaultListSize = 10

// Repository stores finished games.
type Repository interface {
	// SaveResult inserts or replaces the game stored under game.SessionID and sets game.ID.
	SaveResult(ctx context.Context, game *domain.DiceGame) error
	RecentGames(ctx context.Context, playerID string, limit int) ([]*domain.DiceGame, error)
	GameBySession(ctx context.Context, sessionID string) (*domain.DiceGame, error)
	Close() error
}

func validate(game *domain.DiceGame) error {
	if game == nil {
		return fmt.Errorf("%w: nil", ErrInvalidGame)
	}
	if strings.TrimSpace(game.SessionID) == "" || strings.TrimSpace(game.PlayerID) == "" {
		return fmt.Errorf("%w: session and player ids are required", ErrInvalidGame)
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListSize
	}
	return limit
}

func encodeMoves(game *domain.DiceGame) (uci, text []byte, err error) {
	if uci, err = json.Marshal(nonNil(game.MovesUCI)); err != nil {
		return nil, nil, fmt.Errorf("marshal moves_uci: %w", err)
	}
	if text, err = json.Marshal(nonNil(game.MovesText)); err != nil {
		return nil, nil, fmt.Errorf("marshal moves_text: %w", err)
	}
	return uci, text, nil
}

func decodeMoves(game *domain.DiceGame, uci, text []byte) error {
	if err := json.Unmarshal(uci, &game.MovesUCI); err != nil {
		return fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(text, &game.MovesText); err != nil {
		return fmt.Errorf("unmarshal moves_text: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}
