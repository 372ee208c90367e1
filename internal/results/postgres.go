package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/dice-chess/internal/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// OpenPostgres connects, pings and migrates the dice_games schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applyMigrations(ctx, db, postgresDialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresRepository) SaveResult(ctx context.Context, game *domain.DiceGame) error {
	if err := validate(game); err != nil {
		return err
	}
	movesUCI, movesText, err := encodeMoves(game)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO dice_games (
			session_id, player_id, mode, difficulty, player_color,
			winner, result, reason, stake, token_delta,
			moves_uci, moves_text, final_fen, turn_count,
			started_at, ended_at, duration_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11::jsonb, $12::jsonb, $13, $14, $15, $16, $17
		) ON CONFLICT (session_id) DO UPDATE SET
			winner = EXCLUDED.winner,
			result = EXCLUDED.result,
			reason = EXCLUDED.reason,
			stake = EXCLUDED.stake,
			token_delta = EXCLUDED.token_delta,
			moves_uci = EXCLUDED.moves_uci,
			moves_text = EXCLUDED.moves_text,
			final_fen = EXCLUDED.final_fen,
			turn_count = EXCLUDED.turn_count,
			ended_at = EXCLUDED.ended_at,
			duration_ms = EXCLUDED.duration_ms
		RETURNING id`

	err = r.db.QueryRowContext(ctx, query,
		game.SessionID,
		game.PlayerID,
		game.Mode,
		game.Difficulty,
		game.PlayerColor,
		game.Winner,
		game.Result,
		game.Reason,
		game.Stake,
		game.TokenDelta,
		string(movesUCI),
		string(movesText),
		game.FinalFEN,
		game.TurnCount,
		game.StartedAt.UTC(),
		game.EndedAt.UTC(),
		game.Duration.Milliseconds(),
	).Scan(&game.ID)
	if err != nil {
		return fmt.Errorf("upsert dice game: %w", err)
	}
	return nil
}

const pgSelect = `
	SELECT id, session_id, player_id, mode, difficulty, player_color,
		winner, result, reason, stake, token_delta,
		moves_uci, moves_text, final_fen, turn_count,
		started_at, ended_at, duration_ms
	FROM dice_games`

func (r *PostgresRepository) RecentGames(ctx context.Context, playerID string, limit int) ([]*domain.DiceGame, error) {
	limit = normalizeLimit(limit)
	rows, err := r.db.QueryContext(ctx, pgSelect+` WHERE player_id = $1 ORDER BY ended_at DESC, id DESC LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select dice games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.DiceGame, 0, limit)
	for rows.Next() {
		g, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (r *PostgresRepository) GameBySession(ctx context.Context, sessionID string) (*domain.DiceGame, error) {
	g, err := scanPostgres(r.db.QueryRowContext(ctx, pgSelect+` WHERE session_id = $1`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

func scanPostgres(row rowScanner) (*domain.DiceGame, error) {
	var (
		g          domain.DiceGame
		uci, text  []byte
		durationMS int64
	)
	if err := row.Scan(
		&g.ID, &g.SessionID, &g.PlayerID, &g.Mode, &g.Difficulty, &g.PlayerColor,
		&g.Winner, &g.Result, &g.Reason, &g.Stake, &g.TokenDelta,
		&uci, &text, &g.FinalFEN, &g.TurnCount,
		&g.StartedAt, &g.EndedAt, &durationMS,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan dice game: %w", err)
	}
	g.Duration = time.Duration(durationMS) * time.Millisecond
	if err := decodeMoves(&g, uci, text); err != nil {
		return nil, err
	}
	return &g, nil
}
