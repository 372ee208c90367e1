package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/dice-chess/internal/dicechess"
)

var (
	ErrNotFound = errors.New("game session not found")
	ErrConflict = errors.New("game session was modified concurrently")
)

const (
	DefaultTTL = 24 * time.Hour

	storeRetries = 5
)

// Meta is everything about a session that the engine does not track.
type Meta struct {
	ID          string          `json:"id"`
	Player      string          `json:"player"`
	HumanColor  dicechess.Color `json:"human_color,omitempty"` // empty for hot-seat games
	Difficulty  string          `json:"difficulty,omitempty"`
	TimeControl string          `json:"time_control"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	EndedAt     time.Time       `json:"ended_at"`
	Settled     bool            `json:"settled"`
	Persisted   bool            `json:"persisted"`
	TokenDelta  int64           `json:"token_delta"`
}

func (m Meta) Hotseat() bool { return m.HumanColor == dicechess.NoColor }

// Record is what the store keeps per session and what observers receive.
type Record struct {
	Meta     Meta               `json:"meta"`
	Snapshot dicechess.Snapshot `json:"snapshot"`
}

// Store persists session records. Save rejects a record whose snapshot version is
// older than the stored one with ErrConflict.
type Store interface {
	Load(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return "dice:session:" + strings.TrimSpace(id) }

func (s *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.Meta.ID) == "" {
		return fmt.Errorf("save session: id required")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := sessionKey(rec.Meta.ID)

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			var prev Record
			if json.Unmarshal(cur, &prev) == nil && prev.Snapshot.Version > rec.Snapshot.Version {
				return fmt.Errorf("%w: stored version %d, have %d", ErrConflict, prev.Snapshot.Version, rec.Snapshot.Version)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < storeRetries; i++ {
		err = s.rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("%w: retries exhausted", ErrConflict)
}

// MemoryStore keeps records in process. Records never expire.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.Lock()
	raw, ok := s.recs[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if rec == nil || strings.TrimSpace(rec.Meta.ID) == "" {
		return fmt.Errorf("save session: id required")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.recs[rec.Meta.ID]; ok {
		var cur Record
		if json.Unmarshal(prev, &cur) == nil && cur.Snapshot.Version > rec.Snapshot.Version {
			return fmt.Errorf("%w: stored version %d, have %d", ErrConflict, cur.Snapshot.Version, rec.Snapshot.Version)
		}
	}
	s.recs[rec.Meta.ID] = raw
	return nil
}
