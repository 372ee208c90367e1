package session

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/dice-chess/internal/dicechess"
)

func versioned(id string, v int64) *Record {
	return &Record{
		Meta:     Meta{ID: id, Player: "p"},
		Snapshot: dicechess.Snapshot{Version: v},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Load(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing: %v", err)
	}
	if err := s.Save(ctx, versioned("g1", 5)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, versioned("g1", 3)); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale save: %v", err)
	}
	same := versioned("g1", 5)
	same.Meta.Settled = true
	if err := s.Save(ctx, same); err != nil {
		t.Fatalf("same-version save: %v", err)
	}
	got, err := s.Load(ctx, "g1")
	if err != nil || got.Snapshot.Version != 5 || !got.Meta.Settled {
		t.Fatalf("Load = %+v, %v", got, err)
	}
	if err := s.Save(ctx, &Record{}); err == nil {
		t.Fatalf("save without id accepted")
	}
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	exerciseStore(t, NewRedisStore(rdb, time.Hour))
	if ttl := mr.TTL(sessionKey("g1")); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl = %s", ttl)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}
