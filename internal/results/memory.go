package results

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/dice-chess/internal/domain"
)

// memrepo is a development-only in-memory repository used when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID    int64
	bySession map[string]*domain.DiceGame
	byPlayer  map[string][]*domain.DiceGame
}

func NewMemoryRepository() Repository {
	return &memrepo{
		bySession: make(map[string]*domain.DiceGame),
		byPlayer:  make(map[string][]*domain.DiceGame),
	}
}

func (m *memrepo) SaveResult(_ context.Context, game *domain.DiceGame) error {
	if err := validate(game); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneGame(game)
	if prev, ok := m.bySession[game.SessionID]; ok {
		cp.ID = prev.ID
		*prev = *cp
		game.ID = cp.ID
		return nil
	}
	m.nextID++
	cp.ID = m.nextID
	game.ID = cp.ID
	m.bySession[cp.SessionID] = cp
	m.byPlayer[cp.PlayerID] = append(m.byPlayer[cp.PlayerID], cp)
	return nil
}

func (m *memrepo) RecentGames(_ context.Context, playerID string, limit int) ([]*domain.DiceGame, error) {
	limit = normalizeLimit(limit)
	m.mu.RLock()
	list := append([]*domain.DiceGame(nil), m.byPlayer[playerID]...)
	m.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].EndedAt.Equal(list[j].EndedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].EndedAt.After(list[j].EndedAt)
	})
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]*domain.DiceGame, len(list))
	for i, g := range list {
		out[i] = cloneGame(g)
	}
	return out, nil
}

func (m *memrepo) GameBySession(_ context.Context, sessionID string) (*domain.DiceGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.bySession[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGame(g), nil
}

func (m *memrepo) Close() error { return nil }

func cloneGame(g *domain.DiceGame) *domain.DiceGame {
	cp := *g
	cp.MovesUCI = append([]string(nil), g.MovesUCI...)
	cp.MovesText = append([]string(nil), g.MovesText...)
	return &cp
}
