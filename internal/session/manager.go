package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/dice-chess/internal/dicechess"
	"github.com/park285/dice-chess/internal/domain"
	"github.com/park285/dice-chess/internal/obslog"
	"github.com/park285/dice-chess/internal/results"
	"github.com/park285/dice-chess/internal/wallet"
)

var ErrInvalidRequest = errors.New("invalid game request")

const (
	defaultTickInterval = time.Second
	maxBotTurns         = 4
)

// Wallet is the part of the token ledger the manager needs.
type Wallet interface {
	CanStake(ctx context.Context, player string, stake int64) error
	Settle(ctx context.Context, s wallet.Settlement) (domain.PlayerAccount, error)
}

type Options struct {
	Store   Store
	Wallet  Wallet             // optional
	Results results.Repository // optional

	Pacer             dicechess.PacerFunc
	DefaultMode       dicechess.GameMode
	DefaultDifficulty dicechess.Difficulty
	DefaultClock      dicechess.TimeControl

	TickInterval time.Duration
	// IdleTimeout evicts untimed sessions nobody touched for this long. The store keeps them.
	IdleTimeout time.Duration

	Logger *zap.Logger
	Now    func() time.Time
}

type CreateRequest struct {
	Player      string
	Mode        string
	Difficulty  string
	Hotseat     bool
	Color       string // human side against the bot; white when empty
	TimeControl string
	Stake       int64
	Seed        int64
}

type SelectResult struct {
	Outcome dicechess.SelectOutcome
	Report  *dicechess.MoveReport
	Record  *Record
}

type MoveResult struct {
	Accepted bool
	Report   *dicechess.MoveReport
	Record   *Record
}

type entry struct {
	mu        sync.Mutex
	meta      Meta
	game      *dicechess.Session
	lastTick  time.Time
	saved     int64
	savedMeta Meta
	botQueued bool
}

func (e *entry) record() Record {
	return Record{Meta: e.meta, Snapshot: e.game.Snapshot()}
}

// Manager owns live game sessions. Every operation on a session runs under that
// session's lock; the bot plays in the background once the human's operation returns.
type Manager struct {
	store      Store
	wallet     Wallet
	results    results.Repository
	pacer      dicechess.PacerFunc
	mode       dicechess.GameMode
	difficulty dicechess.Difficulty
	clock      dicechess.TimeControl
	tick       time.Duration
	idle       time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu   sync.Mutex
	live map[string]*entry
	hub  *hub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if opts.DefaultMode == "" {
		opts.DefaultMode = dicechess.ModeStandard
	}
	if _, err := dicechess.RulesFor(opts.DefaultMode); err != nil {
		return nil, fmt.Errorf("default mode: %w", err)
	}
	if opts.DefaultDifficulty == "" {
		opts.DefaultDifficulty = dicechess.DifficultyMedium
	}
	if _, err := dicechess.GetBotPreset(opts.DefaultDifficulty); err != nil {
		return nil, fmt.Errorf("default difficulty: %w", err)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = obslog.Named("session")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:      opts.Store,
		wallet:     opts.Wallet,
		results:    opts.Results,
		pacer:      opts.Pacer,
		mode:       opts.DefaultMode,
		difficulty: opts.DefaultDifficulty,
		clock:      opts.DefaultClock,
		tick:       opts.TickInterval,
		idle:       opts.IdleTimeout,
		logger:     opts.Logger,
		now:        opts.Now,
		live:       make(map[string]*entry),
		hub:        newHub(),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Close stops background bot turns and waits for them.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// Drain waits for scheduled bot turns to finish.
func (m *Manager) Drain() { m.wg.Wait() }

func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Record, error) {
	player := strings.TrimSpace(req.Player)
	if player == "" {
		return nil, fmt.Errorf("%w: player required", ErrInvalidRequest)
	}
	mode := m.mode
	if strings.TrimSpace(req.Mode) != "" {
		parsed, err := dicechess.ParseGameMode(req.Mode)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		mode = parsed
	}
	tc := m.clock
	if strings.TrimSpace(req.TimeControl) != "" {
		parsed, err := dicechess.ParseTimeControl(req.TimeControl)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		tc = parsed
	}
	if req.Stake < 0 {
		return nil, fmt.Errorf("%w: negative stake", ErrInvalidRequest)
	}
	if req.Hotseat && req.Stake > 0 {
		return nil, fmt.Errorf("%w: hot-seat games cannot be staked", ErrInvalidRequest)
	}

	cfg := dicechess.Config{
		Mode:        mode,
		TimeControl: tc,
		Seed:        req.Seed,
		Stake:       int(req.Stake),
		Pacer:       m.pacer,
	}
	meta := Meta{ID: uuid.NewString(), Player: player, TimeControl: tc.String()}
	if !req.Hotseat {
		diff := m.difficulty
		if strings.TrimSpace(req.Difficulty) != "" {
			parsed, err := dicechess.ParseDifficulty(req.Difficulty)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
			diff = parsed
		}
		human := dicechess.White
		if strings.TrimSpace(req.Color) != "" {
			parsed, err := parseColor(req.Color)
			if err != nil {
				return nil, err
			}
			human = parsed
		}
		cfg.Bot = &dicechess.BotSeat{Color: human.Opponent(), Difficulty: diff}
		meta.HumanColor = human
		meta.Difficulty = string(diff)
		if m.wallet != nil {
			if err := m.wallet.CanStake(ctx, player, req.Stake); err != nil {
				return nil, err
			}
		}
	}

	game, err := dicechess.NewGame(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	now := m.now()
	meta.CreatedAt = now
	e := &entry{meta: meta, game: game, lastTick: now, saved: -1}
	m.watchTerminal(e)

	e.mu.Lock()
	defer e.mu.Unlock()
	rec, err := m.commit(ctx, e)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.live[meta.ID] = e
	m.mu.Unlock()

	m.logger.Info("dice_game_create",
		zap.String("game_id", meta.ID),
		zap.String("player", player),
		zap.String("mode", string(mode)),
		zap.String("difficulty", meta.Difficulty),
		zap.String("human_color", string(meta.HumanColor)),
		zap.String("time_control", meta.TimeControl),
		zap.Int64("stake", req.Stake),
		zap.Int64("seed", game.Seed()),
	)
	m.scheduleBot(e)
	return &rec, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*Record, error) {
	return m.with(ctx, id, func(*entry) error { return nil })
}

func (m *Manager) Roll(ctx context.Context, id string) (*Record, error) {
	return m.with(ctx, id, func(e *entry) error {
		if err := humanTurn(e); err != nil {
			return err
		}
		_, err := e.game.RollDice(ctx)
		return err
	})
}

// Select forwards a square click. Clicks that do nothing are not errors.
func (m *Manager) Select(ctx context.Context, id, square string) (*SelectResult, error) {
	pos, err := parseSquare(square)
	if err != nil {
		return nil, err
	}
	var res SelectResult
	rec, err := m.with(ctx, id, func(e *entry) error {
		res.Outcome, res.Report = e.game.SelectSquare(ctx, pos)
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Record = rec
	return &res, nil
}

// Move plays from→to for the human. An unavailable move is reported with
// Accepted=false and leaves the game unchanged.
func (m *Manager) Move(ctx context.Context, id, from, to string) (*MoveResult, error) {
	src, err := parseSquare(from)
	if err != nil {
		return nil, err
	}
	dst, err := parseSquare(to)
	if err != nil {
		return nil, err
	}
	var res MoveResult
	rec, err := m.with(ctx, id, func(e *entry) error {
		if err := humanTurn(e); err != nil {
			return err
		}
		rep, ok := e.game.Move(ctx, src, dst)
		if ok {
			res.Accepted = true
			res.Report = &rep
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Record = rec
	return &res, nil
}

// Resign ends the game against the human. In hot-seat games color picks the
// resigning side, defaulting to the side to move.
func (m *Manager) Resign(ctx context.Context, id, color string) (*Record, error) {
	var side dicechess.Color
	if strings.TrimSpace(color) != "" {
		parsed, err := parseColor(color)
		if err != nil {
			return nil, err
		}
		side = parsed
	}
	return m.with(ctx, id, func(e *entry) error {
		if e.game.Ended() {
			return dicechess.ErrGameOver
		}
		loser := e.meta.HumanColor
		if e.meta.Hotseat() {
			loser = side
			if loser == dicechess.NoColor {
				loser = e.game.CurrentTurn()
			}
		}
		e.game.Resign(loser)
		return nil
	})
}

func (m *Manager) LegalDestinations(ctx context.Context, id, square string) ([]dicechess.Position, error) {
	pos, err := parseSquare(square)
	if err != nil {
		return nil, err
	}
	var out []dicechess.Position
	_, err = m.with(ctx, id, func(e *entry) error {
		out = e.game.LegalDestinations(pos)
		return nil
	})
	return out, err
}

// Subscribe streams every saved change of session id and clock ticks while
// someone listens. cancel closes the channel.
func (m *Manager) Subscribe(id string) (<-chan Record, func()) {
	return m.hub.subscribe(id)
}

// RunClock charges elapsed time to the side to move of every live timed session
// until ctx ends.
func (m *Manager) RunClock(ctx context.Context) {
	t := time.NewTicker(m.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.ctx.Done():
			return
		case <-t.C:
			m.tickAll(ctx)
		}
	}
}

func (m *Manager) tickAll(ctx context.Context) {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.live))
	for _, e := range m.live {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	for _, e := range entries {
		// a busy session is charged by whoever holds it
		if !e.mu.TryLock() {
			continue
		}
		m.tickEntry(ctx, e)
		e.mu.Unlock()
	}
}

func (m *Manager) tickEntry(ctx context.Context, e *entry) {
	if e.game.Ended() {
		if _, err := m.commit(ctx, e); err != nil {
			m.logger.Warn("dice_finalize_retry_failed", zap.String("game_id", e.meta.ID), zap.Error(err))
		}
		return
	}
	if e.game.Clock().Control.Unlimited() {
		if m.now().Sub(e.meta.UpdatedAt) > m.idle {
			m.logger.Info("dice_session_idle_evict", zap.String("game_id", e.meta.ID))
			m.evict(e)
		}
		return
	}
	m.charge(e)
	if e.game.Ended() {
		if _, err := m.commit(ctx, e); err != nil {
			m.logger.Warn("dice_timeout_save_failed", zap.String("game_id", e.meta.ID), zap.Error(err))
		}
		return
	}
	if m.hub.count(e.meta.ID) > 0 {
		m.hub.publish(e.record())
	}
}

func (m *Manager) with(ctx context.Context, id string, fn func(e *entry) error) (*Record, error) {
	e, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	m.charge(e)
	opErr := fn(e)
	rec, err := m.commit(ctx, e)
	if err != nil {
		if opErr != nil {
			return nil, opErr
		}
		return nil, err
	}
	// a session restored on the bot's turn has nobody else to start it
	m.scheduleBot(e)
	if opErr != nil {
		return nil, opErr
	}
	return &rec, nil
}

func (m *Manager) load(ctx context.Context, id string) (*entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	m.mu.Lock()
	e := m.live[id]
	m.mu.Unlock()
	if e != nil {
		return e, nil
	}

	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	game, err := dicechess.Restore(rec.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}
	game.SetPacer(m.pacer)
	e = &entry{
		meta:      rec.Meta,
		game:      game,
		lastTick:  m.now(),
		saved:     game.Version(),
		savedMeta: rec.Meta,
	}
	m.watchTerminal(e)

	finished := game.Ended() && rec.Meta.Settled && rec.Meta.Persisted
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur := m.live[id]; cur != nil {
		return cur, nil
	}
	if !finished {
		m.live[id] = e
		m.logger.Info("dice_session_restore", zap.String("game_id", id), zap.Int64("version", game.Version()))
	}
	return e, nil
}

func (m *Manager) evict(e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live[e.meta.ID] == e {
		delete(m.live, e.meta.ID)
	}
}

// charge bills the time since the last charge to the side to move.
func (m *Manager) charge(e *entry) {
	now := m.now()
	elapsed := now.Sub(e.lastTick)
	e.lastTick = now
	if elapsed > 0 {
		e.game.Tick(elapsed)
	}
}

// commit finalises a finished game, then saves and publishes if anything changed.
func (m *Manager) commit(ctx context.Context, e *entry) (Record, error) {
	if e.game.Ended() && !(e.meta.Settled && e.meta.Persisted) {
		m.finalize(ctx, e)
	}
	if e.game.Version() == e.saved && e.meta == e.savedMeta {
		return e.record(), nil
	}
	e.meta.UpdatedAt = m.now()
	rec := e.record()
	if err := m.store.Save(ctx, &rec); err != nil {
		m.logger.Warn("dice_session_save_failed", zap.String("game_id", e.meta.ID), zap.Error(err))
		if errors.Is(err, ErrConflict) {
			m.evict(e)
		}
		return rec, err
	}
	e.saved = rec.Snapshot.Version
	e.savedMeta = e.meta
	m.hub.publish(rec)
	if e.game.Ended() && e.meta.Settled && e.meta.Persisted {
		m.evict(e)
	}
	return rec, nil
}

func (m *Manager) watchTerminal(e *entry) {
	e.game.OnTerminal(func(st dicechess.Status) {
		e.meta.EndedAt = m.now()
		m.logger.Info("dice_game_end",
			zap.String("game_id", e.meta.ID),
			zap.String("winner", string(st.Winner)),
			zap.String("reason", string(st.Reason)),
		)
	})
}

// finalize settles the stake and stores the result. Each step is retried on a
// later commit until it succeeds once.
func (m *Manager) finalize(ctx context.Context, e *entry) {
	st := e.game.Status()
	if e.meta.EndedAt.IsZero() {
		e.meta.EndedAt = m.now()
	}
	if !e.meta.Settled {
		switch {
		case e.meta.Hotseat() || m.wallet == nil:
			e.meta.Settled = true
		default:
			s := wallet.Settlement{
				GameID:   e.meta.ID,
				PlayerID: e.meta.Player,
				Stake:    int64(e.game.Stake()),
				Won:      st.Winner == e.meta.HumanColor,
			}
			acc, err := m.wallet.Settle(ctx, s)
			switch {
			case err == nil:
				e.meta.Settled = true
				e.meta.TokenDelta = s.Delta()
				m.logger.Info("dice_settle",
					zap.String("game_id", e.meta.ID),
					zap.String("player", e.meta.Player),
					zap.Int64("delta", s.Delta()),
					zap.Int64("balance", acc.Tokens),
				)
			case errors.Is(err, wallet.ErrAlreadySettled):
				e.meta.Settled = true
				e.meta.TokenDelta = s.Delta()
			default:
				m.logger.Warn("dice_settle_failed", zap.String("game_id", e.meta.ID), zap.Error(err))
			}
		}
	}
	if !e.meta.Persisted {
		if m.results == nil {
			e.meta.Persisted = true
			return
		}
		game := m.resultRecord(e, st)
		if err := m.results.SaveResult(ctx, game); err != nil {
			m.logger.Warn("dice_result_save_failed", zap.String("game_id", e.meta.ID), zap.Error(err))
			return
		}
		e.meta.Persisted = true
		m.logger.Info("dice_result_saved", zap.String("game_id", e.meta.ID), zap.Int64("result_id", game.ID))
	}
}

func (m *Manager) resultRecord(e *entry, st dicechess.Status) *domain.DiceGame {
	snap := e.game.Snapshot()
	result := domain.ResultHotseat
	if !e.meta.Hotseat() {
		result = domain.ResultLoss
		if st.Winner == e.meta.HumanColor {
			result = domain.ResultWin
		}
	}
	return &domain.DiceGame{
		SessionID:   e.meta.ID,
		PlayerID:    e.meta.Player,
		Mode:        string(snap.Mode),
		Difficulty:  e.meta.Difficulty,
		PlayerColor: string(e.meta.HumanColor),
		Winner:      string(st.Winner),
		Result:      result,
		Reason:      string(st.Reason),
		Stake:       int64(snap.Stake),
		TokenDelta:  e.meta.TokenDelta,
		MovesUCI:    snap.Log.UCI(),
		MovesText:   snap.Log.Texts(),
		FinalFEN:    snap.FEN,
		TurnCount:   snap.Turn.TurnNumber,
		StartedAt:   e.meta.CreatedAt,
		EndedAt:     e.meta.EndedAt,
		Duration:    e.meta.EndedAt.Sub(e.meta.CreatedAt),
	}
}

// scheduleBot starts the bot's turn in the background. Called with e locked.
func (m *Manager) scheduleBot(e *entry) {
	if e.botQueued || !e.game.BotToMove() || m.ctx.Err() != nil {
		return
	}
	e.botQueued = true
	m.wg.Add(1)
	go m.driveBot(e)
}

func (m *Manager) driveBot(e *entry) {
	defer m.wg.Done()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.botQueued = false

	m.charge(e)
	for i := 0; i < maxBotTurns && e.game.BotToMove(); i++ {
		moves, err := e.game.PlayBot(m.ctx)
		if err != nil {
			m.logger.Warn("dice_bot_error", zap.String("game_id", e.meta.ID), zap.Error(err))
			break
		}
		for _, rep := range moves {
			m.logger.Debug("dice_bot_move",
				zap.String("game_id", e.meta.ID),
				zap.String("move", rep.Record.Text),
				zap.Bool("king_captured", rep.KingCaptured),
			)
		}
	}
	// the bot's presentation pauses are not billed to either side
	e.lastTick = m.now()
	if _, err := m.commit(m.ctx, e); err != nil {
		m.logger.Warn("dice_bot_commit_failed", zap.String("game_id", e.meta.ID), zap.Error(err))
	}
}

func humanTurn(e *entry) error {
	if e.game.Ended() {
		return dicechess.ErrGameOver
	}
	if e.game.BotToMove() {
		return dicechess.ErrNotYourTurn
	}
	return nil
}

func parseSquare(s string) (dicechess.Position, error) {
	pos, err := dicechess.ParsePosition(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return dicechess.Position{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return pos, nil
}

func parseColor(s string) (dicechess.Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return dicechess.White, nil
	case "black", "b":
		return dicechess.Black, nil
	}
	return dicechess.NoColor, fmt.Errorf("%w: color %q", ErrInvalidRequest, s)
}
