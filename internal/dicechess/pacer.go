package dicechess

import (
	"context"
	"time"
)

// Pause names a presentation delay. Pauses carry no game semantics.
type Pause string

const (
	PauseRoll     Pause = "roll"
	PauseBotThink Pause = "bot_think"
	PauseAutoPass Pause = "auto_pass"
)

// PacerFunc is called before a paced transition; the transition happens when it returns.
type PacerFunc func(ctx context.Context, p Pause)

// InstantPacer skips every pause.
func InstantPacer(context.Context, Pause) {}

var DefaultPauses = map[Pause]time.Duration{
	PauseRoll:     500 * time.Millisecond,
	PauseBotThink: 1500 * time.Millisecond,
	PauseAutoPass: time.Second,
}

// SleepPacer waits the configured duration per pause, or until ctx is done.
func SleepPacer(durations map[Pause]time.Duration) PacerFunc {
	if durations == nil {
		durations = DefaultPauses
	}
	return func(ctx context.Context, p Pause) {
		d := durations[p]
		if d <= 0 {
			return
		}
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
}
