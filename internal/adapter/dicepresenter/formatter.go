package dicepresenter

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/park285/dice-chess/internal/msgcat"
	"github.com/park285/dice-chess/pkg/dicedto"
)

var current atomic.Pointer[Formatter]

func init() {
	current.Store(NewFormatter(language.English, msgcat.Default()))
}

// UseFormatter replaces the formatter that fills GameState.Summary.
func UseFormatter(f *Formatter) {
	if f != nil {
		current.Store(f)
	}
}

func defaultFormatter() *Formatter { return current.Load() }

// Formatter renders DTOs as short status lines for logs and text clients.
type Formatter struct {
	lang language.Tag
	cat  *msgcat.Catalog
}

func NewFormatter(lang language.Tag, cat *msgcat.Catalog) *Formatter {
	if cat == nil {
		cat = msgcat.Default()
	}
	return &Formatter{lang: lang, cat: cat}
}

// title is not cached: a Caser keeps state and must not be shared between goroutines.
func (f *Formatter) title(s string) string {
	return cases.Title(f.lang).String(strings.ReplaceAll(s, "_", " "))
}

func (f *Formatter) msg(key string, data map[string]any) string {
	return f.cat.Text(key, data)
}

func (f *Formatter) Summary(s *dicedto.GameState) string {
	if s == nil {
		return ""
	}
	if s.Status == "ended" {
		return f.ending(s)
	}
	var sb strings.Builder
	side := map[string]any{"Side": f.title(s.Turn)}
	if s.Phase == "rolling" {
		sb.WriteString(f.msg("game.to_roll", side))
	} else {
		sb.WriteString(f.msg("game.to_move", side))
		if len(s.Dice.Allowed) > 0 {
			sb.WriteString(f.msg("game.allowed", map[string]any{"Pieces": strings.Join(s.Dice.Allowed, ", ")}))
		}
		if s.MovesLeft > 1 {
			sb.WriteString(f.msg("game.moves_left", map[string]any{"N": s.MovesLeft}))
		}
	}
	if s.Check {
		sb.WriteString(f.msg("game.check", nil))
	}
	sb.WriteString(f.msg("game.footer", map[string]any{"Mode": f.modeLabel(s.Mode), "Turn": s.TurnNumber}))
	if s.Clock != nil {
		sb.WriteString(f.msg("game.clock", map[string]any{"White": clockText(s.Clock.WhiteMS), "Black": clockText(s.Clock.BlackMS)}))
	}
	return sb.String()
}

func (f *Formatter) ending(s *dicedto.GameState) string {
	data := map[string]any{"Winner": f.title(s.Winner), "Reason": strings.ReplaceAll(s.Reason, "_", " ")}
	switch s.Reason {
	case "timeout":
		return f.msg("game.win_timeout", data)
	case "resignation":
		return f.msg("game.win_resignation", data)
	case "":
		return f.msg("game.over", nil)
	}
	return f.msg("game.win_other", data)
}

func (f *Formatter) modeLabel(mode string) string {
	if mode == "x2" {
		return "X2"
	}
	return f.title(mode)
}

func clockText(ms int64) string {
	d := max(time.Duration(ms)*time.Millisecond, 0)
	return fmt.Sprintf("%d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}

// History lists finished games, newest first, one per line.
func (f *Formatter) History(games []dicedto.GameSummaryDTO) string {
	if len(games) == 0 {
		return f.msg("history.empty", nil)
	}
	lines := make([]string, 0, len(games))
	for i, g := range games {
		opponent := f.msg("history.hotseat", nil)
		if g.Difficulty != "" {
			opponent = f.msg("history.versus", map[string]any{"Difficulty": f.title(g.Difficulty)})
		}
		lines = append(lines, f.msg("history.line", map[string]any{
			"Index":    i + 1,
			"Result":   f.title(g.Result),
			"Opponent": opponent,
			"Mode":     f.modeLabel(g.Mode),
			"Delta":    fmt.Sprintf("%+d", g.TokenDelta),
			"Reason":   strings.ReplaceAll(g.Reason, "_", " "),
			"Moves":    g.Moves,
		}))
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) Account(a dicedto.AccountDTO) string {
	return f.msg("account.line", map[string]any{
		"Player":  a.Player,
		"Tokens":  a.Tokens,
		"Wins":    a.Wins,
		"Losses":  a.Losses,
		"WinRate": fmt.Sprintf("%.1f", a.WinRate),
		"Streak":  a.CurrentStreak,
		"Best":    a.BestWinStreak,
	})
}
