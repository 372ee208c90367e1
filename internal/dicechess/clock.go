package dicechess

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeControl is "minutes+increment". A zero Initial means no clock.
type TimeControl struct {
	Initial   time.Duration `json:"initial"`
	Increment time.Duration `json:"increment"`
}

func (tc TimeControl) Unlimited() bool { return tc.Initial <= 0 }

func (tc TimeControl) String() string {
	if tc.Unlimited() {
		return "none"
	}
	return fmt.Sprintf("%d+%d", int(tc.Initial/time.Minute), int(tc.Increment/time.Second))
}

// ParseTimeControl reads "5+3" (five minutes, three second increment), "10" or "none".
func ParseTimeControl(s string) (TimeControl, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "none", "unlimited", "off":
		return TimeControl{}, nil
	}
	base, inc, hasInc := strings.Cut(v, "+")
	minutes, err := strconv.Atoi(strings.TrimSpace(base))
	if err != nil || minutes <= 0 {
		return TimeControl{}, fmt.Errorf("%w: bad time control %q", ErrInvalidConfig, s)
	}
	tc := TimeControl{Initial: time.Duration(minutes) * time.Minute}
	if hasInc {
		seconds, err := strconv.Atoi(strings.TrimSpace(inc))
		if err != nil || seconds < 0 {
			return TimeControl{}, fmt.Errorf("%w: bad increment in %q", ErrInvalidConfig, s)
		}
		tc.Increment = time.Duration(seconds) * time.Second
	}
	return tc, nil
}

// Clock holds each side's remaining time.
type Clock struct {
	Control TimeControl   `json:"control"`
	White   time.Duration `json:"white"`
	Black   time.Duration `json:"black"`
}

func NewClock(tc TimeControl) Clock {
	return Clock{Control: tc, White: tc.Initial, Black: tc.Initial}
}

func (c Clock) Remaining(color Color) time.Duration {
	if color == White {
		return c.White
	}
	return c.Black
}

// tick charges d to color and reports whether its flag fell.
func (c *Clock) tick(color Color, d time.Duration) bool {
	if c.Control.Unlimited() || d <= 0 {
		return false
	}
	rem := &c.White
	if color == Black {
		rem = &c.Black
	}
	*rem -= d
	if *rem <= 0 {
		*rem = 0
		return true
	}
	return false
}

func (c *Clock) credit(color Color) {
	if c.Control.Unlimited() || c.Control.Increment <= 0 {
		return
	}
	if color == White {
		c.White += c.Control.Increment
	} else {
		c.Black += c.Control.Increment
	}
}
