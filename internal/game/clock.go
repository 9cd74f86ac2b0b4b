package game

import (
	"fmt"
	"math"
	"time"
)

// Clock accumulates one player's thinking time. A player's first turn is
// never timed: the clock only runs from the start of their second turn.
type Clock struct {
	Total time.Duration

	started time.Time
	running bool
	warm    bool
}

// Resume starts timing the turn that begins at now, unless this is the
// player's first turn.
func (c *Clock) Resume(now time.Time) {
	if !c.warm {
		return
	}
	c.started = now
	c.running = true
}

// Suspend closes the turn that ends at now.
func (c *Clock) Suspend(now time.Time) {
	if c.running {
		if d := now.Sub(c.started); d > 0 {
			c.Total += d
		}
		c.started = time.Time{}
		c.running = false
	}
	c.warm = true
}

// Cancel drops the open turn without adding it to Total.
func (c *Clock) Cancel() {
	c.started = time.Time{}
	c.running = false
}

// Running reports whether a turn is currently being timed.
func (c *Clock) Running() bool { return c.running }

// Elapsed is Total plus the open turn, if any.
func (c *Clock) Elapsed(now time.Time) time.Duration {
	if !c.running {
		return c.Total
	}
	return c.Total + now.Sub(c.started)
}

// Restore sets the accumulated total and drops any open turn. A restored
// clock with time on it is already past its untimed first turn.
func (c *Clock) Restore(total time.Duration) {
	*c = Clock{Total: total, warm: total > 0}
}

// FormatElapsed renders a duration as "12.3 sec", "2 min 5.0 sec" or
// "1 hr 2 min 3.4 sec". Zero renders as "-".
func FormatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	total := d.Seconds()
	hours := int(total / 3600)
	total -= float64(hours) * 3600
	minutes := int(total / 60)
	seconds := math.Round((total-float64(minutes)*60)*10) / 10

	switch {
	case hours == 0 && minutes == 0:
		return fmt.Sprintf("%.1f sec", seconds)
	case hours == 0:
		return fmt.Sprintf("%d min %.1f sec", minutes, seconds)
	default:
		return fmt.Sprintf("%d hr %d min %.1f sec", hours, minutes, seconds)
	}
}
