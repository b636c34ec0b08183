package sim

import "fmt"

// RoundWindow is the simulation-time interval [Start, End) of one round.
type RoundWindow struct {
	Start SimTime
	End   SimTime
}

func (w RoundWindow) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start, w.End)
}

// roundCoordinator sizes round windows. It is used only by the goroutine
// driving Scheduler.Run.
//
// The window length is max(floor, minTimeJump), where minTimeJump is the
// largest minimum inter-host latency reported so far. No cross-host event
// sent during a round can be due before the round ends, so hosts never see
// an event from their own past.
type roundCoordinator struct {
	endTime     SimTime
	floor       SimTime
	minTimeJump SimTime
	rounds      uint64
}

func newRoundCoordinator(endTime, floor SimTime) *roundCoordinator {
	if floor == 0 {
		panic("newRoundCoordinator: runahead floor must be positive")
	}
	return &roundCoordinator{endTime: endTime, floor: floor}
}

// UpdateMinTimeJump raises the observed minimum latency. Lower values are
// ignored: the bound only ever grows over a run.
func (c *roundCoordinator) UpdateMinTimeJump(latency SimTime) {
	if latency > c.minTimeJump && latency != SimTimeInvalid {
		c.minTimeJump = latency
	}
}

// Jump returns the current window length.
func (c *roundCoordinator) Jump() SimTime {
	return max(c.floor, c.minTimeJump)
}

// Next returns the window starting at the earliest pending event time, or
// false when the run is over.
func (c *roundCoordinator) Next(minNextEventTime SimTime) (RoundWindow, bool) {
	if minNextEventTime >= c.endTime {
		return RoundWindow{}, false
	}
	start := minNextEventTime
	end := c.endTime
	if jump := c.Jump(); jump < c.endTime-start {
		end = start + jump
	}
	c.rounds++
	return RoundWindow{Start: start, End: end}, true
}

// Rounds returns the number of windows handed out.
func (c *roundCoordinator) Rounds() uint64 { return c.rounds }
