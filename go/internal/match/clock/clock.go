package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DefaultInterval   = time.Second
	DefaultMaxElapsed = 30 * time.Second
)

// Target receives whole seconds of elapsed play. gen identifies the run that
// produced the tick; targets must drop it unless Active(gen) still holds,
// which is what makes Stop final even for a tick already in flight.
type Target interface {
	ClockTick(gen uint64, seconds int)
}

// Clock drives a match countdown from wall time rather than from counting
// timer fires, so late or coalesced fires do not lose seconds. Fractions of
// a second are carried into the next fire.
type Clock struct {
	matchID    string
	clock      clockwork.Clock
	target     Target
	interval   time.Duration
	maxElapsed time.Duration

	mu       sync.Mutex
	running  bool
	gen      uint64
	stop     chan struct{}
	lastTick time.Time
	carry    time.Duration
	wg       sync.WaitGroup
}

type Option func(*Clock)

func WithInterval(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithMaxElapsed bounds how much time a single fire may account for, e.g.
// after the process was suspended.
func WithMaxElapsed(d time.Duration) Option {
	return func(c *Clock) {
		if d > 0 {
			c.maxElapsed = d
		}
	}
}

func New(matchID string, clk clockwork.Clock, target Target, opts ...Option) *Clock {
	c := &Clock{
		matchID:    matchID,
		clock:      clk,
		target:     target,
		interval:   DefaultInterval,
		maxElapsed: DefaultMaxElapsed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a new run. It is a no-op while already running.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.running = true
	c.gen++
	c.stop = make(chan struct{})
	c.lastTick = c.clock.Now()
	c.carry = 0

	c.wg.Add(1)
	go c.run(c.gen, c.stop)

	log.Debug().Str("match_id", c.matchID).Uint64("gen", c.gen).Msg("match clock started")
}

// Stop ends the current run. It never blocks on the run goroutine, so it is
// safe to call from inside Target.ClockTick.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.running = false
	c.gen++
	close(c.stop)

	log.Debug().Str("match_id", c.matchID).Msg("match clock stopped")
}

// Wait blocks until the run goroutine of a stopped clock has exited.
func (c *Clock) Wait() {
	c.wg.Wait()
}

// Running reports whether a run is in progress.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Active reports whether gen is the current, unstopped run.
func (c *Clock) Active(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && c.gen == gen
}

func (c *Clock) run(gen uint64, stop <-chan struct{}) {
	defer c.wg.Done()

	timer := c.clock.NewTimer(c.interval)
	defer stopAndDrainTimer(timer)

	for {
		select {
		case <-stop:
			return
		case <-timer.Chan():
		}

		secs, ok := c.elapsed(gen)
		if !ok {
			return
		}
		if secs > 0 {
			c.target.ClockTick(gen, secs)
		}
		timer.Reset(c.interval)
	}
}

// elapsed converts wall time since the previous fire into whole seconds.
func (c *Clock) elapsed(gen uint64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.gen != gen {
		return 0, false
	}
	now := c.clock.Now()
	d := now.Sub(c.lastTick)
	c.lastTick = now

	if d < 0 {
		log.Warn().Str("match_id", c.matchID).Dur("elapsed", d).Msg("wall clock went backwards, ignoring")
		d = 0
	}
	if d > c.maxElapsed {
		log.Warn().
			Str("match_id", c.matchID).
			Dur("elapsed", d).
			Dur("max_elapsed", c.maxElapsed).
			Msg("clock fire was late, clamping elapsed time")
		d = c.maxElapsed
	}

	c.carry += d
	secs := int(c.carry / time.Second)
	c.carry -= time.Duration(secs) * time.Second
	return secs, true
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
