package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/yaa/service"
)

// postQueueSize bounds work handed to the frame goroutine between frames
const postQueueSize = 256

// Display is the frame driver's view of the renderer
type Display interface {
	Clear()
	Show()
}

// Clock drives frames: init once, then tick, update, clear, draw, show
// Frame and Run must be called from one goroutine; Post, Pause and Resume are safe from any
type Clock struct {
	dispatcher *service.Dispatcher
	display    Display

	tickInterval time.Duration
	drawInterval time.Duration // 0 draws every frame

	// ===== Frame goroutine only =====
	initialized bool
	sinceDraw   time.Duration
	observer    func(elapsed time.Duration)

	// ===== Any goroutine =====
	posted   chan func() error
	isPaused atomic.Bool
	frames   atomic.Uint64

	log zerolog.Logger
}

// NewClock creates a frame driver ticking tickRate times per second
// frameRate caps draws per second, 0 draws every tick; display may be nil
func NewClock(d *service.Dispatcher, display Display, tickRate, frameRate int, log zerolog.Logger) *Clock {
	c := &Clock{
		dispatcher:   d,
		display:      display,
		tickInterval: time.Second / time.Duration(max(1, tickRate)),
		posted:       make(chan func() error, postQueueSize),
		log:          log.With().Str("service", "clock").Logger(),
	}
	if frameRate > 0 && frameRate < tickRate {
		c.drawInterval = time.Second / time.Duration(frameRate)
	}
	return c
}

// TickInterval returns the wall time between frames
func (c *Clock) TickInterval() time.Duration { return c.tickInterval }

// Frames returns the number of completed frames
func (c *Clock) Frames() uint64 { return c.frames.Load() }

// SetObserver installs a callback receiving the duration of each tick phase
func (c *Clock) SetObserver(fn func(elapsed time.Duration)) { c.observer = fn }

// Pause stops ticking, posted work is still processed
func (c *Clock) Pause() { c.isPaused.Store(true) }

// Resume continues ticking
func (c *Clock) Resume() { c.isPaused.Store(false) }

// IsPaused returns current pause state
func (c *Clock) IsPaused() bool { return c.isPaused.Load() }

// Post hands fn to the frame goroutine, it runs before the next tick
// Blocks when the queue is full
func (c *Clock) Post(fn func() error) {
	c.posted <- fn
}

// Frame runs one full frame with dt seconds of simulated time
func (c *Clock) Frame(dt float64) error {
	if err := c.Tick(dt); err != nil {
		return err
	}
	return c.Draw()
}

// Tick runs the simulation half of a frame
func (c *Clock) Tick(dt float64) error {
	if !c.initialized {
		c.initialized = true
		if err := c.dispatcher.Broadcast(service.EventInit, c.dispatcher); err != nil {
			return eris.Wrap(err, "init")
		}
		c.log.Info().Int("services", len(c.dispatcher.Services())).Msg("initialized")
	}

	start := time.Now()
	if err := c.dispatcher.Broadcast(service.EventTick, dt); err != nil {
		return err
	}
	if err := c.dispatcher.Broadcast(service.EventUpdate, dt); err != nil {
		return err
	}
	if c.observer != nil {
		c.observer(time.Since(start))
	}
	c.frames.Add(1)
	return nil
}

// Draw clears the display, broadcasts EventDraw and presents the result
func (c *Clock) Draw() error {
	if c.display != nil {
		c.display.Clear()
	}
	if err := c.dispatcher.Broadcast(service.EventDraw); err != nil {
		return err
	}
	if c.display != nil {
		c.display.Show()
	}
	return nil
}

// Run drives frames at the tick rate until ctx is done or a frame fails
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	dt := c.tickInterval.Seconds()
	c.log.Info().Dur("interval", c.tickInterval).Dur("draw_interval", c.drawInterval).Msg("clock started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Uint64("frames", c.Frames()).Msg("clock stopped")
			return nil

		case fn := <-c.posted:
			if err := fn(); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.drainPosted(); err != nil {
				return err
			}
			if c.isPaused.Load() {
				continue
			}
			if err := c.Tick(dt); err != nil {
				c.log.Error().Err(err).Uint64("frame", c.Frames()).Msg("frame failed")
				return err
			}

			c.sinceDraw += c.tickInterval
			if c.drawInterval == 0 || c.sinceDraw >= c.drawInterval {
				c.sinceDraw = 0
				if err := c.Draw(); err != nil {
					c.log.Error().Err(err).Uint64("frame", c.Frames()).Msg("draw failed")
					return err
				}
			}
		}
	}
}

// drainPosted runs posted work without blocking
func (c *Clock) drainPosted() error {
	for {
		select {
		case fn := <-c.posted:
			if err := fn(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}
