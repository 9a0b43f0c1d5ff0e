// Package timectrl drives the simulated telemetry cadence.
package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock exposes the current simulation time to components that should not
// depend on the concrete driver.
type Clock interface {
	Now() time.Time
}

// Mode describes how the Driver advances simulation time.
type Mode int

const (
	// RealTime advances according to wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as fast as the cycle callbacks return while
	// still stepping simulation time by Tick.
	Accelerated
)

// Driver advances simulation time at a fixed tick and invokes registered
// cycle callbacks on every step. It implements Clock.
type Driver struct {
	mu        sync.RWMutex
	start     time.Time
	tick      time.Duration
	mode      Mode
	current   time.Time
	listeners []func(time.Time)
}

// NewDriver constructs a driver starting at start, stepping by tick.
func NewDriver(start time.Time, tick time.Duration, mode Mode) *Driver {
	return &Driver{
		start:   start,
		tick:    tick,
		mode:    mode,
		current: start,
	}
}

// Now returns the current simulation time.
func (d *Driver) Now() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// SetTime overrides the current simulation time. Intended for tests and
// replays; listeners are not invoked.
func (d *Driver) SetTime(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = t
}

// AddListener registers a callback invoked on every tick with the current
// simulation time. Listeners must be registered before Run.
func (d *Driver) AddListener(fn func(time.Time)) {
	d.listeners = append(d.listeners, fn)
}

// Run advances simulation time until duration has elapsed in simulation
// time or ctx is cancelled, whichever comes first. A non-positive duration
// runs until cancellation. Run blocks; callers wanting concurrency start it
// in their own goroutine.
func (d *Driver) Run(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	simTime := d.start
	d.current = simTime
	d.mu.Unlock()

	var ticker *time.Ticker
	if d.mode == RealTime {
		ticker = time.NewTicker(d.tick)
		defer ticker.Stop()
	}

	elapsed := time.Duration(0)
	for {
		if duration > 0 && elapsed >= duration {
			return nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		simTime = simTime.Add(d.tick)
		elapsed += d.tick

		d.mu.Lock()
		d.current = simTime
		d.mu.Unlock()

		for _, fn := range d.listeners {
			fn(simTime)
		}
	}
}
