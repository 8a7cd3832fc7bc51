package station

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

const defaultRestartDelay = 60 * time.Second

// errDriverExited is reported when Run returns while ctx is still live.
var errDriverExited = errors.New("station: driver exited unexpectedly")

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// RestartDelay is the pause before restarting a failed driver.
	// Default 60s.
	RestartDelay time.Duration

	// OnRestart, if set, is called with the station ID before each restart.
	OnRestart func(stationID string)

	Logger Logger
}

// Controller supervises one goroutine per driver.
type Controller struct {
	drivers      []*Driver
	byID         map[string]*Driver
	restartDelay time.Duration
	onRestart    func(stationID string)
	logger       Logger
}

// NewController creates a controller for drivers. Station IDs must be
// unique.
func NewController(drivers []*Driver, cfg ControllerConfig) (*Controller, error) {
	byID := make(map[string]*Driver, len(drivers))
	for _, d := range drivers {
		if _, dup := byID[d.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate station %q", ErrInvalidConfig, d.ID())
		}
		byID[d.ID()] = d
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = defaultRestartDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		drivers:      drivers,
		byID:         byID,
		restartDelay: cfg.RestartDelay,
		onRestart:    cfg.OnRestart,
		logger:       logger,
	}, nil
}

// Run starts every driver and blocks until ctx is cancelled and all
// drivers have returned.
func (c *Controller) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, d := range c.drivers {
		wg.Add(1)
		go func(d *Driver) {
			defer wg.Done()
			c.supervise(ctx, d)
		}(d)
	}
	c.logger.Info("station drivers started", "count", len(c.drivers))

	wg.Wait()
	c.logger.Info("station drivers stopped")
	return nil
}

func (c *Controller) supervise(ctx context.Context, d *Driver) {
	for {
		err := runGuarded(ctx, d)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errDriverExited
		}

		c.logger.Error("station driver failed, restarting",
			"station_id", d.ID(), "error", err, "delay", c.restartDelay)
		d.reset()
		d.noteRestart()
		if c.onRestart != nil {
			c.onRestart(d.ID())
		}

		timer := time.NewTimer(c.restartDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runGuarded runs d, converting a panic into an error.
func runGuarded(ctx context.Context, d *Driver) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("station %s panicked: %v\n%s", d.ID(), r, debug.Stack())
		}
	}()
	return d.Run(ctx)
}

// Drivers returns the supervised drivers in configuration order.
func (c *Controller) Drivers() []*Driver {
	return c.drivers
}

// Driver looks up a driver by station ID.
func (c *Controller) Driver(id string) (*Driver, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Snapshots returns a snapshot of every driver in configuration order.
func (c *Controller) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(c.drivers))
	for _, d := range c.drivers {
		out = append(out, d.Snapshot())
	}
	return out
}

// Snapshot returns the snapshot of one station.
func (c *Controller) Snapshot(id string) (Snapshot, bool) {
	d, ok := c.byID[id]
	if !ok {
		return Snapshot{}, false
	}
	return d.Snapshot(), true
}
