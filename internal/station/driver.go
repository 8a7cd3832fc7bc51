package station

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/actuator"
	"github.com/nerrad567/gray-logic-irrigation/internal/eventlog"
	"github.com/nerrad567/gray-logic-irrigation/internal/notify"
	"github.com/nerrad567/gray-logic-irrigation/internal/raingate"
	"github.com/nerrad567/gray-logic-irrigation/internal/schedule"
)

const (
	defaultPollInterval  = 45 * time.Second
	defaultNotifyTimeout = 30 * time.Second
)

// Config holds everything one driver needs. Nothing in it is shared
// between drivers except Log and, when set, History and Observers.
type Config struct {
	Station schedule.StationConfig

	// Site is the fallback location for rainfall lookups.
	Site schedule.Coordinates

	Clock    schedule.Clock
	Gate     Gate
	Actuator actuator.Actuator
	Log      Appender
	Notifier notify.Notifier

	// History is optional.
	History   Recorder
	Observers []Observer

	// PollInterval defaults to 45s. It must stay under one minute so no
	// slot minute is skipped.
	PollInterval time.Duration

	// NotifyTimeout bounds each notification. Default 30s.
	NotifyTimeout time.Duration

	Logger Logger
}

// Driver is the control loop of one station.
//
// Thread Safety:
//   - Run and Poll must be called from one goroutine at a time.
//   - State and Snapshot are safe from any goroutine.
type Driver struct {
	cfg    Config
	logger Logger

	mu        sync.RWMutex
	state     State
	lastFired map[int]time.Time // slot index -> occurrence already handled
	lastEvent *eventlog.Event
	lastPoll  time.Time
	restarts  int
}

// NewDriver validates cfg and creates a driver in the Idle state.
func NewDriver(cfg Config) (*Driver, error) {
	var missing []string
	if cfg.Station.ID == "" {
		missing = append(missing, "station id")
	}
	if cfg.Clock == nil {
		missing = append(missing, "clock")
	}
	if cfg.Gate == nil {
		missing = append(missing, "gate")
	}
	if cfg.Actuator == nil {
		missing = append(missing, "actuator")
	}
	if cfg.Log == nil {
		missing = append(missing, "log")
	}
	if cfg.Notifier == nil {
		missing = append(missing, "notifier")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", ErrInvalidConfig, missing)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollInterval >= time.Minute {
		return nil, fmt.Errorf("%w: poll interval %v must be under one minute", ErrInvalidConfig, cfg.PollInterval)
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Driver{
		cfg:       cfg,
		logger:    logger,
		state:     StateIdle,
		lastFired: make(map[int]time.Time, len(cfg.Station.Slots)),
	}, nil
}

// ID returns the station ID.
func (d *Driver) ID() string {
	return d.cfg.Station.ID
}

// Run switches the valve off and polls until ctx is cancelled. A watering
// in progress when ctx is cancelled runs to completion first.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Info("station active", "slots", len(d.cfg.Station.Slots), "rain_sensing", d.cfg.Station.RainSensing)

	if err := d.cfg.Actuator.Off(ctx); err != nil {
		d.logger.Warn("closing valve at start failed", "error", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil //nolint:nilerr // cancellation is a normal stop
		}
		d.Poll(ctx)
		if err := d.cfg.Clock.Sleep(ctx, d.cfg.PollInterval); err != nil {
			return nil //nolint:nilerr // cancellation is a normal stop
		}
	}
}

// Poll checks the clock once and processes a matching occurrence. It
// returns the finished event, or nil when nothing was due, the
// occurrence had already been handled, or ctx ended before watering.
func (d *Driver) Poll(ctx context.Context) *eventlog.Event {
	now := d.cfg.Clock.Now()

	d.mu.Lock()
	d.lastPoll = now
	d.mu.Unlock()

	idx, slot, ok := d.cfg.Station.Match(schedule.MomentOf(now))
	if !ok {
		return nil
	}

	occurrence := slot.Occurrence(now)
	d.mu.Lock()
	if fired, seen := d.lastFired[idx]; seen && fired.Equal(occurrence) {
		d.mu.Unlock()
		return nil
	}
	d.lastFired[idx] = occurrence
	d.mu.Unlock()

	ev, ok := d.process(ctx, idx, slot, now)
	if !ok {
		return nil
	}
	return &ev
}

// process runs one occurrence. It reports false when ctx ended during
// the rain check; the valve and notifier are then left untouched.
func (d *Driver) process(ctx context.Context, idx int, slot schedule.WateringSlot, now time.Time) (eventlog.Event, bool) {
	st := d.cfg.Station
	log := d.logger

	d.setState(StateChecking)
	res := d.cfg.Gate.Evaluate(ctx, st.RainSensing, st.RainThresholdMM, st.Location(d.cfg.Site))
	if res.Aborted || ctx.Err() != nil {
		log.Info("shutdown during rain check, skipping occurrence", "slot", slot.String())
		d.setState(StateIdle)
		return eventlog.Event{}, false
	}
	if res.FailSafe {
		log.Warn("rainfall unavailable, applying fail-safe policy",
			"slot", slot.String(), "decision", res.Decision.String(), "error", res.Err)
	}

	var ev eventlog.Event
	if res.Decision == raingate.Deny {
		d.setState(StateCancelled)
		ev = d.newEvent(idx, slot, now, eventlog.OutcomeCancelled, res)
		log.Info("watering cancelled", "slot", slot.String(),
			"rainfall_mm", res.RainfallMM, "threshold_mm", st.RainThresholdMM)
		d.notify(ctx, notify.Cancelled(ev, st.RainThresholdMM))
	} else {
		d.setState(StateWatering)
		ev = d.water(ctx, idx, slot, now, res)
	}

	d.finish(ctx, ev)
	return ev, true
}

// water runs the valve for the slot duration. The cycle ignores ctx
// cancellation once started.
func (d *Driver) water(ctx context.Context, idx int, slot schedule.WateringSlot, start time.Time, res raingate.Result) eventlog.Event {
	wctx := context.WithoutCancel(ctx)
	log := d.logger

	log.Info("watering commenced", "slot", slot.String(), "duration", slot.Duration)
	if err := d.cfg.Actuator.On(wctx); err != nil {
		return d.fail(wctx, idx, slot, start, res, err)
	}

	_ = d.cfg.Clock.Sleep(wctx, slot.Duration) //nolint:errcheck // wctx is never cancelled

	if err := d.cfg.Actuator.Off(wctx); err != nil {
		return d.fail(wctx, idx, slot, start, res, err)
	}
	log.Info("watering finished", "slot", slot.String(), "duration", slot.Duration)

	ev := d.newEvent(idx, slot, start, eventlog.OutcomeCompleted, res)
	if err := d.cfg.Log.Append(wctx, ev); err != nil {
		log.Error("appending watering log failed", "event_id", ev.ID, "error", err)
	}
	d.notify(wctx, notify.Completed(ev))
	return ev
}

// fail forces the valve closed and reports an actuator error.
func (d *Driver) fail(ctx context.Context, idx int, slot schedule.WateringSlot, start time.Time, res raingate.Result, cause error) eventlog.Event {
	d.logger.Error("actuator failed, stopping cycle", "slot", slot.String(), "error", cause)
	if err := d.cfg.Actuator.Off(ctx); err != nil {
		d.logger.Error("forcing valve off failed", "error", err)
	}

	ev := d.newEvent(idx, slot, start, eventlog.OutcomeFailed, res)
	ev.Reason = cause.Error()
	d.notify(ctx, notify.Failed(ev, cause))
	return ev
}

func (d *Driver) newEvent(idx int, slot schedule.WateringSlot, start time.Time, outcome eventlog.Outcome, res raingate.Result) eventlog.Event {
	ev := eventlog.NewEvent(d.cfg.Station.ID, idx, start, slot.Duration, outcome)
	ev.RainChecked = res.Checked
	ev.RainfallMM = res.RainfallMM
	ev.FailSafe = res.FailSafe
	if res.Err != nil {
		ev.Reason = res.Err.Error()
	}
	return ev
}

// notify sends msg with a bounded timeout. Failures are only logged.
func (d *Driver) notify(ctx context.Context, msg notify.Message) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.NotifyTimeout)
	defer cancel()

	if err := d.cfg.Notifier.Send(nctx, msg); err != nil {
		d.logger.Warn("notification failed", "subject", msg.Subject, "error", err)
	}
}

// finish records ev, informs observers and returns to Idle.
func (d *Driver) finish(ctx context.Context, ev eventlog.Event) {
	if d.cfg.History != nil {
		if err := d.cfg.History.Record(context.WithoutCancel(ctx), ev); err != nil {
			d.logger.Warn("recording occurrence history failed", "event_id", ev.ID, "error", err)
		}
	}

	d.mu.Lock()
	d.lastEvent = &ev
	d.mu.Unlock()

	for _, o := range d.cfg.Observers {
		o.OccurrenceFinished(ev)
	}
	d.setState(StateIdle)
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	if d.state == s {
		d.mu.Unlock()
		return
	}
	d.state = s
	d.mu.Unlock()

	d.logger.Debug("station state changed", "state", string(s))
	for _, o := range d.cfg.Observers {
		o.StateChanged(d.cfg.Station.ID, s)
	}
}

// State returns the current state.
func (d *Driver) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Snapshot returns a copy of the driver's observable state.
func (d *Driver) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snap := Snapshot{
		StationID:       d.cfg.Station.ID,
		State:           d.state,
		RainSensing:     d.cfg.Station.RainSensing,
		RainThresholdMM: d.cfg.Station.RainThresholdMM,
		Slots:           append([]schedule.WateringSlot(nil), d.cfg.Station.Slots...),
		LastPoll:        d.lastPoll,
		Restarts:        d.restarts,
	}
	if d.lastEvent != nil {
		ev := *d.lastEvent
		snap.LastEvent = &ev
	}
	return snap
}

func (d *Driver) noteRestart() {
	d.mu.Lock()
	d.restarts++
	d.mu.Unlock()
}

// reset returns a driver that died mid-cycle to Idle.
func (d *Driver) reset() {
	d.setState(StateIdle)
}
