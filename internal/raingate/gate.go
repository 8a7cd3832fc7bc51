package raingate

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-irrigation/internal/schedule"
	"github.com/nerrad567/gray-logic-irrigation/internal/weather"
)

// Decision is the outcome of a gate evaluation.
type Decision int

const (
	Allow Decision = iota
	Deny
)

func (d Decision) String() string {
	if d == Deny {
		return "deny"
	}
	return "allow"
}

// Policy is the decision taken when rainfall cannot be determined.
type Policy int

const (
	// FailAllow waters anyway.
	FailAllow Policy = iota
	FailDeny
)

// ParsePolicy maps "allow" and "deny" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "allow":
		return FailAllow, nil
	case "deny":
		return FailDeny, nil
	default:
		return FailAllow, fmt.Errorf("raingate: unknown failure policy %q", s)
	}
}

func (p Policy) decision() Decision {
	if p == FailDeny {
		return Deny
	}
	return Allow
}

func (p Policy) String() string {
	return p.decision().String()
}

// Result describes one gate evaluation.
type Result struct {
	Decision Decision

	// RainfallMM is the trailing 24h rainfall. Zero unless Checked.
	RainfallMM float64

	// Checked is true when the provider was consulted successfully.
	Checked bool

	// FailSafe is true when the policy decided because the lookup failed.
	FailSafe bool

	// Aborted is true when the caller's context ended during the lookup.
	// The decision is then Deny and no policy was applied.
	Aborted bool

	// Err is the provider failure behind a fail-safe decision, or the
	// context error when Aborted.
	Err error
}

// Config configures a Gate.
type Config struct {
	Provider weather.Provider
	Clock    schedule.Clock
	Policy   Policy

	// Timeout bounds the whole rainfall lookup. Zero means 30 seconds.
	Timeout time.Duration
}

// Gate evaluates rainfall against station thresholds. It holds no
// per-station state and may be shared by all drivers.
type Gate struct {
	provider weather.Provider
	clock    schedule.Clock
	policy   Policy
	timeout  time.Duration
}

// New creates a Gate. Provider may be nil when no station uses rain
// sensing; a sensing evaluation then takes the fail-safe path.
func New(cfg Config) *Gate {
	if cfg.Clock == nil {
		cfg.Clock = schedule.SystemClock{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Gate{
		provider: cfg.Provider,
		clock:    cfg.Clock,
		policy:   cfg.Policy,
		timeout:  cfg.Timeout,
	}
}

// Evaluate decides whether watering may proceed.
//
// Parameters:
//   - rainSensing: when false the result is Allow and the provider is not called
//   - thresholdMM: watering is denied once rainfall reaches this
//   - at: where to look up rainfall
func (g *Gate) Evaluate(ctx context.Context, rainSensing bool, thresholdMM float64, at schedule.Coordinates) Result {
	if !rainSensing {
		return Result{Decision: Allow}
	}
	if g.provider == nil {
		return g.failSafe(fmt.Errorf("%w: no rainfall provider configured", weather.ErrRequestFailed))
	}

	lookupCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	mm, err := TrailingRainfall(lookupCtx, g.provider, at, g.clock.Now())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Decision: Deny, Aborted: true, Err: ctxErr}
		}
		return g.failSafe(err)
	}

	res := Result{Decision: Allow, RainfallMM: mm, Checked: true}
	if exceeds(mm, thresholdMM) {
		res.Decision = Deny
	}
	return res
}

// exceeds reports whether rainfall reaches the threshold. A dry window
// never denies, so a zero threshold means "any rain at all".
func exceeds(mm, thresholdMM float64) bool {
	return mm > 0 && mm >= thresholdMM
}

func (g *Gate) failSafe(err error) Result {
	return Result{
		Decision: g.policy.decision(),
		FailSafe: true,
		Err:      err,
	}
}
