package infra

// circuit_breaker.go — breaker guarding outbound notification delivery.
// Lifecycle/ledger mutations never wait on the webhook sink; the breaker's
// job is to stop the notification workers from hammering a downed sink and
// to surface its state on /health. Thresholds are tuned per breaker through
// the environment (WEBHOOK_CB_*), not hardcoded at call sites.
//
// States:
//   - Closed:    normal operation, deliveries pass through
//   - Open:      all deliveries fail immediately (fast-fail)
//   - Half-Open: one probe delivery allowed through to test recovery

import (
	"errors"
	"sync"
	"time"

	"paylog/internal/config"

	"github.com/rs/zerolog/log"
)

// CBState represents the current circuit breaker state.
type CBState int

const (
	CBClosed   CBState = iota // normal — deliveries flow
	CBOpen                    // tripped — fast-fail all deliveries
	CBHalfOpen                // probing — one delivery allowed
)

// String returns a human-readable state name (for health endpoints / logs).
func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when Execute is called while the CB is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds tunable parameters.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures to trip open
	SuccessThreshold int           // consecutive successes in half-open to close
	OpenTimeout      time.Duration // how long to stay open before probing
}

// DefaultCBConfig returns defaults for an event sink: trip fast (a webhook
// that failed three deliveries in a row is down, not flaky) and probe again
// after a short cooldown, since dropped events are not retried.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// WebhookBreakerConfig builds the webhook breaker's tuning from the app
// configuration, falling back to DefaultCBConfig for unset fields.
func WebhookBreakerConfig(cfg *config.Config) CircuitBreakerConfig {
	out := DefaultCBConfig()
	if cfg.WebhookCBFailureThreshold > 0 {
		out.FailureThreshold = cfg.WebhookCBFailureThreshold
	}
	if cfg.WebhookCBSuccessThreshold > 0 {
		out.SuccessThreshold = cfg.WebhookCBSuccessThreshold
	}
	if cfg.WebhookCBOpenSeconds > 0 {
		out.OpenTimeout = time.Duration(cfg.WebhookCBOpenSeconds) * time.Second
	}
	return out
}

// CircuitBreaker implements the pattern with thread-safe state transitions.
// Every transition is logged with the breaker name so sink outages are
// visible in the request logs long before anyone polls /health.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig

	mu              sync.Mutex
	state           CBState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// NewCircuitBreaker creates a named breaker in Closed state.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	return &CircuitBreaker{name: name, cfg: cfg, state: CBClosed}
}

// transition moves to a new state and logs the change (must hold mu).
func (cb *CircuitBreaker) transition(to CBState) {
	if cb.state == to {
		return
	}
	log.Warn().
		Str("breaker", cb.name).
		Str("from", cb.state.String()).
		Str("to", to.String()).
		Int("failures", cb.failureCount).
		Msg("circuit breaker state change")
	cb.state = to
}

// State returns the current CB state (safe for concurrent reads).
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// currentState applies the open → half-open cooldown expiry (must hold mu).
func (cb *CircuitBreaker) currentState() CBState {
	if cb.state == CBOpen && time.Since(cb.lastFailureTime) >= cb.cfg.OpenTimeout {
		cb.successCount = 0
		cb.transition(CBHalfOpen)
	}
	return cb.state
}

// Execute runs fn through the circuit breaker.
// Returns ErrCircuitOpen immediately if the CB is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()
	cb.record(err)
	return err
}

// record feeds one delivery outcome into the state machine.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failureCount++
		cb.lastFailureTime = time.Now()
		switch cb.state {
		case CBClosed:
			if cb.failureCount >= cb.cfg.FailureThreshold {
				cb.successCount = 0
				cb.transition(CBOpen)
			}
		case CBHalfOpen:
			// Probe failed — back to open for another cooldown
			cb.failureCount = 0
			cb.transition(CBOpen)
		}
		return
	}

	switch cb.state {
	case CBClosed:
		cb.failureCount = 0
	case CBHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.cfg.SuccessThreshold {
			cb.failureCount = 0
			cb.successCount = 0
			cb.transition(CBClosed)
		}
	}
}
