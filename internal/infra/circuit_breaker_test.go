package infra

import (
	"errors"
	"testing"
	"time"

	"paylog/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSinkDown = errors.New("sink down")

func failing() error { return errSinkDown }
func ok() error      { return nil }

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Hour,
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, CBClosed, cb.State())
		require.ErrorIs(t, cb.Execute(failing), errSinkDown)
	}
	assert.Equal(t, CBOpen, cb.State())

	// Fast-fail while open: fn must not run
	ran := false
	err := cb.Execute(func() error { ran = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Hour,
	})

	require.Error(t, cb.Execute(failing))
	require.Error(t, cb.Execute(failing))
	require.NoError(t, cb.Execute(ok))
	require.Error(t, cb.Execute(failing))
	require.Error(t, cb.Execute(failing))
	assert.Equal(t, CBClosed, cb.State(), "non-consecutive failures must not trip")
}

func TestCircuitBreaker_HalfOpenProbeRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Millisecond,
	})

	require.Error(t, cb.Execute(failing))
	assert.Equal(t, CBOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, CBHalfOpen, cb.State())

	// Two probe successes close the breaker
	require.NoError(t, cb.Execute(ok))
	require.NoError(t, cb.Execute(ok))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: 10 * time.Millisecond,
	})

	require.Error(t, cb.Execute(failing))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, CBHalfOpen, cb.State())

	require.Error(t, cb.Execute(failing))
	assert.Equal(t, CBOpen, cb.State(), "a failed probe restarts the cooldown")
}

func TestWebhookBreakerConfig_FromEnvWithFallbacks(t *testing.T) {
	cfg := WebhookBreakerConfig(&config.Config{
		WebhookCBFailureThreshold: 7,
		WebhookCBOpenSeconds:      90,
	})
	assert.Equal(t, 7, cfg.FailureThreshold)
	assert.Equal(t, 90*time.Second, cfg.OpenTimeout)
	assert.Equal(t, DefaultCBConfig().SuccessThreshold, cfg.SuccessThreshold, "unset fields fall back to defaults")
}
