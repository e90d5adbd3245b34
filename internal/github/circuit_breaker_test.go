// SPDX-License-Identifier: MIT

package github

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func passing() error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, cb.Execute(failing), errBoom)
		assert.Equal(t, StateClosed, cb.State())
	}

	require.ErrorIs(t, cb.Execute(failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute)

	_ = cb.Execute(failing)
	require.NoError(t, cb.Execute(passing))
	_ = cb.Execute(failing)

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(1, 30*time.Second)
	cb.now = func() time.Time { return now }

	_ = cb.Execute(failing)
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(31 * time.Second)

	// A concurrent caller is rejected while the trial request is in flight.
	err := cb.Execute(func() error {
		assert.Equal(t, StateHalfOpen, cb.State())
		assert.ErrorIs(t, cb.Execute(passing), ErrCircuitOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(1, 30*time.Second)
	cb.now = func() time.Time { return now }

	_ = cb.Execute(failing)
	now = now.Add(time.Minute)

	require.ErrorIs(t, cb.Execute(failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(passing), ErrCircuitOpen)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
