package jwtware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTransitions(t *testing.T) {
	terminal := []State{
		StateNoCredentials,
		StateInvalid,
		StateFault,
		StatePrincipalAbsent,
		StateAuthenticated,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), s)
	}

	for s := range transitions {
		assert.False(t, s.Terminal(), s)
		assert.True(t, s.CanTransition(StateFault), "%s must be able to fault", s)
	}

	assert.True(t, StateStart.CanTransition(StateTokenExtracted))
	assert.False(t, StateStart.CanTransition(StateAuthenticated))
	assert.False(t, StateInvalid.CanTransition(StateValid))
	assert.False(t, StateTokenExtracted.CanTransition(StatePrincipalResolved))
}

func TestStateAnonymous(t *testing.T) {
	assert.False(t, StateAuthenticated.Anonymous())
	for _, s := range []State{StateNoCredentials, StateInvalid, StateFault, StatePrincipalAbsent} {
		assert.True(t, s.Anonymous(), s)
	}
}
