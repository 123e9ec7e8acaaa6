package jwtware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// State is a step of the per-request authentication pipeline
type State string

const (
	StateStart State = "start"

	// StateNoCredentials: no token in bearer form. Terminal, anonymous.
	StateNoCredentials  State = "no_credentials"
	StateTokenExtracted State = "token_extracted"

	// StateInvalid: the token failed validation. Terminal, anonymous.
	StateInvalid State = "invalid"
	StateValid   State = "valid"

	// StateFault: validation panicked or subject extraction or principal
	// resolution failed. Terminal, anonymous.
	StateFault State = "fault"

	// StatePrincipalAbsent: valid token for an unknown subject. Terminal,
	// anonymous.
	StatePrincipalAbsent   State = "principal_absent"
	StatePrincipalResolved State = "principal_resolved"

	// StateAuthenticated: principal attached to the request. Terminal.
	StateAuthenticated State = "authenticated"
)

var transitions = map[State][]State{
	StateStart:             {StateNoCredentials, StateTokenExtracted, StateFault},
	StateTokenExtracted:    {StateValid, StateInvalid, StateFault},
	StateValid:             {StatePrincipalResolved, StatePrincipalAbsent, StateFault},
	StatePrincipalResolved: {StateAuthenticated, StateFault},
}

// Terminal reports whether the pipeline stops at s
func (s State) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

// Anonymous reports whether a request ending at s carries no principal
func (s State) Anonymous() bool {
	return s != StateAuthenticated
}

// CanTransition reports whether next is a legal successor of s
func (s State) CanTransition(next State) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Outcome is the record of one pipeline run
type Outcome struct {
	State   State
	Trace   []State
	Subject string
	Err     error
}

type machine struct {
	cfg        Config
	c          *fiber.Ctx
	extractors []JWTExtractor

	token     string
	subject   string
	principal any
	err       error
	trace     []State
}

func (m *machine) run() Outcome {
	state := StateStart
	m.trace = append(m.trace, state)

	for !state.Terminal() {
		next := m.safeStep(state)
		if !state.CanTransition(next) {
			m.err = fmt.Errorf("illegal transition %s -> %s", state, next)
			next = StateFault
		}
		m.trace = append(m.trace, next)
		state = next
	}

	switch state {
	case StateFault:
		m.cfg.Logger.Warn("authentication pipeline fault, continuing anonymous", "error", m.err, "trace", m.trace)
	case StateInvalid:
		m.cfg.Logger.Debug("bearer token rejected, continuing anonymous")
	}

	return Outcome{
		State:   state,
		Trace:   m.trace,
		Subject: m.subject,
		Err:     m.err,
	}
}

// safeStep turns a panic inside any step into StateFault
func (m *machine) safeStep(state State) (next State) {
	defer func() {
		if r := recover(); r != nil {
			m.err = fmt.Errorf("panic in %s: %v", state, r)
			next = StateFault
		}
	}()
	return m.step(state)
}

func (m *machine) step(state State) State {
	switch state {
	case StateStart:
		token, err := ExtractRawTokenFromContext(m.c, m.extractors)
		if err != nil || token == "" {
			return StateNoCredentials
		}
		m.token = token
		return StateTokenExtracted

	case StateTokenExtracted:
		if !m.cfg.TokenValidator.Validate(m.token) {
			return StateInvalid
		}
		return StateValid

	case StateValid:
		subject, err := m.cfg.TokenValidator.ExtractSubject(m.token)
		if err != nil {
			m.err = err
			return StateFault
		}
		m.subject = subject

		principal, err := m.cfg.Resolver(m.c.UserContext(), subject)
		if err != nil {
			m.err = err
			return StateFault
		}
		if principal == nil {
			return StatePrincipalAbsent
		}
		m.principal = principal
		return StatePrincipalResolved

	case StatePrincipalResolved:
		m.c.SetUserContext(m.cfg.ContextEnricher(m.c.UserContext(), m.principal))
		m.c.Locals(m.cfg.ContextKey, m.principal)
		return StateAuthenticated
	}

	m.err = fmt.Errorf("no step for state %s", state)
	return StateFault
}
