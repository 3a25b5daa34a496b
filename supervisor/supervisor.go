/*
 * MIT License
 *
 * Copyright (c) 2022-2025  Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package supervisor

import (
	stderrors "errors"
	"reflect"
	"sync"
	"time"

	"github.com/tochemey/esakt/errors"
)

// Strategy represents the scope of a supervisor decision: which children
// are affected when one of them fails.
type Strategy int

const (
	// OneForOneStrategy applies the directive to the failed child only.
	// Other siblings continue running unaffected.
	OneForOneStrategy Strategy = iota

	// OneForAllStrategy applies the directive to every child of the
	// supervisor. Use it when children share state and cannot be trusted
	// once a sibling failed.
	OneForAllStrategy

	// RestForOneStrategy applies the directive to the failed child and to
	// every sibling spawned after it. Earlier siblings are untouched.
	// It fits pipelines where later stages depend on earlier ones.
	RestForOneStrategy
)

// String returns the string representation of the strategy
func (s Strategy) String() string {
	switch s {
	case OneForOneStrategy:
		return "OneForOne"
	case OneForAllStrategy:
		return "OneForAll"
	case RestForOneStrategy:
		return "RestForOne"
	default:
		return ""
	}
}

// ParseStrategy returns the strategy with the given name
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case "OneForOne", "one-for-one", "":
		return OneForOneStrategy, true
	case "OneForAll", "one-for-all":
		return OneForAllStrategy, true
	case "RestForOne", "rest-for-one":
		return RestForOneStrategy, true
	default:
		return OneForOneStrategy, false
	}
}

// Directive defines the action a supervisor takes when a child fails
//
//   - StopDirective: stop the failed actor.
//   - ResumeDirective: keep the actor state and continue with the next message.
//   - RestartDirective: reinitialize the actor from durable storage.
//   - EscalateDirective: fail the supervisor itself and let its own parent decide.
type Directive int

const (
	// StopDirective stops the failed actor. It is used when the failure is
	// irrecoverable, and always for a corrupted journal.
	StopDirective Directive = iota
	// ResumeDirective keeps the committed state and resumes processing.
	// The message whose processing failed is not retried.
	ResumeDirective
	// RestartDirective reinitializes the actor by recovering its state from
	// the snapshot store and the journal.
	RestartDirective
	// EscalateDirective forwards the failure to the parent supervisor.
	EscalateDirective
)

// String returns the string representation of the directive
func (d Directive) String() string {
	switch d {
	case StopDirective:
		return "Stop"
	case ResumeDirective:
		return "Resume"
	case RestartDirective:
		return "Restart"
	case EscalateDirective:
		return "Escalate"
	default:
		return ""
	}
}

const (
	// DefaultMaxRetries is the default restart budget
	DefaultMaxRetries = 3
	// DefaultWithin is the default window in which the restart budget applies
	DefaultWithin = time.Minute
	// DefaultMinBackoff is the default delay before the first restart attempt
	DefaultMinBackoff = 10 * time.Millisecond
	// DefaultMaxBackoff caps the delay between restart attempts
	DefaultMaxBackoff = time.Second
)

// SupervisorOption defines the various options to apply to a given Supervisor
type SupervisorOption func(*Supervisor)

// WithStrategy sets the supervisor strategy
func WithStrategy(strategy Strategy) SupervisorOption {
	return func(s *Supervisor) {
		s.strategy = strategy
	}
}

// WithDirective sets the mapping between an error and a given directive.
// The mapping is keyed by the concrete type of err.
func WithDirective(err error, directive Directive) SupervisorOption {
	return func(s *Supervisor) {
		s.directives[errorType(err)] = directive
	}
}

// WithAnyErrorDirective sets the directive applied to errors with no
// specific mapping
func WithAnyErrorDirective(directive Directive) SupervisorOption {
	return func(s *Supervisor) {
		s.directives[errorType(new(errors.AnyError))] = directive
	}
}

// WithRetry bounds restarts: at most maxRetries restarts within the given
// window. A zero or negative window counts every restart since spawn.
// Exceeding the budget stops the actor and reports a
// SupervisionExhaustedError to its parent.
func WithRetry(maxRetries uint32, within time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.maxRetries = maxRetries
		s.within = within
	}
}

// WithBackoff sets the exponential backoff bounds between restart attempts
func WithBackoff(minBackoff, maxBackoff time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.minBackoff = minBackoff
		s.maxBackoff = maxBackoff
	}
}

// Supervisor defines how a parent reacts when a child actor fails.
//
// It combines:
//   - a strategy (one-for-one, one-for-all or rest-for-one),
//   - directive rules that map error types to actions, and
//   - a restart budget with backoff.
//
// Defaults:
//   - Strategy: OneForOneStrategy.
//   - Directives: any error -> Restart.
//   - Retries: 3 restarts per minute, backoff from 10ms to 1s.
//
// A corrupted journal always yields StopDirective whatever the rules say.
//
// Supervisor is immutable once created and safe for concurrent use.
type Supervisor struct {
	strategy   Strategy
	maxRetries uint32
	within     time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
	directives map[string]Directive
}

var (
	defaultOnce       sync.Once
	defaultSupervisor *Supervisor
)

// NewSupervisor creates a new instance of Supervisor
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		strategy:   OneForOneStrategy,
		maxRetries: DefaultMaxRetries,
		within:     DefaultWithin,
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
		directives: make(map[string]Directive),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.minBackoff <= 0 {
		s.minBackoff = time.Millisecond
	}
	if s.maxBackoff < s.minBackoff {
		s.maxBackoff = s.minBackoff
	}

	return s
}

// Default returns the shared default supervisor
func Default() *Supervisor {
	defaultOnce.Do(func() {
		defaultSupervisor = NewSupervisor()
	})
	return defaultSupervisor
}

// Strategy returns the configured supervision strategy.
func (s *Supervisor) Strategy() Strategy {
	return s.strategy
}

// MaxRetries returns the restart budget
func (s *Supervisor) MaxRetries() uint32 {
	return s.maxRetries
}

// Within returns the window in which the restart budget applies
func (s *Supervisor) Within() time.Duration {
	return s.within
}

// Backoff returns the backoff bounds between restart attempts
func (s *Supervisor) Backoff() (time.Duration, time.Duration) {
	return s.minBackoff, s.maxBackoff
}

// Directive returns the directive configured for the concrete type of err,
// without walking its chain.
func (s *Supervisor) Directive(err error) (Directive, bool) {
	directive, ok := s.directives[errorType(err)]
	return directive, ok
}

// Decide returns the directive to apply for the given failure.
//
// The error chain is walked from the outermost error and the first error
// whose type has a rule wins. The catch-all rule applies next, then
// RestartDirective. A corrupted journal is always stopped.
func (s *Supervisor) Decide(err error) Directive {
	if stderrors.Is(err, errors.ErrJournalCorruption) {
		return StopDirective
	}

	for _, candidate := range chain(err) {
		if directive, ok := s.directives[errorType(candidate)]; ok {
			return directive
		}
	}

	if directive, ok := s.directives[errorType(new(errors.AnyError))]; ok {
		return directive
	}
	return RestartDirective
}

// chain flattens the error tree depth-first, outermost first
func chain(err error) []error {
	var out []error
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		out = append(out, e)
		switch x := e.(type) {
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

// errorType returns the string representation of an error's type using reflection
func errorType(err error) string {
	if err == nil {
		return "nil"
	}

	rtype := reflect.TypeOf(err)
	if rtype.Kind() == reflect.Pointer {
		rtype = rtype.Elem()
	}

	return rtype.String()
}
