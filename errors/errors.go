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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrSpawnFailure is returned when an actor record cannot be created.
	ErrSpawnFailure = errors.New("failed to spawn actor")

	// ErrActorNotFound indicates that the specified actor could not be found in the system.
	ErrActorNotFound = errors.New("actor not found")

	// ErrMailboxFull is returned when a bounded mailbox refuses a message.
	ErrMailboxFull = errors.New("mailbox is full")

	// ErrAskTimeout indicates that an Ask message timed out while waiting for a response.
	ErrAskTimeout = errors.New("ask timed out")

	// ErrBehavior is the sentinel matched by BehaviorError.
	ErrBehavior = errors.New("behavior failed")

	// ErrJournalIO is the sentinel matched by JournalIOError.
	ErrJournalIO = errors.New("journal i/o failure")

	// ErrJournalCorruption is the sentinel matched by JournalCorruptionError.
	// A corrupted journal is never retried.
	ErrJournalCorruption = errors.New("journal is corrupted")

	// ErrSupervisionExhausted is the sentinel matched by SupervisionExhaustedError.
	ErrSupervisionExhausted = errors.New("supervision retry budget exhausted")

	// ErrNonSerializableValue is the sentinel matched by NonSerializableValueError.
	ErrNonSerializableValue = errors.New("value is not serializable")

	// ErrDead indicates that the actor is no longer alive or has been terminated.
	ErrDead = errors.New("actor is not alive")

	// ErrSystemNotStarted indicates that the actor system has not been started before use.
	ErrSystemNotStarted = errors.New("actor system is not running")

	// ErrSystemShuttingDown is returned for operations issued while the system stops.
	ErrSystemShuttingDown = errors.New("actor system is shutting down")

	// ErrInvalidTimeout is returned when a timeout value is less than or equal to zero.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrMailboxDisposed is returned when enqueueing into a released mailbox.
	ErrMailboxDisposed = errors.New("mailbox is disposed")

	// ErrStateDivergence is returned when the state produced by a behavior does
	// not match the state obtained by folding its events.
	ErrStateDivergence = errors.New("behavior state diverges from its events")

	// ErrMissingReducer is returned when a behavior emits events for an actor
	// spawned without a reducer.
	ErrMissingReducer = errors.New("actor emits events but has no reducer")

	// ErrInvalidSnapshot is returned when a snapshot does not fit the journal.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrNilBehavior is returned when spawning without a behavior.
	ErrNilBehavior = errors.New("behavior is not defined")

	// ErrJournalClosed is returned when using a closed journal or snapshot store.
	ErrJournalClosed = errors.New("journal is closed")

	// ErrActorAlreadyExists is returned when resurrecting an identity that is still live.
	ErrActorAlreadyExists = errors.New("actor already exists")
)

// BehaviorError wraps a failure returned or raised by an actor behavior
type BehaviorError struct {
	ActorID string
	Err     error
}

var _ error = (*BehaviorError)(nil)

// NewBehaviorError creates an instance of BehaviorError
func NewBehaviorError(actorID string, err error) *BehaviorError {
	return &BehaviorError{ActorID: actorID, Err: err}
}

// Error implements the standard error interface
func (e *BehaviorError) Error() string {
	return fmt.Sprintf("actor=(%s) behavior failed: %v", e.ActorID, e.Err)
}

// Unwrap returns the underlying error
func (e *BehaviorError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrBehavior
func (e *BehaviorError) Is(target error) bool {
	return target == ErrBehavior
}

// JournalIOError is returned when the journal or the snapshot store cannot
// read or write durable storage.
type JournalIOError struct {
	ActorID string
	Op      string
	Err     error
}

var _ error = (*JournalIOError)(nil)

// NewJournalIOError creates an instance of JournalIOError
func NewJournalIOError(actorID, op string, err error) *JournalIOError {
	return &JournalIOError{ActorID: actorID, Op: op, Err: err}
}

// Error implements the standard error interface
func (e *JournalIOError) Error() string {
	return fmt.Sprintf("actor=(%s) journal %s failed: %v", e.ActorID, e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *JournalIOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrJournalIO
func (e *JournalIOError) Is(target error) bool {
	return target == ErrJournalIO
}

// JournalCorruptionError is returned when persisted history cannot be
// trusted: checksum mismatch, truncated record, gap or out of order sequence.
type JournalCorruptionError struct {
	ActorID  string
	Sequence uint64
	Reason   string
}

var _ error = (*JournalCorruptionError)(nil)

// NewJournalCorruptionError creates an instance of JournalCorruptionError
func NewJournalCorruptionError(actorID string, sequence uint64, reason string) *JournalCorruptionError {
	return &JournalCorruptionError{ActorID: actorID, Sequence: sequence, Reason: reason}
}

// Error implements the standard error interface
func (e *JournalCorruptionError) Error() string {
	return fmt.Sprintf("actor=(%s) journal corrupted at sequence %d: %s", e.ActorID, e.Sequence, e.Reason)
}

// Is reports whether target is ErrJournalCorruption
func (e *JournalCorruptionError) Is(target error) bool {
	return target == ErrJournalCorruption
}

// SupervisionExhaustedError is reported to the parent of an actor whose
// restart budget ran out.
type SupervisionExhaustedError struct {
	ActorID  string
	Attempts int
	Err      error
}

var _ error = (*SupervisionExhaustedError)(nil)

// NewSupervisionExhaustedError creates an instance of SupervisionExhaustedError
func NewSupervisionExhaustedError(actorID string, attempts int, err error) *SupervisionExhaustedError {
	return &SupervisionExhaustedError{ActorID: actorID, Attempts: attempts, Err: err}
}

// Error implements the standard error interface
func (e *SupervisionExhaustedError) Error() string {
	return fmt.Sprintf("actor=(%s) supervision exhausted after %d attempt(s): %v", e.ActorID, e.Attempts, e.Err)
}

// Unwrap returns the last failure
func (e *SupervisionExhaustedError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSupervisionExhausted
func (e *SupervisionExhaustedError) Is(target error) bool {
	return target == ErrSupervisionExhausted
}

// NonSerializableValueError is returned when a value cannot be persisted
type NonSerializableValueError struct {
	Path string
	Kind string
}

var _ error = (*NonSerializableValueError)(nil)

// NewNonSerializableValueError creates an instance of NonSerializableValueError
func NewNonSerializableValueError(path, kind string) *NonSerializableValueError {
	return &NonSerializableValueError{Path: path, Kind: kind}
}

// Error implements the standard error interface
func (e *NonSerializableValueError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("value of kind %s is not serializable", e.Kind)
	}
	return fmt.Sprintf("value of kind %s at %s is not serializable", e.Kind, e.Path)
}

// Is reports whether target is ErrNonSerializableValue
func (e *NonSerializableValueError) Is(target error) bool {
	return target == ErrNonSerializableValue
}

// SpawnError wraps the reason an actor could not be spawned
type SpawnError struct {
	err error
}

var _ error = (*SpawnError)(nil)

// NewSpawnError creates an instance of SpawnError
func NewSpawnError(err error) *SpawnError {
	return &SpawnError{err}
}

// Error implements the standard error interface
func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSpawnFailure.Error(), e.err)
}

// Unwrap returns the underlying error
func (e *SpawnError) Unwrap() error {
	return e.err
}

// Is reports whether target is ErrSpawnFailure
func (e *SpawnError) Is(target error) bool {
	return target == ErrSpawnFailure
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}

// AnyError defines the any error type
// this is used to represent any error when handling the supervisor directive
type AnyError struct{}

// interface guard
var _ error = (*AnyError)(nil)

// Error implements error.
func (*AnyError) Error() string {
	return "*"
}
