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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	err := errors.New("something went wrong")
	spawnErr := NewSpawnError(err)
	require.Error(t, spawnErr)
	require.EqualError(t, spawnErr, "failed to spawn actor: something went wrong")
	assert.ErrorIs(t, spawnErr, ErrSpawnFailure)
	assert.ErrorIs(t, spawnErr, err)

	behaviorErr := NewBehaviorError("a1", err)
	require.EqualError(t, behaviorErr, "actor=(a1) behavior failed: something went wrong")
	assert.ErrorIs(t, behaviorErr, ErrBehavior)
	assert.ErrorIs(t, behaviorErr, err)

	ioErr := NewJournalIOError("a1", "append", err)
	require.EqualError(t, ioErr, "actor=(a1) journal append failed: something went wrong")
	assert.ErrorIs(t, ioErr, ErrJournalIO)
	assert.NotErrorIs(t, ioErr, ErrJournalCorruption)

	corruption := NewJournalCorruptionError("a1", 3, "checksum mismatch")
	require.EqualError(t, corruption, "actor=(a1) journal corrupted at sequence 3: checksum mismatch")
	assert.ErrorIs(t, corruption, ErrJournalCorruption)
	assert.NotErrorIs(t, corruption, ErrJournalIO)

	exhausted := NewSupervisionExhaustedError("a1", 3, ioErr)
	assert.ErrorIs(t, exhausted, ErrSupervisionExhausted)
	assert.ErrorIs(t, exhausted, ErrJournalIO)

	nonSerializable := NewNonSerializableValueError("$.callback", "func")
	require.EqualError(t, nonSerializable, "value of kind func at $.callback is not serializable")
	assert.ErrorIs(t, nonSerializable, ErrNonSerializableValue)
	require.EqualError(t, NewNonSerializableValueError("", "chan"), "value of kind chan is not serializable")

	panicErr := NewPanicError(err)
	require.EqualError(t, panicErr, "panic: something went wrong")
	assert.ErrorIs(t, panicErr.Unwrap(), err)

	anyError := &AnyError{}
	require.Equal(t, anyError.Error(), "*")
}

func TestErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("recover: %w", NewJournalCorruptionError("a2", 7, "gap"))

	var corruption *JournalCorruptionError
	require.True(t, errors.As(wrapped, &corruption))
	assert.EqualValues(t, 7, corruption.Sequence)
	assert.Equal(t, "a2", corruption.ActorID)

	var behaviorErr *BehaviorError
	assert.False(t, errors.As(wrapped, &behaviorErr))
}
