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

package actor

import (
	"fmt"

	"github.com/tochemey/esakt/errors"
)

// Watch registers watcher for the termination of watched. When watched
// stops, a *Terminated message carrying the stop reason is delivered to
// watcher ahead of its regular messages. Watching an actor that is already
// stopped delivers the notice immediately.
func (s *System) Watch(watcher, watched ID) error {
	record, err := s.lookup(watcher)
	if err != nil {
		return err
	}

	if record.Status() == Stopped {
		return errors.ErrDead
	}

	target, ok := s.registry.Load(watched)
	if !ok {
		return fmt.Errorf("actor=(%s): %w", watched, errors.ErrActorNotFound)
	}

	target.mu.Lock()
	if target.Status() == Stopped {
		reason := target.reason
		target.mu.Unlock()

		notice := newReceiveContext(s.ctx, watcher, watched, &Terminated{ActorID: watched, Reason: reason}, nil)
		return record.enqueue(notice, true)
	}

	target.watchers.Add(watcher)
	record.watching.Add(watched)
	target.mu.Unlock()
	return nil
}

// Unwatch removes a watch registration. Removing a registration that does
// not exist is a no-op.
func (s *System) Unwatch(watcher, watched ID) error {
	if !s.started.Load() {
		return errors.ErrSystemNotStarted
	}

	if target, ok := s.registry.Load(watched); ok {
		target.watchers.Remove(watcher)
	}

	if record, ok := s.registry.Load(watcher); ok {
		record.watching.Remove(watched)
	}
	return nil
}
