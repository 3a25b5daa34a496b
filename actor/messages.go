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

import "github.com/tochemey/esakt/value"

// Terminated is delivered to watchers when the watched actor stops.
// Reason is nil for a graceful stop.
type Terminated struct {
	ActorID ID
	Reason  error
}

// appendEvent journals an event on behalf of the System
type appendEvent struct {
	payload value.Value
}

// snapshotRequest forces a checkpoint of the actor state
type snapshotRequest struct{}

// compactRequest is sent by the compaction job
type compactRequest struct{}

// isControl reports whether the message is handled by the runtime instead of
// the behavior
func isControl(message any) bool {
	switch message.(type) {
	case *appendEvent, *snapshotRequest, *compactRequest:
		return true
	default:
		return false
	}
}
