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

// Behavior is the message handler of an actor.
//
// Receive is called with one message at a time. It reads the committed state
// through the ReceiveContext and returns the outcome of the message, or an
// error that is routed to the actor supervisor. Receive must not touch the
// runtime directly: sends and spawns go through the ReceiveContext and only
// take effect once the outcome is committed.
type Behavior interface {
	Receive(ctx *ReceiveContext) (*Result, error)
}

// BehaviorFunc adapts a function to the Behavior interface
type BehaviorFunc func(ctx *ReceiveContext) (*Result, error)

// Receive calls f(ctx)
func (f BehaviorFunc) Receive(ctx *ReceiveContext) (*Result, error) {
	return f(ctx)
}

// Result is the outcome of a message.
//
// Events are folded into the state by the actor reducer and durably appended
// to the journal before anything else happens. When State is set on an
// event-sourced actor it must equal the folded state. Actors spawned without a
// reducer cannot emit events and replace their state with State directly;
// such state is not durable.
type Result struct {
	// State is the expected state after the message, nil keeps the folded state
	State value.Value
	// Events are the domain events to journal, in order
	Events []value.Value
	// Reply is delivered to the asker, if any
	Reply any
}

// Emit returns a Result that journals the given events
func Emit(events ...value.Value) *Result {
	return &Result{Events: events}
}

// Reply returns a Result that only answers the asker
func Reply(reply any) *Result {
	return &Result{Reply: reply}
}

// WithReply sets the reply of the Result
func (r *Result) WithReply(reply any) *Result {
	r.Reply = reply
	return r
}
