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

import "time"

const eventsTopic = "topic.events"

// ActorStarted is published when an actor starts running
type ActorStarted struct {
	ActorID   ID
	Timestamp time.Time
}

// ActorFailed is published when an actor fails and waits for its supervisor
type ActorFailed struct {
	ActorID   ID
	Reason    error
	Timestamp time.Time
}

// ActorRestarted is published when an actor has been reinitialized
type ActorRestarted struct {
	ActorID   ID
	Timestamp time.Time
}

// ActorStopped is published when an actor stops. Reason is nil for a graceful stop.
type ActorStopped struct {
	ActorID   ID
	Reason    error
	Timestamp time.Time
}

// SupervisionExhausted is published when an actor ran out of restarts
type SupervisionExhausted struct {
	ActorID   ID
	Reason    error
	Timestamp time.Time
}

func newActorStarted(id ID) *ActorStarted {
	return &ActorStarted{ActorID: id, Timestamp: time.Now().UTC()}
}

func newActorFailed(id ID, reason error) *ActorFailed {
	return &ActorFailed{ActorID: id, Reason: reason, Timestamp: time.Now().UTC()}
}

func newActorRestarted(id ID) *ActorRestarted {
	return &ActorRestarted{ActorID: id, Timestamp: time.Now().UTC()}
}

func newActorStopped(id ID, reason error) *ActorStopped {
	return &ActorStopped{ActorID: id, Reason: reason, Timestamp: time.Now().UTC()}
}

func newSupervisionExhausted(id ID, reason error) *SupervisionExhausted {
	return &SupervisionExhausted{ActorID: id, Reason: reason, Timestamp: time.Now().UTC()}
}
