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
	"context"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/log"
	"github.com/tochemey/esakt/value"
)

// effect is a runtime interaction requested by a behavior. Effects run once
// the outcome of the message is committed, in the order they were requested.
type effect func(system *System)

// ReceiveContext carries a message to an actor. While the behavior runs it
// also exposes the committed state and collects the sends and spawns the
// behavior requests.
type ReceiveContext struct {
	ctx     context.Context
	message any
	sender  ID
	self    ID
	reply   *replySlot

	state          value.Value
	sequenceNumber uint64
	logger         log.Logger
	effects        []effect
}

func newReceiveContext(ctx context.Context, self, sender ID, message any, reply *replySlot) *ReceiveContext {
	return &ReceiveContext{
		ctx:     ctx,
		message: message,
		sender:  sender,
		self:    self,
		reply:   reply,
		logger:  log.DiscardLogger,
	}
}

// Context returns the context of the send or ask that carried the message
func (rctx *ReceiveContext) Context() context.Context {
	return rctx.ctx
}

// Message returns the message being handled
func (rctx *ReceiveContext) Message() any {
	return rctx.message
}

// Sender returns the sending actor, NoID when the message came from outside
func (rctx *ReceiveContext) Sender() ID {
	return rctx.sender
}

// Self returns the ID of the actor handling the message
func (rctx *ReceiveContext) Self() ID {
	return rctx.self
}

// State returns the committed state of the actor
func (rctx *ReceiveContext) State() value.Value {
	return rctx.state
}

// SequenceNumber returns the number of events committed so far
func (rctx *ReceiveContext) SequenceNumber() uint64 {
	return rctx.sequenceNumber
}

// Logger returns the actor logger
func (rctx *ReceiveContext) Logger() log.Logger {
	return rctx.logger
}

// Tell queues a message for another actor. It is sent after the current
// message is committed, and dropped when the commit fails.
func (rctx *ReceiveContext) Tell(to ID, message any) {
	ctx := context.WithoutCancel(rctx.ctx)
	from := rctx.self
	logger := rctx.logger
	rctx.effects = append(rctx.effects, func(system *System) {
		if err := system.tell(ctx, from, to, message, nil); err != nil {
			logger.Warnf("failed to deliver message to actor=(%s): %v", to, err)
		}
	})
}

// Spawn reserves the ID of a child actor and spawns it after the current
// message is committed. The child is supervised by the current actor.
func (rctx *ReceiveContext) Spawn(behavior Behavior, initial value.Value, opts ...SpawnOption) (ID, error) {
	if behavior == nil {
		return NoID, errors.NewSpawnError(errors.ErrNilBehavior)
	}

	initial, err := initialState(initial)
	if err != nil {
		return NoID, errors.NewSpawnError(err)
	}

	id := NewID()
	ctx := context.WithoutCancel(rctx.ctx)
	logger := rctx.logger
	options := append([]SpawnOption{WithParent(rctx.self)}, opts...)
	options = append(options, withReservedID(id))
	rctx.effects = append(rctx.effects, func(system *System) {
		if _, err := system.Spawn(ctx, behavior, initial, options...); err != nil {
			logger.Errorf("failed to spawn child actor=(%s): %v", id, err)
		}
	})
	return id, nil
}

// Watch registers the current actor as a watcher of the given actor once the
// current message is committed.
func (rctx *ReceiveContext) Watch(watched ID) {
	self := rctx.self
	logger := rctx.logger
	rctx.effects = append(rctx.effects, func(system *System) {
		if err := system.Watch(self, watched); err != nil {
			logger.Warnf("failed to watch actor=(%s): %v", watched, err)
		}
	})
}

// Unwatch removes a watch registration once the current message is committed
func (rctx *ReceiveContext) Unwatch(watched ID) {
	self := rctx.self
	rctx.effects = append(rctx.effects, func(system *System) {
		_ = system.Unwatch(self, watched)
	})
}

// respond answers the asker, if any
func (rctx *ReceiveContext) respond(value any, err error) {
	if rctx.reply != nil {
		rctx.reply.deliver(value, err)
	}
}
