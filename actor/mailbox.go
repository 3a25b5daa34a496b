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

// Mailbox defines the contract for an actor's message queue.
//
//   - Enqueue is called by many producers concurrently and must not block.
//     Bounded implementations return errors.ErrMailboxFull when full.
//   - Dequeue is called by a single consumer, the actor dispatcher, and
//     returns nil when the mailbox is empty.
//   - Messages are dequeued in the order they were enqueued.
//   - Dispose releases the resources of the mailbox. The runtime stops
//     enqueueing before it disposes a mailbox.
type Mailbox interface {
	// Enqueue pushes a message into the mailbox
	Enqueue(msg *ReceiveContext) error
	// Dequeue fetches the next message, nil when empty
	Dequeue() *ReceiveContext
	// IsEmpty reports whether the mailbox currently has no messages
	IsEmpty() bool
	// Len returns a snapshot of the number of queued messages
	Len() int64
	// Dispose releases the mailbox
	Dispose()
}
