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
	gods "github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"

	"github.com/tochemey/esakt/errors"
)

// BoundedMailbox is a bounded, non-blocking MPSC mailbox backed by a ring
// buffer. Enqueue fails with errors.ErrMailboxFull once capacity messages
// are queued; senders are never blocked.
type BoundedMailbox struct {
	underlying *gods.RingBuffer
	capacity   int64
	size       *atomic.Int64
}

// enforce compilation error
var _ Mailbox = (*BoundedMailbox)(nil)

// NewBoundedMailbox creates a bounded mailbox with the given capacity.
// A capacity below one is raised to one.
func NewBoundedMailbox(capacity int) *BoundedMailbox {
	capacity = max(capacity, 1)
	return &BoundedMailbox{
		underlying: gods.NewRingBuffer(uint64(capacity)),
		capacity:   int64(capacity),
		size:       atomic.NewInt64(0),
	}
}

// Enqueue inserts a message into the mailbox or fails when it is full
func (mailbox *BoundedMailbox) Enqueue(msg *ReceiveContext) error {
	// the ring buffer rounds its size up to a power of two, the counter
	// enforces the exact capacity
	if mailbox.size.Inc() > mailbox.capacity {
		mailbox.size.Dec()
		return errors.ErrMailboxFull
	}

	ok, err := mailbox.underlying.Offer(msg)
	if err != nil {
		mailbox.size.Dec()
		return errors.ErrMailboxDisposed
	}
	if !ok {
		mailbox.size.Dec()
		return errors.ErrMailboxFull
	}
	return nil
}

// Dequeue removes and returns the next message, nil when empty
func (mailbox *BoundedMailbox) Dequeue() *ReceiveContext {
	if mailbox.underlying.Len() == 0 {
		return nil
	}

	item, err := mailbox.underlying.Get()
	if err != nil {
		return nil
	}
	mailbox.size.Dec()
	msg, _ := item.(*ReceiveContext)
	return msg
}

// IsEmpty reports whether the mailbox currently has no messages
func (mailbox *BoundedMailbox) IsEmpty() bool {
	return mailbox.underlying.Len() == 0
}

// Len returns the current number of messages in the mailbox
func (mailbox *BoundedMailbox) Len() int64 {
	return int64(mailbox.underlying.Len())
}

// Capacity returns the maximum number of queued messages
func (mailbox *BoundedMailbox) Capacity() int64 {
	return mailbox.capacity
}

// Dispose releases the ring buffer and unblocks its waiters
func (mailbox *BoundedMailbox) Dispose() {
	mailbox.underlying.Dispose()
}
