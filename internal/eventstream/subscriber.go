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

package eventstream

import (
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Subscriber defines the Subscriber Interface
type Subscriber interface {
	// ID returns the subscriber identifier
	ID() string
	// Active reports whether the subscriber still receives messages
	Active() bool
	// Topics returns the topics the subscriber listens to
	Topics() []string
	// Iterator drains the messages received so far
	Iterator() chan *Message
	// Next waits up to timeout for the next message. It returns false when
	// nothing arrived in time or the subscriber was shut down.
	Next(timeout time.Duration) (*Message, bool)
	// Shutdown stops the subscriber
	Shutdown()
	signal(message *Message)
	subscribe(topic string)
	unsubscribe(topic string)
}

type subscriber struct {
	id       string
	sem      sync.Mutex
	messages *queue.Queue
	topics   map[string]bool
	active   *atomic.Bool
}

var _ Subscriber = &subscriber{}

func newSubscriber() *subscriber {
	return &subscriber{
		id:       uuid.NewString(),
		messages: queue.New(16),
		topics:   make(map[string]bool),
		active:   atomic.NewBool(true),
	}
}

// ID return consumer id
func (x *subscriber) ID() string {
	return x.id
}

// Active checks whether the consumer is active
func (x *subscriber) Active() bool {
	return x.active.Load()
}

// Topics returns the list of topics the consumer has subscribed to
func (x *subscriber) Topics() []string {
	x.sem.Lock()
	defer x.sem.Unlock()
	topics := make([]string, 0, len(x.topics))
	for topic := range x.topics {
		topics = append(topics, topic)
	}
	return topics
}

// Shutdown shutdowns the consumer
func (x *subscriber) Shutdown() {
	if x.active.CompareAndSwap(true, false) {
		x.messages.Dispose()
	}
}

func (x *subscriber) Iterator() chan *Message {
	size := x.messages.Len()
	out := make(chan *Message, size)
	if size > 0 && x.active.Load() {
		items, err := x.messages.Get(size)
		if err == nil {
			for _, item := range items {
				out <- item.(*Message)
			}
		}
	}
	close(out)
	return out
}

func (x *subscriber) Next(timeout time.Duration) (*Message, bool) {
	if !x.active.Load() {
		return nil, false
	}
	items, err := x.messages.Poll(1, timeout)
	if err != nil || len(items) == 0 {
		return nil, false
	}
	return items[0].(*Message), true
}

func (x *subscriber) signal(message *Message) {
	if x.active.Load() {
		_ = x.messages.Put(message)
	}
}

func (x *subscriber) subscribe(topic string) {
	x.sem.Lock()
	x.topics[topic] = true
	x.sem.Unlock()
}

func (x *subscriber) unsubscribe(topic string) {
	x.sem.Lock()
	delete(x.topics, topic)
	x.sem.Unlock()
}
