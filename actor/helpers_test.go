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
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/log"
	"github.com/tochemey/esakt/persistence"
	"github.com/tochemey/esakt/value"
)

const (
	askTimeout     = time.Second
	eventuallyWait = 5 * time.Second
	eventuallyTick = 10 * time.Millisecond
)

var balanceKey = value.StringKey("balance")

// bank account commands
type (
	depositCommand  struct{ amount int64 }
	withdrawCommand struct{ amount int64 }
	balanceQuery    struct{}
	crashCommand    struct{}
)

func openAccount() value.Value {
	return value.NewMap(map[string]value.Value{"balance": value.Int(0)})
}

func deposit(amount int64) value.Value {
	return value.NewVariant("Deposit", value.Int(amount))
}

func withdraw(amount int64) value.Value {
	return value.NewVariant("Withdraw", value.Int(amount))
}

func balanceOf(state value.Value) int64 {
	return int64(state.(value.Map)[balanceKey].(value.Int))
}

func bankReducer(state value.Value, event *persistence.Event) (value.Value, error) {
	account, ok := state.(value.Map)
	if !ok {
		return nil, fmt.Errorf("unexpected state %s", state.Kind())
	}
	balance := account[balanceKey].(value.Int)
	variant, ok := event.Payload.(*value.Variant)
	if !ok || len(variant.Fields) != 1 {
		return nil, fmt.Errorf("unexpected event %s", event.Payload.Debug())
	}
	amount := variant.Fields[0].(value.Int)

	switch variant.Tag {
	case "Deposit":
		return account.With(balanceKey, balance+amount), nil
	case "Withdraw":
		if amount > balance {
			return nil, fmt.Errorf("insufficient funds: %d > %d", amount, balance)
		}
		return account.With(balanceKey, balance-amount), nil
	default:
		return nil, fmt.Errorf("unknown event %s", variant.Tag)
	}
}

// bankAccount replies to every command with the resulting balance
func bankAccount() Behavior {
	return BehaviorFunc(func(ctx *ReceiveContext) (*Result, error) {
		balance := balanceOf(ctx.State())
		switch msg := ctx.Message().(type) {
		case *depositCommand:
			return Emit(deposit(msg.amount)).WithReply(balance + msg.amount), nil
		case *withdrawCommand:
			if msg.amount > balance {
				return Reply(balance), nil
			}
			return Emit(withdraw(msg.amount)).WithReply(balance - msg.amount), nil
		case *balanceQuery:
			return Reply(balance), nil
		case *crashCommand:
			panic("account crashed")
		default:
			return nil, nil
		}
	})
}

// crasher fails on crashCommand and counts the other messages
func crasher(handled *atomic.Int64) Behavior {
	return BehaviorFunc(func(ctx *ReceiveContext) (*Result, error) {
		switch ctx.Message().(type) {
		case *crashCommand:
			return nil, fmt.Errorf("crash requested")
		default:
			if handled != nil {
				handled.Inc()
			}
			return Reply("ok"), nil
		}
	})
}

// blocker holds its turn on "hold" until release is closed. Deposits are
// emitted and every other message is counted.
func blocker(entered chan<- struct{}, release <-chan struct{}, handled *atomic.Int64) Behavior {
	return BehaviorFunc(func(ctx *ReceiveContext) (*Result, error) {
		if ctx.Message() == "hold" {
			entered <- struct{}{}
			<-release
			return nil, nil
		}

		if handled != nil {
			handled.Inc()
		}
		if msg, ok := ctx.Message().(*depositCommand); ok {
			return Emit(deposit(msg.amount)), nil
		}
		return nil, nil
	})
}

// failingSnapshotStore refuses every snapshot
type failingSnapshotStore struct {
	persistence.SnapshotStore
}

func (s *failingSnapshotStore) SaveSnapshot(context.Context, string, *persistence.Snapshot) error {
	return fmt.Errorf("disk full")
}

// terminationRecorder forwards the termination notices it receives
func terminationRecorder(notices chan<- *Terminated) Behavior {
	return BehaviorFunc(func(ctx *ReceiveContext) (*Result, error) {
		if terminated, ok := ctx.Message().(*Terminated); ok {
			notices <- terminated
		}
		return nil, nil
	})
}

func newTestSystem(t *testing.T, opts ...Option) *System {
	t.Helper()
	defaults := []Option{
		WithLogger(log.DiscardLogger),
		WithWorkerPoolSize(4),
	}
	system, err := New(append(defaults, opts...)...)
	require.NoError(t, err)
	require.NoError(t, system.Start(context.Background()))
	// a failed test must not leak its dispatcher into the next one
	t.Cleanup(func() {
		if system.Running() {
			_ = system.Stop(context.Background())
		}
	})
	return system
}

func stopTestSystem(t *testing.T, system *System) {
	t.Helper()
	require.NoError(t, system.Stop(context.Background()))
}

func spawnAccount(t *testing.T, system *System, opts ...SpawnOption) ID {
	t.Helper()
	opts = append([]SpawnOption{WithReducer(bankReducer)}, opts...)
	id, err := system.Spawn(context.Background(), bankAccount(), openAccount(), opts...)
	require.NoError(t, err)
	return id
}

func askBalance(t *testing.T, system *System, id ID, message any) int64 {
	t.Helper()
	reply, err := system.Ask(context.Background(), id, message, askTimeout)
	require.NoError(t, err)
	return reply.(int64)
}

func waitForStatus(t *testing.T, system *System, id ID, expected Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		status, err := system.Status(id)
		return err == nil && status == expected
	}, eventuallyWait, eventuallyTick)
}

// flakyJournal fails the next writes with a plain i/o error
type flakyJournal struct {
	persistence.Journal
	failures *atomic.Int32
}

func newFlakyJournal() *flakyJournal {
	return &flakyJournal{Journal: persistence.NewMemoryJournal(), failures: atomic.NewInt32(0)}
}

func (j *flakyJournal) WriteEvents(ctx context.Context, persistenceID string, events ...*persistence.Event) error {
	if j.failures.Dec() >= 0 {
		return fmt.Errorf("disk unavailable")
	}
	j.failures.Store(0)
	return j.Journal.WriteEvents(ctx, persistenceID, events...)
}

// brokenJournal fails every write and reports corruption on replay once broken
type brokenJournal struct {
	persistence.Journal
	broken *atomic.Bool
}

func newBrokenJournal() *brokenJournal {
	return &brokenJournal{Journal: persistence.NewMemoryJournal(), broken: atomic.NewBool(false)}
}

func (j *brokenJournal) WriteEvents(ctx context.Context, persistenceID string, events ...*persistence.Event) error {
	if j.broken.Load() {
		return fmt.Errorf("disk unavailable")
	}
	return j.Journal.WriteEvents(ctx, persistenceID, events...)
}

func (j *brokenJournal) ReplayEvents(ctx context.Context, persistenceID string, from uint64) iter.Seq2[*persistence.Event, error] {
	if !j.broken.Load() {
		return j.Journal.ReplayEvents(ctx, persistenceID, from)
	}
	return func(yield func(*persistence.Event, error) bool) {
		yield(nil, errors.NewJournalCorruptionError(persistenceID, from, "checksum mismatch"))
	}
}
