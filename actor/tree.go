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
	"slices"
	"sync"

	"github.com/tochemey/esakt/errors"
	"github.com/tochemey/esakt/supervisor"
)

// treeNode is a supervision node. Edges are IDs into the tree arena.
type treeNode struct {
	parent     ID
	children   []ID
	supervisor *supervisor.Supervisor
	sealed     bool
}

// tree is the supervision tree of a System, stored as an arena keyed by ID.
// NoID is the virtual root holding the top-level actors.
type tree struct {
	mu    sync.RWMutex
	nodes map[ID]*treeNode
}

func newTree(root *supervisor.Supervisor) *tree {
	return &tree{
		nodes: map[ID]*treeNode{
			NoID: {parent: NoID, supervisor: root},
		},
	}
}

// add attaches id under parent. Children are kept in spawn order.
func (t *tree) add(id, parent ID, sup *supervisor.Supervisor) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.nodes[id]; ok {
		return errors.ErrActorAlreadyExists
	}

	parentNode, ok := t.nodes[parent]
	if !ok {
		return fmt.Errorf("parent actor=(%s): %w", parent, errors.ErrActorNotFound)
	}

	if parentNode.sealed {
		return fmt.Errorf("parent actor=(%s): %w", parent, errors.ErrDead)
	}

	if sup == nil {
		sup = supervisor.Default()
	}

	parentNode.children = append(parentNode.children, id)
	t.nodes[id] = &treeNode{parent: parent, supervisor: sup}
	return nil
}

// seal prevents new children from being attached under id
func (t *tree) seal(id ID) {
	t.mu.Lock()
	if node, ok := t.nodes[id]; ok {
		node.sealed = true
	}
	t.mu.Unlock()
}

// remove detaches id from its parent and drops its node
func (t *tree) remove(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[id]
	if !ok || id == NoID {
		return
	}

	if parentNode, ok := t.nodes[node.parent]; ok {
		parentNode.children = slices.DeleteFunc(parentNode.children, func(child ID) bool {
			return child == id
		})
	}
	delete(t.nodes, id)
}

func (t *tree) parent(id ID) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.nodes[id]
	if !ok {
		return NoID, false
	}
	return node.parent, true
}

func (t *tree) children(id ID) []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(node.children)
}

// supervisor returns the supervisor id applies to its children
func (t *tree) supervisor(id ID) *supervisor.Supervisor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if node, ok := t.nodes[id]; ok && node.supervisor != nil {
		return node.supervisor
	}
	return supervisor.Default()
}

// scope returns the siblings affected by the failure of id under the given
// strategy, in spawn order
func (t *tree) scope(id ID, strategy supervisor.Strategy) []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	node, ok := t.nodes[id]
	if !ok {
		return nil
	}

	parentNode, ok := t.nodes[node.parent]
	if !ok {
		return []ID{id}
	}

	siblings := parentNode.children
	switch strategy {
	case supervisor.OneForAllStrategy:
		return slices.Clone(siblings)
	case supervisor.RestForOneStrategy:
		index := slices.Index(siblings, id)
		if index < 0 {
			return []ID{id}
		}
		return slices.Clone(siblings[index:])
	default:
		return []ID{id}
	}
}
