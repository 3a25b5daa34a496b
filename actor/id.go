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
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
)

// ID is the opaque identifier of an actor. It is assigned at spawn and never
// reused by the System.
type ID uuid.UUID

// NoID is the zero ID. It is the sender of messages sent from outside any actor.
var NoID ID

// NewID returns a fresh random identifier
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses the canonical string form of an ID
func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NoID, err
	}
	return ID(id), nil
}

// String returns the canonical string form of the ID. It is also the
// persistence ID of the actor journal and snapshot.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the ID is NoID
func (id ID) IsZero() bool {
	return id == NoID
}

func hashID(id ID) uint64 {
	return xxh3.Hash(id[:])
}
