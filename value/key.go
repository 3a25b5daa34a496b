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

package value

import (
	"cmp"
	"strconv"
)

// Key is a map key. Keys are ordered by kind first (int, bool, string)
// then by their scalar value.
type Key struct {
	kind Kind
	i    int64
	b    bool
	s    string
}

// IntKey creates an integer key
func IntKey(i int64) Key {
	return Key{kind: IntKind, i: i}
}

// BoolKey creates a boolean key
func BoolKey(b bool) Key {
	return Key{kind: BoolKind, b: b}
}

// StringKey creates a string key
func StringKey(s string) Key {
	return Key{kind: StringKind, s: s}
}

// Kind returns the key kind
func (k Key) Kind() Kind {
	return k.kind
}

// Int returns the integer held by the key
func (k Key) Int() (int64, bool) {
	return k.i, k.kind == IntKind
}

// Bool returns the boolean held by the key
func (k Key) Bool() (bool, bool) {
	return k.b, k.kind == BoolKind
}

// Str returns the string held by the key
func (k Key) Str() (string, bool) {
	return k.s, k.kind == StringKind
}

// Valid reports whether the key was built by one of the constructors
func (k Key) Valid() bool {
	return k.kind == IntKind || k.kind == BoolKind || k.kind == StringKind
}

// Compare returns -1, 0 or +1 following the key ordering
func (k Key) Compare(other Key) int {
	if c := cmp.Compare(keyRank(k.kind), keyRank(other.kind)); c != 0 {
		return c
	}
	switch k.kind {
	case IntKind:
		return cmp.Compare(k.i, other.i)
	case BoolKind:
		switch {
		case k.b == other.b:
			return 0
		case !k.b:
			return -1
		default:
			return 1
		}
	case StringKind:
		return cmp.Compare(k.s, other.s)
	default:
		return 0
	}
}

// Debug returns a human-readable rendering of the key
func (k Key) Debug() string {
	switch k.kind {
	case IntKind:
		return strconv.FormatInt(k.i, 10)
	case BoolKind:
		return strconv.FormatBool(k.b)
	case StringKind:
		return strconv.Quote(k.s)
	default:
		return "<invalid>"
	}
}

func keyRank(kind Kind) int {
	switch kind {
	case IntKind:
		return 0
	case BoolKind:
		return 1
	case StringKind:
		return 2
	default:
		return 3
	}
}
