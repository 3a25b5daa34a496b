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

// Package value defines the plain data an actor is allowed to persist:
// scalars, maps keyed by scalars and tagged variants. Values never carry
// behavior, which keeps every journal record and snapshot replayable.
package value

import (
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the shape of a Value
type Kind uint8

const (
	InvalidKind Kind = iota
	IntKind
	FloatKind
	BoolKind
	StringKind
	MapKind
	VariantKind
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case IntKind:
		return "int"
	case FloatKind:
		return "float"
	case BoolKind:
		return "bool"
	case StringKind:
		return "string"
	case MapKind:
		return "map"
	case VariantKind:
		return "variant"
	default:
		return "invalid"
	}
}

// Value is a persistable datum. The set of implementations is closed.
type Value interface {
	// Kind returns the shape of the value
	Kind() Kind
	// Debug returns a human-readable rendering of the value
	Debug() string
	sealed()
}

// Int is a signed 64-bit integer value
type Int int64

// Float is a 64-bit floating point value
type Float float64

// Bool is a boolean value
type Bool bool

// String is a UTF-8 string value
type String string

// Map is an unordered set of entries keyed by scalars.
// Iteration for rendering and encoding always follows Key ordering.
type Map map[Key]Value

// Variant is a tagged union value, e.g. (Deposit 100).
type Variant struct {
	Tag    string
	Fields []Value
}

var (
	_ Value = Int(0)
	_ Value = Float(0)
	_ Value = Bool(false)
	_ Value = String("")
	_ Value = Map(nil)
	_ Value = (*Variant)(nil)
)

// NewVariant creates a Variant
func NewVariant(tag string, fields ...Value) *Variant {
	return &Variant{Tag: tag, Fields: fields}
}

// NewMap creates a Map with string keys from the given pairs
func NewMap(entries map[string]Value) Map {
	m := make(Map, len(entries))
	for k, v := range entries {
		m[StringKey(k)] = v
	}
	return m
}

func (Int) Kind() Kind      { return IntKind }
func (Float) Kind() Kind    { return FloatKind }
func (Bool) Kind() Kind     { return BoolKind }
func (String) Kind() Kind   { return StringKind }
func (Map) Kind() Kind      { return MapKind }
func (*Variant) Kind() Kind { return VariantKind }

func (Int) sealed()      {}
func (Float) sealed()    {}
func (Bool) sealed()     {}
func (String) sealed()   {}
func (Map) sealed()      {}
func (*Variant) sealed() {}

// Debug returns a human-readable rendering of the value
func (i Int) Debug() string { return strconv.FormatInt(int64(i), 10) }

// Debug returns a human-readable rendering of the value
func (f Float) Debug() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// Debug returns a human-readable rendering of the value
func (b Bool) Debug() string { return strconv.FormatBool(bool(b)) }

// Debug returns a human-readable rendering of the value
func (s String) Debug() string { return strconv.Quote(string(s)) }

// Debug renders the entries in key order: { "balance": 70 }
func (m Map) Debug() string {
	if len(m) == 0 {
		return "{}"
	}
	var sb strings.Builder
	sb.WriteString("{ ")
	for i, k := range m.Keys() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k.Debug())
		sb.WriteString(": ")
		sb.WriteString(debugOf(m[k]))
	}
	sb.WriteString(" }")
	return sb.String()
}

// Debug renders (Tag field...) or the bare tag when there are no fields
func (v *Variant) Debug() string {
	if v == nil {
		return "<nil>"
	}
	if len(v.Fields) == 0 {
		return v.Tag
	}
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(v.Tag)
	for _, field := range v.Fields {
		sb.WriteByte(' ')
		sb.WriteString(debugOf(field))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Keys returns the map keys in Key order
func (m Map) Keys() []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	return keys
}

// Get returns the value stored under the given key
func (m Map) Get(key Key) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// With returns a shallow copy of the map with key set to v.
// The receiver is left untouched.
func (m Map) With(key Key, v Value) Map {
	out := make(Map, len(m)+1)
	for k, existing := range m {
		out[k] = existing
	}
	out[key] = v
	return out
}

// Tag returns the tag of a variant value or an empty string
func Tag(v Value) string {
	if variant, ok := v.(*Variant); ok && variant != nil {
		return variant.Tag
	}
	return ""
}

func debugOf(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Debug()
}
