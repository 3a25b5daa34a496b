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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tochemey/esakt/errors"
)

func TestDebug(t *testing.T) {
	testCases := []struct {
		name     string
		value    Value
		expected string
	}{
		{name: "int", value: Int(-42), expected: "-42"},
		{name: "float", value: Float(1.5), expected: "1.5"},
		{name: "bool", value: Bool(true), expected: "true"},
		{name: "string", value: String("hello"), expected: `"hello"`},
		{name: "empty map", value: Map{}, expected: "{}"},
		{name: "variant", value: NewVariant("Deposit", Int(100)), expected: "(Deposit 100)"},
		{name: "variant without fields", value: NewVariant("Reset"), expected: "Reset"},
		{
			name: "map in key order",
			value: Map{
				StringKey("b"): Int(2),
				BoolKey(true):  String("yes"),
				IntKey(10):     Int(1),
				StringKey("a"): NewVariant("Pair", Int(1), Bool(false)),
			},
			expected: `{ 10: 1, true: "yes", "a": (Pair 1 false), "b": 2 }`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.value.Debug())
		})
	}
}

func TestKeyOrdering(t *testing.T) {
	keys := []Key{IntKey(-1), IntKey(3), BoolKey(false), BoolKey(true), StringKey(""), StringKey("z")}
	for i := 0; i < len(keys)-1; i++ {
		assert.Equal(t, -1, keys[i].Compare(keys[i+1]), "%s < %s", keys[i].Debug(), keys[i+1].Debug())
		assert.Equal(t, 1, keys[i+1].Compare(keys[i]))
		assert.Zero(t, keys[i].Compare(keys[i]))
	}

	i, ok := IntKey(7).Int()
	assert.True(t, ok)
	assert.EqualValues(t, 7, i)
	_, ok = StringKey("x").Int()
	assert.False(t, ok)
	assert.False(t, Key{}.Valid())
}

func TestValidate(t *testing.T) {
	t.Run("With plain data", func(t *testing.T) {
		shared := NewMap(map[string]Value{"x": Int(1)})
		v := Map{StringKey("left"): shared, StringKey("right"): shared}
		require.NoError(t, Validate(v))
	})
	t.Run("With nil entry", func(t *testing.T) {
		err := Validate(Map{StringKey("k"): nil})
		require.ErrorIs(t, err, errors.ErrNonSerializableValue)
		assert.Contains(t, err.Error(), `$["k"]`)
	})
	t.Run("With map cycle", func(t *testing.T) {
		m := Map{}
		m[StringKey("self")] = m
		err := Validate(m)
		require.ErrorIs(t, err, errors.ErrNonSerializableValue)
		assert.Contains(t, err.Error(), "cycle")
	})
	t.Run("With variant cycle", func(t *testing.T) {
		v := NewVariant("Node", Int(1), nil)
		v.Fields[1] = v
		require.ErrorIs(t, Validate(v), errors.ErrNonSerializableValue)
	})
	t.Run("With invalid key", func(t *testing.T) {
		require.ErrorIs(t, Validate(Map{Key{}: Int(1)}), errors.ErrNonSerializableValue)
	})
}

func TestFromGo(t *testing.T) {
	t.Run("With scalars and maps", func(t *testing.T) {
		v, err := FromGo(map[string]any{
			"balance": 70,
			"owner":   "alice",
			"ratio":   float32(0.5),
			"open":    true,
			"limits":  map[int]uint8{1: 10},
		})
		require.NoError(t, err)
		expected := Map{
			StringKey("balance"): Int(70),
			StringKey("owner"):   String("alice"),
			StringKey("ratio"):   Float(0.5),
			StringKey("open"):    Bool(true),
			StringKey("limits"):  Map{IntKey(1): Int(10)},
		}
		assert.True(t, Equal(expected, v), v.Debug())
	})
	t.Run("With a value", func(t *testing.T) {
		v, err := FromGo(NewVariant("Withdraw", Int(30)))
		require.NoError(t, err)
		assert.Equal(t, "Withdraw", Tag(v))
	})
	t.Run("With a closure", func(t *testing.T) {
		_, err := FromGo(map[string]any{"callback": func() {}})
		require.ErrorIs(t, err, errors.ErrNonSerializableValue)
		assert.Contains(t, err.Error(), "func")
	})
	t.Run("With a channel", func(t *testing.T) {
		_, err := FromGo(make(chan int))
		require.ErrorIs(t, err, errors.ErrNonSerializableValue)
	})
	t.Run("With nil", func(t *testing.T) {
		_, err := FromGo(nil)
		require.ErrorIs(t, err, errors.ErrNonSerializableValue)
	})
	t.Run("With uint overflow", func(t *testing.T) {
		_, err := FromGo(uint64(math.MaxUint64))
		require.ErrorIs(t, err, errors.ErrNonSerializableValue)
	})
	t.Run("With a native cycle", func(t *testing.T) {
		m := map[string]any{}
		m["self"] = m
		_, err := FromGo(m)
		require.ErrorIs(t, err, errors.ErrNonSerializableValue)
	})
}

func TestEqualAndClone(t *testing.T) {
	original := NewMap(map[string]Value{
		"balance": Int(70),
		"history": NewVariant("Entries", NewVariant("Deposit", Int(100)), NewVariant("Withdraw", Int(30))),
		"nan":     Float(math.NaN()),
	})

	cloned := Clone(original).(Map)
	require.True(t, Equal(original, cloned))

	cloned[StringKey("balance")] = Int(0)
	assert.Equal(t, Int(70), original[StringKey("balance")])
	assert.False(t, Equal(original, cloned))

	assert.False(t, Equal(Int(1), Float(1)))
	assert.False(t, Equal(NewVariant("A"), NewVariant("B")))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(Int(1), nil))

	updated := original.With(StringKey("balance"), Int(100))
	assert.Equal(t, Int(100), updated[StringKey("balance")])
	assert.Equal(t, Int(70), original[StringKey("balance")])
}

func TestCodec(t *testing.T) {
	t.Run("Round trip keeps data", func(t *testing.T) {
		v := Map{
			IntKey(-3):           Float(-0.25),
			BoolKey(true):        NewVariant("Closed"),
			StringKey("balance"): Int(math.MinInt64),
			StringKey("nested"):  Map{StringKey("name"): String("ünïcode")},
		}
		bytes, err := Marshal(v)
		require.NoError(t, err)

		decoded, err := Unmarshal(bytes)
		require.NoError(t, err)
		assert.True(t, Equal(v, decoded), decoded.Debug())
	})
	t.Run("Equal values encode to equal bytes", func(t *testing.T) {
		a := Map{}
		b := Map{}
		for i := range 64 {
			a[IntKey(int64(i))] = Int(int64(i))
			b[IntKey(int64(63-i))] = Int(int64(63 - i))
		}
		encodedA, err := Marshal(a)
		require.NoError(t, err)
		encodedB, err := Marshal(b)
		require.NoError(t, err)
		assert.Equal(t, encodedA, encodedB)
	})
	t.Run("Marshal rejects cycles", func(t *testing.T) {
		m := Map{}
		m[StringKey("self")] = m
		_, err := Marshal(m)
		require.ErrorIs(t, err, errors.ErrNonSerializableValue)
	})
	t.Run("Unmarshal rejects truncated input", func(t *testing.T) {
		bytes, err := Marshal(String("hello"))
		require.NoError(t, err)
		_, err = Unmarshal(bytes[:len(bytes)-1])
		require.ErrorIs(t, err, ErrInvalidEncoding)
	})
	t.Run("Unmarshal rejects trailing bytes", func(t *testing.T) {
		bytes, err := Marshal(Int(1))
		require.NoError(t, err)
		_, err = Unmarshal(append(bytes, 0))
		require.ErrorIs(t, err, ErrInvalidEncoding)
	})
	t.Run("Unmarshal rejects unknown tags", func(t *testing.T) {
		_, err := Unmarshal([]byte{0xff})
		require.ErrorIs(t, err, ErrInvalidEncoding)
	})
	t.Run("Unmarshal rejects oversized lengths", func(t *testing.T) {
		oversized := append(protowire.AppendTag(nil, tagMap, protowire.BytesType), 0x7f)
		_, err := Unmarshal(oversized)
		require.ErrorIs(t, err, ErrInvalidEncoding)
	})
	t.Run("Unmarshal rejects mismatched wire types", func(t *testing.T) {
		data := protowire.AppendTag(nil, tagString, protowire.VarintType)
		data = protowire.AppendVarint(data, 1)
		_, err := Unmarshal(data)
		require.ErrorIs(t, err, ErrInvalidEncoding)
	})
	t.Run("Unmarshal rejects float map keys", func(t *testing.T) {
		entry := appendValue(appendValue(nil, Float(1.5)), Int(1))
		body := protowire.AppendTag(nil, entryField, protowire.BytesType)
		body = protowire.AppendBytes(body, entry)
		data := protowire.AppendTag(nil, tagMap, protowire.BytesType)
		data = protowire.AppendBytes(data, body)
		_, err := Unmarshal(data)
		require.ErrorIs(t, err, ErrInvalidEncoding)
	})
}
