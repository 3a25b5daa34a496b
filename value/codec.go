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
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrInvalidEncoding is returned when decoding malformed bytes
var ErrInvalidEncoding = errors.New("invalid value encoding")

// maxDepth bounds the nesting accepted by Unmarshal
const maxDepth = 512

// A value is encoded as a single protobuf field whose number is its kind.
// Maps are a sequence of entry fields, each holding the key followed by the
// value. Variants hold their tag followed by one field per payload field.
const (
	tagInt protowire.Number = iota + 1
	tagFloat
	tagBool
	tagString
	tagMap
	tagVariant
)

const (
	entryField protowire.Number = 1
	labelField protowire.Number = 1
	fieldField protowire.Number = 2
)

// Marshal encodes v into its compact binary form.
// Map entries are written in Key order so equal values encode to equal bytes.
func Marshal(v Value) ([]byte, error) {
	if err := Validate(v); err != nil {
		return nil, err
	}
	return appendValue(make([]byte, 0, 64), v), nil
}

// Unmarshal decodes bytes produced by Marshal
func Unmarshal(data []byte) (Value, error) {
	v, n, err := consumeValue(data, 0)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing byte(s)", ErrInvalidEncoding, len(data)-n)
	}
	return v, nil
}

func appendValue(buf []byte, v Value) []byte {
	switch x := v.(type) {
	case Int:
		buf = protowire.AppendTag(buf, tagInt, protowire.VarintType)
		return protowire.AppendVarint(buf, protowire.EncodeZigZag(int64(x)))
	case Float:
		buf = protowire.AppendTag(buf, tagFloat, protowire.Fixed64Type)
		return protowire.AppendFixed64(buf, math.Float64bits(float64(x)))
	case Bool:
		buf = protowire.AppendTag(buf, tagBool, protowire.VarintType)
		return protowire.AppendVarint(buf, protowire.EncodeBool(bool(x)))
	case String:
		buf = protowire.AppendTag(buf, tagString, protowire.BytesType)
		return protowire.AppendString(buf, string(x))
	case Map:
		var entries []byte
		for _, k := range x.Keys() {
			entry := appendValue(appendKey(nil, k), x[k])
			entries = protowire.AppendTag(entries, entryField, protowire.BytesType)
			entries = protowire.AppendBytes(entries, entry)
		}
		buf = protowire.AppendTag(buf, tagMap, protowire.BytesType)
		return protowire.AppendBytes(buf, entries)
	case *Variant:
		body := protowire.AppendTag(nil, labelField, protowire.BytesType)
		body = protowire.AppendString(body, x.Tag)
		for _, field := range x.Fields {
			body = protowire.AppendTag(body, fieldField, protowire.BytesType)
			body = protowire.AppendBytes(body, appendValue(nil, field))
		}
		buf = protowire.AppendTag(buf, tagVariant, protowire.BytesType)
		return protowire.AppendBytes(buf, body)
	default:
		return buf
	}
}

func appendKey(buf []byte, k Key) []byte {
	switch k.kind {
	case IntKind:
		return appendValue(buf, Int(k.i))
	case BoolKind:
		return appendValue(buf, Bool(k.b))
	default:
		return appendValue(buf, String(k.s))
	}
}

// consumeValue decodes one value field and returns the number of bytes read
func consumeValue(data []byte, depth int) (Value, int, error) {
	if depth > maxDepth {
		return nil, 0, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidEncoding, maxDepth)
	}

	num, typ, n := protowire.ConsumeTag(data)
	if n < 0 {
		return nil, 0, invalid(n)
	}
	rest := data[n:]

	switch {
	case num == tagInt && typ == protowire.VarintType:
		u, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return nil, 0, invalid(m)
		}
		return Int(protowire.DecodeZigZag(u)), n + m, nil
	case num == tagFloat && typ == protowire.Fixed64Type:
		bits, m := protowire.ConsumeFixed64(rest)
		if m < 0 {
			return nil, 0, invalid(m)
		}
		return Float(math.Float64frombits(bits)), n + m, nil
	case num == tagBool && typ == protowire.VarintType:
		u, m := protowire.ConsumeVarint(rest)
		if m < 0 {
			return nil, 0, invalid(m)
		}
		if u > 1 {
			return nil, 0, fmt.Errorf("%w: invalid bool %d", ErrInvalidEncoding, u)
		}
		return Bool(u == 1), n + m, nil
	case num == tagString && typ == protowire.BytesType:
		s, m := protowire.ConsumeString(rest)
		if m < 0 {
			return nil, 0, invalid(m)
		}
		return String(s), n + m, nil
	case num == tagMap && typ == protowire.BytesType:
		body, m := protowire.ConsumeBytes(rest)
		if m < 0 {
			return nil, 0, invalid(m)
		}
		out, err := consumeMap(body, depth)
		return out, n + m, err
	case num == tagVariant && typ == protowire.BytesType:
		body, m := protowire.ConsumeBytes(rest)
		if m < 0 {
			return nil, 0, invalid(m)
		}
		out, err := consumeVariant(body, depth)
		return out, n + m, err
	default:
		return nil, 0, fmt.Errorf("%w: unknown field %d of wire type %d", ErrInvalidEncoding, num, typ)
	}
}

func consumeMap(body []byte, depth int) (Map, error) {
	out := Map{}
	for len(body) > 0 {
		entry, err := consumeField(&body, entryField)
		if err != nil {
			return nil, err
		}

		k, err := consumeKey(&entry, depth)
		if err != nil {
			return nil, err
		}
		v, n, err := consumeValue(entry, depth+1)
		if err != nil {
			return nil, err
		}
		if n != len(entry) {
			return nil, fmt.Errorf("%w: malformed map entry", ErrInvalidEncoding)
		}
		out[k] = v
	}
	return out, nil
}

func consumeVariant(body []byte, depth int) (*Variant, error) {
	label, err := consumeField(&body, labelField)
	if err != nil {
		return nil, err
	}

	variant := &Variant{Tag: string(label)}
	for len(body) > 0 {
		encoded, err := consumeField(&body, fieldField)
		if err != nil {
			return nil, err
		}
		field, n, err := consumeValue(encoded, depth+1)
		if err != nil {
			return nil, err
		}
		if n != len(encoded) {
			return nil, fmt.Errorf("%w: malformed variant field", ErrInvalidEncoding)
		}
		variant.Fields = append(variant.Fields, field)
	}
	return variant, nil
}

func consumeKey(data *[]byte, depth int) (Key, error) {
	v, n, err := consumeValue(*data, depth+1)
	if err != nil {
		return Key{}, err
	}
	*data = (*data)[n:]

	switch k := v.(type) {
	case Int:
		return IntKey(int64(k)), nil
	case Bool:
		return BoolKey(bool(k)), nil
	case String:
		return StringKey(string(k)), nil
	default:
		return Key{}, fmt.Errorf("%w: map key of kind %s", ErrInvalidEncoding, v.Kind())
	}
}

// consumeField reads a length-delimited field with the given number
func consumeField(data *[]byte, want protowire.Number) ([]byte, error) {
	num, typ, n := protowire.ConsumeTag(*data)
	if n < 0 {
		return nil, invalid(n)
	}
	if num != want || typ != protowire.BytesType {
		return nil, fmt.Errorf("%w: unexpected field %d of wire type %d", ErrInvalidEncoding, num, typ)
	}

	field, m := protowire.ConsumeBytes((*data)[n:])
	if m < 0 {
		return nil, invalid(m)
	}
	*data = (*data)[n+m:]
	return field, nil
}

func invalid(n int) error {
	return fmt.Errorf("%w: %v", ErrInvalidEncoding, protowire.ParseError(n))
}
