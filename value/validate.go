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
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/tochemey/esakt/errors"
)

// Validate checks that v is acyclic plain data: no nil entries, no
// invalid keys and no value reachable from itself.
// Sharing a sub-value in two places is allowed.
func Validate(v Value) error {
	return validate(v, "$", make(map[uintptr]struct{}))
}

func validate(v Value, path string, onPath map[uintptr]struct{}) error {
	switch x := v.(type) {
	case nil:
		return errors.NewNonSerializableValueError(path, "nil")
	case Int, Float, Bool, String:
		return nil
	case Map:
		if x == nil {
			return nil
		}
		ptr := reflect.ValueOf(x).Pointer()
		if _, ok := onPath[ptr]; ok {
			return errors.NewNonSerializableValueError(path, "cycle")
		}
		onPath[ptr] = struct{}{}
		defer delete(onPath, ptr)
		for k, child := range x {
			if !k.Valid() {
				return errors.NewNonSerializableValueError(path, "invalid key")
			}
			if err := validate(child, path+"["+k.Debug()+"]", onPath); err != nil {
				return err
			}
		}
		return nil
	case *Variant:
		if x == nil {
			return errors.NewNonSerializableValueError(path, "nil")
		}
		ptr := reflect.ValueOf(x).Pointer()
		if _, ok := onPath[ptr]; ok {
			return errors.NewNonSerializableValueError(path, "cycle")
		}
		onPath[ptr] = struct{}{}
		defer delete(onPath, ptr)
		for i, child := range x.Fields {
			if err := validate(child, path+"."+x.Tag+"["+strconv.Itoa(i)+"]", onPath); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.NewNonSerializableValueError(path, fmt.Sprintf("%T", v))
	}
}

// FromGo converts a native Go datum into a Value.
//
// Integers, floats, booleans and strings map to their scalar kinds. Maps
// keyed by integers, booleans or strings become a Map. A Value is returned
// as-is after validation. Functions, channels, pointers to non-values and
// every other type are rejected with a NonSerializableValueError.
func FromGo(v any) (Value, error) {
	if val, ok := v.(Value); ok {
		if err := Validate(val); err != nil {
			return nil, err
		}
		return val, nil
	}
	return fromReflect(reflect.ValueOf(v), "$", make(map[uintptr]struct{}))
}

func fromReflect(rv reflect.Value, path string, onPath map[uintptr]struct{}) (Value, error) {
	if !rv.IsValid() {
		return nil, errors.NewNonSerializableValueError(path, "nil")
	}

	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, errors.NewNonSerializableValueError(path, "nil")
		}
		rv = rv.Elem()
	}

	if rv.CanInterface() {
		if val, ok := rv.Interface().(Value); ok {
			if err := validate(val, path, onPath); err != nil {
				return nil, err
			}
			return val, nil
		}
	}

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, errors.NewNonSerializableValueError(path, "uint overflow")
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Map:
		if rv.IsNil() {
			return Map{}, nil
		}
		ptr := rv.Pointer()
		if _, ok := onPath[ptr]; ok {
			return nil, errors.NewNonSerializableValueError(path, "cycle")
		}
		onPath[ptr] = struct{}{}
		defer delete(onPath, ptr)

		out := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := keyFromReflect(iter.Key(), path)
			if err != nil {
				return nil, err
			}
			child, err := fromReflect(iter.Value(), path+"["+key.Debug()+"]", onPath)
			if err != nil {
				return nil, err
			}
			out[key] = child
		}
		return out, nil
	default:
		return nil, errors.NewNonSerializableValueError(path, rv.Kind().String())
	}
}

func keyFromReflect(rv reflect.Value, path string) (Key, error) {
	if rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntKey(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Key{}, errors.NewNonSerializableValueError(path, "uint overflow")
		}
		return IntKey(int64(u)), nil
	case reflect.Bool:
		return BoolKey(rv.Bool()), nil
	case reflect.String:
		return StringKey(rv.String()), nil
	default:
		if rv.CanInterface() {
			if key, ok := rv.Interface().(Key); ok && key.Valid() {
				return key, nil
			}
		}
		return Key{}, errors.NewNonSerializableValueError(path, "map key "+rv.Kind().String())
	}
}
