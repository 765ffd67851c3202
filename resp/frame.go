// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package resp implements the RESP (REdis Serialization Protocol) frame
// algebra and its streaming decoder.
package resp

import (
	"strconv"

	"github.com/pkg/errors"
)

// Kind tags which RESP variant a Frame holds. Frame is a closed sum type:
// exactly one of its fields is meaningful for a given Kind.
type Kind uint8

const (
	KindSimple Kind = iota
	KindError
	KindInteger
	KindBulk
	KindNull
	KindBoolean
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "Simple"
	case KindError:
		return "Error"
	case KindInteger:
		return "Integer"
	case KindBulk:
		return "Bulk"
	case KindNull:
		return "Null"
	case KindBoolean:
		return "Boolean"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	default:
		return "Unknown"
	}
}

// ErrWrongVariant is returned when an operation that requires a specific
// Frame Kind (Push on Array, Insert on Map) is applied to the wrong one.
var ErrWrongVariant = errors.New("resp: wrong frame variant")

// MapEntry is one key/value pair of a Map frame, kept in insertion order so
// encoding stays deterministic.
type MapEntry struct {
	Key   Frame
	Value Frame
}

// Frame is one fully parsed RESP value.
type Frame struct {
	Kind Kind

	str   string
	i64   int64
	bulk  []byte
	b     bool
	arr   []Frame
	pairs []MapEntry
}

// Simple builds a SimpleStrings frame. s must not contain CR or LF.
func Simple(s string) Frame { return Frame{Kind: KindSimple, str: s} }

// Err builds an Errors frame. s must not contain CR or LF.
func Err(s string) Frame { return Frame{Kind: KindError, str: s} }

// Integer builds an Integers frame.
func Integer(n int64) Frame { return Frame{Kind: KindInteger, i64: n} }

// Bulk builds a BulkStrings frame. b may contain arbitrary bytes, including
// CR, LF, and non-UTF8 sequences; it is not copied.
func Bulk(b []byte) Frame { return Frame{Kind: KindBulk, bulk: b} }

// BulkString is a convenience constructor for a Bulk frame built from text.
func BulkString(s string) Frame { return Bulk([]byte(s)) }

// Null builds the RESP3 null frame.
func Null() Frame { return Frame{Kind: KindNull} }

// Boolean builds a Boolean frame.
func Boolean(v bool) Frame { return Frame{Kind: KindBoolean, b: v} }

// NewArray builds an empty Array frame, ready for Push.
func NewArray() Frame { return Frame{Kind: KindArray} }

// NewMap builds an empty Map frame, ready for Insert.
func NewMap() Frame { return Frame{Kind: KindMap} }

// Text returns the payload of a Simple or Error frame.
func (f Frame) Text() string { return f.str }

// Int64 returns the value of an Integer frame.
func (f Frame) Int64() int64 { return f.i64 }

// Payload returns the payload of a Bulk frame.
func (f Frame) Payload() []byte { return f.bulk }

// Bool returns the value of a Boolean frame.
func (f Frame) Bool() bool { return f.b }

// Elements returns the ordered elements of an Array frame.
func (f Frame) Elements() []Frame { return f.arr }

// Entries returns the ordered key/value pairs of a Map frame.
func (f Frame) Entries() []MapEntry { return f.pairs }

// Len returns the element (or pair) count of an Array or Map frame.
func (f Frame) Len() int {
	if f.Kind == KindMap {
		return len(f.pairs)
	}
	return len(f.arr)
}

// Push appends item to an Array frame in place.
func Push(f *Frame, item Frame) error {
	if f.Kind != KindArray {
		return errors.Wrapf(ErrWrongVariant, "push into %s", f.Kind)
	}
	f.arr = append(f.arr, item)
	return nil
}

// Insert appends a key/value pair to a Map frame in place, preserving
// insertion order.
func Insert(f *Frame, key, value Frame) error {
	if f.Kind != KindMap {
		return errors.Wrapf(ErrWrongVariant, "insert into %s", f.Kind)
	}
	f.pairs = append(f.pairs, MapEntry{Key: key, Value: value})
	return nil
}

// Encode renders f to its wire form. It is total: every well-formed Frame
// value has exactly one encoding.
func Encode(f Frame) []byte {
	buf := make([]byte, 0, 64)
	return appendEncoded(buf, f)
}

// EncodeAppend renders f to its wire form and appends it to buf, returning
// the grown slice. It lets callers reuse a pooled buffer across replies
// instead of allocating one per Encode call.
func EncodeAppend(buf []byte, f Frame) []byte {
	return appendEncoded(buf, f)
}

func appendEncoded(buf []byte, f Frame) []byte {
	switch f.Kind {
	case KindSimple:
		buf = append(buf, '+')
		buf = append(buf, f.str...)
		return append(buf, crlf...)

	case KindError:
		buf = append(buf, '-')
		buf = append(buf, f.str...)
		return append(buf, crlf...)

	case KindInteger:
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, f.i64, 10)
		return append(buf, crlf...)

	case KindBulk:
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(f.bulk)), 10)
		buf = append(buf, crlf...)
		buf = append(buf, f.bulk...)
		return append(buf, crlf...)

	case KindBoolean:
		if f.b {
			return append(buf, '#', 't', '\r', '\n')
		}
		return append(buf, '#', 'f', '\r', '\n')

	case KindNull:
		return append(buf, '_', '\r', '\n')

	case KindArray:
		buf = append(buf, '*')
		buf = strconv.AppendInt(buf, int64(len(f.arr)), 10)
		buf = append(buf, crlf...)
		for _, el := range f.arr {
			buf = appendEncoded(buf, el)
		}
		return buf

	case KindMap:
		buf = append(buf, '%')
		buf = strconv.AppendInt(buf, int64(len(f.pairs)), 10)
		buf = append(buf, crlf...)
		for _, e := range f.pairs {
			buf = appendEncoded(buf, e.Key)
			buf = appendEncoded(buf, e.Value)
		}
		return buf

	default:
		panic("resp: encode of invalid frame kind " + f.Kind.String())
	}
}

var crlf = []byte{'\r', '\n'}
