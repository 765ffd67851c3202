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

package resp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, f Frame) {
	t.Helper()
	wire := Encode(f)
	c := NewCursor(wire)
	got, err := Decode(c)
	require.NoError(t, err)
	assert.Equal(t, f, got)
	assert.Equal(t, len(wire), c.Pos())
}

func TestRoundTripAllKinds(t *testing.T) {
	arr := NewArray()
	require.NoError(t, Push(&arr, BulkString("GET")))
	require.NoError(t, Push(&arr, BulkString("foo")))

	m := NewMap()
	require.NoError(t, Insert(&m, Simple("save"), BulkString("3600 1")))

	cases := []Frame{
		Simple("PONG"),
		Err("unknown command: FOO"),
		Integer(42),
		Integer(-1),
		BulkString("hello world"),
		BulkString(""),
		Boolean(true),
		Boolean(false),
		Null(),
		arr,
		m,
		NewArray(),
	}
	for _, f := range cases {
		roundTrip(t, f)
	}
}

func TestDecodeIncompletePrefixLeavesCursorAtZero(t *testing.T) {
	full := Encode(BulkString("hello world"))
	for n := 1; n < len(full); n++ {
		c := NewCursor(full[:n])
		_, err := Decode(c)
		assert.ErrorIs(t, err, ErrIncomplete, "prefix length %d", n)
		assert.Equal(t, 0, c.Pos(), "prefix length %d", n)
	}
}

func TestDecodeIncompleteArrayLeavesCursorAtZero(t *testing.T) {
	full := []byte("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")
	for n := 1; n < len(full); n++ {
		c := NewCursor(full[:n])
		_, err := Decode(c)
		assert.ErrorIs(t, err, ErrIncomplete, "prefix length %d", n)
		assert.Equal(t, 0, c.Pos(), "prefix length %d", n)
	}
}

func TestSimpleLineStrictOnBareCR(t *testing.T) {
	c := NewCursor([]byte("+OK\rBAD\r\n"))
	_, err := Decode(c)
	var merr *MalformedError
	require.ErrorAs(t, err, &merr)
}

func TestSimpleLineStrictOnBareLF(t *testing.T) {
	c := NewCursor([]byte("+OK\nBAD\r\n"))
	_, err := Decode(c)
	var merr *MalformedError
	require.ErrorAs(t, err, &merr)
}

func TestErrorLineStrictOnBareCR(t *testing.T) {
	c := NewCursor([]byte("-bad\rline\r\n"))
	_, err := Decode(c)
	var merr *MalformedError
	require.ErrorAs(t, err, &merr)
}

func TestBulkLeniencyOnArbitraryBytes(t *testing.T) {
	payloads := [][]byte{
		[]byte("contains\r\nCRLF"),
		[]byte("lone\rCR"),
		[]byte("lone\nLF"),
		{0x00, 0xff, 0x80, 0x01},
		[]byte(""),
	}
	for _, p := range payloads {
		f := Bulk(p)
		c := NewCursor(Encode(f))
		got, err := Decode(c)
		require.NoError(t, err)
		assert.Equal(t, p, got.Payload())
	}
}

func TestDecodeUnknownTagIsMalformed(t *testing.T) {
	c := NewCursor([]byte("@nope\r\n"))
	_, err := Decode(c)
	var merr *MalformedError
	require.ErrorAs(t, err, &merr)
}

func TestDecodeInvalidIntegerIsMalformed(t *testing.T) {
	c := NewCursor([]byte(":notanumber\r\n"))
	_, err := Decode(c)
	var merr *MalformedError
	require.ErrorAs(t, err, &merr)
}

func TestDecodeNegativeBulkLengthIsMalformed(t *testing.T) {
	c := NewCursor([]byte("$-5\r\n"))
	_, err := Decode(c)
	var merr *MalformedError
	require.ErrorAs(t, err, &merr)
}

func TestDecodeBulkMissingTerminatorIsMalformed(t *testing.T) {
	c := NewCursor([]byte("$3\r\nfooXX"))
	_, err := Decode(c)
	var merr *MalformedError
	require.ErrorAs(t, err, &merr)
}

func TestDecodeBooleanInvalidPayload(t *testing.T) {
	c := NewCursor([]byte("#x\r\n"))
	_, err := Decode(c)
	var merr *MalformedError
	require.ErrorAs(t, err, &merr)
}

func TestDecodeConsumesOnlyOneFrameFromBuffer(t *testing.T) {
	buf := []byte("+OK\r\n+ANOTHER\r\n")
	c := NewCursor(buf)
	f, err := Decode(c)
	require.NoError(t, err)
	assert.Equal(t, "OK", f.Text())
	assert.Equal(t, 5, c.Pos())

	f2, err := Decode(c)
	require.NoError(t, err)
	assert.Equal(t, "ANOTHER", f2.Text())
}

// TestPipelinedPartialArrival mirrors scenario 7 of the acceptance tests:
// a command arrives split mid-token across two reads.
func TestPipelinedPartialArrival(t *testing.T) {
	first := []byte("*3\r\n$3\r\nSE")
	c := NewCursor(first)
	_, err := Decode(c)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, 0, c.Pos())

	full := append(append([]byte{}, first...), []byte("T\r\n$3\r\nfoo\r\n$3\r\nbar\r\n*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")...)
	c2 := NewCursor(full)
	f, err := Decode(c2)
	require.NoError(t, err)
	require.Equal(t, 3, f.Len())
	assert.Equal(t, "SET", string(f.Elements()[0].Payload()))
	assert.Equal(t, "foo", string(f.Elements()[1].Payload()))
	assert.Equal(t, "bar", string(f.Elements()[2].Payload()))

	f2, err := Decode(c2)
	require.NoError(t, err)
	assert.Equal(t, "GET", string(f2.Elements()[0].Payload()))
	assert.Equal(t, "foo", string(f2.Elements()[1].Payload()))
}
