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

package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvwire/htcached/resp"
	"github.com/kvwire/htcached/store"
)

func arrayOf(parts ...string) resp.Frame {
	f := resp.NewArray()
	for _, p := range parts {
		_ = resp.Push(&f, resp.BulkString(p))
	}
	return f
}

func TestParseNotCommand(t *testing.T) {
	_, err := Parse(resp.Simple("OK"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindNotCommand, perr.Kind)
	assert.Equal(t, NotCommandError, perr.Error())
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse(arrayOf("FROBNICATE"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindUnknown, perr.Kind)
	assert.Equal(t, "unknown command: FROBNICATE", perr.Error())
}

func TestParseGet(t *testing.T) {
	cmd, err := Parse(arrayOf("GET", "foo"))
	require.NoError(t, err)
	assert.Equal(t, KindGet, cmd.Kind)
	assert.Equal(t, "foo", cmd.Key)

	_, err = Parse(arrayOf("GET"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindMalformed, perr.Kind)
}

func TestParseSetPlain(t *testing.T) {
	cmd, err := Parse(arrayOf("SET", "foo", "bar"))
	require.NoError(t, err)
	assert.Equal(t, KindSet, cmd.Kind)
	assert.Equal(t, "foo", cmd.Key)
	assert.Equal(t, []byte("bar"), cmd.Value)
	assert.True(t, cmd.Expiry.IsZero())
}

func TestParseSetWithEX(t *testing.T) {
	cmd, err := Parse(arrayOf("SET", "foo", "bar", "EX", "10"))
	require.NoError(t, err)
	assert.False(t, cmd.Expiry.IsZero())
	assert.WithinDuration(t, time.Now().Add(10*time.Second), cmd.Expiry, time.Second)
}

func TestParseSetWithPX(t *testing.T) {
	cmd, err := Parse(arrayOf("SET", "foo", "bar", "px", "500"))
	require.NoError(t, err)
	assert.False(t, cmd.Expiry.IsZero())
}

func TestParseSetRejectsUnknownOption(t *testing.T) {
	_, err := Parse(arrayOf("SET", "foo", "bar", "NX", "1"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindMalformed, perr.Kind)
}

func TestParseSetRejectsNonIntegerExpiry(t *testing.T) {
	_, err := Parse(arrayOf("SET", "foo", "bar", "EX", "soon"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindMalformed, perr.Kind)
}

func TestParseSetRequiresKeyAndValue(t *testing.T) {
	_, err := Parse(arrayOf("SET", "foo"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, KindMalformed, perr.Kind)
}

func TestParseDel(t *testing.T) {
	cmd, err := Parse(arrayOf("DEL", "a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, KindDel, cmd.Kind)
	assert.Equal(t, []string{"a", "b", "c"}, cmd.Keys)

	_, err = Parse(arrayOf("DEL"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParsePing(t *testing.T) {
	cmd, err := Parse(arrayOf("PING"))
	require.NoError(t, err)
	assert.Equal(t, KindPing, cmd.Kind)
	assert.False(t, cmd.HasMsg)

	cmd, err = Parse(arrayOf("PING", "hello"))
	require.NoError(t, err)
	assert.True(t, cmd.HasMsg)
	assert.Equal(t, "hello", cmd.Message)

	_, err = Parse(arrayOf("PING", "a", "b"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseConfigGet(t *testing.T) {
	cmd, err := Parse(arrayOf("CONFIG", "GET", "save"))
	require.NoError(t, err)
	assert.Equal(t, KindConfigGet, cmd.Kind)
	assert.Equal(t, "save", cmd.Param)

	_, err = Parse(arrayOf("CONFIG", "SET", "save", "x"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestApplyGetSetDel(t *testing.T) {
	s, err := store.New(4)
	require.NoError(t, err)

	reply := Apply(Command{Kind: KindGet, Key: "foo"}, s)
	assert.Equal(t, resp.KindNull, reply.Kind)

	reply = Apply(Command{Kind: KindSet, Key: "foo", Value: []byte("bar")}, s)
	assert.Equal(t, "OK", reply.Text())

	reply = Apply(Command{Kind: KindGet, Key: "foo"}, s)
	assert.Equal(t, []byte("bar"), reply.Payload())

	reply = Apply(Command{Kind: KindDel, Keys: []string{"foo", "ghost"}}, s)
	assert.Equal(t, int64(1), reply.Int64())
}

func TestApplyPing(t *testing.T) {
	reply := Apply(Command{Kind: KindPing}, nil)
	assert.Equal(t, "PONG", reply.Text())

	reply = Apply(Command{Kind: KindPing, HasMsg: true, Message: "hi"}, nil)
	assert.Equal(t, []byte("hi"), reply.Payload())
}

func TestApplyConfigGet(t *testing.T) {
	reply := Apply(Command{Kind: KindConfigGet, Param: "save"}, nil)
	require.Equal(t, 1, reply.Len())
	assert.Equal(t, "save", reply.Entries()[0].Key.Text())

	reply = Apply(Command{Kind: KindConfigGet, Param: "appendonly"}, nil)
	assert.Equal(t, "appendonly", reply.Entries()[0].Key.Text())
	assert.Equal(t, []byte("no"), reply.Entries()[0].Value.Payload())
}
