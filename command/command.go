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

// Package command translates a decoded resp.Frame into a typed command and
// applies it against a store.Store, producing the reply Frame.
package command

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/kvwire/htcached/common"
	"github.com/kvwire/htcached/resp"
	"github.com/kvwire/htcached/store"
)

// Kind identifies which command a Command value holds.
type Kind uint8

const (
	KindNotCommand Kind = iota
	KindUnknown
	KindMalformed
	KindGet
	KindSet
	KindDel
	KindPing
	KindConfigGet
)

// String names the command for logging and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindGet:
		return "GET"
	case KindSet:
		return "SET"
	case KindDel:
		return "DEL"
	case KindPing:
		return "PING"
	case KindConfigGet:
		return "CONFIG"
	default:
		return "unknown"
	}
}

// NotCommandError is the reply text for a non-Array-of-Bulks top-level frame.
const NotCommandError = "not a command"

// ParseError wraps the command-model error taxonomy (NotCommand,
// UnknownCommand, MalformedCommand) so callers can render the right
// wire-level Error frame without re-deriving the reason string.
type ParseError struct {
	Kind   Kind
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindNotCommand:
		return NotCommandError
	case KindUnknown:
		return "unknown command: " + e.Name
	case KindMalformed:
		return "'" + e.Name + "' command is invalid: " + e.Reason
	default:
		return "command error"
	}
}

// Command is the tagged union of every command this server understands.
type Command struct {
	Kind Kind

	Key     string
	Value   []byte
	Keys    []string
	Message string
	HasMsg  bool
	Expiry  time.Time // zero means no expiry
	Param   string
}

// Parse turns a decoded Array-of-Bulks frame into a Command, or returns a
// *ParseError describing why it could not.
func Parse(f resp.Frame) (Command, error) {
	if f.Kind != resp.KindArray || f.Len() == 0 {
		return Command{}, &ParseError{Kind: KindNotCommand}
	}
	elems := f.Elements()
	for _, e := range elems {
		if e.Kind != resp.KindBulk {
			return Command{}, &ParseError{Kind: KindNotCommand}
		}
	}

	name := strings.ToUpper(string(elems[0].Payload()))
	switch name {
	case "GET":
		return parseGet(elems)
	case "SET":
		return parseSet(elems)
	case "DEL":
		return parseDel(elems)
	case "PING":
		return parsePing(elems)
	case "CONFIG":
		return parseConfig(elems)
	default:
		return Command{}, &ParseError{Kind: KindUnknown, Name: name}
	}
}

func parseGet(elems []resp.Frame) (Command, error) {
	if len(elems) != 2 {
		return Command{}, &ParseError{Kind: KindMalformed, Name: "GET", Reason: "GET requires 1 argument"}
	}
	return Command{Kind: KindGet, Key: string(elems[1].Payload())}, nil
}

func parseSet(elems []resp.Frame) (Command, error) {
	if len(elems) < 3 {
		return Command{}, &ParseError{Kind: KindMalformed, Name: "SET", Reason: "SET requires key and value"}
	}
	cmd := Command{
		Kind:  KindSet,
		Key:   string(elems[1].Payload()),
		Value: elems[2].Payload(),
	}

	rest := elems[3:]
	if len(rest) == 0 {
		return cmd, nil
	}
	if len(rest) != 2 {
		return Command{}, &ParseError{Kind: KindMalformed, Name: "SET", Reason: "syntax error"}
	}

	opt := strings.ToUpper(string(rest[0].Payload()))
	n, err := strconv.ParseInt(string(rest[1].Payload()), 10, 64)
	if err != nil || n < 0 {
		return Command{}, &ParseError{Kind: KindMalformed, Name: "SET", Reason: "invalid expire time"}
	}

	switch opt {
	case "EX":
		cmd.Expiry = time.Now().Add(time.Duration(n) * time.Second)
	case "PX":
		cmd.Expiry = time.Now().Add(time.Duration(n) * time.Millisecond)
	default:
		return Command{}, &ParseError{Kind: KindMalformed, Name: "SET", Reason: "syntax error"}
	}
	return cmd, nil
}

func parseDel(elems []resp.Frame) (Command, error) {
	if len(elems) < 2 {
		return Command{}, &ParseError{Kind: KindMalformed, Name: "DEL", Reason: "DEL requires at least 1 argument"}
	}
	keys := make([]string, 0, len(elems)-1)
	for _, e := range elems[1:] {
		keys = append(keys, string(e.Payload()))
	}
	return Command{Kind: KindDel, Keys: keys}, nil
}

func parsePing(elems []resp.Frame) (Command, error) {
	switch len(elems) {
	case 1:
		return Command{Kind: KindPing}, nil
	case 2:
		return Command{Kind: KindPing, Message: string(elems[1].Payload()), HasMsg: true}, nil
	default:
		return Command{}, &ParseError{Kind: KindMalformed, Name: "PING", Reason: "PING accepts at most 1 argument"}
	}
}

func parseConfig(elems []resp.Frame) (Command, error) {
	if len(elems) != 3 || strings.ToUpper(string(elems[1].Payload())) != "GET" {
		return Command{}, &ParseError{Kind: KindMalformed, Name: "CONFIG", Reason: "only CONFIG GET <param> is supported"}
	}
	return Command{Kind: KindConfigGet, Param: string(elems[2].Payload())}, nil
}

// Apply executes cmd against store and returns the reply Frame.
func Apply(cmd Command, s *store.Store) resp.Frame {
	switch cmd.Kind {
	case KindGet:
		v, ok := s.Get(cmd.Key, time.Now())
		if !ok {
			return resp.Null()
		}
		return resp.Bulk(v)

	case KindSet:
		s.Set(cmd.Key, cmd.Value, cmd.Expiry)
		return resp.Simple("OK")

	case KindDel:
		n := s.Delete(cmd.Keys)
		return resp.Integer(int64(n))

	case KindPing:
		if cmd.HasMsg {
			return resp.BulkString(cmd.Message)
		}
		return resp.Simple("PONG")

	case KindConfigGet:
		return configReply(cmd.Param)

	default:
		panic(errors.Errorf("command: Apply called with non-executable kind %d", cmd.Kind))
	}
}

// configTable is the canned CONFIG GET parameter table, backed by
// common.Options so lookups go through its lenient string coercion.
var configTable = func() common.Options {
	o := common.NewOptions()
	o.Merge("save", "3600 1 300 100 60 10000")
	o.Merge("appendonly", "no")
	return o
}()

func configReply(param string) resp.Frame {
	name := strings.ToLower(param)
	if name != "save" {
		name = "appendonly"
	}
	value, _ := configTable.GetString(name)

	m := resp.NewMap()
	_ = resp.Insert(&m, resp.Simple(name), resp.BulkString(value))
	return m
}
