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

package respserver

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"

	"github.com/kvwire/htcached/cache"
	"github.com/kvwire/htcached/command"
	"github.com/kvwire/htcached/common"
	"github.com/kvwire/htcached/internal/buffer"
	"github.com/kvwire/htcached/logger"
	"github.com/kvwire/htcached/resp"
)

var connSeq atomic.Int64

// connection owns one client socket end to end: the growing read buffer,
// the incremental decode loop, command dispatch, and the buffered writer.
// seq is a purely local log-correlation id; it never appears on the wire.
type connection struct {
	seq        int64
	conn       net.Conn
	controller *cache.Controller
	reader     *bufio.Reader
	writer     *bufio.Writer
	buf        *buffer.Buffer
}

func newConnection(conn net.Conn, controller *cache.Controller) *connection {
	return &connection{
		seq:        connSeq.Add(1),
		conn:       conn,
		controller: controller,
		reader:     bufio.NewReader(conn),
		writer:     bufio.NewWriter(conn),
		buf:        buffer.New(common.InitialReadBufferSize),
	}
}

// serve runs the read/decode/dispatch/reply loop until the connection ends,
// per the error-handling policy: protocol errors reply and continue,
// transport errors terminate the loop.
func (c *connection) serve() {
	defer c.conn.Close()

	for {
		frame, ok := c.nextFrame()
		if !ok {
			return
		}

		reply := c.dispatch(frame)
		if !c.writeReply(reply) {
			return
		}
	}
}

// nextFrame reads from the socket until one full Frame can be decoded from
// the buffer, advancing the buffer past the bytes it consumed. It reports
// false when the connection should be torn down.
func (c *connection) nextFrame() (resp.Frame, bool) {
	for {
		cursor := resp.NewCursor(c.buf.Bytes())
		frame, err := resp.Decode(cursor)
		if err == nil {
			c.buf.Advance(cursor.Pos())
			return frame, true
		}
		if !errors.Is(err, resp.ErrIncomplete) {
			// Malformed: reply with an error and keep the connection open.
			c.buf.Advance(cursor.Pos())
			if cursor.Pos() == 0 {
				// decoder made no forward progress; drop the whole buffer to
				// avoid spinning on the same bad bytes forever.
				c.buf.Reset()
			}
			logger.Debugf("conn %d: malformed frame: %v", c.seq, err)
			if !c.writeReply(resp.Err(err.Error())) {
				return resp.Frame{}, false
			}
			continue
		}

		n, readErr := c.readMore()
		if readErr != nil {
			return resp.Frame{}, false
		}
		if n == 0 {
			return resp.Frame{}, false
		}
	}
}

// readMore pulls one chunk of bytes from the socket into the buffer. A
// zero-length read is a graceful ConnectionEOF when the buffer held no
// unconsumed bytes from a prior partial frame, and a ConnectionReset when it
// did: the peer vanished mid-frame instead of between requests.
func (c *connection) readMore() (int, error) {
	hadPending := c.buf.Len() > 0

	chunk := make([]byte, 4096)
	n, err := c.reader.Read(chunk)
	if n > 0 {
		c.buf.Write(chunk[:n])
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			if n == 0 {
				if hadPending {
					logger.Warnf("conn %d: connection reset: peer closed mid-frame", c.seq)
					return 0, io.ErrUnexpectedEOF
				}
				return 0, io.EOF
			}
			return n, nil
		}
		logger.Warnf("conn %d: read failed: %v", c.seq, err)
		return n, err
	}
	if n == 0 {
		if hadPending {
			logger.Warnf("conn %d: connection reset: peer closed mid-frame", c.seq)
			return 0, io.ErrUnexpectedEOF
		}
		return 0, io.EOF
	}
	return n, nil
}

// dispatch parses frame into a Command and applies it to the controller's
// store, or converts a parse failure into the appropriate Error frame.
func (c *connection) dispatch(frame resp.Frame) resp.Frame {
	cmd, err := command.Parse(frame)
	if err != nil {
		return resp.Err(err.Error())
	}
	commandsTotal.WithLabelValues(cmd.Kind.String()).Inc()

	if cmd.Kind == command.KindSet {
		c.controller.Set(cmd.Key, cmd.Value, cmd.Expiry)
		return resp.Simple("OK")
	}
	return command.Apply(cmd, c.controller.Store())
}

// writeReply encodes and flushes reply. On failure it logs and reports
// false so the caller tears down the connection without attempting to send
// an error over the same broken socket.
func (c *connection) writeReply(reply resp.Frame) bool {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	bb.B = resp.EncodeAppend(bb.B[:0], reply)

	if _, err := c.writer.Write(bb.B); err != nil {
		logger.Warnf("conn %d: write failed: %v", c.seq, err)
		return false
	}
	if err := c.writer.Flush(); err != nil {
		logger.Warnf("conn %d: flush failed: %v", c.seq, err)
		return false
	}
	return true
}
