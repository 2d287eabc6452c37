/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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
 *
 */

package server

import (
	"time"

	"github.com/nabbar/golib/internal/config"
	"github.com/nabbar/golib/internal/httpparse"
)

// clientState is where a connection sits in the read -> parse -> process ->
// write -> reset cycle.
type clientState int

const (
	stateReading clientState = iota
	stateWriting
)

// idleTimeout is the maximum time a connection may sit without activity
// before the sweep closes it.
const idleTimeout = 30 * time.Second

// bufferSize is the chunk size read from a ready socket per iteration.
const bufferSize = 8192

// Client is one accepted connection's state, owned exclusively by the
// event-loop goroutine.
type Client struct {
	Fd           int
	RemoteAddr   string
	Server       *config.ServerConfig
	State        clientState
	Parser       httpparse.Parser
	Request      httpparse.Request
	LastActivity time.Time

	writeBuf    []byte
	writtenOff  int
}

func newClient(fd int, remoteAddr string, srv *config.ServerConfig, now time.Time) *Client {
	return &Client{
		Fd:           fd,
		RemoteAddr:   remoteAddr,
		Server:       srv,
		State:        stateReading,
		LastActivity: now,
	}
}

func (c *Client) touch(now time.Time) {
	c.LastActivity = now
}

func (c *Client) idleSince(now time.Time) bool {
	return now.Sub(c.LastActivity) > idleTimeout
}

// armWrite stores the serialized response and switches the client into the
// writing state, starting at offset 0.
func (c *Client) armWrite(body []byte) {
	c.writeBuf = body
	c.writtenOff = 0
	c.State = stateWriting
}

// remaining returns the unwritten tail of the buffered response.
func (c *Client) remaining() []byte {
	return c.writeBuf[c.writtenOff:]
}

// advance records n more bytes written; reports whether the buffer is now
// fully flushed.
func (c *Client) advance(n int) bool {
	c.writtenOff += n
	return c.writtenOff >= len(c.writeBuf)
}

// resetForNextRequest returns the client to the reading state for the next
// request on the same persistent connection.
func (c *Client) resetForNextRequest() {
	c.Parser.Reset()
	c.Request.Reset()
	c.writeBuf = nil
	c.writtenOff = 0
	c.State = stateReading
}
