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

package httpparse

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

type state int

const (
	stateRequestLine state = iota
	stateHeaders
	stateBody
	stateDone
)

type bodyMode int

const (
	bodyNone bodyMode = iota
	bodyFixed
	bodyChunked
)

type chunkState int

const (
	chunkSize chunkState = iota
	chunkData
	chunkTrailer
)

// Parser is an incremental HTTP/1.1 request parser. A zero-value Parser is
// ready to use. Feed never loses bytes across calls: whatever the buffer
// could not consume stays accumulated for the next call.
type Parser struct {
	st  state
	buf []byte

	mode         bodyMode
	fixedRemain  int
	chunkSt      chunkState
	chunkRemain  int
}

// Feed appends data to the parser's internal buffer and advances req as far
// as possible. It returns (true, nil) once req.Complete becomes true,
// (false, nil) if more bytes are needed, or (false, err) on malformed input.
func (p *Parser) Feed(data []byte, req *Request) (bool, error) {
	p.buf = append(p.buf, data...)

	for {
		switch p.st {
		case stateRequestLine:
			ok, err := p.parseRequestLine(req)
			if err != nil || !ok {
				return false, err
			}
		case stateHeaders:
			ok, err := p.parseHeaders(req)
			if err != nil || !ok {
				return false, err
			}
		case stateBody:
			ok, err := p.parseBody(req)
			if err != nil || !ok {
				return false, err
			}
		case stateDone:
			req.Complete = true
			return true, nil
		}
	}
}

// Reset returns the parser to its initial state for the next request on the
// same connection.
func (p *Parser) Reset() {
	p.st = stateRequestLine
	p.buf = nil
	p.mode = bodyNone
	p.fixedRemain = 0
	p.chunkSt = chunkSize
	p.chunkRemain = 0
}

func (p *Parser) parseRequestLine(req *Request) (bool, error) {
	idx := bytes.Index(p.buf, []byte("\r\n"))
	if idx < 0 {
		return false, nil
	}

	line := string(p.buf[:idx])
	p.buf = p.buf[idx+2:]

	fields := strings.Fields(line)
	if len(fields) != 3 {
		return false, ErrorMalformedRequestLine.Error(nil)
	}

	req.Method = strings.ToUpper(fields[0])
	req.URI = fields[1]
	req.Version = fields[2]

	p.st = stateHeaders
	return true, nil
}

func (p *Parser) parseHeaders(req *Request) (bool, error) {
	for {
		idx := bytes.Index(p.buf, []byte("\r\n"))
		if idx < 0 {
			return false, nil
		}

		line := p.buf[:idx]
		p.buf = p.buf[idx+2:]

		if len(line) == 0 {
			return true, p.finishHeaders(req)
		}

		ci := bytes.IndexByte(line, ':')
		if ci < 0 {
			return false, ErrorMalformedHeader.Error(nil)
		}

		name := strings.ToLower(strings.TrimSpace(string(line[:ci])))
		value := strings.TrimSpace(string(line[ci+1:]))

		if !httpguts.ValidHeaderFieldName(name) || !httpguts.ValidHeaderFieldValue(value) {
			return false, ErrorMalformedHeader.Error(nil)
		}

		if req.Headers == nil {
			req.Headers = make(map[string]string)
		}
		req.Headers[name] = value
	}
}

func (p *Parser) finishHeaders(req *Request) error {
	if te, ok := req.Header("transfer-encoding"); ok && strings.Contains(strings.ToLower(te), "chunked") {
		p.mode = bodyChunked
		p.chunkSt = chunkSize
		p.st = stateBody
		return nil
	}

	if cl, ok := req.Header("content-length"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 {
			return ErrorMalformedHeader.Error(nil)
		}
		p.mode = bodyFixed
		p.fixedRemain = n
		p.st = stateBody
		return nil
	}

	p.mode = bodyNone
	p.st = stateDone
	return nil
}

func (p *Parser) parseBody(req *Request) (bool, error) {
	switch p.mode {
	case bodyNone:
		p.st = stateDone
		return true, nil
	case bodyFixed:
		return p.parseFixedBody(req)
	case bodyChunked:
		return p.parseChunkedBody(req)
	}
	p.st = stateDone
	return true, nil
}

func (p *Parser) parseFixedBody(req *Request) (bool, error) {
	if p.fixedRemain == 0 {
		p.st = stateDone
		return true, nil
	}
	if len(p.buf) < p.fixedRemain {
		return false, nil
	}

	req.Body = append(req.Body, p.buf[:p.fixedRemain]...)
	p.buf = p.buf[p.fixedRemain:]
	p.fixedRemain = 0
	p.st = stateDone
	return true, nil
}

func (p *Parser) parseChunkedBody(req *Request) (bool, error) {
	for {
		switch p.chunkSt {
		case chunkSize:
			idx := bytes.Index(p.buf, []byte("\r\n"))
			if idx < 0 {
				return false, nil
			}

			line := p.buf[:idx]

			if si := bytes.IndexByte(line, ';'); si >= 0 {
				line = line[:si]
			}

			n, err := strconv.ParseInt(strings.TrimSpace(string(line)), 16, 64)
			if err != nil || n < 0 {
				return false, ErrorMalformedChunkSize.Error(nil)
			}

			if n == 0 {
				// Wait until the two bytes after the last-chunk line are
				// buffered, so a terminating CRLF split across reads is
				// consumed the same way as when it arrives in one read.
				if len(p.buf) < idx+4 {
					return false, nil
				}
				p.buf = p.buf[idx+2:]
				p.st = stateDone
				return true, p.consumeTrailer()
			}

			p.buf = p.buf[idx+2:]
			p.chunkRemain = int(n)
			p.chunkSt = chunkData
		case chunkData:
			if len(p.buf) < p.chunkRemain {
				return false, nil
			}
			req.Body = append(req.Body, p.buf[:p.chunkRemain]...)
			p.buf = p.buf[p.chunkRemain:]
			p.chunkRemain = 0
			p.chunkSt = chunkTrailer
		case chunkTrailer:
			if len(p.buf) < 2 {
				return false, nil
			}
			p.buf = p.buf[2:]
			p.chunkSt = chunkSize
		}
	}
}

// consumeTrailer accepts the minimal terminating "\r\n" after the zero-size
// chunk line; per SPEC_FULL.md §9 design note 5, trailer headers beyond that
// are not consumed.
func (p *Parser) consumeTrailer() error {
	if bytes.HasPrefix(p.buf, []byte("\r\n")) {
		p.buf = p.buf[2:]
	}
	return nil
}
