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

// Package httpparse implements the incremental, resumable HTTP/1.1 request
// parser driven by the event loop: Feed is called once per readable chunk
// and advances as far as the accumulated buffer allows.
package httpparse

import "strings"

// Request is built incrementally across one or more Feed calls.
type Request struct {
	Method   string
	URI      string
	Version  string
	Headers  map[string]string
	Body     []byte
	Complete bool
}

// Header returns the value of a header, matched case-insensitively, and
// whether it was present.
func (r *Request) Header(name string) (string, bool) {
	if r.Headers == nil {
		return "", false
	}
	v, ok := r.Headers[strings.ToLower(name)]
	return v, ok
}

// Reset clears the request so the same value can be reused for the next
// message on a persistent connection.
func (r *Request) Reset() {
	r.Method = ""
	r.URI = ""
	r.Version = ""
	r.Headers = nil
	r.Body = nil
	r.Complete = false
}

// Path returns the URI with any query string stripped.
func (r *Request) Path() string {
	if i := strings.IndexByte(r.URI, '?'); i >= 0 {
		return r.URI[:i]
	}
	return r.URI
}

// Query returns the raw query string (without the leading '?'), or "".
func (r *Request) Query() string {
	if i := strings.IndexByte(r.URI, '?'); i >= 0 {
		return r.URI[i+1:]
	}
	return ""
}
