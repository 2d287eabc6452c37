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

// Package respond builds outgoing HTTP/1.1 responses and renders the
// default error page / directory listing templates.
package respond

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strconv"
)

var statusText = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
}

// StatusText returns the fixed reason phrase for code, or "Unknown".
func StatusText(code int) string {
	if t, ok := statusText[code]; ok {
		return t
	}
	return "Unknown"
}

// Response is an outgoing HTTP/1.1 message under construction.
type Response struct {
	Code    int
	headers map[string]string
	order   []string
	body    []byte
}

// New starts a response with the given status code.
func New(code int) *Response {
	return &Response{
		Code:    code,
		headers: make(map[string]string),
	}
}

// AddHeader sets a header, last write wins, preserving first-seen order.
func (r *Response) AddHeader(name, value string) *Response {
	if _, ok := r.headers[name]; !ok {
		r.order = append(r.order, name)
	}
	r.headers[name] = value
	return r
}

// SetBody sets the response body and its Content-Length header.
func (r *Response) SetBody(body []byte) *Response {
	r.body = body
	r.AddHeader("Content-Length", strconv.Itoa(len(body)))
	return r
}

// Serialize renders the full HTTP/1.1 response.
func (r *Response) Serialize() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Code, StatusText(r.Code))
	for _, name := range r.order {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, r.headers[name])
	}
	buf.WriteString("\r\n")
	buf.Write(r.body)

	return buf.Bytes()
}

var errorPageTpl = template.Must(template.New("error").Parse(
	`<!DOCTYPE html>
<html>
<head><title>{{.Code}} {{.Text}}</title></head>
<body>
<h1>{{.Code}} {{.Text}}</h1>
</body>
</html>
`))

// ErrorPage builds a Response for code, preferring the contents of
// customPagePath when it is set and readable; otherwise renders a default
// HTML page.
func ErrorPage(code int, customPagePath string) *Response {
	resp := New(code)

	if customPagePath != "" {
		if data, err := os.ReadFile(customPagePath); err == nil {
			resp.AddHeader("Content-Type", "text/html")
			resp.SetBody(data)
			return resp
		}
	}

	var buf bytes.Buffer
	_ = errorPageTpl.Execute(&buf, struct {
		Code int
		Text string
	}{code, StatusText(code)})

	resp.AddHeader("Content-Type", "text/html")
	resp.SetBody(buf.Bytes())
	return resp
}

var listingTpl = template.Must(template.New("listing").Parse(
	`<!DOCTYPE html>
<html>
<head><title>Index of {{.URI}}</title></head>
<body>
<h1>Index of {{.URI}}</h1>
<ul>
{{if .HasParent}}<li><a href="../">../</a></li>{{end}}
{{range .Names}}<li><a href="{{.}}">{{.}}</a></li>
{{end}}
</ul>
</body>
</html>
`))

// DirectoryListing renders a sorted directory listing for uri, whose
// entries are names (file and directory names only, no path prefix).
func DirectoryListing(uri string, names []string) *Response {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	var buf bytes.Buffer
	_ = listingTpl.Execute(&buf, struct {
		URI       string
		HasParent bool
		Names     []string
	}{uri, uri != "/", sorted})

	resp := New(200)
	resp.AddHeader("Content-Type", "text/html")
	resp.SetBody(buf.Bytes())
	return resp
}
