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

// Package router resolves a request URI against a server's configured
// locations by strict longest-prefix match.
package router

import (
	"strings"

	"github.com/nabbar/golib/internal/config"
)

// Match returns the Route whose Path is the longest prefix of uriPath among
// srv's Routes, or nil if none matches. uriPath must already have any query
// string stripped by the caller.
func Match(srv *config.ServerConfig, uriPath string) *config.Route {
	var best *config.Route
	bestLen := -1

	for i := range srv.Routes {
		r := &srv.Routes[i]
		if !strings.HasPrefix(uriPath, r.Path) {
			continue
		}
		if len(r.Path) > bestLen {
			best = r
			bestLen = len(r.Path)
		}
	}

	return best
}

// StripPrefix removes route's Path prefix from uriPath and trims any
// leading slashes from what remains, for joining beneath route.Root.
func StripPrefix(route *config.Route, uriPath string) string {
	rest := strings.TrimPrefix(uriPath, route.Path)
	return strings.TrimLeft(rest, "/")
}
