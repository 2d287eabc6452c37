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

// Package config loads the nginx-flavored server configuration file into a
// validated, immutable tree of ServerConfig/Route values.
package config

import (
	"strconv"

	libsiz "github.com/nabbar/golib/size"
)

// Config is the top-level, read-only tree handed to the event loop.
type Config struct {
	Servers []ServerConfig `mapstructure:"server" validate:"required,dive"`
}

// ServerConfig describes one `server { ... }` block.
type ServerConfig struct {
	Host               string            `mapstructure:"host" validate:"required"`
	Port               int               `mapstructure:"port" validate:"required,min=1,max=65535"`
	ServerNames        []string          `mapstructure:"server_name"`
	ErrorPages         map[int]string    `mapstructure:"error_page"`
	ClientMaxBodySize  libsiz.Size       `mapstructure:"client_max_body_size"`
	Routes             []Route           `mapstructure:"location" validate:"dive"`
}

// HostPort returns the "host:port" key used to detect listener collisions.
func (s ServerConfig) HostPort() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

// Redirect describes an unconditional `return <code> <url>;` directive.
type Redirect struct {
	Code     int
	Location string
}

// Route describes one `location <prefix> { ... }` block.
type Route struct {
	Path         string    `mapstructure:"path" validate:"required"`
	Methods      []string  `mapstructure:"allow_methods"`
	Root         string    `mapstructure:"root"`
	Index        []string  `mapstructure:"index"`
	Autoindex    bool      `mapstructure:"autoindex"`
	Redirect     *Redirect `mapstructure:"-"`
	CgiExtension string    `mapstructure:"cgi_extension"`
	CgiPath      string    `mapstructure:"cgi_path"`
	UploadDir    string    `mapstructure:"upload_dir"`
}

// AllowsMethod reports whether the given method is part of this route's
// allow-list.
func (r Route) AllowsMethod(method string) bool {
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// Default constants from SPEC_FULL.md §6.
const (
	DefaultHost              = "127.0.0.1"
	DefaultPort              = 8080
	DefaultClientMaxBodySize = libsiz.Size(1048576)
)

// DefaultMethods is the method set used when a location omits allow_methods.
var DefaultMethods = []string{"GET", "POST", "DELETE"}

// DefaultIndex is the index list used when a location omits index.
var DefaultIndex = []string{"index.html"}

// DefaultRoute is synthesized when a server block declares no locations.
func DefaultRoute() Route {
	return Route{
		Path:      "/",
		Methods:   append([]string(nil), DefaultMethods...),
		Root:      "./www",
		Index:     append([]string(nil), DefaultIndex...),
		Autoindex: false,
	}
}
