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

package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	libsiz "github.com/nabbar/golib/size"
)

// Load reads, parses, decodes and validates the configuration file at path,
// per SPEC_FULL.md §4.L / §6.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %q: %w", path, err)
	}

	blocks, err := parseFile(string(raw))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	for _, b := range blocks {
		sc, err := decodeServer(b)
		if err != nil {
			return nil, err
		}
		cfg.Servers = append(cfg.Servers, sc)
	}

	if err := validateDuplicateListeners(cfg.Servers); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

var validate = validator.New()

func decodeServer(b rawBlock) (ServerConfig, error) {
	m := map[string]interface{}{
		"client_max_body_size": strconv.Itoa(int(DefaultClientMaxBodySize)),
	}

	if args, ok := b.get("listen"); ok && len(args) > 0 {
		host, port, err := splitHostPort(args[0])
		if err != nil {
			return ServerConfig{}, err
		}
		m["host"] = host
		m["port"] = port
	} else {
		m["host"] = DefaultHost
		m["port"] = DefaultPort
	}

	var names []string
	for _, args := range b.getAll("server_name") {
		names = append(names, args...)
	}
	m["server_name"] = names

	pages := map[int]string{}
	for _, args := range b.getAll("error_page") {
		if len(args) != 2 {
			continue
		}
		code, err := strconv.Atoi(args[0])
		if err != nil {
			return ServerConfig{}, fmt.Errorf("config: invalid error_page code %q", args[0])
		}
		pages[code] = args[1]
	}
	m["error_page"] = pages

	if args, ok := b.get("client_max_body_size"); ok && len(args) > 0 {
		m["client_max_body_size"] = args[0]
	}

	var sc ServerConfig
	if err := decodeWithSizeHook(m, &sc); err != nil {
		return ServerConfig{}, fmt.Errorf("config: decoding server block: %w", err)
	}

	for _, c := range b.children {
		if c.name != "location" {
			continue
		}
		route, err := decodeLocation(c)
		if err != nil {
			return ServerConfig{}, err
		}
		sc.Routes = append(sc.Routes, route)
	}

	if len(sc.Routes) == 0 {
		sc.Routes = append(sc.Routes, DefaultRoute())
	}

	return sc, nil
}

func decodeLocation(b rawBlock) (Route, error) {
	path := "/"
	if len(b.args) > 0 {
		path = b.args[0]
	}

	m := map[string]interface{}{
		"path":  path,
		"index": append([]string(nil), DefaultIndex...),
	}

	var methods []string
	for _, args := range b.getAll("allow_methods") {
		methods = append(methods, args...)
	}
	if len(methods) == 0 {
		methods = append([]string(nil), DefaultMethods...)
	}
	m["allow_methods"] = methods

	if args, ok := b.get("root"); ok && len(args) > 0 {
		m["root"] = args[0]
	}

	var index []string
	for _, args := range b.getAll("index") {
		index = append(index, args...)
	}
	if len(index) > 0 {
		m["index"] = index
	}

	if args, ok := b.get("autoindex"); ok && len(args) > 0 {
		m["autoindex"] = strings.EqualFold(args[0], "on")
	}

	if args, ok := b.get("cgi_extension"); ok && len(args) > 0 {
		m["cgi_extension"] = args[0]
	}
	if args, ok := b.get("cgi_path"); ok && len(args) > 0 {
		m["cgi_path"] = args[0]
	}
	if args, ok := b.get("upload_dir"); ok && len(args) > 0 {
		m["upload_dir"] = args[0]
	}

	var r Route
	if err := decodeWithSizeHook(m, &r); err != nil {
		return Route{}, fmt.Errorf("config: decoding location %q: %w", path, err)
	}

	if args, ok := b.get("return"); ok && len(args) == 2 {
		code, err := strconv.Atoi(args[0])
		if err != nil {
			return Route{}, fmt.Errorf("config: invalid return code %q", args[0])
		}
		r.Redirect = &Redirect{Code: code, Location: args[1]}
	}

	return r, nil
}

// decodeWithSizeHook decodes m into out using mapstructure, with a decode
// hook that lets any libsiz.Size-typed field accept the "10M"/"1K"/"1G"
// directive values straight from the tokenizer.
func decodeWithSizeHook(m map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       sizeDecodeHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

func sizeDecodeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(libsiz.Size(0)) {
		return data, nil
	}

	switch v := data.(type) {
	case libsiz.Size:
		return v, nil
	case string:
		return libsiz.Parse(v)
	default:
		return data, nil
	}
}

// validateDuplicateListeners reports every server pair that shares the same
// host:port, using go-multierror so all collisions surface in one pass.
func validateDuplicateListeners(servers []ServerConfig) error {
	var (
		seen   = make(map[string]int)
		result *multierror.Error
	)

	for i, s := range servers {
		key := s.HostPort()
		if first, ok := seen[key]; ok {
			result = multierror.Append(result, fmt.Errorf(
				"config: servers #%d and #%d both listen on %s", first, i, key))
			continue
		}
		seen[key] = i
	}

	if result != nil {
		return result.ErrorOrNil()
	}
	return nil
}
