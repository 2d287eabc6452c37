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

// Package dispatch is the ordered policy-gate that turns a complete request
// into a response: body-size limit, routing, method allow-list, redirect,
// then the per-method handler (static GET/DELETE, upload or CGI on POST).
package dispatch

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/nabbar/golib/internal/cgi"
	"github.com/nabbar/golib/internal/config"
	"github.com/nabbar/golib/internal/httpparse"
	"github.com/nabbar/golib/internal/respond"
	"github.com/nabbar/golib/internal/router"
	"github.com/nabbar/golib/internal/static"
	"github.com/nabbar/golib/internal/upload"
)

// Dispatcher wires the per-connection, per-request handling described by
// SPEC_FULL.md §4.F.
type Dispatcher struct {
	FS  afero.Fs
	Cgi *cgi.Invoker
}

// New returns a Dispatcher backed by fs for static/upload file access and
// inv for CGI invocation.
func New(fs afero.Fs, inv *cgi.Invoker) *Dispatcher {
	return &Dispatcher{FS: fs, Cgi: inv}
}

// Dispatch runs the ordered policy gates against req under srv and returns
// the response to send back.
func (d *Dispatcher) Dispatch(ctx context.Context, req *httpparse.Request, srv *config.ServerConfig, remoteAddr string) *respond.Response {
	if uint64(len(req.Body)) > srv.ClientMaxBodySize.Uint64() {
		return respond.ErrorPage(413, srv.ErrorPages[413])
	}

	uriPath := req.Path()
	route := router.Match(srv, uriPath)
	if route == nil {
		return respond.ErrorPage(404, srv.ErrorPages[404])
	}

	if !route.AllowsMethod(req.Method) {
		return respond.ErrorPage(405, srv.ErrorPages[405])
	}

	if route.Redirect != nil {
		resp := respond.New(route.Redirect.Code)
		resp.AddHeader("Location", route.Redirect.Location)
		resp.SetBody(nil)
		return resp
	}

	fsPath := resolvePath(route, uriPath)

	switch req.Method {
	case "GET":
		return d.dispatchGet(ctx, req, srv, route, fsPath, uriPath, remoteAddr)
	case "POST":
		return d.dispatchPost(ctx, req, srv, route, fsPath, remoteAddr)
	case "DELETE":
		return d.dispatchDelete(fsPath)
	default:
		return respond.ErrorPage(405, srv.ErrorPages[405])
	}
}

func resolvePath(route *config.Route, uriPath string) string {
	root := route.Root
	if root == "" {
		root = "."
	}
	return path.Join(root, router.StripPrefix(route, uriPath))
}

func (d *Dispatcher) dispatchGet(ctx context.Context, req *httpparse.Request, srv *config.ServerConfig, route *config.Route, fsPath, uriPath, remoteAddr string) *respond.Response {
	if route.CgiExtension != "" && strings.HasSuffix(fsPath, route.CgiExtension) {
		if info, err := d.FS.Stat(fsPath); err == nil && !info.IsDir() {
			return d.invokeCgi(ctx, req, srv, route, fsPath, remoteAddr)
		}
	}

	return static.Serve(d.FS, fsPath, uriPath, route, srv.ErrorPages)
}

func (d *Dispatcher) dispatchPost(ctx context.Context, req *httpparse.Request, srv *config.ServerConfig, route *config.Route, fsPath, remoteAddr string) *respond.Response {
	if ct, ok := req.Header("content-type"); ok && strings.Contains(ct, "multipart/form-data") {
		return upload.Store(d.FS, route.UploadDir, req.Body, time.Now())
	}

	if route.CgiExtension != "" && strings.HasSuffix(req.Path(), route.CgiExtension) {
		return d.invokeCgi(ctx, req, srv, route, fsPath, remoteAddr)
	}

	resp := respond.New(200)
	resp.AddHeader("Content-Type", "text/plain")
	resp.SetBody([]byte("POST request received"))
	return resp
}

func (d *Dispatcher) dispatchDelete(fsPath string) *respond.Response {
	if err := d.FS.Remove(fsPath); err != nil {
		return respond.ErrorPage(404, "")
	}
	return respond.New(204)
}

func (d *Dispatcher) invokeCgi(ctx context.Context, req *httpparse.Request, srv *config.ServerConfig, route *config.Route, fsPath, remoteAddr string) *respond.Response {
	resp, _, err := d.Cgi.Invoke(ctx, cgi.Request{
		CgiPath:      route.CgiPath,
		ScriptPath:   fsPath,
		ServerName:   srv.Host,
		ServerPort:   srv.Port,
		RemoteAddr:   remoteAddr,
		HTTPRequest:  req,
		ErrorPage500: srv.ErrorPages[500],
	})
	if err != nil {
		return respond.ErrorPage(500, srv.ErrorPages[500])
	}
	return resp
}
