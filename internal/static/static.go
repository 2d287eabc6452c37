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

// Package static serves files and directory listings through an afero.Fs
// abstraction, so tests can substitute an in-memory filesystem.
package static

import (
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/nabbar/golib/internal/config"
	"github.com/nabbar/golib/internal/respond"
)

var contentTypeByExt = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
}

// ContentType returns the Content-Type for a file name by extension,
// defaulting to application/octet-stream.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := contentTypeByExt[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Serve resolves fsPath on fs and returns the appropriate response: the
// file's contents, the first existing index file for a directory, a
// generated listing if autoindex is set, or a 403/404. errorPages maps a
// status code to a custom error page path, per ServerConfig.ErrorPages.
func Serve(fs afero.Fs, fsPath, uriPath string, route *config.Route, errorPages map[int]string) *respond.Response {
	info, err := fs.Stat(fsPath)
	if err != nil {
		return respond.ErrorPage(404, errorPages[404])
	}

	if !info.IsDir() {
		return serveFile(fs, fsPath)
	}

	for _, idx := range route.Index {
		candidate := path.Join(fsPath, idx)
		if fi, err := fs.Stat(candidate); err == nil && !fi.IsDir() {
			return serveFile(fs, candidate)
		}
	}

	if route.Autoindex {
		return listDirectory(fs, fsPath, uriPath)
	}

	return respond.ErrorPage(403, errorPages[403])
}

func serveFile(fs afero.Fs, fsPath string) *respond.Response {
	data, err := afero.ReadFile(fs, fsPath)
	if err != nil {
		return respond.ErrorPage(404, "")
	}

	resp := respond.New(200)
	resp.AddHeader("Content-Type", ContentType(fsPath))
	resp.SetBody(data)
	return resp
}

func listDirectory(fs afero.Fs, fsPath, uriPath string) *respond.Response {
	entries, err := afero.ReadDir(fs, fsPath)
	if err != nil {
		return respond.ErrorPage(500, "")
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	return respond.DirectoryListing(uriPath, names)
}
