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

// Package upload writes a request body verbatim beneath a route's upload
// directory. Multipart decoding is a non-goal; the raw body is dumped as
// one file.
package upload

import (
	"path"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/nabbar/golib/internal/respond"
)

// Store writes body to a new file under uploadDir, named by the current
// time, and returns the resulting response.
func Store(fs afero.Fs, uploadDir string, body []byte, now time.Time) *respond.Response {
	if uploadDir == "" {
		return respond.ErrorPage(500, "")
	}

	if err := fs.MkdirAll(uploadDir, 0o755); err != nil {
		return respond.ErrorPage(500, "")
	}

	name := "upload_" + strconv.FormatInt(now.Unix(), 10) + ".bin"
	dest := path.Join(uploadDir, name)

	if err := afero.WriteFile(fs, dest, body, 0o644); err != nil {
		return respond.ErrorPage(500, "")
	}

	resp := respond.New(201)
	resp.AddHeader("Content-Type", "text/plain")
	resp.SetBody([]byte("stored as " + name))
	return resp
}
