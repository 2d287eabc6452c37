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

// Package cgi spawns a CGI/1.1 script and turns its output into a response.
// Invocation is serialized through a weighted semaphore so a future
// relaxation to a small worker pool only needs to raise the weight.
package cgi

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/nabbar/golib/internal/httpparse"
	"github.com/nabbar/golib/internal/respond"
)

// Invoker runs CGI scripts, gated by a weighted semaphore.
type Invoker struct {
	sem *semaphore.Weighted
}

// New returns an Invoker allowing up to weight concurrent CGI children.
// A weight of 1 is fully synchronous, matching the default behavior.
func New(weight int64) *Invoker {
	if weight < 1 {
		weight = 1
	}
	return &Invoker{sem: semaphore.NewWeighted(weight)}
}

// Request describes one invocation.
type Request struct {
	CgiPath      string
	ScriptPath   string
	ServerName   string
	ServerPort   int
	RemoteAddr   string
	HTTPRequest  *httpparse.Request

	// ErrorPage500 is the operator-configured custom page for a non-zero
	// script exit, passed through from ServerConfig.ErrorPages[500].
	ErrorPage500 string
}

// Invoke runs the script and returns the resulting response along with
// whatever the child wrote to stderr.
func (inv *Invoker) Invoke(ctx context.Context, r Request) (*respond.Response, string, error) {
	if err := inv.sem.Acquire(ctx, 1); err != nil {
		return nil, "", err
	}
	defer inv.sem.Release(1)

	cmd := exec.CommandContext(ctx, r.CgiPath, r.ScriptPath)
	cmd.Dir = filepath.Dir(r.ScriptPath)
	cmd.Env = buildEnv(r)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, "", err
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, "", err
	}

	if _, err := stdin.Write(r.HTTPRequest.Body); err != nil {
		_ = stdin.Close()
		return nil, stderr.String(), err
	}
	_ = stdin.Close()

	runErr := cmd.Wait()
	if runErr != nil {
		return respond.ErrorPage(500, r.ErrorPage500), stderr.String(), nil
	}

	return parseOutput(stdout.Bytes()), stderr.String(), nil
}

func buildEnv(r Request) []string {
	env := []string{
		"GATEWAY_INTERFACE=CGI/1.1",
		"SERVER_PROTOCOL=HTTP/1.1",
		"SERVER_SOFTWARE=Webserv/1.0",
		"REQUEST_METHOD=" + r.HTTPRequest.Method,
		"QUERY_STRING=" + r.HTTPRequest.Query(),
		"SCRIPT_FILENAME=" + r.ScriptPath,
		"SCRIPT_NAME=" + r.ScriptPath,
		"SERVER_NAME=" + r.ServerName,
		"SERVER_PORT=" + strconv.Itoa(r.ServerPort),
		"REMOTE_ADDR=" + r.RemoteAddr,
	}

	if pi := pathInfo(r.ScriptPath); pi != "" {
		env = append(env, "PATH_INFO="+pi)
	}
	if ct, ok := r.HTTPRequest.Header("content-type"); ok {
		env = append(env, "CONTENT_TYPE="+ct)
	}
	if len(r.HTTPRequest.Body) > 0 {
		env = append(env, "CONTENT_LENGTH="+strconv.Itoa(len(r.HTTPRequest.Body)))
	}

	for name, value := range r.HTTPRequest.Headers {
		env = append(env, "HTTP_"+headerEnvName(name)+"="+value)
	}

	return env
}

func headerEnvName(name string) string {
	upper := strings.ToUpper(name)
	return strings.ReplaceAll(upper, "-", "_")
}

// pathInfo returns the substring starting at the first '/' that follows the
// last '.' in scriptPath, or "" if the pattern is absent.
func pathInfo(scriptPath string) string {
	dot := strings.LastIndexByte(scriptPath, '.')
	if dot < 0 {
		return ""
	}
	rest := scriptPath[dot:]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return ""
	}
	return rest[slash:]
}

func parseOutput(out []byte) *respond.Response {
	sep := []byte("\r\n\r\n")
	idx := bytes.Index(out, sep)
	if idx < 0 {
		sep = []byte("\n\n")
		idx = bytes.Index(out, sep)
	}

	if idx < 0 {
		resp := respond.New(200)
		resp.AddHeader("Content-Type", "text/html")
		resp.SetBody(out)
		return resp
	}

	headerBlock := out[:idx]
	body := out[idx+len(sep):]

	code := 200
	hasContentType := false
	resp := respond.New(code)

	scanner := bufio.NewScanner(bytes.NewReader(headerBlock))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ci := strings.IndexByte(line, ':')
		if ci < 0 {
			continue
		}
		rawName := strings.TrimSpace(line[:ci])
		name := strings.ToLower(rawName)
		value := strings.TrimSpace(line[ci+1:])

		if name == "status" {
			fields := strings.Fields(value)
			if len(fields) > 0 {
				if n, err := strconv.Atoi(fields[0]); err == nil {
					code = n
				}
			}
			continue
		}

		if name == "content-type" {
			hasContentType = true
		}
		resp.AddHeader(rawName, value)
	}

	if !hasContentType {
		resp.AddHeader("Content-Type", "text/html")
	}

	resp.Code = code
	resp.SetBody(body)
	return resp
}
