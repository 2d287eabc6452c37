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

// Package server is the single-threaded, readiness-driven event loop: it
// multiplexes listeners and client connections over the reactor, drives
// the parser and dispatcher, and owns the connection table.
package server

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/golib/internal/config"
	"github.com/nabbar/golib/internal/dispatch"
	"github.com/nabbar/golib/internal/monitor"
	"github.com/nabbar/golib/internal/reactor"
	"github.com/nabbar/golib/internal/respond"
	"github.com/nabbar/golib/internal/session"
	"github.com/nabbar/golib/logger"
)

const sessionSweepInterval = time.Hour

// Server owns the reactor, the connection table, and every bound listener
// for the process.
type Server struct {
	cfg        *config.Config
	react      reactor.Reactor
	conns      *connTable
	listeners  map[int]*listener
	dispatcher *dispatch.Dispatcher
	sessions   *session.Table
	log        logger.Logger
	mon        *monitor.Monitor

	lastSweep time.Time
}

// AttachMonitor wires an optional diagnostics surface; gauges and counters
// are updated from here on as connections open/close and responses are
// dispatched. A nil or never-attached monitor is a no-op.
func (s *Server) AttachMonitor(m *monitor.Monitor) {
	s.mon = m
	if m != nil {
		m.ListenerCount.Set(float64(len(s.listeners)))
	}
}

// New builds a Server for cfg, binding one listener per ServerConfig.
func New(cfg *config.Config, disp *dispatch.Dispatcher, sessions *session.Table, log logger.Logger) (*Server, error) {
	react, err := reactor.New()
	if err != nil {
		return nil, ErrorReactorSetup.Error(err)
	}

	s := &Server{
		cfg:        cfg,
		react:      react,
		conns:      newConnTable(),
		listeners:  make(map[int]*listener),
		dispatcher: disp,
		sessions:   sessions,
		log:        log,
		lastSweep:  time.Now(),
	}

	for i := range cfg.Servers {
		srv := &cfg.Servers[i]
		l, err := bindListener(srv)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		if err := react.Add(l.fd, reactor.Read); err != nil {
			_ = s.Close()
			return nil, err
		}
		s.listeners[l.fd] = l
	}

	return s, nil
}

// Close tears down every listener, open client connection, and the
// reactor itself.
func (s *Server) Close() error {
	for fd := range s.conns.m {
		_ = unix.Close(fd)
	}
	for fd, l := range s.listeners {
		_ = l.close()
		delete(s.listeners, fd)
	}
	if s.react != nil {
		return s.react.Close()
	}
	return nil
}

// ConnectionCount reports the number of currently tracked client
// connections, for the monitor and graceful-shutdown drain.
func (s *Server) ConnectionCount() int {
	return s.conns.len()
}

// RunOnce executes one iteration of the main loop: session sweep, reactor
// wait (bounded by waitMs), timeout sweep, then per-event handling.
func (s *Server) RunOnce(ctx context.Context, waitMs int) error {
	now := time.Now()
	if now.Sub(s.lastSweep) >= sessionSweepInterval {
		removed := s.sessions.Sweep(now)
		if removed > 0 && s.log != nil {
			s.log.Info("session sweep removed expired entries", removed)
		}
		s.lastSweep = now
	}

	events := make([]reactor.Event, 128)
	n, err := s.react.Wait(events, waitMs)
	if err != nil {
		return err
	}

	s.sweepTimeouts(time.Now())

	for i := 0; i < n; i++ {
		s.handleEvent(ctx, events[i])
	}

	return nil
}

func (s *Server) sweepTimeouts(now time.Time) {
	for _, c := range s.conns.sweepIdle(now) {
		s.closeClient(c)
	}
}

func (s *Server) handleEvent(ctx context.Context, ev reactor.Event) {
	if l, isListener := s.listeners[ev.Fd]; isListener {
		s.acceptAll(l)
		return
	}

	c, ok := s.conns.get(ev.Fd)
	if !ok {
		return
	}

	if ev.Ready&reactor.Read != 0 && c.State == stateReading {
		s.handleRead(ctx, c)
		return
	}
	if ev.Ready&reactor.Write != 0 && c.State == stateWriting {
		s.handleWrite(c)
		return
	}

	// A readiness bit that doesn't match the client's current state (e.g.
	// EPOLLERR/EPOLLHUP folded into Read while the connection is writing)
	// means the peer hung up or errored; don't wait for the idle sweep.
	s.closeClient(c)
}

func (s *Server) acceptAll(l *listener) {
	for {
		fd, remote, ok, err := acceptOne(l.fd)
		if err != nil {
			if s.log != nil {
				s.log.Warning("accept failed", err)
			}
			return
		}
		if !ok {
			return
		}

		c := newClient(fd, remote, l.server, time.Now())
		if err := s.react.Add(fd, reactor.Read); err != nil {
			_ = unix.Close(fd)
			continue
		}
		s.conns.insert(c)
		if s.mon != nil {
			s.mon.ActiveConnections.Set(float64(s.conns.len()))
		}
	}
}

func (s *Server) handleRead(ctx context.Context, c *Client) {
	buf := make([]byte, bufferSize)
	n, err := unix.Read(c.Fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		s.closeClient(c)
		return
	}
	if n == 0 {
		s.closeClient(c)
		return
	}

	c.touch(time.Now())

	done, perr := c.Parser.Feed(buf[:n], &c.Request)
	if perr != nil {
		s.sendBadRequest(c, perr)
		return
	}
	if !done {
		return
	}

	resp := s.dispatcher.Dispatch(ctx, &c.Request, c.Server, c.RemoteAddr)
	s.sendResponse(c, resp)
}

func (s *Server) sendBadRequest(c *Client, cause error) {
	if s.log != nil {
		s.log.Error("request parse error", cause)
	}

	if s.mon != nil {
		s.mon.ObserveStatus(400)
	}

	resp := badRequestResponse()
	c.armWrite(resp)
	_ = s.react.Modify(c.Fd, reactor.Write)
}

// sendResponse applies the cookie/session side effect described by §4.J,
// serializes resp, and re-arms the connection for writing.
func (s *Server) sendResponse(c *Client, resp *respond.Response) {
	s.applySessionCookie(c, resp)

	if s.mon != nil {
		s.mon.ObserveStatus(resp.Code)
	}

	c.armWrite(resp.Serialize())
	if err := s.react.Modify(c.Fd, reactor.Write); err != nil {
		s.closeClient(c)
	}
}

func (s *Server) applySessionCookie(c *Client, resp *respond.Response) {
	if cookie, ok := c.Request.Header("cookie"); ok {
		if id, found := sessionIDFromCookie(cookie); found {
			if _, exists := s.sessions.Get(id); exists {
				return
			}
		}
	}

	id, err := s.sessions.Create()
	if err != nil {
		if s.log != nil {
			s.log.Warning("session creation failed", err)
		}
		return
	}

	resp.AddHeader("Set-Cookie", "sessionid="+id+"; Path=/; HttpOnly; Max-Age=3600")
}

func badRequestResponse() []byte {
	return respond.ErrorPage(400, "").Serialize()
}

func sessionIDFromCookie(cookie string) (string, bool) {
	for _, part := range strings.Split(cookie, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] == "sessionid" {
			return kv[1], true
		}
	}
	return "", false
}

func (s *Server) handleWrite(c *Client) {
	n, err := unix.Write(c.Fd, c.remaining())
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		s.closeClient(c)
		return
	}

	c.touch(time.Now())

	if c.advance(n) {
		c.resetForNextRequest()
		if err := s.react.Modify(c.Fd, reactor.Read); err != nil {
			s.closeClient(c)
		}
	}
}

func (s *Server) closeClient(c *Client) {
	_ = s.react.Delete(c.Fd)
	_ = unix.Close(c.Fd)
	s.conns.remove(c.Fd)
	if s.mon != nil {
		s.mon.ActiveConnections.Set(float64(s.conns.len()))
	}
}
