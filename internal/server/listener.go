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

package server

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/nabbar/golib/internal/config"
)

// listener is one bound, listening, non-blocking socket for one
// ServerConfig.
type listener struct {
	fd     int
	server *config.ServerConfig
}

// bindListener opens a TCP listening socket for srv's host:port, sets it
// non-blocking, and returns the raw file descriptor backing it.
func bindListener(srv *config.ServerConfig) (*listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, ErrorListenerBind.Error(err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, ErrorListenerBind.Error(err)
	}

	ip := net.ParseIP(srv.Host)
	if ip == nil {
		ip = net.IPv4zero
	}
	ip4 := ip.To4()
	if ip4 == nil {
		_ = unix.Close(fd)
		return nil, ErrorListenerBind.Error(nil)
	}

	addr := &unix.SockaddrInet4{Port: srv.Port}
	copy(addr.Addr[:], ip4)

	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, ErrorListenerBind.Error(err)
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return nil, ErrorListenerBind.Error(err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, ErrorListenerBind.Error(err)
	}

	return &listener{fd: fd, server: srv}, nil
}

func (l *listener) close() error {
	return unix.Close(l.fd)
}

// acceptOne accepts a single pending connection and returns its fd and
// peer address, or ok=false once EAGAIN/EWOULDBLOCK is hit.
func acceptOne(listenFd int) (fd int, remoteAddr string, ok bool, err error) {
	nfd, sa, aerr := unix.Accept(listenFd)
	if aerr != nil {
		if aerr == unix.EAGAIN || aerr == unix.EWOULDBLOCK {
			return 0, "", false, nil
		}
		return 0, "", false, ErrorAcceptFailed.Error(aerr)
	}

	if err := unix.SetNonblock(nfd, true); err != nil {
		_ = unix.Close(nfd)
		return 0, "", false, ErrorAcceptFailed.Error(err)
	}

	return nfd, sockaddrToString(sa), true, nil
}

func sockaddrToString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(a.Addr[:])
		return net.JoinHostPort(ip.String(), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		ip := net.IP(a.Addr[:])
		return net.JoinHostPort(ip.String(), strconv.Itoa(a.Port))
	default:
		return ""
	}
}
