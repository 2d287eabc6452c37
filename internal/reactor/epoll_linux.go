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

//go:build linux

package reactor

import (
	"golang.org/x/sys/unix"
)

type epollReactor struct {
	epfd int
}

// New returns the Linux epoll-backed Reactor.
func New() (Reactor, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, ErrorOsError.Error(err)
	}
	return &epollReactor{epfd: fd}, nil
}

func toEpollEvents(i Interest) uint32 {
	var ev uint32
	if i&Read != 0 {
		ev |= unix.EPOLLIN
	}
	if i&Write != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func (r *epollReactor) Add(fd int, interest Interest) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return ErrorOsError.Error(err)
	}
	ev := &unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return ErrorOsError.Error(err)
	}
	return nil
}

func (r *epollReactor) Modify(fd int, interest Interest) error {
	ev := &unix.EpollEvent{Events: toEpollEvents(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return ErrorOsError.Error(err)
	}
	return nil
}

func (r *epollReactor) Delete(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return ErrorOsError.Error(err)
	}
	return nil
}

func (r *epollReactor) Wait(events []Event, timeoutMs int) (int, error) {
	raw := make([]unix.EpollEvent, len(events))

	var n int
	var err error
	for {
		n, err = unix.EpollWait(r.epfd, raw, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		break
	}
	if err != nil {
		return 0, ErrorOsError.Error(err)
	}

	for i := 0; i < n; i++ {
		var ready Interest
		if raw[i].Events&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			ready |= Read
		}
		if raw[i].Events&unix.EPOLLOUT != 0 {
			ready |= Write
		}
		events[i] = Event{Fd: int(raw[i].Fd), Ready: ready}
	}

	return n, nil
}

func (r *epollReactor) Close() error {
	if err := unix.Close(r.epfd); err != nil {
		return ErrorOsError.Error(err)
	}
	return nil
}
