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

//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

type kqueueReactor struct {
	kq int
	// interest tracks what each fd is currently registered for, since
	// kqueue registers read/write filters independently.
	interest map[int]Interest
}

// New returns the BSD/Darwin kqueue-backed Reactor.
func New() (Reactor, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, ErrorOsError.Error(err)
	}
	return &kqueueReactor{kq: fd, interest: make(map[int]Interest)}, nil
}

func (r *kqueueReactor) changesFor(fd int, interest Interest, enable bool) []unix.Kevent_t {
	flag := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if !enable {
		flag = unix.EV_DELETE
	}

	var changes []unix.Kevent_t
	if interest&Read != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flag})
	}
	if interest&Write != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flag})
	}
	return changes
}

func (r *kqueueReactor) apply(changes []unix.Kevent_t) error {
	if len(changes) == 0 {
		return nil
	}
	if _, err := unix.Kevent(r.kq, changes, nil, nil); err != nil {
		return ErrorOsError.Error(err)
	}
	return nil
}

func (r *kqueueReactor) Add(fd int, interest Interest) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return ErrorOsError.Error(err)
	}
	if err := r.apply(r.changesFor(fd, interest, true)); err != nil {
		return err
	}
	r.interest[fd] = interest
	return nil
}

func (r *kqueueReactor) Modify(fd int, interest Interest) error {
	old := r.interest[fd]

	var changes []unix.Kevent_t
	changes = append(changes, r.changesFor(fd, old&^interest, false)...)
	changes = append(changes, r.changesFor(fd, interest&^old, true)...)

	if err := r.apply(changes); err != nil {
		return err
	}
	r.interest[fd] = interest
	return nil
}

func (r *kqueueReactor) Delete(fd int) error {
	old := r.interest[fd]
	if err := r.apply(r.changesFor(fd, old, false)); err != nil {
		return err
	}
	delete(r.interest, fd)
	return nil
}

func (r *kqueueReactor) Wait(events []Event, timeoutMs int) (int, error) {
	raw := make([]unix.Kevent_t, len(events))

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		d := time.Duration(timeoutMs) * time.Millisecond
		t := unix.NsecToTimespec(d.Nanoseconds())
		ts = &t
	}

	var n int
	var err error
	for {
		n, err = unix.Kevent(r.kq, nil, raw, ts)
		if err == unix.EINTR {
			continue
		}
		break
	}
	if err != nil {
		return 0, ErrorOsError.Error(err)
	}

	merged := make(map[int]Interest, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		fd := int(raw[i].Ident)
		if _, seen := merged[fd]; !seen {
			order = append(order, fd)
		}

		switch raw[i].Filter {
		case unix.EVFILT_READ:
			merged[fd] |= Read
		case unix.EVFILT_WRITE:
			merged[fd] |= Write
		}
		if raw[i].Flags&(unix.EV_ERROR|unix.EV_EOF) != 0 {
			merged[fd] |= Read
		}
	}

	for i, fd := range order {
		events[i] = Event{Fd: fd, Ready: merged[fd]}
	}

	return len(order), nil
}

func (r *kqueueReactor) Close() error {
	if err := unix.Close(r.kq); err != nil {
		return ErrorOsError.Error(err)
	}
	return nil
}
