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

// Package reactor is the readiness multiplexer the event loop polls:
// epoll on Linux, kqueue on BSD/Darwin, behind one uniform interface.
package reactor

// Interest is a bitmask of readiness conditions a file descriptor is
// registered for.
type Interest uint8

const (
	Read Interest = 1 << iota
	Write
)

// Event reports one ready file descriptor and which interests fired.
type Event struct {
	Fd    int
	Ready Interest
}

// Reactor is the uniform readiness-polling interface backing the event
// loop; Linux gets an epoll implementation, BSD/Darwin a kqueue one.
type Reactor interface {
	Add(fd int, interest Interest) error
	Modify(fd int, interest Interest) error
	Delete(fd int) error
	Wait(events []Event, timeoutMs int) (int, error)
	Close() error
}
