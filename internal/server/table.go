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

import "time"

// connTable maps a file descriptor to its Client. It is only ever touched
// from the event-loop goroutine, so it needs no locking.
type connTable struct {
	m map[int]*Client
}

func newConnTable() *connTable {
	return &connTable{m: make(map[int]*Client)}
}

func (t *connTable) insert(c *Client) {
	t.m[c.Fd] = c
}

func (t *connTable) get(fd int) (*Client, bool) {
	c, ok := t.m[fd]
	return c, ok
}

func (t *connTable) remove(fd int) {
	delete(t.m, fd)
}

func (t *connTable) len() int {
	return len(t.m)
}

// sweepIdle returns every client whose last activity predates the idle
// timeout, relative to now.
func (t *connTable) sweepIdle(now time.Time) []*Client {
	var idle []*Client
	for _, c := range t.m {
		if c.idleSince(now) {
			idle = append(idle, c)
		}
	}
	return idle
}
