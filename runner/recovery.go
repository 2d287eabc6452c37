/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

// Package runner gathers small helpers shared by the lifecycle-management
// subpackages (startStop): panic recovery for goroutines that must
// never take the process down with them.
package runner

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"
)

// RecoveryCaller logs a panic recovered from a managed goroutine along with
// its caller name and stack trace. It is meant to be used as:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        runner.RecoveryCaller("pkg/func", r)
//	    }
//	}()
//
// A nil recovered value is ignored.
func RecoveryCaller(caller string, recovered interface{}) {
	if recovered == nil {
		return
	}

	_, _ = fmt.Fprintf(os.Stderr, "%s panic recovered in %q: %v\n%s\n",
		time.Now().Format(time.RFC3339), caller, recovered, debug.Stack())
}
