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
 *
 */

package errors

// CodeError ranges, one block per package that raises coded errors.
// Each package claims 100 codes; add new packages at the next free block
// rather than renumbering existing ones.
const (
	MinPkgConfig    = 100
	MinPkgReactor   = 200
	MinPkgHttpParse = 300
	MinPkgRouter    = 400
	MinPkgDispatch  = 500
	MinPkgStatic    = 600
	MinPkgUpload    = 700
	MinPkgCgi       = 800
	MinPkgSession   = 900
	MinPkgServer    = 1000

	MinPkgLogger       = 1100
	MinPkgLoggerConfig = 1200
	MinPkgIOUtils      = 1300

	MinAvailable = 1400
)
