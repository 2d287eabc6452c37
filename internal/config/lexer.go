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

package config

import (
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokLBrace
	tokRBrace
	tokSemi
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

// lex turns the nginx-flavored grammar of SPEC_FULL.md §6 into a flat token
// stream: bare words and quoted strings collapse to tokWord, `{`/`}`/`;` are
// their own tokens, `#` starts a line comment.
func lex(src string) []token {
	var (
		out []token
		i   int
		n   = len(src)
	)

	for i < n {
		c := src[i]

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '#':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '{':
			out = append(out, token{kind: tokLBrace})
			i++
		case c == '}':
			out = append(out, token{kind: tokRBrace})
			i++
		case c == ';':
			out = append(out, token{kind: tokSemi})
			i++
		case c == '"' || c == '\'':
			q := c
			j := i + 1
			for j < n && src[j] != q {
				j++
			}
			out = append(out, token{kind: tokWord, text: src[i+1 : j]})
			if j < n {
				j++
			}
			i = j
		default:
			j := i
			for j < n && !strings.ContainsRune(" \t\r\n{};#", rune(src[j])) {
				j++
			}
			out = append(out, token{kind: tokWord, text: src[i:j]})
			i = j
		}
	}

	out = append(out, token{kind: tokEOF})
	return out
}
