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
	"fmt"
	"strconv"
	"strings"
)

// rawBlock is the parsed directive tree: a block or directive name, its
// arguments, and its nested directives. decodeServer/decodeLocation turn it
// into the maps handed to mapstructure.
type rawBlock struct {
	name     string
	args     []string
	children []rawBlock
}

// parseFile splits the token stream into one rawBlock per top-level `server`
// block.
func parseFile(src string) ([]rawBlock, error) {
	toks := lex(src)
	p := &blockParser{toks: toks}

	var servers []rawBlock

	for !p.atEOF() {
		if p.peekWord() != "server" {
			return nil, fmt.Errorf("config: expected 'server' block, got %q", p.cur().text)
		}

		p.next()
		blk, err := p.parseBlock("server")
		if err != nil {
			return nil, err
		}
		servers = append(servers, blk)
	}

	return servers, nil
}

type blockParser struct {
	toks []token
	pos  int
}

func (p *blockParser) cur() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *blockParser) next() token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *blockParser) atEOF() bool {
	return p.cur().kind == tokEOF
}

func (p *blockParser) peekWord() string {
	if p.cur().kind == tokWord {
		return p.cur().text
	}
	return ""
}

// parseBlock consumes a `{ directive; directive; nested { ... } }` body and
// returns it as a rawBlock named `name`.
func (p *blockParser) parseBlock(name string) (rawBlock, error) {
	if p.cur().kind != tokLBrace {
		return rawBlock{}, fmt.Errorf("config: expected '{' after %q", name)
	}
	p.next()

	blk := rawBlock{name: name}

	for {
		if p.cur().kind == tokRBrace {
			p.next()
			return blk, nil
		}
		if p.cur().kind == tokEOF {
			return rawBlock{}, fmt.Errorf("config: unexpected end of file inside %q block", name)
		}
		if p.cur().kind != tokWord {
			return rawBlock{}, fmt.Errorf("config: unexpected token inside %q block", name)
		}

		directive := p.next().text

		var args []string
		for p.cur().kind == tokWord {
			args = append(args, p.next().text)
		}

		switch p.cur().kind {
		case tokSemi:
			p.next()
			blk.args = nil
			blk.children = append(blk.children, rawBlock{name: directive, args: args})
		case tokLBrace:
			child, err := p.parseBlock(directive)
			if err != nil {
				return rawBlock{}, err
			}
			child.args = args
			blk.children = append(blk.children, child)
		default:
			return rawBlock{}, fmt.Errorf("config: directive %q must end with ';' or a block", directive)
		}
	}
}

// get returns the arguments of the first direct child directive named n.
func (b rawBlock) get(n string) ([]string, bool) {
	for _, c := range b.children {
		if c.name == n {
			return c.args, true
		}
	}
	return nil, false
}

// getAll returns the arguments of every direct child directive named n.
func (b rawBlock) getAll(n string) [][]string {
	var out [][]string
	for _, c := range b.children {
		if c.name == n {
			out = append(out, c.args)
		}
	}
	return out
}

func splitHostPort(listen string) (string, int, error) {
	if idx := strings.LastIndex(listen, ":"); idx >= 0 {
		host := listen[:idx]
		port, err := strconv.Atoi(listen[idx+1:])
		if err != nil {
			return "", 0, fmt.Errorf("config: invalid listen port %q", listen)
		}
		if host == "" {
			host = DefaultHost
		}
		return host, port, nil
	}

	port, err := strconv.Atoi(listen)
	if err != nil {
		return "", 0, fmt.Errorf("config: invalid listen directive %q", listen)
	}
	return DefaultHost, port, nil
}
