// Package parser turns a raw search string into an ast.Node tree.
//
// Parse is total: it never fails. Fragments the grammar cannot make
// sense of degrade to literal text nodes, and an empty or whitespace-only
// input yields nil ("no filter").
//
// Grammar, precedence low to high:
//
//	Query   := OrExpr?
//	OrExpr  := AndExpr (OR AndExpr)*
//	AndExpr := Term ((AND)? Term)*
//	Term    := '-'? Atom
//	Atom    := Selector | '(' OrExpr ')' | BracketedText | QuotedText | Word
//
// Adjacency is implicit AND. The AND and OR keywords are matched
// case-insensitively as whole tokens; an OR at term position terminates
// the running AND-sequence instead of being consumed as a term.
package parser

import (
	"strings"

	"github.com/loreline/topicsearch/internal/ast"
)

// Parse parses a query string into an AST, or nil for an empty query.
// The returned tree is normalized per ast.Normalize.
func Parse(text string) ast.Node {
	p := &parser{input: text}

	var parts []ast.Node
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		if n := p.parseOr(); n != nil {
			parts = append(parts, n)
		}
		p.skipSpace()
		if !p.eof() && p.peek() == ')' {
			// Unbalanced close paren: drop it and keep parsing.
			p.pos++
		}
	}

	switch len(parts) {
	case 0:
		return nil
	case 1:
		return ast.Normalize(parts[0])
	default:
		return ast.Normalize(&ast.And{Children: parts})
	}
}

type parser struct {
	input string
	pos   int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	return p.input[p.pos]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (p *parser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

// keywordAt reports whether the case-insensitive keyword kw starts at the
// current position as a whole token (followed by whitespace, a paren, or
// end of input).
func (p *parser) keywordAt(kw string) bool {
	end := p.pos + len(kw)
	if end > len(p.input) {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:end], kw) {
		return false
	}
	if end == len(p.input) {
		return true
	}
	next := p.input[end]
	return isSpace(next) || next == '(' || next == ')'
}

// keyword consumes kw if it starts at the current position as a whole token.
func (p *parser) keyword(kw string) bool {
	if !p.keywordAt(kw) {
		return false
	}
	p.pos += len(kw)
	return true
}

// parseOr parses an OR-expression: AndExpr (OR AndExpr)*.
func (p *parser) parseOr() ast.Node {
	var children []ast.Node
	if first := p.parseAnd(); first != nil {
		children = append(children, first)
	}
	for {
		p.skipSpace()
		if !p.keyword("OR") {
			break
		}
		if next := p.parseAnd(); next != nil {
			children = append(children, next)
		}
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return &ast.Or{Children: children}
	}
}

// parseAnd parses a run of adjacent terms. An OR keyword terminates the
// run without being consumed; an AND keyword is consumed and ignored.
func (p *parser) parseAnd() ast.Node {
	var children []ast.Node
	for {
		p.skipSpace()
		if p.eof() || p.peek() == ')' {
			break
		}
		if p.keywordAt("OR") {
			break
		}
		if p.keyword("AND") {
			continue
		}
		if t := p.parseTerm(); t != nil {
			children = append(children, t)
		}
	}
	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return &ast.And{Children: children}
	}
}

// parseTerm parses '-'? Atom, merging a leading dash into the atom's
// negation flag. A dash followed by whitespace or end of input is not a
// negation: it falls through and parses as a literal word.
func (p *parser) parseTerm() ast.Node {
	negated := false
	if p.peek() == '-' && p.pos+1 < len(p.input) && !isSpace(p.input[p.pos+1]) {
		p.pos++
		negated = true
	}
	atom := p.parseAtom()
	if atom != nil && negated {
		atom.SetNegated(!atom.Negated())
	}
	return atom
}

// parseAtom parses a single atom. Always consumes at least one byte when
// not at end of input or a close paren.
func (p *parser) parseAtom() ast.Node {
	switch p.peek() {
	case '(':
		p.pos++
		inner := p.parseOr()
		p.skipSpace()
		if !p.eof() && p.peek() == ')' {
			p.pos++
		}
		return inner
	case '"':
		value := p.parseQuoted()
		if value == "" {
			return nil
		}
		return &ast.Text{Value: value, Quoted: true}
	case '[':
		// Bracketed text not attached to a selector is literal text.
		p.pos++
		start := p.pos
		for !p.eof() && p.peek() != ']' {
			p.pos++
		}
		value := strings.TrimSpace(p.input[start:p.pos])
		if !p.eof() {
			p.pos++ // ']'
		}
		if value == "" {
			return nil
		}
		return &ast.Text{Value: value}
	default:
		if sel := p.parseSelector(); sel != nil {
			return sel
		}
		return p.parseWord()
	}
}

// parseSelector attempts to parse key ':' value? conditions? at the
// current position. Keys are tried longest-first (maximal munch) so that
// messages_after is never truncated to messages. Returns nil when no
// recognized key starts here, leaving the position untouched.
func (p *parser) parseSelector() ast.Node {
	rest := p.input[p.pos:]
	for _, key := range ast.KeysByLength() {
		if !strings.HasPrefix(rest, string(key)+":") {
			continue
		}
		p.pos += len(key) + 1

		var value string
		var quoted bool
		if !p.eof() && p.peek() == '"' {
			value = p.parseQuoted()
			quoted = true
		} else {
			start := p.pos
			for !p.eof() && !isSpace(p.peek()) && !strings.ContainsRune("[])", rune(p.peek())) {
				p.pos++
			}
			value = p.input[start:p.pos]
		}

		var conds []ast.Condition
		if !p.eof() && p.peek() == '[' {
			conds = p.parseConditions()
		}

		return &ast.Selector{Key: key, Value: value, Quoted: quoted, Conditions: conds}
	}
	return nil
}

// parseConditions parses '[' Condition (',' Condition)* ']'. The opening
// bracket is at the current position. Tolerates a missing close bracket
// by consuming to end of input.
func (p *parser) parseConditions() []ast.Condition {
	p.pos++ // '['
	conds := []ast.Condition{}
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		switch p.peek() {
		case ']':
			p.pos++
			return conds
		case ',':
			p.pos++
			continue
		}

		start := p.pos
		for !p.eof() && p.peek() != ':' && p.peek() != ',' && p.peek() != ']' && !isSpace(p.peek()) {
			p.pos++
		}
		key := p.input[start:p.pos]

		var value string
		var quoted bool
		if !p.eof() && p.peek() == ':' {
			p.pos++
			if !p.eof() && p.peek() == '"' {
				value = p.parseQuoted()
				quoted = true
			} else {
				vstart := p.pos
				for !p.eof() && p.peek() != ',' && p.peek() != ']' && !isSpace(p.peek()) {
					p.pos++
				}
				value = p.input[vstart:p.pos]
			}
		}

		if key != "" || value != "" {
			conds = append(conds, ast.Condition{Key: key, Value: value, Quoted: quoted})
		}
	}
	return conds
}

// parseWord reads a literal word. Words terminate at whitespace and close
// parens only, so tokens with internal colons (https://host/path) stay a
// single literal word rather than becoming a selector.
func (p *parser) parseWord() ast.Node {
	start := p.pos
	for !p.eof() && !isSpace(p.peek()) && p.peek() != ')' {
		p.pos++
	}
	word := p.input[start:p.pos]
	if word == "" {
		return nil
	}
	return &ast.Text{Value: word}
}

// parseQuoted reads a double-quoted string starting at the current
// position. Supports backslash-escaped quotes and backslashes. An
// unterminated string consumes to end of input.
func (p *parser) parseQuoted() string {
	p.pos++ // opening '"'
	var b strings.Builder
	for !p.eof() {
		c := p.peek()
		if c == '\\' && p.pos+1 < len(p.input) {
			next := p.input[p.pos+1]
			if next == '"' || next == '\\' {
				b.WriteByte(next)
				p.pos += 2
				continue
			}
		}
		if c == '"' {
			p.pos++
			break
		}
		b.WriteByte(c)
		p.pos++
	}
	return b.String()
}
