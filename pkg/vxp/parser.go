// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package vxp implements a recursive-descent parser for a small
// log-query language, producing a tree of Vex nodes (package-level
// documentation: see the grammar in parser.go).
//
// query   := expr_or EOI { expr_or EOI }*
// expr_or := expr_and  { 'or'  expr_and }*
// expr_and:= expr_not  { 'and' expr_not }*
// expr_not:= ['not'] expr_group
// expr_group := '(' expr_or ')' | expr_cmp
// expr_cmp := lhs [ op rhs ]
// lhs     := [ '{' INT [ '+' | '-' ] '}' ]
//            tag { ',' tag }*
//            [ ':' STRING ]
//            [ '[' INT ']' ]
// tag     := VXID | VAL
// op      := '==' | '<' | '>' | '>=' | '<=' | '!=' | 'eq' | 'ne' | '~' | '!~'
// rhs     := VAL
package vxp

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError is the single user-visible failure mode of Parse: a
// human-readable message with a caret-style byte offset into the
// offending token.
type ParseError struct {
	Msg string
	Pos int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (at byte %d)", e.Msg, e.Pos)
}

// ParseOption configures a Parse call.
type ParseOption func(*parser)

// WithOptions attaches a bag of node options copied verbatim into
// every allocated node.
func WithOptions(opts Options) ParseOption {
	return func(p *parser) { p.opts = opts }
}

// WithCompiler supplies the eager regex compiler used for match-family
// right-hand sides. Without one, any '~'/'!~' comparison fails to
// parse with a regex compile error.
func WithCompiler(c RegexCompiler) ParseOption {
	return func(p *parser) { p.compile = c }
}

type parser struct {
	cur     *Token
	err     bool
	sb      strings.Builder
	errPos  int
	opts    Options
	catalog Catalog
	compile RegexCompiler
}

// Parse builds a Vex tree from query. catalog resolves tag globs
// against the known tag set; it may be nil only if query contains no
// tag selectors (every lhs needs at least one tag or vxid).
//
// Lex ends the token list with a single EOI, so Parse yields the tree
// of one sub-query. The token-list parser underneath (parseTokens)
// also accepts several EOI-terminated sub-queries back to back; it
// parses them one at a time and combines them into a single tree with
// an OR node each.
func Parse(query string, catalog Catalog, opts ...ParseOption) (*Vex, error) {
	return parseTokens(Lex(query).head, catalog, opts...)
}

func parseTokens(head *Token, catalog Catalog, opts ...ParseOption) (*Vex, error) {
	p := &parser{catalog: catalog}
	for _, opt := range opts {
		opt(p)
	}

	var result *Vex
	p.cur = head

	for p.cur != nil {
		for p.cur.Kind == EOI && p.cur.next != nil {
			p.cur = p.cur.next
		}
		if p.cur.Kind == EOI {
			break
		}

		sub := p.exprOr()
		if !p.err {
			if p.cur.Kind != EOI {
				p.errorf(p.cur, -1, "Expected end of query, got %s", describe(p.cur))
			}
		}
		if p.err {
			Free(sub)
			Free(result)
			return nil, &ParseError{Msg: p.sb.String(), Pos: p.errPos}
		}

		if result == nil {
			result = sub
		} else {
			or := newVex(p.opts)
			or.Tok = KwOr
			or.A = result
			or.B = sub
			result = or
		}

		if p.cur.next == nil {
			break
		}
		p.cur = p.cur.next
	}

	return result, nil
}

func (p *parser) errorf(tok *Token, caret int, format string, args ...any) {
	if p.err {
		return
	}
	p.err = true
	fmt.Fprintf(&p.sb, format, args...)
	if caret < 0 {
		p.errPos = tok.Pos
	} else {
		p.errPos = tok.Pos + caret
	}
}

func (p *parser) next() {
	if p.cur.next != nil {
		p.cur = p.cur.next
	}
}

func (p *parser) expect(k Kind) {
	if p.cur.Kind != k {
		p.errorf(p.cur, -1, "Expected %s, got %s", k, describe(p.cur))
		return
	}
	p.next()
}

// exprOr := expr_and { 'or' expr_and }*
func (p *parser) exprOr() *Vex {
	a := p.exprAnd()
	if p.err {
		return a
	}
	for p.cur.Kind == KwOr {
		node := newVex(p.opts)
		node.Tok = KwOr
		node.A = a
		p.next()
		if p.err {
			Free(node)
			return node
		}
		node.B = p.exprAnd()
		if p.err {
			return node
		}
		a = node
	}
	return a
}

// exprAnd := expr_not { 'and' expr_not }*
func (p *parser) exprAnd() *Vex {
	a := p.exprNot()
	if p.err {
		return a
	}
	for p.cur.Kind == KwAnd {
		node := newVex(p.opts)
		node.Tok = KwAnd
		node.A = a
		p.next()
		if p.err {
			Free(node)
			return node
		}
		node.B = p.exprNot()
		if p.err {
			return node
		}
		a = node
	}
	return a
}

// exprNot := ['not'] expr_group
func (p *parser) exprNot() *Vex {
	if p.cur.Kind == KwNot {
		node := newVex(p.opts)
		node.Tok = KwNot
		p.next()
		node.A = p.exprGroup()
		return node
	}
	return p.exprGroup()
}

// exprGroup := '(' expr_or ')' | expr_cmp
func (p *parser) exprGroup() *Vex {
	if p.cur.Kind == LParen {
		p.next()
		if p.err {
			return nil
		}
		vex := p.exprOr()
		if p.err {
			Free(vex)
			return nil
		}
		p.expect(RParen)
		if p.err {
			Free(vex)
			return nil
		}
		return vex
	}
	return p.exprCmp()
}

// exprCmp := lhs [ op rhs ]
func (p *parser) exprCmp() *Vex {
	vex := newVex(p.opts)
	vex.LHS = p.exprLHS()
	if p.err {
		return vex
	}

	if vex.LHS.VXIDCount != 0 {
		p.vxidCmp()
		if p.err {
			return vex
		}
	}

	switch p.cur.Kind {
	case EOI, KwAnd, KwOr, RParen:
		vex.Tok = TTrue
		return vex
	}
	if !p.cur.Kind.isCmpOp() {
		p.errorf(p.cur, -1, "Expected operator, got %s", describe(p.cur))
		return vex
	}
	vex.Tok = p.cur.Kind
	p.next()
	if p.err {
		return vex
	}

	switch {
	case vex.Tok.isNumericOp():
		vex.RHS = p.exprNum(vex.LHS.VXIDCount != 0)
	case vex.Tok.isStringOp():
		vex.RHS = p.exprStr()
	case vex.Tok.isMatchOp():
		vex.RHS = p.exprRegex()
	}
	return vex
}

// exprLHS parses the '{level}' tag{,tag} [:prefix] [field] sequence.
func (p *parser) exprLHS() *LHS {
	lhs := newLHS()

	if p.cur.Kind == LBrace {
		p.next()
		if p.cur.Kind != VAL {
			p.errorf(p.cur, -1, "Expected integer, got %s ", describe(p.cur))
			return lhs
		}
		level, err := strconv.Atoi(strings.TrimRight(p.cur.Text, "+-"))
		if err != nil {
			p.errorf(p.cur, -1, "Syntax error in level limit ")
			return lhs
		}
		lhs.Level = level
		if lhs.Level < 0 {
			p.errorf(p.cur, -1, "Expected positive integer ")
			return lhs
		}
		switch {
		case strings.HasSuffix(p.cur.Text, "-"):
			lhs.LevelMod = LevelAtMost
		case strings.HasSuffix(p.cur.Text, "+"):
			lhs.LevelMod = LevelAtLeast
		}
		p.next()
		p.expect(RBrace)
		if p.err {
			return lhs
		}
	}

	for {
		switch p.cur.Kind {
		case VXID:
			lhs.VXIDCount++
		case VAL:
			lhs.TagCount++
			if p.catalog == nil {
				p.errorf(p.cur, -1, "Tag name matches zero tags ")
				return lhs
			}
			expanded, err := p.catalog.Expand(p.cur.Text)
			if err != nil {
				p.errorf(p.cur, -1, "%s ", err.Error())
				return lhs
			}
			lhs.Tags.Or(expanded)
		default:
			p.errorf(p.cur, -1, "Expected tag name, got %s ", describe(p.cur))
			return lhs
		}
		p.next()
		if p.cur.Kind != Comma {
			break
		}
		p.next()
	}

	if p.cur.Kind == Colon {
		p.next()
		if p.cur.Kind != VAL {
			p.errorf(p.cur, -1, "Expected string, got %s ", describe(p.cur))
			return lhs
		}
		lhs.Prefix = p.cur.Text
		p.next()
	}

	if p.cur.Kind == LBracket {
		p.next()
		if p.cur.Kind != VAL {
			p.errorf(p.cur, -1, "Expected integer, got %s ", describe(p.cur))
			return lhs
		}
		field, err := strconv.Atoi(p.cur.Text)
		if err != nil || field <= 0 {
			p.errorf(p.cur, -1, "Expected positive integer ")
			return lhs
		}
		lhs.Field = field
		p.next()
		p.expect(RBracket)
		if p.err {
			return lhs
		}
	}

	if lhs.VXIDCount == 0 {
		return lhs
	}
	if lhs.VXIDCount > 1 || lhs.Level >= 0 || lhs.Field > 0 ||
		lhs.Prefix != "" || lhs.TagCount > 0 {
		p.errorf(p.cur, -1, "Unexpected taglist selection for vxid ")
	}
	return lhs
}

func (p *parser) vxidCmp() {
	if !p.cur.Kind.isNumericOp() {
		p.errorf(p.cur, -1, "Expected vxid operator, got %s ", describe(p.cur))
	}
}

func (p *parser) exprNum(vxid bool) *RHS {
	if p.cur.Kind != VAL {
		p.errorf(p.cur, -1, "Expected number, got %s ", describe(p.cur))
		return newRHS()
	}
	rhs := newRHS()
	text := p.cur.Text
	if strings.Contains(text, ".") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.errorf(p.cur, -1, "Floating point parse error ")
			return rhs
		}
		rhs.Kind = RHSFloat
		rhs.Float = f
	} else {
		v, err := strconv.ParseInt(strings.TrimSpace(text), 0, 64)
		if err != nil {
			p.errorf(p.cur, -1, "Integer parse error ")
			return rhs
		}
		rhs.Kind = RHSInt
		rhs.Int = v
	}
	if vxid && rhs.Kind != RHSInt {
		p.errorf(p.cur, 0, "Expected integer, got %s ", describe(p.cur))
		return rhs
	}
	p.next()
	return rhs
}

func (p *parser) exprStr() *RHS {
	if p.cur.Kind != VAL {
		p.errorf(p.cur, -1, "Expected string, got %s ", describe(p.cur))
		return newRHS()
	}
	rhs := newRHS()
	rhs.Kind = RHSString
	rhs.Str = p.cur.Text
	p.next()
	return rhs
}

func (p *parser) exprRegex() *RHS {
	if p.cur.Kind != VAL {
		p.errorf(p.cur, -1, "Expected regular expression, got %s ", describe(p.cur))
		return newRHS()
	}
	rhs := newRHS()
	rhs.Kind = RHSRegex
	rhs.Str = p.cur.Text
	if p.compile == nil {
		p.errorf(p.cur, -1, "Regular expression error: no compiler configured ")
		return rhs
	}
	re, err := p.compile(p.cur.Text, p.opts.CaseInsensitiveRegex)
	if err != nil {
		p.errorf(p.cur, -1, "Regular expression error: %s ", err.Error())
		return rhs
	}
	rhs.Regex = re
	p.next()
	return rhs
}
