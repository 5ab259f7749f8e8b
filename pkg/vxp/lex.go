// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package vxp

import (
	"fmt"
	"strings"
)

// tokenList is a minimal doubly linked queue of tokens, terminated by
// a single EOI token. It exists so the parser can walk forward with
// its next method exactly as described for the token stream this package
// consumes; construction of the list itself (lexing) is scaffolding
// around that contract, not part of it.
type tokenList struct {
	head, tail *Token
}

func (l *tokenList) push(tok *Token) {
	if l.tail != nil {
		l.tail.next = tok
		tok.prev = l.tail
	} else {
		l.head = tok
	}
	l.tail = tok
}

// Lex splits query into a token list terminated by EOI. It never
// fails: unrecognized runs of characters become VAL tokens and any
// complaint about their content surfaces later as a parser diagnostic
// (numeric parse error, malformed tag glob, and so on). The lexer only
// classifies token shape, never the meaning of a token's payload.
func Lex(query string) *tokenList {
	l := &tokenList{}
	i := 0
	n := len(query)

	for i < n {
		c := query[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			l.push(&Token{Kind: LParen, Pos: i})
			i++
		case c == ')':
			l.push(&Token{Kind: RParen, Pos: i})
			i++
		case c == '{':
			l.push(&Token{Kind: LBrace, Pos: i})
			i++
		case c == '}':
			l.push(&Token{Kind: RBrace, Pos: i})
			i++
		case c == '[':
			l.push(&Token{Kind: LBracket, Pos: i})
			i++
		case c == ']':
			l.push(&Token{Kind: RBracket, Pos: i})
			i++
		case c == ',':
			l.push(&Token{Kind: Comma, Pos: i})
			i++
		case c == ':':
			l.push(&Token{Kind: Colon, Pos: i})
			i++

		case c == '=' && peek(query, i+1) == '=':
			l.push(&Token{Kind: OpEQ, Pos: i})
			i += 2
		case c == '!' && peek(query, i+1) == '=':
			l.push(&Token{Kind: OpNE, Pos: i})
			i += 2
		case c == '!' && peek(query, i+1) == '~':
			l.push(&Token{Kind: OpNoMatch, Pos: i})
			i += 2
		case c == '>' && peek(query, i+1) == '=':
			l.push(&Token{Kind: OpGE, Pos: i})
			i += 2
		case c == '<' && peek(query, i+1) == '=':
			l.push(&Token{Kind: OpLE, Pos: i})
			i += 2
		case c == '>':
			l.push(&Token{Kind: OpGT, Pos: i})
			i++
		case c == '<':
			l.push(&Token{Kind: OpLT, Pos: i})
			i++
		case c == '~':
			l.push(&Token{Kind: OpMatch, Pos: i})
			i++

		case c == '"':
			start := i
			j := i + 1
			var sb strings.Builder
			for j < n && query[j] != '"' {
				if query[j] == '\\' && j+1 < n {
					j++
				}
				sb.WriteByte(query[j])
				j++
			}
			if j < n {
				j++ // closing quote
			}
			l.push(&Token{Kind: VAL, Text: sb.String(), Pos: start})
			i = j

		default:
			start := i
			j := i
			for j < n && !isDelim(query[j]) {
				j++
			}
			if j == start {
				// Stray character: emit it as a one-byte VAL so the
				// parser can still report it by position instead of
				// the lexer silently swallowing input.
				j++
			}
			word := query[start:j]
			l.push(wordToken(word, start))
			i = j
		}
	}

	l.push(&Token{Kind: EOI, Pos: n})
	return l
}

func peek(s string, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

func isDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '{', '}', '[', ']', ',', ':',
		'=', '<', '>', '!', '~', '"':
		return true
	}
	return false
}

// wordToken classifies a bare word as a keyword, the reserved vxid
// identifier, or a generic value.
func wordToken(word string, pos int) *Token {
	switch word {
	case "and":
		return &Token{Kind: KwAnd, Pos: pos}
	case "or":
		return &Token{Kind: KwOr, Pos: pos}
	case "not":
		return &Token{Kind: KwNot, Pos: pos}
	case "eq":
		return &Token{Kind: OpSEQ, Pos: pos}
	case "ne":
		return &Token{Kind: OpSNE, Pos: pos}
	case "vxid":
		return &Token{Kind: VXID, Pos: pos}
	default:
		return &Token{Kind: VAL, Text: word, Pos: pos}
	}
}

// describe renders a token for error messages.
func describe(t *Token) string {
	if t.Kind == VAL {
		return fmt.Sprintf("%q", t.Text)
	}
	return t.Kind.String()
}
