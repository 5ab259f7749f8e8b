// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package vxp

import "testing"

func tokenKinds(l *tokenList) []Kind {
	var out []Kind
	for t := l.head; t != nil; t = t.next {
		out = append(out, t.Kind)
	}
	return out
}

func TestLexPunctuationAndOperators(t *testing.T) {
	l := Lex(`{2+} a,b:"c" [1] == < > >= <= != eq ne ~ !~ and or not`)
	got := tokenKinds(l)
	want := []Kind{
		LBrace, VAL, RBrace, VAL, Comma, VAL, Colon, VAL,
		LBracket, VAL, RBracket,
		OpEQ, OpLT, OpGT, OpGE, OpLE, OpNE, OpSEQ, OpSNE, OpMatch, OpNoMatch,
		KwAnd, KwOr, KwNot, EOI,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLexQuotedStringDecodesEscapes(t *testing.T) {
	l := Lex(`"a\"b"`)
	if l.head.Kind != VAL || l.head.Text != `a"b` {
		t.Fatalf("got %v %q, want VAL %q", l.head.Kind, l.head.Text, `a"b`)
	}
}

func TestLexVxidIsReserved(t *testing.T) {
	l := Lex("vxid")
	if l.head.Kind != VXID {
		t.Fatalf("got %v, want VXID", l.head.Kind)
	}
}

func TestLexTracksBytePosition(t *testing.T) {
	l := Lex("  RespStatus")
	if l.head.Pos != 2 {
		t.Fatalf("pos = %d, want 2", l.head.Pos)
	}
}
