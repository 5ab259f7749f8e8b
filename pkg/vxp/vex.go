// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package vxp

import "sync/atomic"

// LevelModifier qualifies how a LHS level selector compares against a
// record's actual transaction-nesting depth.
type LevelModifier int

const (
	LevelExact LevelModifier = 0
	LevelAtMost LevelModifier = -1
	LevelAtLeast LevelModifier = 1
)

// LHS is the left-hand side of a comparison node: the tag selector
// together with its optional level, prefix and field qualifiers.
type LHS struct {
	Tags     TagSet
	Level    int // -1 means unset
	LevelMod LevelModifier
	Prefix   string
	Field    int // 0 means unset, otherwise 1-based

	// VXIDCount and TagCount are running counts kept during parsing
	// to police the vxid mutual-exclusion rule; they have no meaning
	// once parsing is done beyond VXIDCount != 0 marking a vxid LHS.
	VXIDCount int
	TagCount  int
}

// RHSKind identifies which field of RHS is meaningful.
type RHSKind int

const (
	RHSInt RHSKind = iota
	RHSFloat
	RHSString
	RHSRegex
)

// RHS is the typed right-hand side of a comparison node.
type RHS struct {
	Kind RHSKind

	Int   int64
	Float float64

	// Str holds the decoded string payload for RHSString, and the
	// regex source text for RHSRegex.
	Str string

	// Regex is non-nil only for RHSRegex, compiled eagerly at parse
	// time with the Options in effect for that parse.
	Regex Regexp
}

// Regexp is the narrow interface the parser needs from a compiled
// regular expression, so that vxp does not hard-depend on a specific
// regex engine or its compile-option representation.
type Regexp interface {
	String() string
}

// RegexCompiler compiles regex source at parse time: match-family
// right-hand sides are compiled eagerly rather than deferring
// compilation to evaluation time, so a malformed pattern is reported
// as a parse error.
type RegexCompiler func(source string, caseInsensitive bool) (Regexp, error)

// Options is the bag of parser-wide settings copied into every node
// allocated during a parse.
type Options struct {
	CaseInsensitiveRegex bool
}

// Vex is one node of a query abstract syntax tree. Internal nodes
// (AND, OR, NOT) carry only A (and B, for AND/OR); leaf comparison
// nodes carry LHS and, unless Tok is TTrue, RHS.
type Vex struct {
	Tok Kind
	A, B *Vex
	LHS *LHS
	RHS *RHS

	Options Options
}

var (
	liveVex int64
	liveLHS int64
	liveRHS int64
)

func newVex(opts Options) *Vex {
	atomic.AddInt64(&liveVex, 1)
	return &Vex{Options: opts}
}

func newLHS() *LHS {
	atomic.AddInt64(&liveLHS, 1)
	return &LHS{Level: -1}
}

func newRHS() *RHS {
	atomic.AddInt64(&liveRHS, 1)
	return &RHS{}
}

// Free releases vex and every node, LHS and RHS it owns. It is safe
// to call with a nil vex.
func Free(vex *Vex) {
	if vex == nil {
		return
	}
	if vex.LHS != nil {
		atomic.AddInt64(&liveLHS, -1)
		vex.LHS = nil
	}
	if vex.RHS != nil {
		atomic.AddInt64(&liveRHS, -1)
		vex.RHS = nil
	}
	Free(vex.A)
	Free(vex.B)
	vex.A, vex.B = nil, nil
	atomic.AddInt64(&liveVex, -1)
}
