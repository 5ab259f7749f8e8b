// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package vxp

import (
	"fmt"
	"io"
	"strings"
)

// PrintTree writes an indented dump of vex to w: operator name,
// optional lhs=(...) with level/tags/prefix/field, and rhs=TYPE(value).
// Intended for debugging a parsed query, not for machine consumption.
func PrintTree(w io.Writer, vex *Vex, catalog Catalog) {
	printNode(w, vex, 2, catalog)
}

func printNode(w io.Writer, vex *Vex, indent int, catalog Catalog) {
	if vex == nil {
		return
	}
	fmt.Fprintf(w, "%s%s", strings.Repeat(" ", indent), vex.Tok)
	if vex.LHS != nil {
		fmt.Fprint(w, " lhs=")
		if vex.LHS.Level >= 0 {
			mod := ""
			switch vex.LHS.LevelMod {
			case LevelAtMost:
				mod = "-"
			case LevelAtLeast:
				mod = "+"
			}
			fmt.Fprintf(w, "{%d%s}", vex.LHS.Level, mod)
		}
		fmt.Fprint(w, "(")
		fmt.Fprint(w, tagNames(vex.LHS.Tags, catalog))
		fmt.Fprint(w, ")")
		if vex.LHS.Prefix != "" {
			fmt.Fprintf(w, ":%s", vex.LHS.Prefix)
		}
		if vex.LHS.Field > 0 {
			fmt.Fprintf(w, "[%d]", vex.LHS.Field)
		}
	}
	if vex.RHS != nil {
		fmt.Fprint(w, " rhs=")
		fmt.Fprint(w, rhsString(vex.RHS))
	}
	fmt.Fprintln(w)
	printNode(w, vex.A, indent+2, catalog)
	printNode(w, vex.B, indent+2, catalog)
}

func rhsString(rhs *RHS) string {
	switch rhs.Kind {
	case RHSInt:
		return fmt.Sprintf("INT(%d)", rhs.Int)
	case RHSFloat:
		return fmt.Sprintf("FLOAT(%f)", rhs.Float)
	case RHSString:
		return fmt.Sprintf("STRING(%s)", rhs.Str)
	case RHSRegex:
		return fmt.Sprintf("REGEX(%s)", rhs.Str)
	default:
		return "?"
	}
}

func tagNames(tags TagSet, catalog Catalog) string {
	if catalog == nil {
		return ""
	}
	var sb strings.Builder
	for i, id := range tags.Ids() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(catalog.Name(id))
	}
	return sb.String()
}
