// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package regexcache

import (
	"fmt"
	"regexp"

	"github.com/ClusterCockpit/cc-logquery/pkg/vxp"
)

// goRegexp adapts *regexp.Regexp to vxp.Regexp. The regex engine
// itself is treated as an opaque collaborator by the query grammar;
// the standard library's RE2 engine is what the rest of this module's
// dependency stack offers nothing better than, so this is the one
// concern in the whole module implemented directly on the standard
// library rather than a third-party engine.
type goRegexp struct {
	re *regexp.Regexp
}

func (g goRegexp) String() string { return g.re.String() }

// MatchString reports whether s contains a match for the compiled
// pattern, for use by the query evaluation engine this package does
// not otherwise implement.
func (g goRegexp) MatchString(s string) bool { return g.re.MatchString(s) }

// Compile is a vxp.RegexCompiler backed by the standard library's
// regexp package.
func Compile(source string, caseInsensitive bool) (vxp.Regexp, error) {
	pattern := source
	if caseInsensitive {
		pattern = "(?i)" + source
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return goRegexp{re: re}, nil
}
