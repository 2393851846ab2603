// Copyright © 2020 The Pea Authors under an MIT-style license.

// Package loc has routines for tracking declaration and call-site locations.
package loc

import (
	"fmt"

	"github.com/goccy/go-yaml/token"
)

// A Loc describes a file location.
// Line and Col are 1-based; the zero Loc is unknown.
type Loc struct {
	Path string
	Line [2]int
	Col  [2]int
}

// At returns a point location.
func At(path string, line, col int) Loc {
	return Loc{Path: path, Line: [2]int{line, line}, Col: [2]int{col, col}}
}

// Token returns the location of a YAML token.
// A nil token yields a location with only the path set.
func Token(path string, tok *token.Token) Loc {
	if tok == nil || tok.Position == nil {
		return Loc{Path: path}
	}
	l := At(path, tok.Position.Line, tok.Position.Column)
	l.Col[1] += len(tok.Value)
	return l
}

// Known returns whether the location has line information.
func (l Loc) Known() bool { return l.Line[0] > 0 }

// Less orders locations by path, then line, then column.
func (l Loc) Less(o Loc) bool {
	switch {
	case l.Path != o.Path:
		return l.Path < o.Path
	case l.Line[0] != o.Line[0]:
		return l.Line[0] < o.Line[0]
	default:
		return l.Col[0] < o.Col[0]
	}
}

func (l Loc) String() string {
	switch {
	case !l.Known() && l.Path == "":
		return "<builtin>"
	case !l.Known():
		return l.Path
	case l.Line[0] == l.Line[1] && l.Col[0] == l.Col[1]:
		return fmt.Sprintf("%s:%d.%d", l.Path, l.Line[0], l.Col[0])
	default:
		return fmt.Sprintf("%s:%d.%d-%d.%d", l.Path, l.Line[0], l.Col[0], l.Line[1], l.Col[1])
	}
}
