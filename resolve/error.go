package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eaburns/orp/decl"
	"github.com/eaburns/orp/loc"
)

type checkError struct {
	loc   loc.Loc
	msg   string
	notes []string
	cause []checkError
}

func note(err *checkError, f string, vs ...interface{}) {
	err.notes = append(err.notes, fmt.Sprintf(f, vs...))
}

func (err *checkError) Error() string {
	var s strings.Builder
	buildError(&s, "", err)
	return s.String()
}

func buildError(s *strings.Builder, ident string, err *checkError) {
	s.WriteString(ident)
	s.WriteString(err.loc.String())
	s.WriteString(": ")
	s.WriteString(err.msg)
	ident2 := ident + "	"
	for _, n := range err.notes {
		s.WriteRune('\n')
		s.WriteString(ident2)
		s.WriteString(n)
	}
	for i := range err.cause {
		s.WriteRune('\n')
		buildError(s, ident2, &err.cause[i])
	}
}

func convertErrors(cerrs []checkError) []error {
	var errs []error
	cerrs = sortErrors(cerrs)
	for i := range cerrs {
		errs = append(errs, &cerrs[i])
	}
	return errs
}

func sortErrors(errs []checkError) []checkError {
	if len(errs) == 0 {
		return errs
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].loc.Less(errs[j].loc)
	})
	dedup := []checkError{errs[0]}
	for _, e := range errs[1:] {
		d := &dedup[len(dedup)-1]
		if e.loc != d.loc || e.msg != d.msg {
			dedup = append(dedup, e)
		}
	}
	for i := range dedup {
		dedup[i].cause = sortErrors(dedup[i].cause)
	}
	return dedup
}

// An AmbiguousError reports a call site
// for which no candidate of the winning priority tier
// is better than all of the others.
type AmbiguousError struct {
	Call *decl.Call
	// Tied are the candidates that are not worse than any other.
	Tied []*Candidate
}

func (err *AmbiguousError) Error() string {
	cerr := &checkError{loc: err.Call.Loc, msg: fmt.Sprintf("%s: ambiguous call", callName(err.Call))}
	for _, c := range err.Tied {
		note(cerr, "%s (priority %d) at %s", c.Member, c.Priority, c.Member.Loc)
	}
	return cerr.Error()
}

// A NotFoundError reports a call site for which
// no scope has an applicable candidate.
type NotFoundError struct {
	Call *decl.Call
	// Rejected has a note for each candidate found
	// but not applicable to the arguments.
	Rejected []string
	// Suggestion is a similarly named member, if any.
	Suggestion string
}

func (err *NotFoundError) Error() string {
	var cerr *checkError
	if len(err.Rejected) == 0 {
		cerr = &checkError{loc: err.Call.Loc, msg: fmt.Sprintf("%s not found", callName(err.Call))}
	} else {
		cerr = &checkError{loc: err.Call.Loc, msg: fmt.Sprintf("no applicable %s for %s", callName(err.Call), err.Call)}
	}
	for _, n := range err.Rejected {
		note(cerr, "%s", n)
	}
	if err.Suggestion != "" {
		note(cerr, "did you mean %s?", err.Suggestion)
	}
	return cerr.Error()
}

func callName(c *decl.Call) string {
	switch c.Kind {
	case decl.CtorCall:
		return "constructor " + c.Recv.String()
	case decl.IndexerCall:
		return "indexer " + c.Recv.String() + "[]"
	case decl.OperatorCall:
		return "operator " + c.Name
	}
	if c.Recv != nil {
		return c.Recv.String() + "." + c.Name
	}
	return c.Name
}
