package resolve

import (
	"github.com/eaburns/orp/conv"
	"github.com/eaburns/orp/decl"
)

// Form is the form in which a candidate is applicable.
type Form int

// The applicable forms.
const (
	Normal Form = iota
	// Expanded is the form of a params member
	// whose params array is built from the trailing arguments.
	Expanded
)

func (f Form) String() string {
	if f == Expanded {
		return "expanded"
	}
	return "normal"
}

// A Candidate is a logical candidate:
// the unit that overload resolution ranks.
// The parts of a partial member are one Candidate,
// and an override is represented by the Candidate of the declaration
// that introduced the member into the hierarchy.
type Candidate struct {
	// Member is the canonical declaration.
	// It is the definition part of a partial member
	// and the introducing declaration of a virtual member.
	Member *decl.Member
	// Impl is the implementation part of a partial member.
	Impl *decl.Member
	// Target is the most-derived override of Member
	// visible from the call site's receiver type,
	// or Member itself if it is not overridden.
	Target *decl.Member
	// Container groups candidates for priority narrowing.
	Container *decl.Type
	// Priority is the effective priority.
	Priority int32
	Scope    *Scope

	// Form is set on applicable candidates.
	Form Form
	// args are the arguments, with the receiver first for extensions.
	args  []decl.Arg
	parms []decl.Param
	convs []conv.Conversion
	// defaults is the number of optional parameters without an argument.
	defaults int
}

func (c *Candidate) String() string { return c.Member.String() }

// logical is a member after partial-part merging.
type logical struct {
	def  *decl.Member
	impl *decl.Member
}

// logicalMembers returns the members of t after merging partial parts.
// The result is computed once per type.
func (x *state) logicalMembers(t *decl.Type) []logical {
	if ls, ok := x.merged.Load(t); ok {
		return ls.([]logical)
	}
	var ls []logical
	defs := make(map[string]int)
	var impls []*decl.Member
	for _, m := range t.Members {
		switch m.Partial {
		case decl.Implementation:
			impls = append(impls, m)
		case decl.Definition:
			defs[m.Signature()] = len(ls)
			ls = append(ls, logical{def: m})
		default:
			ls = append(ls, logical{def: m})
		}
	}
	for _, m := range impls {
		if i, ok := defs[m.Signature()]; ok && ls[i].impl == nil {
			ls[i].impl = m
			continue
		}
		ls = append(ls, logical{def: m})
	}
	actual, _ := x.merged.LoadOrStore(t, ls)
	return actual.([]logical)
}

// matches returns whether the member is a candidate for the call
// in an instance scope (ext=false) or an extension scope (ext=true).
func matches(m *decl.Member, call *decl.Call, ext bool) bool {
	if m.Extension() != ext || m.IsOverride || m.Explicit != nil {
		return false
	}
	switch call.Kind {
	case decl.CtorCall:
		return m.Kind == decl.Constructor
	case decl.IndexerCall:
		return m.Kind == decl.Indexer
	case decl.OperatorCall:
		return m.Kind == decl.Operator && m.Name == call.Name
	default:
		return m.Kind == decl.Method && m.Name == call.Name
	}
}

// BuildCandidates returns the logical candidates of the scope
// for the call site, in declaration order.
func (r *Resolver) BuildCandidates(scope *Scope, call *decl.Call) []*Candidate {
	return r.newState().buildCandidates(scope, call)
}

func (x *state) buildCandidates(scope *Scope, call *decl.Call) (cands []*Candidate) {
	defer x.tr("buildCandidates(%s)", scope)()
	for _, t := range scope.Types {
		for _, l := range x.logicalMembers(t) {
			if !matches(l.def, call, scope.Extension) {
				continue
			}
			c := &Candidate{
				Member:    l.def,
				Impl:      l.impl,
				Target:    mostDerived(l.def, call.Recv),
				Container: l.def.Container,
				Priority:  x.readPriority(l.def),
				Scope:     scope,
			}
			x.log("candidate %s priority %d", c.Member, c.Priority)
			cands = append(cands, c)
		}
	}
	return cands
}

// mostDerived returns the most-derived override of m
// in the class chain of recv, or m if there is none.
func mostDerived(m *decl.Member, recv *decl.Type) *decl.Member {
	if !m.Virtual || recv == nil || recv.Interface {
		return m
	}
	seen := make(map[*decl.Type]bool)
	for t := recv; t != nil && !seen[t] && t != m.Container; t = t.Base {
		seen[t] = true
		for _, o := range t.Members {
			if o.IsOverride && o.Introducer() == m {
				return o
			}
		}
	}
	return m
}
