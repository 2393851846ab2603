// Package resolve implements priority-aware overload resolution.
//
// Resolution of a call site walks the scopes of the receiver in order
// and stops at the first scope with an applicable candidate.
// The applicable candidates of that scope are narrowed to their highest priority tier,
// and the tier is resolved by better-function-member analysis.
package resolve

import (
	"context"
	"sort"
	"sync"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/sync/errgroup"

	"github.com/eaburns/orp/decl"
)

// A Resolver resolves call sites.
// It caches logical members and priorities,
// and is safe for concurrent use.
// Declarations must not be modified once passed to a Resolver.
type Resolver struct {
	cfg Config
	// memo maps a *decl.Member to its published *binding.
	memo sync.Map
	// merged maps a *decl.Type to its []logical members.
	merged  sync.Map
	// bindMu serializes attribute binding traversals.
	bindMu  sync.Mutex
	traceMu sync.Mutex
}

// New returns a new Resolver.
func New(cfg Config) *Resolver {
	setConfigDefaults(&cfg)
	return &Resolver{cfg: cfg}
}

// A Group is the candidate group of the scope at which lookup stopped.
type Group struct {
	Scope *Scope
	// Candidates are all candidates of the scope.
	Candidates []*Candidate
	// Applicable are the applicable candidates, with their forms set.
	Applicable []*Candidate
}

// Resolve resolves a call site to its best candidate.
//
// If no scope has an applicable candidate, the error is a *NotFoundError.
// If the best priority tier has no unique best candidate, the error is an *AmbiguousError.
// If the best candidate cannot be used as the call site uses it,
// for example an instance member called through a type name,
// both the candidate and an error are returned.
func (r *Resolver) Resolve(call *decl.Call) (*Candidate, error) {
	return r.newState().resolve(call)
}

func (x *state) resolve(call *decl.Call) (_ *Candidate, err error) {
	defer x.tr("resolve(%s)", call)(&err)
	g, err := x.findApplicableScope(call)
	if err != nil {
		return nil, err
	}
	tier := x.narrow(g.Applicable)
	best, err := x.resolveBest(tier, call)
	if err != nil {
		return nil, err
	}
	if cerr := x.checkUse(call, best); cerr != nil {
		return best, cerr
	}
	return best, nil
}

// FindApplicableScope returns the candidate group
// of the first scope with at least one applicable candidate.
// Later scopes are never consulted.
// If there is no such scope, the error is a *NotFoundError.
func (r *Resolver) FindApplicableScope(call *decl.Call) (*Group, error) {
	return r.newState().findApplicableScope(call)
}

func (x *state) findApplicableScope(call *decl.Call) (_ *Group, err error) {
	defer x.tr("findApplicableScope(%s)", call)(&err)
	var rejected []string
	w := newWalker(call)
	if len(w.operands) > 0 {
		g, notes := x.operatorGroup(w.operands, call)
		if g != nil {
			return g, nil
		}
		rejected = append(rejected, notes...)
	}
	for s := w.next(); s != nil; s = w.next() {
		cands := x.buildCandidates(s, call)
		if len(cands) == 0 {
			continue
		}
		applicable, notes := x.filterApplicable(cands, call)
		rejected = append(rejected, notes...)
		if len(applicable) > 0 {
			x.log("stopped at scope %s", s)
			return &Group{Scope: s, Candidates: cands, Applicable: applicable}, nil
		}
	}
	nf := &NotFoundError{Call: call, Rejected: rejected}
	if len(rejected) == 0 {
		nf.Suggestion = suggest(call)
	}
	return nil, nf
}

// operatorGroup returns the candidate group of an operator call's operand types.
// Each operand's hierarchy is searched independently
// up to its first level with an applicable operator,
// and the operators of those levels are pooled into one scope.
// If no operand has an applicable operator, the group is nil.
func (x *state) operatorGroup(operands [][][]*decl.Type, call *decl.Call) (_ *Group, notes []string) {
	defer x.tr("operatorGroup(%s)", call)()
	var types []*decl.Type
	seen := make(map[*decl.Type]bool)
	noted := make(map[string]bool)
	for _, levels := range operands {
		for _, level := range levels {
			cands := x.buildCandidates(&Scope{Types: level}, call)
			applicable, ns := x.filterApplicable(cands, call)
			for _, n := range ns {
				if !noted[n] {
					noted[n] = true
					notes = append(notes, n)
				}
			}
			if len(applicable) == 0 {
				continue
			}
			for _, t := range level {
				if !seen[t] {
					seen[t] = true
					types = append(types, t)
				}
			}
			break
		}
	}
	if len(types) == 0 {
		return nil, notes
	}
	s := &Scope{Types: types}
	cands := x.buildCandidates(s, call)
	applicable, _ := x.filterApplicable(cands, call)
	x.log("stopped at operator scope %s", s)
	return &Group{Scope: s, Candidates: cands, Applicable: applicable}, nil
}

// checkUse returns an error if the resolved member
// cannot be used the way the call site uses it.
func (x *state) checkUse(call *decl.Call, c *Candidate) *checkError {
	m := c.Member
	switch call.Kind {
	case decl.IndexerCall:
		switch {
		case call.Set && m.Accessor(decl.Setter) == nil:
			return x.err(call.Loc, "%s has no set accessor", m)
		case !call.Set && m.Accessor(decl.Getter) == nil:
			return x.err(call.Loc, "%s has no get accessor", m)
		}
	case decl.MethodCall:
		switch {
		case m.Extension():
			return nil
		case call.Static && !m.Static:
			return x.err(call.Loc, "instance member %s cannot be accessed with a type name", m)
		case !call.Static && m.Static:
			return x.err(call.Loc, "static member %s cannot be accessed with an instance reference", m)
		}
	}
	return nil
}

// suggest returns the member name in the receiver's hierarchy
// closest to the called name, or "".
func suggest(call *decl.Call) string {
	if call.Kind != decl.MethodCall || call.Recv == nil {
		return ""
	}
	names := make(map[string]bool)
	for _, level := range hierarchyLevels(call.Recv) {
		for _, t := range level {
			for _, m := range t.Members {
				if m.Kind == decl.Method && m.Explicit == nil {
					names[m.Name] = true
				}
			}
		}
	}
	var sorted []string
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	var closest string
	closestDistance := len([]rune(call.Name))
	for _, n := range sorted {
		d := levenshtein.DistanceForStrings([]rune(call.Name), []rune(n), levenshtein.DefaultOptions)
		if d < closestDistance && d < len([]rune(n)) {
			closest = n
			closestDistance = d
		}
	}
	return closest
}

// A Result is the outcome of resolving one call site.
type Result struct {
	Call *decl.Call
	Best *Candidate
	Err  error
}

// ResolveAll resolves the call sites concurrently,
// at most Config.Parallel at a time.
// The results are in the order of calls.
// If ctx is canceled, in-flight resolutions are abandoned
// and the context's error is returned.
func (r *Resolver) ResolveAll(ctx context.Context, calls []*decl.Call) ([]Result, error) {
	results := make([]Result, len(calls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			best, err := r.Resolve(call)
			results[i] = Result{Call: call, Best: best, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Diagnostics returns the attribute usage errors of the module's declarations,
// sorted by location.
// Each offending declaration is reported once,
// no matter how many times its priority has been read.
func (r *Resolver) Diagnostics(mod *decl.Mod) []error {
	x := r.newState()
	var errs []checkError
	for _, m := range mod.Members() {
		b := x.bind(m)
		errs = append(errs, b.errs...)
	}
	return convertErrors(errs)
}
