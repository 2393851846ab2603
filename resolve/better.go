package resolve

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/eaburns/orp/decl"
)

// ResolveBest returns the unique candidate of the tier
// that is better than every other candidate for the call site's arguments.
// The tier must hold applicable candidates as returned by FindApplicableScope and Narrow.
// If there is no such candidate, the error is an *AmbiguousError.
func (r *Resolver) ResolveBest(tier []*Candidate, call *decl.Call) (*Candidate, error) {
	return r.newState().resolveBest(tier, call)
}

func (x *state) resolveBest(tier []*Candidate, call *decl.Call) (_ *Candidate, err error) {
	defer x.tr("resolveBest(%d candidates)", len(tier))(&err)
	switch len(tier) {
	case 0:
		return nil, &NotFoundError{Call: call}
	case 1:
		return tier[0], nil
	}
	n := uint(len(tier))
	worse := bitset.New(n)
	for i := range tier {
		for j := range tier {
			if i != j && x.better(tier[i], tier[j]) {
				worse.Set(uint(j))
			}
		}
	}
	var best *Candidate
	for i, e := worse.NextClear(0); e && i < n; i, e = worse.NextClear(i + 1) {
		if x.betterThanAll(tier, int(i)) {
			best = tier[i]
			break
		}
	}
	if best != nil {
		x.log("best %s", best.Member)
		return best, nil
	}
	err = &AmbiguousError{Call: call, Tied: tied(tier, worse)}
	return nil, err
}

func (x *state) betterThanAll(tier []*Candidate, i int) bool {
	for j := range tier {
		if j != i && !x.better(tier[i], tier[j]) {
			return false
		}
	}
	return true
}

// tied returns the candidates that are not worse than any other,
// or the whole tier if every candidate is worse than some other.
func tied(tier []*Candidate, worse *bitset.BitSet) []*Candidate {
	var ts []*Candidate
	n := uint(len(tier))
	for i, e := worse.NextClear(0); e && i < n; i, e = worse.NextClear(i + 1) {
		ts = append(ts, tier[i])
	}
	if len(ts) == 0 {
		return tier
	}
	return ts
}

// better returns whether p is a better function member than q.
// p is better if no argument converts better to q,
// and either some argument converts better to p,
// or the parameter types are the same
// and a tie-breaking rule prefers p.
func (x *state) better(p, q *Candidate) bool {
	var pBetter bool
	for i, arg := range p.args {
		switch x.cfg.Oracle.Better(arg, p.convs[i], q.convs[i]) {
		case -1:
			return false
		case 1:
			pBetter = true
		}
	}
	if pBetter {
		return true
	}
	if !sameParmTypes(p, q) {
		return false
	}
	switch {
	case p.Form == Normal && q.Form == Expanded:
		return true
	case p.Form == Expanded && q.Form == Normal:
		return false
	case p.Form == Expanded && len(p.Member.Parms) != len(q.Member.Parms):
		return len(p.Member.Parms) > len(q.Member.Parms)
	case p.defaults == 0 && q.defaults > 0:
		return true
	case p.defaults > 0 && q.defaults == 0:
		return false
	}
	return betterRefKinds(p, q)
}

func sameParmTypes(p, q *Candidate) bool {
	if len(p.parms) != len(q.parms) {
		return false
	}
	for i := range p.parms {
		if !decl.Identical(p.parms[i].Type, q.parms[i].Type) {
			return false
		}
	}
	return true
}

// betterRefKinds returns whether p passes some unmodified argument by value
// where q takes it as an in parameter, and the reverse never happens.
func betterRefKinds(p, q *Candidate) bool {
	var pBetter bool
	for i, arg := range p.args {
		if arg.Ref != decl.ByValue {
			continue
		}
		switch pr, qr := p.parms[i].Ref, q.parms[i].Ref; {
		case pr == decl.ByValue && qr == decl.In:
			pBetter = true
		case pr == decl.In && qr == decl.ByValue:
			return false
		}
	}
	return pBetter
}
