package resolve

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/eaburns/orp/decl"
)

// Narrow returns the candidates of the highest priority tier.
//
// Priority only ranks candidates declared by the same container:
// candidates are grouped by container, and each group keeps its own top tier.
// Candidates of one container, the usual case, narrow to the single highest tier.
// The relative order of the candidates is preserved.
func (r *Resolver) Narrow(cands []*Candidate) []*Candidate {
	return r.newState().narrow(cands)
}

func (x *state) narrow(cands []*Candidate) (tier []*Candidate) {
	defer x.tr("narrow(%d candidates)", len(cands))()
	keep := topTiers(cands)
	for i, e := keep.NextSet(0); e; i, e = keep.NextSet(i + 1) {
		tier = append(tier, cands[i])
	}
	if len(tier) < len(cands) {
		for _, c := range tier {
			x.log("kept %s priority %d", c.Member, c.Priority)
		}
	}
	return tier
}

// topTiers returns the set of indices of candidates
// whose priority is the highest of their container.
func topTiers(cands []*Candidate) *bitset.BitSet {
	top := make(map[*decl.Type]int32)
	for _, c := range cands {
		if p, ok := top[c.Container]; !ok || c.Priority > p {
			top[c.Container] = c.Priority
		}
	}
	keep := bitset.New(uint(len(cands)))
	for i, c := range cands {
		if c.Priority == top[c.Container] {
			keep.Set(uint(i))
		}
	}
	return keep
}
