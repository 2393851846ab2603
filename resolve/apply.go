package resolve

import (
	"fmt"

	"github.com/eaburns/orp/conv"
	"github.com/eaburns/orp/decl"
)

// IsApplicable returns whether the candidate's parameter list
// accepts the call site's arguments in normal or expanded form.
// It does not consider priority.
func (r *Resolver) IsApplicable(c *Candidate, call *decl.Call) bool {
	a, _ := r.newState().apply(c, call)
	return a != nil
}

// filterApplicable returns the applicable candidates,
// and notes explaining why the others are not.
func (x *state) filterApplicable(cands []*Candidate, call *decl.Call) ([]*Candidate, []string) {
	defer x.tr("filterApplicable(%d candidates)", len(cands))()
	var as []*Candidate
	var notes []string
	for _, c := range cands {
		a, why := x.apply(c, call)
		if a == nil {
			x.log("%s: not applicable: %s", c.Member, why)
			notes = append(notes, fmt.Sprintf("%s: %s", c.Member, why))
			continue
		}
		x.log("%s: applicable in %s form", c.Member, a.Form)
		as = append(as, a)
	}
	return as, notes
}

// apply returns a copy of the candidate with its applicable form
// and conversions set, or nil and a reason if it is not applicable.
func (x *state) apply(c *Candidate, call *decl.Call) (*Candidate, string) {
	var args []decl.Arg
	var recvConv []conv.Conversion
	if c.Member.Extension() {
		recv := decl.Arg{Type: call.Recv}
		cv := x.cfg.Oracle.Convert(recv, c.Member.Receiver)
		switch cv.Kind {
		case conv.Identity, conv.Reference, conv.Boxing:
		default:
			return nil, fmt.Sprintf("receiver %s is not an extension receiver of type %s", call.Recv, c.Member.Receiver)
		}
		args = append(args, recv)
		recvConv = append(recvConv, cv)
	}
	args = append(args, call.Args...)

	a, why := x.applyForm(c, call, Normal)
	if a == nil && isParamsMember(c.Member) {
		var whyExp string
		if a, whyExp = x.applyForm(c, call, Expanded); a == nil {
			why = whyExp
		}
	}
	if a == nil {
		return nil, why
	}
	a.args = args
	a.convs = append(recvConv, a.convs...)
	if len(recvConv) > 0 {
		recvParm := decl.Param{Type: c.Member.Receiver}
		a.parms = append([]decl.Param{recvParm}, a.parms...)
	}
	return a, ""
}

func isParamsMember(m *decl.Member) bool {
	n := len(m.Parms)
	return n > 0 && m.Parms[n-1].Params
}

func (x *state) applyForm(c *Candidate, call *decl.Call, form Form) (*Candidate, string) {
	parms := c.Member.Parms
	var fixed []decl.Param
	var elem *decl.Param
	if form == Expanded {
		fixed = parms[:len(parms)-1]
		elem = &decl.Param{Type: parms[len(parms)-1].Type.Elem}
	} else {
		fixed = parms
		if len(call.Args) > len(fixed) {
			return nil, fmt.Sprintf("got %d arguments, expected at most %d", len(call.Args), len(fixed))
		}
	}
	a := *c
	a.Form = form
	a.parms = nil
	a.convs = nil
	for i, arg := range call.Args {
		var p decl.Param
		switch {
		case i < len(fixed):
			p = fixed[i]
		default:
			p = *elem
		}
		cv, why := x.convertArg(arg, p)
		if why != "" {
			return nil, fmt.Sprintf("argument %d: %s", i+1, why)
		}
		a.parms = append(a.parms, p)
		a.convs = append(a.convs, cv)
	}
	for i := len(call.Args); i < len(fixed); i++ {
		if !fixed[i].Optional {
			return nil, fmt.Sprintf("got %d arguments, expected %d", len(call.Args), requiredParms(parms, form))
		}
		a.defaults++
	}
	return &a, ""
}

func requiredParms(parms []decl.Param, form Form) int {
	var n int
	for _, p := range parms {
		if !p.Optional && !(form == Expanded && p.Params) {
			n++
		}
	}
	return n
}

// convertArg returns the conversion of an argument to a parameter,
// or a reason why there is none.
// ref and out parameters need an argument with the same modifier
// and an identical type; in parameters also accept unmodified arguments.
func (x *state) convertArg(arg decl.Arg, p decl.Param) (conv.Conversion, string) {
	switch {
	case p.Ref == decl.Ref || p.Ref == decl.Out || p.Ref == decl.In && arg.Ref == decl.In:
		if arg.Ref != p.Ref {
			return conv.Conversion{}, fmt.Sprintf("%s must be passed with the %s keyword", arg, p.Ref)
		}
		cv := x.cfg.Oracle.Convert(arg, p.Type)
		if cv.Kind != conv.Identity {
			return conv.Conversion{}, fmt.Sprintf("%s argument type %s does not match %s", p.Ref, arg.Type, p.Type)
		}
		return cv, ""
	case arg.Ref != decl.ByValue:
		return conv.Conversion{}, fmt.Sprintf("%s must not be passed with the %s keyword", arg, arg.Ref)
	}
	cv := x.cfg.Oracle.Convert(arg, p.Type)
	if !cv.Exists() {
		return conv.Conversion{}, fmt.Sprintf("cannot convert %s to %s", arg, p.Type)
	}
	return cv, ""
}
