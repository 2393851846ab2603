package resolve

import (
	"math"

	"github.com/eaburns/orp/decl"
	"github.com/eaburns/orp/meta"
)

// binding is the published result of binding
// the priority attributes of one declaration.
type binding struct {
	value int32
	errs  []checkError
}

// A traversal is the cycle-breaking state of one attribute binding traversal.
// A declaration is Resolving while it is on the stack,
// and Resolved once its binding is published in the memo table.
//
// Declarations are visited in the manner of Tarjan's algorithm:
// index and low are the discovery index and low-link of each declaration
// still on the stack, and frames are the declarations whose attributes
// are being bound, innermost last.
// A re-entrant read of a declaration on the stack is treated as no attribute.
// When a component of mutually dependent declarations completes,
// each of its declarations is bound again with every member of the component
// reading as no attribute, and the component is published as a whole.
// The published values thus do not depend on which declaration was read first.
type traversal struct {
	stack  []*decl.Member
	index  map[*decl.Member]int
	low    map[*decl.Member]int
	frames []*decl.Member
	next   int
	// frozen is the component being re-bound, if any.
	frozen map[*decl.Member]bool
}

func newTraversal() *traversal {
	return &traversal{
		index: make(map[*decl.Member]int),
		low:   make(map[*decl.Member]int),
	}
}

// ReadPriority returns the effective priority of a declaration.
//
// Overrides read the priority of the declaration that introduced the member,
// accessors read their indexer's priority,
// partial implementations read their definition's priority,
// retargeted members read through to their underlying members,
// and members loaded from metadata decode their persisted attribute.
// Declarations with no priority attribute, or whose attribute is misplaced, have priority 0.
func (r *Resolver) ReadPriority(m *decl.Member) int32 {
	return r.newState().readPriority(m)
}

func (x *state) readPriority(m *decl.Member) int32 {
	return x.bind(canonical(m)).value
}

// canonical returns the declaration whose attributes govern m's priority.
func canonical(m *decl.Member) *decl.Member {
	m = m.Origin()
	if (m.Kind == decl.Getter || m.Kind == decl.Setter) && m.Owner != nil {
		m = m.Owner.Origin()
	}
	m = m.Introducer().Origin()
	if m.Partial == decl.Implementation {
		if def := definitionOf(m); def != nil {
			m = def
		}
	}
	return m
}

func definitionOf(impl *decl.Member) *decl.Member {
	sig := impl.Signature()
	for _, m := range impl.Container.Members {
		if m.Partial == decl.Definition && m.Signature() == sig {
			return m
		}
	}
	return nil
}

func implementationOf(def *decl.Member) *decl.Member {
	sig := def.Signature()
	for _, m := range def.Container.Members {
		if m.Partial == decl.Implementation && m.Signature() == sig {
			return m
		}
	}
	return nil
}

// bind returns the binding of the declaration's own priority attributes.
func (x *state) bind(m *decl.Member) *binding {
	m = m.Origin()
	if b, ok := x.memo.Load(m); ok {
		return b.(*binding)
	}
	if x.trav == nil {
		x.bindMu.Lock()
		defer x.bindMu.Unlock()
		if b, ok := x.memo.Load(m); ok {
			return b.(*binding)
		}
		y := *x
		y.trav = newTraversal()
		return y.bind(m)
	}
	t := x.trav
	if t.frozen[m] {
		x.log("cycle binding %s: treated as no attribute", m)
		return &binding{}
	}
	if i, ok := t.index[m]; ok {
		// Re-entrant: the attribute is treated as not applied.
		x.log("cycle binding %s: treated as no attribute", m)
		if n := len(t.frames); n > 0 {
			if top := t.frames[n-1]; i < t.low[top] {
				t.low[top] = i
			}
		}
		return &binding{}
	}
	k := t.next
	t.next++
	t.index[m] = k
	t.low[m] = k
	t.stack = append(t.stack, m)
	t.frames = append(t.frames, m)

	b := x.bindAttrs(m)

	t.frames = t.frames[:len(t.frames)-1]
	if n := len(t.frames); n > 0 {
		if parent := t.frames[n-1]; t.low[m] < t.low[parent] {
			t.low[parent] = t.low[m]
		}
	}
	if t.low[m] < k {
		return b
	}
	var comp []*decl.Member
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		delete(t.index, top)
		delete(t.low, top)
		comp = append(comp, top)
		if top == m {
			break
		}
	}
	if len(comp) == 1 {
		actual, _ := x.memo.LoadOrStore(m, b)
		return actual.(*binding)
	}
	return x.publishComponent(m, comp)
}

// publishComponent binds each declaration of a completed cycle component
// with every member of the component reading as no attribute,
// publishes all of the bindings, and returns the binding of m.
func (x *state) publishComponent(m *decl.Member, comp []*decl.Member) *binding {
	x.log("binding cycle component of %d declarations", len(comp))
	y := *x
	y.trav = newTraversal()
	y.trav.frozen = make(map[*decl.Member]bool, len(comp))
	for _, c := range comp {
		y.trav.frozen[c] = true
	}
	bs := make([]*binding, len(comp))
	for i, c := range comp {
		bs[i] = y.bindAttrs(c)
	}
	var result *binding
	for i, c := range comp {
		actual, _ := x.memo.LoadOrStore(c, bs[i])
		if c == m {
			result = actual.(*binding)
		}
	}
	return result
}

func (x *state) bindAttrs(m *decl.Member) *binding {
	defer x.tr("bindAttrs(%s)", m)()
	b := &binding{}
	if m.FromMeta {
		if m.Meta != nil {
			v, err := meta.Load(m.Meta)
			if err != nil {
				b.errs = append(b.errs, *x.memberErr(m, "bad priority metadata: %s", err))
			} else {
				b.value = v
			}
		}
		return b
	}

	if m.Partial == decl.Implementation && definitionOf(m) != nil {
		return b // bound with the definition
	}
	attrs := m.Attrs
	if m.Partial == decl.Definition {
		if impl := implementationOf(m); impl != nil {
			attrs = append(append([]decl.Attr{}, attrs...), impl.Attrs...)
		}
	}
	var found, dup bool
	var at decl.Attr
	for _, a := range attrs {
		v, ok := x.bindAttr(m, a, b)
		if !ok {
			continue
		}
		if found && !dup {
			dup = true
			err := x.err(a.Loc, "duplicate OverloadResolutionPriority attribute")
			note(err, "previous attribute is at %s", at.Loc)
			b.errs = append(b.errs, *err)
		}
		found = true
		at = a
		b.value = v
	}
	if !found {
		return b
	}
	if msg := misplaced(m); msg != "" {
		b.errs = append(b.errs, *x.err(at.Loc, "OverloadResolutionPriority attribute %s", msg))
		b.value = 0
	}
	return b
}

// misplaced returns why a priority attribute cannot be placed on m,
// or "" if it can.
func misplaced(m *decl.Member) string {
	switch {
	case m.Kind == decl.Getter || m.Kind == decl.Setter:
		return "cannot be applied to an accessor; apply it to the indexer"
	case m.IsOverride:
		return "cannot be applied to an override; the priority is that of the overridden member"
	case m.Explicit != nil:
		return "cannot be applied to an explicit interface implementation"
	}
	switch k := m.Kind.String(); m.Kind {
	case decl.Method, decl.Constructor, decl.Operator, decl.Indexer:
		return ""
	case decl.Event:
		return "cannot be applied to an " + k
	default:
		return "cannot be applied to a " + k
	}
}

// bindAttr binds one attribute instance on m.
// It reports whether the attribute is a priority attribute, and its value.
// Errors are added to b.
func (x *state) bindAttr(m *decl.Member, a decl.Attr, b *binding) (int32, bool) {
	t := attrType(m.Mod(), a.Name)
	if t == nil {
		b.errs = append(b.errs, *x.err(a.Loc, "attribute type %s not found", a.Name))
		return 0, false
	}
	if !decl.IsPriorityAttrType(t) {
		return 0, false
	}
	call := &decl.Call{
		Kind: decl.CtorCall,
		Recv: t,
		Mod:  m.Mod(),
		Loc:  a.Loc,
	}
	for _, v := range a.Args {
		typ := decl.Builtin("int")
		if v < math.MinInt32 || v > math.MaxInt32 {
			typ = decl.Builtin("long")
		}
		call.Args = append(call.Args, decl.Arg{Type: typ})
	}
	ctor, err := x.resolve(call)
	if err != nil {
		cerr := x.err(a.Loc, "cannot bind attribute %s", a.Name)
		note(cerr, "%s", err)
		b.errs = append(b.errs, *cerr)
		return 0, false
	}
	if !isPriorityCtor(ctor.Member) {
		cerr := x.err(a.Loc, "cannot bind attribute %s", a.Name)
		note(cerr, "%s is not the priority constructor", ctor.Member)
		b.errs = append(b.errs, *cerr)
		return 0, false
	}
	return int32(a.Args[0]), true
}

// attrType looks up an attribute type by the name written in the attribute:
// first with the Attribute suffix, then as written.
func attrType(m *decl.Mod, name string) *decl.Type {
	if m == nil {
		m = decl.Universe()
	}
	if t := m.Type(name + "Attribute"); t != nil {
		return t
	}
	return m.Type(name)
}

func isPriorityCtor(m *decl.Member) bool {
	return len(m.Parms) == 1 &&
		m.Parms[0].Ref == decl.ByValue &&
		decl.Identical(m.Parms[0].Type, decl.Builtin("int"))
}
