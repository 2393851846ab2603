// Package decl is the declaration model consumed by overload resolution:
// types, member declarations, and call sites,
// along with a loader that reads them from YAML.
package decl

import (
	"sync"

	"github.com/eaburns/orp/loc"
)

// A Mod is a module: the unit of compilation.
// Mods are immutable once returned by Load or Parse.
type Mod struct {
	// Name is the module path.
	Name string
	// Version is the module's identity version.
	// References from other modules are to a Name and Version.
	Version string
	// Refs are the referenced modules, searched in order
	// after the module's own types and before the universe.
	Refs  []*Mod
	Types []*Type
	// Calls are the call sites declared by the module.
	Calls []*Call
	// Underlying is the original module of a retargeted module.
	Underlying *Mod
}

// Type returns the named type visible from the module, or nil.
// The name may be simple or namespace-qualified.
func (m *Mod) Type(name string) *Type {
	if m == nil {
		return nil
	}
	for _, t := range m.Types {
		if t.Name == name || t.FullName() == name {
			return t
		}
	}
	for _, r := range m.Refs {
		if t := r.ownType(name); t != nil {
			return t
		}
	}
	if m != univ {
		return univ.ownType(name)
	}
	return nil
}

func (m *Mod) ownType(name string) *Type {
	for _, t := range m.Types {
		if t.Name == name || t.FullName() == name {
			return t
		}
	}
	return nil
}

// Members returns all members declared by all types of the module,
// including indexer accessors, in declaration order.
func (m *Mod) Members() []*Member {
	var ms []*Member
	for _, t := range m.Types {
		for _, mem := range t.Members {
			ms = append(ms, mem)
			ms = append(ms, mem.Accessors...)
		}
	}
	return ms
}

// A Type is a named class, struct, interface, or static container,
// or an array type.
type Type struct {
	Name      string
	Namespace string
	Interface bool
	Struct    bool
	// Static types may declare extension members.
	Static bool
	// Base is the base class.
	// It is nil for object and for interfaces.
	Base *Type
	// Ifaces are the directly implemented or extended interfaces.
	Ifaces []*Type
	// Elem is the element type of an array type.
	Elem    *Type
	Members []*Member
	Mod     *Mod
	Loc     loc.Loc
	// Underlying is the original type of a retargeted type.
	Underlying *Type

	array *Type
}

// FullName returns the namespace-qualified name.
func (t *Type) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Copy returns a shallow copy of the type.
func (t *Type) Copy() *Type {
	c := *t
	c.array = nil
	return &c
}

// IsRef returns whether values of the type are references.
func (t *Type) IsRef() bool { return !t.Struct }

// Origin returns the type with all retargeting removed.
func (t *Type) Origin() *Type {
	for t.Underlying != nil {
		t = t.Underlying
	}
	return t
}

// Identical returns whether two types are the same
// once retargeting is removed.
func Identical(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	a, b = a.Origin(), b.Origin()
	if a.Elem != nil && b.Elem != nil {
		return Identical(a.Elem, b.Elem)
	}
	return a == b
}

var arrayMu sync.Mutex

// ArrayOf returns the array type with element type elem.
// Every call with the same elem returns the same *Type.
func ArrayOf(elem *Type) *Type {
	arrayMu.Lock()
	defer arrayMu.Unlock()
	if elem.array == nil {
		elem.array = &Type{
			Name:      elem.Name + "[]",
			Namespace: elem.Namespace,
			Base:      univ.ownType("object"),
			Elem:      elem,
			Mod:       elem.Mod,
		}
	}
	return elem.array
}

// Kind is the kind of a member declaration.
type Kind int

// The member kinds.
const (
	Method Kind = iota
	Constructor
	Operator
	ConversionOperator
	Indexer
	Getter
	Setter
	Property
	Event
	Destructor
	StaticConstructor
	LocalFunction
	Lambda
)

var kindNames = [...]string{
	Method:             "method",
	Constructor:        "constructor",
	Operator:           "operator",
	ConversionOperator: "conversion operator",
	Indexer:            "indexer",
	Getter:             "get accessor",
	Setter:             "set accessor",
	Property:           "property",
	Event:              "event",
	Destructor:         "destructor",
	StaticConstructor:  "static constructor",
	LocalFunction:      "local function",
	Lambda:             "lambda",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// RefKind is the by-reference kind of a parameter or argument.
type RefKind int

// The by-reference kinds.
const (
	ByValue RefKind = iota
	Ref
	Out
	In
)

func (r RefKind) String() string {
	switch r {
	case Ref:
		return "ref"
	case Out:
		return "out"
	case In:
		return "in"
	default:
		return ""
	}
}

// PartialRole is the role of one part of a partial member.
type PartialRole int

// The partial roles.
const (
	NotPartial PartialRole = iota
	Definition
	Implementation
)

// A Param is a parameter of a member.
type Param struct {
	Name string
	Type *Type
	Ref  RefKind
	// Optional parameters have a default value.
	Optional bool
	// Params is set on a trailing params array parameter.
	Params bool
}

// An Attr is one textual attribute instance on a declaration.
type Attr struct {
	// Name is the attribute type name as written.
	Name string
	Args []int64
	Loc  loc.Loc
}

// A Member is one declaration of a method, constructor, operator,
// indexer, or of any other member kind an attribute might be placed on.
type Member struct {
	Name      string
	Kind      Kind
	Parms     []Param
	Container *Type
	Static    bool
	// Receiver is the extended type of an extension member.
	Receiver *Type
	Virtual  bool
	// IsOverride is set on override declarations.
	// Override points to the overridden declaration.
	IsOverride bool
	Override   *Member
	// Explicit is the interface member explicitly implemented.
	Explicit *Member
	Partial  PartialRole
	Attrs    []Attr
	// Accessors are the get and set accessors of an indexer.
	// Owner is the indexer of an accessor.
	Accessors []*Member
	Owner     *Member
	// FromMeta is set on members read from module metadata.
	// Meta holds the persisted priority attribute blob, if any.
	FromMeta bool
	Meta     []byte
	// Underlying is the original member of a retargeted member.
	Underlying *Member
	Loc        loc.Loc
}

// Extension returns whether the member is an extension member.
func (m *Member) Extension() bool { return m.Receiver != nil }

// Origin returns the member with all retargeting removed.
func (m *Member) Origin() *Member {
	for m.Underlying != nil {
		m = m.Underlying
	}
	return m
}

// Introducer returns the least-derived declaration of an override chain.
func (m *Member) Introducer() *Member {
	seen := make(map[*Member]bool)
	for m.Override != nil && !seen[m] {
		seen[m] = true
		m = m.Override
	}
	return m
}

// Accessor returns the get or set accessor of an indexer, or nil.
func (m *Member) Accessor(k Kind) *Member {
	for _, a := range m.Accessors {
		if a.Kind == k {
			return a
		}
	}
	return nil
}

// Mod returns the declaring module.
func (m *Member) Mod() *Mod {
	if m.Container == nil {
		return nil
	}
	return m.Container.Mod
}

// CallKind is the syntactic form of a call site.
type CallKind int

// The call kinds.
const (
	MethodCall CallKind = iota
	CtorCall
	IndexerCall
	OperatorCall
)

func (k CallKind) String() string {
	switch k {
	case CtorCall:
		return "constructor call"
	case IndexerCall:
		return "indexer access"
	case OperatorCall:
		return "operator"
	default:
		return "method call"
	}
}

// An Arg is one argument of a call site.
type Arg struct {
	Type *Type
	Ref  RefKind
	// Null is set for the null literal; Type is nil.
	Null bool
}

// A Call is a call site: a method call, constructor call,
// indexer access, or operator application.
type Call struct {
	// ID names the call site for reporting.
	ID   string
	Kind CallKind
	// Name is the method name or operator token.
	// It is unused for constructor calls and indexer accesses.
	Name string
	// Recv is the receiver type, or nil for operators.
	// For constructor calls it is the constructed type.
	Recv *Type
	// Static is set when the receiver is a type name.
	Static bool
	// Extension is whether extension members may be considered.
	Extension bool
	// Set is set for an indexer assignment.
	Set bool
	// Namespace is the namespace enclosing the call site.
	Namespace string
	Args      []Arg
	Mod       *Mod
	Loc       loc.Loc
}
