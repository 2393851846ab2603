// Package conv classifies implicit conversions of call arguments
// to parameter types and judges which of two conversions is better.
package conv

import (
	"github.com/eaburns/orp/decl"
)

// Kind is the kind of an implicit conversion.
type Kind int

// The conversion kinds.
const (
	None Kind = iota
	Identity
	Numeric
	Reference
	Boxing
	NullLiteral
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Numeric:
		return "implicit numeric"
	case Reference:
		return "implicit reference"
	case Boxing:
		return "boxing"
	case NullLiteral:
		return "null literal"
	default:
		return "none"
	}
}

// A Conversion is an implicit conversion from an argument to a type.
type Conversion struct {
	Kind Kind
	To   *decl.Type
}

// Exists returns whether the conversion exists.
func (c Conversion) Exists() bool { return c.Kind != None }

// An Oracle classifies conversions for overload resolution.
//
// Implementations must be safe for concurrent use.
type Oracle interface {
	// Convert returns the implicit conversion from arg to a value of type to.
	// The argument's ref kind is not considered.
	Convert(arg decl.Arg, to *decl.Type) Conversion

	// Better compares two existing conversions of the same argument.
	// It returns 1 if c1 is better, -1 if c2 is better, and 0 otherwise.
	Better(arg decl.Arg, c1, c2 Conversion) int
}

// Standard is the standard Oracle over the decl type model.
type Standard struct{}

var _ Oracle = Standard{}

// Convert implements Oracle.
func (Standard) Convert(arg decl.Arg, to *decl.Type) Conversion {
	if to == nil {
		return Conversion{}
	}
	if arg.Null {
		if to.IsRef() {
			return Conversion{Kind: NullLiteral, To: to}
		}
		return Conversion{}
	}
	k := classify(arg.Type, to)
	if k == None {
		return Conversion{}
	}
	return Conversion{Kind: k, To: to}
}

// Better implements Oracle.
func (s Standard) Better(arg decl.Arg, c1, c2 Conversion) int {
	t1, t2 := c1.To.Origin(), c2.To.Origin()
	if decl.Identical(t1, t2) {
		return 0
	}
	if !arg.Null {
		switch {
		case decl.Identical(arg.Type, t1):
			return 1
		case decl.Identical(arg.Type, t2):
			return -1
		}
	}
	switch {
	case BetterTarget(t1, t2):
		return 1
	case BetterTarget(t2, t1):
		return -1
	default:
		return 0
	}
}

// BetterTarget returns whether t1 is a better conversion target than t2:
// there is an implicit conversion from t1 to t2 but not from t2 to t1,
// or t1 is a signed integral type and t2 is an unsigned one
// that cannot hold all of its negative values.
func BetterTarget(t1, t2 *decl.Type) bool {
	c12 := classify(t1, t2) != None
	c21 := classify(t2, t1) != None
	if c12 && !c21 {
		return true
	}
	return signedBetter[[2]string{t1.Origin().Name, t2.Origin().Name}] &&
		isBuiltin(t1) && isBuiltin(t2)
}

var signedBetter = map[[2]string]bool{
	{"sbyte", "byte"}: true, {"sbyte", "ushort"}: true, {"sbyte", "uint"}: true, {"sbyte", "ulong"}: true,
	{"short", "ushort"}: true, {"short", "uint"}: true, {"short", "ulong"}: true,
	{"int", "uint"}: true, {"int", "ulong"}: true,
	{"long", "ulong"}: true,
}

var numeric = map[string][]string{
	"sbyte":  {"short", "int", "long", "float", "double", "decimal"},
	"byte":   {"short", "ushort", "int", "uint", "long", "ulong", "float", "double", "decimal"},
	"short":  {"int", "long", "float", "double", "decimal"},
	"ushort": {"int", "uint", "long", "ulong", "float", "double", "decimal"},
	"int":    {"long", "float", "double", "decimal"},
	"uint":   {"long", "ulong", "float", "double", "decimal"},
	"long":   {"float", "double", "decimal"},
	"ulong":  {"float", "double", "decimal"},
	"char":   {"ushort", "int", "uint", "long", "ulong", "float", "double", "decimal"},
	"float":  {"double"},
}

func isBuiltin(t *decl.Type) bool {
	t = t.Origin()
	return t.Mod == decl.Universe() && t.Elem == nil
}

func classify(from, to *decl.Type) Kind {
	if from == nil || to == nil {
		return None
	}
	from, to = from.Origin(), to.Origin()
	if decl.Identical(from, to) {
		return Identity
	}
	if isBuiltin(from) && isBuiltin(to) {
		for _, n := range numeric[from.Name] {
			if n == to.Name {
				return Numeric
			}
		}
	}
	switch {
	case !to.IsRef():
		return None
	case to == decl.Object() && !from.IsRef():
		return Boxing
	case to == decl.Object():
		return Reference
	case from.Elem != nil && to.Elem != nil:
		if from.Elem.IsRef() && to.Elem.IsRef() && classify(from.Elem, to.Elem) == Reference {
			return Reference
		}
		return None
	case derives(from, to) && from.IsRef():
		return Reference
	case derives(from, to):
		return Boxing
	default:
		return None
	}
}

// derives returns whether to is a proper ancestor of from:
// a base class or an implemented or extended interface.
func derives(from, to *decl.Type) bool {
	seen := make(map[*decl.Type]bool)
	var walk func(*decl.Type) bool
	walk = func(t *decl.Type) bool {
		if t == nil || seen[t] {
			return false
		}
		seen[t] = true
		for _, it := range t.Ifaces {
			if it.Origin() == to || walk(it.Origin()) {
				return true
			}
		}
		if t.Base == nil {
			return false
		}
		b := t.Base.Origin()
		return b == to || walk(b)
	}
	return walk(from)
}
