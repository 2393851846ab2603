package decl

// PriorityAttrNamespace and PriorityAttrName name
// the overload resolution priority attribute type.
const (
	PriorityAttrNamespace = "System.Runtime.CompilerServices"
	PriorityAttrName      = "OverloadResolutionPriorityAttribute"
)

// The built-in numeric types, in the order used by
// the implicit numeric conversion table.
var numericNames = []string{
	"sbyte", "byte", "short", "ushort", "int", "uint",
	"long", "ulong", "char", "float", "double", "decimal",
}

var univ = newUniv()

// Universe returns the module of built-in types.
// Every module implicitly references it last.
func Universe() *Mod { return univ }

func newUniv() *Mod {
	m := &Mod{Name: "<universe>", Version: "0.0.0"}
	object := &Type{Name: "object", Namespace: "System", Mod: m}
	m.Types = append(m.Types, object)
	add := func(name string, strct bool) *Type {
		t := &Type{Name: name, Namespace: "System", Struct: strct, Base: object, Mod: m}
		m.Types = append(m.Types, t)
		return t
	}
	add("string", false)
	add("bool", true)
	for _, n := range numericNames {
		add(n, true)
	}
	attr := &Type{
		Name:      PriorityAttrName,
		Namespace: PriorityAttrNamespace,
		Base:      object,
		Mod:       m,
	}
	attr.Members = []*Member{{
		Name:      attr.Name,
		Kind:      Constructor,
		Container: attr,
		Parms:     []Param{{Name: "priority", Type: m.ownType("int")}},
	}}
	m.Types = append(m.Types, attr)
	return m
}

// IsPriorityAttrType returns whether t is an overload resolution priority attribute type.
// A module may declare its own type with the well-known name.
func IsPriorityAttrType(t *Type) bool {
	t = t.Origin()
	return t.Name == PriorityAttrName &&
		(t.Namespace == PriorityAttrNamespace || t.Namespace == "")
}

// Object returns the object type.
func Object() *Type { return univ.ownType("object") }

// Builtin returns the named built-in type, or nil.
func Builtin(name string) *Type { return univ.ownType(name) }
