package conv

import (
	"testing"

	"github.com/eaburns/orp/decl"
)

const src = `
types:
  - name: I1
    kind: interface
  - name: I2
    kind: interface
  - name: I3
    kind: interface
    interfaces: [I1, I2]
  - name: B
    interfaces: [I1]
  - name: D
    base: B
    interfaces: [I3]
  - name: S
    kind: struct
    interfaces: [I2]
`

func load(t *testing.T) *decl.Mod {
	t.Helper()
	mod, errs := decl.Parse("test", src)
	if len(errs) > 0 {
		t.Fatalf("failed to load: %v", errs)
	}
	return mod
}

func typ(t *testing.T, mod *decl.Mod, name string) *decl.Type {
	t.Helper()
	if name == "" {
		return nil
	}
	if len(name) > 2 && name[len(name)-2:] == "[]" {
		return decl.ArrayOf(typ(t, mod, name[:len(name)-2]))
	}
	typ := mod.Type(name)
	if typ == nil {
		t.Fatalf("type %s not found", name)
	}
	return typ
}

func TestConvert(t *testing.T) {
	t.Parallel()
	mod := load(t)
	tests := []struct {
		from string // "" is the null literal
		to   string
		want Kind
	}{
		{from: "int", to: "int", want: Identity},
		{from: "int", to: "long", want: Numeric},
		{from: "long", to: "int", want: None},
		{from: "char", to: "ushort", want: Numeric},
		{from: "float", to: "double", want: Numeric},
		{from: "double", to: "float", want: None},
		{from: "int", to: "object", want: Boxing},
		{from: "S", to: "I2", want: Boxing},
		{from: "S", to: "I1", want: None},
		{from: "D", to: "B", want: Reference},
		{from: "D", to: "I1", want: Reference},
		{from: "D", to: "I2", want: Reference},
		{from: "B", to: "D", want: None},
		{from: "I3", to: "I1", want: Reference},
		{from: "I3", to: "object", want: Reference},
		{from: "I1", to: "I3", want: None},
		{from: "D[]", to: "B[]", want: Reference},
		{from: "int[]", to: "long[]", want: None},
		{from: "int[]", to: "object", want: Reference},
		{from: "", to: "I1", want: NullLiteral},
		{from: "", to: "string", want: NullLiteral},
		{from: "", to: "int", want: None},
	}
	for _, test := range tests {
		arg := decl.Arg{Type: typ(t, mod, test.from), Null: test.from == ""}
		got := Standard{}.Convert(arg, typ(t, mod, test.to))
		if got.Kind != test.want {
			t.Errorf("Convert(%s, %s)=%s, want %s", arg, test.to, got.Kind, test.want)
		}
	}
}

func TestBetter(t *testing.T) {
	t.Parallel()
	mod := load(t)
	tests := []struct {
		from   string
		t1, t2 string
		want   int
	}{
		{from: "int", t1: "int", t2: "long", want: 1},
		{from: "int", t1: "long", t2: "int", want: -1},
		{from: "byte", t1: "int", t2: "uint", want: 1},
		{from: "byte", t1: "ulong", t2: "long", want: -1},
		{from: "byte", t1: "short", t2: "ushort", want: 1},
		{from: "I3", t1: "I1", t2: "I2", want: 0},
		{from: "I3", t1: "I1", t2: "object", want: 1},
		{from: "D", t1: "B", t2: "I1", want: 1},
		{from: "D", t1: "I3", t2: "I1", want: 1},
		{from: "", t1: "I1", t2: "object", want: 1},
		{from: "", t1: "string", t2: "I1", want: 0},
	}
	for _, test := range tests {
		arg := decl.Arg{Type: typ(t, mod, test.from), Null: test.from == ""}
		c1 := Standard{}.Convert(arg, typ(t, mod, test.t1))
		c2 := Standard{}.Convert(arg, typ(t, mod, test.t2))
		if !c1.Exists() || !c2.Exists() {
			t.Fatalf("%s: conversions to %s or %s do not exist", arg, test.t1, test.t2)
		}
		if got := (Standard{}).Better(arg, c1, c2); got != test.want {
			t.Errorf("Better(%s, %s, %s)=%d, want %d", arg, test.t1, test.t2, got, test.want)
		}
	}
}
