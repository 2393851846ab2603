package meta_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eaburns/orp/decl"
	"github.com/eaburns/orp/meta"
	"github.com/eaburns/orp/resolve"
)

const libSrc = `
module: lib
types:
  - name: B
    members:
      - name: M
        parms: [int]
        virtual: true
        attrs: ["OverloadResolutionPriority(5)"]
      - name: M
        parms: [long]
  - name: D
    base: B
    interfaces: [I]
    members:
      - name: M
        parms: [int]
        override: true
      - name: N
        parms: [int]
        explicit: I
  - name: I
    kind: interface
    members:
      - name: N
        parms: [int]
  - name: S
    kind: struct
    members:
      - kind: ctor
        parms: [ref int, in long, "int x = 0"]
  - name: P
    members:
      - name: Q
        parms: [int]
        partial: definition
        attrs: ["OverloadResolutionPriority(-2)"]
      - name: Q
        parms: [int]
        partial: implementation
      - kind: indexer
        parms: [string]
        attrs: ["OverloadResolutionPriority(3)"]
        get: {}
        set: {}
  - name: Ext
    kind: static
    namespace: N1
    members:
      - name: E
        this: "int[]"
        parms: ["params long[]"]
`

func TestWriteRead(t *testing.T) {
	t.Parallel()
	lib, errs := decl.Parse("lib", libSrc)
	if len(errs) > 0 {
		t.Fatalf("failed to load: %v", errs)
	}
	r := resolve.New(resolve.Config{})
	var buf bytes.Buffer
	if err := meta.Write(&buf, lib, r.ReadPriority); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	got, err := meta.Read(&buf)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	for _, m := range got.Members() {
		if !m.FromMeta {
			t.Errorf("%s: FromMeta is not set", m)
		}
	}
	if diff := cmp.Diff(summarize(r, lib), summarize(r, got)); diff != "" {
		t.Errorf("modules do not match:\n%s", diff)
	}
	if errs := r.Diagnostics(got); len(errs) > 0 {
		t.Errorf("got diagnostics %v", errs)
	}
}

func TestWriteReadWriteIsStable(t *testing.T) {
	t.Parallel()
	lib, errs := decl.Parse("lib", libSrc)
	if len(errs) > 0 {
		t.Fatalf("failed to load: %v", errs)
	}
	r := resolve.New(resolve.Config{})
	var first bytes.Buffer
	if err := meta.Write(&first, lib, r.ReadPriority); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	want := append([]byte{}, first.Bytes()...)
	got, err := meta.Read(&first)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	var second bytes.Buffer
	if err := meta.Write(&second, got, r.ReadPriority); err != nil {
		t.Fatalf("failed to rewrite: %v", err)
	}
	if !bytes.Equal(want, second.Bytes()) {
		t.Errorf("rewritten metadata differs")
	}
}

func TestPriorityBlobs(t *testing.T) {
	t.Parallel()
	lib, errs := decl.Parse("lib", libSrc)
	if len(errs) > 0 {
		t.Fatalf("failed to load: %v", errs)
	}
	r := resolve.New(resolve.Config{})
	var buf bytes.Buffer
	if err := meta.Write(&buf, lib, r.ReadPriority); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	got, err := meta.Read(&buf)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	blobs := make(map[string][]byte)
	for _, m := range got.Members() {
		if m.Meta != nil {
			blobs[m.String()] = m.Meta
		}
	}
	want := map[string][]byte{
		"B.M(int)":       meta.Persist(5),
		"P.Q(int)":       meta.Persist(-2),
		"P.this[string]": meta.Persist(3),
	}
	if diff := cmp.Diff(want, blobs); diff != "" {
		t.Errorf("blobs differ:\n%s", diff)
	}
}

const appSrc = `
module: app
references: [lib]
types:
  - name: C
    base: B
    members:
      - name: M
        parms: [int]
        override: true
`

func TestReadRetargetedReference(t *testing.T) {
	t.Parallel()
	lib1, errs := decl.Parse("lib", libSrc)
	if len(errs) > 0 {
		t.Fatalf("failed to load lib: %v", errs)
	}
	app, errs := decl.Parse("app", appSrc, lib1)
	if len(errs) > 0 {
		t.Fatalf("failed to load app: %v", errs)
	}
	r := resolve.New(resolve.Config{})
	var buf bytes.Buffer
	if err := meta.Write(&buf, app, r.ReadPriority); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	lib2, errs := decl.Parse("lib", "version: 2.0.0\n"+libSrc)
	if len(errs) > 0 {
		t.Fatalf("failed to load lib: %v", errs)
	}
	got, err := meta.Read(&buf, lib2)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	ref := got.Refs[0]
	if ref.Version != lib1.Version || ref.Underlying != lib2 {
		t.Fatalf("reference is %s %s, want %s retargeted from %s",
			ref.Name, ref.Version, lib1.Version, lib2.Version)
	}
	if meta.Retarget(lib2, lib1.Version) != ref {
		t.Errorf("Retarget returned a different module")
	}

	c := got.Type("C")
	if c.Base.Origin() != lib2.Type("B") {
		t.Errorf("C's base is %v, want lib2's B", c.Base)
	}
	call := &decl.Call{
		Kind:      decl.MethodCall,
		Name:      "M",
		Recv:      c,
		Extension: true,
		Args:      []decl.Arg{{Type: decl.Builtin("int")}},
		Mod:       got,
	}
	best, err := r.Resolve(call)
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if best.Priority != 5 {
		t.Errorf("got priority %d, want 5", best.Priority)
	}
	if best.Member.Origin() != lib2.Type("B").Members[0] {
		t.Errorf("got %s from %s, want lib2's B.M(int)", best.Member, best.Member.Mod().Name)
	}
	if best.Target != c.Members[0] {
		t.Errorf("got target %s, want C.M(int)", best.Target)
	}
}

func TestReadMissingReference(t *testing.T) {
	t.Parallel()
	lib, errs := decl.Parse("lib", libSrc)
	if len(errs) > 0 {
		t.Fatalf("failed to load lib: %v", errs)
	}
	app, errs := decl.Parse("app", appSrc, lib)
	if len(errs) > 0 {
		t.Fatalf("failed to load app: %v", errs)
	}
	var buf bytes.Buffer
	if err := meta.Write(&buf, app, resolve.New(resolve.Config{}).ReadPriority); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if _, err := meta.Read(&buf); err == nil || !strings.Contains(err.Error(), "reference lib not found") {
		t.Errorf("got %v, want reference lib not found", err)
	}
}

func summarize(r *resolve.Resolver, m *decl.Mod) []string {
	var ss []string
	ss = append(ss, m.Name+" "+m.Version)
	for _, t := range m.Types {
		s := fmt.Sprintf("type %s base=%v interface=%v struct=%v static=%v",
			t.FullName(), t.Base, t.Interface, t.Struct, t.Static)
		for _, it := range t.Ifaces {
			s += " " + it.FullName()
		}
		ss = append(ss, s)
		for _, mem := range meta.Exported(t) {
			ss = append(ss, summarizeMember(r, mem))
			for _, a := range mem.Accessors {
				ss = append(ss, summarizeMember(r, a))
			}
		}
	}
	return ss
}

func summarizeMember(r *resolve.Resolver, m *decl.Member) string {
	s := fmt.Sprintf("%s %s priority=%d static=%v virtual=%v",
		m.Kind, m, r.ReadPriority(m), m.Static, m.Virtual)
	if m.Override != nil {
		s += " overrides " + m.Override.String()
	}
	if m.Owner != nil {
		s += " owner " + m.Owner.String()
	}
	return s
}
