package meta

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"

	"github.com/eaburns/orp/decl"
)

const (
	magic         = "orp metadata"
	formatVersion = 1
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// document is the persisted form of a module.
type document struct {
	Name    string    `cbor:"1,keyasint"`
	Version string    `cbor:"2,keyasint,omitempty"`
	Refs    []modRef  `cbor:"3,keyasint,omitempty"`
	Types   []typeDoc `cbor:"4,keyasint,omitempty"`
}

// modRef is the identity of a referenced module.
type modRef struct {
	Name    string `cbor:"1,keyasint"`
	Version string `cbor:"2,keyasint,omitempty"`
}

const (
	selfMod = iota
	univMod
	firstRef
)

// typeRef names a type by its module and full name.
// Mod is selfMod, univMod, or firstRef plus the index of a reference.
// Rank is the number of array dimensions wrapped around the named type.
type typeRef struct {
	Mod  int    `cbor:"1,keyasint,omitempty"`
	Name string `cbor:"2,keyasint"`
	Rank int    `cbor:"3,keyasint,omitempty"`
}

// memberRef names a member by its container
// and its index among the container's exported members.
type memberRef struct {
	Type  typeRef `cbor:"1,keyasint"`
	Index int     `cbor:"2,keyasint"`
}

const (
	interfaceFlag = 1 << iota
	structFlag
	staticFlag
)

type typeDoc struct {
	Name      string      `cbor:"1,keyasint"`
	Namespace string      `cbor:"2,keyasint,omitempty"`
	Flags     uint8       `cbor:"3,keyasint,omitempty"`
	Base      *typeRef    `cbor:"4,keyasint,omitempty"`
	Ifaces    []typeRef   `cbor:"5,keyasint,omitempty"`
	Members   []memberDoc `cbor:"6,keyasint,omitempty"`
}

type memberDoc struct {
	Name      string      `cbor:"1,keyasint,omitempty"`
	Kind      int         `cbor:"2,keyasint,omitempty"`
	Parms     []parmDoc   `cbor:"3,keyasint,omitempty"`
	Static    bool        `cbor:"4,keyasint,omitempty"`
	Receiver  *typeRef    `cbor:"5,keyasint,omitempty"`
	Virtual   bool        `cbor:"6,keyasint,omitempty"`
	Override  bool        `cbor:"7,keyasint,omitempty"`
	Overrides *memberRef  `cbor:"8,keyasint,omitempty"`
	Explicit  *memberRef  `cbor:"9,keyasint,omitempty"`
	Priority  []byte      `cbor:"10,keyasint,omitempty"`
	Accessors []memberDoc `cbor:"11,keyasint,omitempty"`
}

type parmDoc struct {
	Name     string  `cbor:"1,keyasint,omitempty"`
	Type     typeRef `cbor:"2,keyasint"`
	Ref      int     `cbor:"3,keyasint,omitempty"`
	Optional bool    `cbor:"4,keyasint,omitempty"`
	Params   bool    `cbor:"5,keyasint,omitempty"`
}

type ioError struct {
	err error
}

// Write writes the declarations of a module as metadata.
// Calls are not written.
//
// The priority of each member is persisted as an attribute blob
// when prio returns a nonzero value for it.
// Overrides and accessors never carry a blob:
// their priority is read from the overridden member or the indexer.
// Partial members are written once, as their definition.
func Write(w io.Writer, m *decl.Mod, prio func(*decl.Member) int32) (err error) {
	defer func() {
		x := recover()
		if x == nil {
			return
		}
		if ioErr, ok := x.(ioError); !ok {
			panic(x)
		} else {
			err = ioErr.err
		}
	}()
	writeString(w, magic)
	writeInt(w, formatVersion)

	ex := &exporter{mod: m, prio: prio}
	doc := document{Name: m.Name, Version: m.Version}
	for _, r := range m.Refs {
		doc.Refs = append(doc.Refs, modRef{Name: r.Name, Version: r.Version})
	}
	for _, t := range m.Types {
		doc.Types = append(doc.Types, ex.typeDoc(t))
	}
	if err := encMode.NewEncoder(w).Encode(doc); err != nil {
		return err
	}
	return nil
}

type exporter struct {
	mod  *decl.Mod
	prio func(*decl.Member) int32
}

func (ex *exporter) typeDoc(t *decl.Type) typeDoc {
	d := typeDoc{Name: t.Name, Namespace: t.Namespace}
	if t.Interface {
		d.Flags |= interfaceFlag
	}
	if t.Struct {
		d.Flags |= structFlag
	}
	if t.Static {
		d.Flags |= staticFlag
	}
	if t.Base != nil {
		b := ex.typeRef(t.Base)
		d.Base = &b
	}
	for _, it := range t.Ifaces {
		d.Ifaces = append(d.Ifaces, ex.typeRef(it))
	}
	for _, mem := range Exported(t) {
		d.Members = append(d.Members, ex.memberDoc(mem, false))
	}
	return d
}

func (ex *exporter) memberDoc(m *decl.Member, accessor bool) memberDoc {
	d := memberDoc{
		Name:     m.Name,
		Kind:     int(m.Kind),
		Static:   m.Static,
		Virtual:  m.Virtual,
		Override: m.IsOverride,
	}
	for _, p := range m.Parms {
		d.Parms = append(d.Parms, parmDoc{
			Name:     p.Name,
			Type:     ex.typeRef(p.Type),
			Ref:      int(p.Ref),
			Optional: p.Optional,
			Params:   p.Params,
		})
	}
	if m.Receiver != nil {
		r := ex.typeRef(m.Receiver)
		d.Receiver = &r
	}
	if m.Override != nil {
		r := ex.memberRef(m.Override)
		d.Overrides = &r
	}
	if m.Explicit != nil {
		r := ex.memberRef(m.Explicit)
		d.Explicit = &r
	}
	if !accessor && !m.IsOverride {
		if p := ex.prio(m); p != 0 {
			d.Priority = Persist(p)
		}
	}
	for _, a := range m.Accessors {
		d.Accessors = append(d.Accessors, ex.memberDoc(a, true))
	}
	return d
}

func (ex *exporter) typeRef(t *decl.Type) typeRef {
	var rank int
	for t.Elem != nil {
		rank++
		t = t.Elem
	}
	r := typeRef{Name: t.FullName(), Rank: rank}
	switch {
	case t.Mod == ex.mod:
		r.Mod = selfMod
	case t.Mod == decl.Universe():
		r.Mod = univMod
	default:
		i := refIndex(ex.mod, t.Mod)
		if i < 0 {
			panic(ioError{fmt.Errorf("%s: type %s is not from a referenced module", t.Loc, t)})
		}
		r.Mod = firstRef + i
	}
	return r
}

func refIndex(m, ref *decl.Mod) int {
	for i, r := range m.Refs {
		if r == ref || origin(r) == origin(ref) {
			return i
		}
	}
	return -1
}

func (ex *exporter) memberRef(m *decl.Member) memberRef {
	for i, mem := range Exported(m.Container) {
		if mem == m {
			return memberRef{Type: ex.typeRef(m.Container), Index: i}
		}
	}
	panic(ioError{fmt.Errorf("%s: member %s is not exported", m.Loc, m)})
}

// Exported returns the members of a type in the order they are written.
// A partial implementation is omitted if the type has its definition.
func Exported(t *decl.Type) []*decl.Member {
	var ms []*decl.Member
	for _, m := range t.Members {
		if m.Partial == decl.Implementation && hasDefinition(t, m) {
			continue
		}
		ms = append(ms, m)
	}
	return ms
}

func hasDefinition(t *decl.Type, impl *decl.Member) bool {
	sig := impl.Signature()
	for _, m := range t.Members {
		if m.Partial == decl.Definition && m.Signature() == sig {
			return true
		}
	}
	return false
}

// Read reads module metadata.
//
// Each reference recorded in the metadata is bound by name to one of refs.
// If the recorded version differs from the given module's version,
// the reference is bound to the module retargeted to the recorded version.
// Every member read has FromMeta set, and Meta holds its priority blob, if any.
func Read(r io.Reader, refs ...*decl.Mod) (m *decl.Mod, err error) {
	defer func() {
		x := recover()
		if x == nil {
			return
		}
		if ioErr, ok := x.(ioError); !ok {
			panic(x)
		} else {
			err = ioErr.err
		}
	}()
	if s := readString(r); s != magic {
		return nil, errors.New("not module metadata")
	}
	if v := readInt(r); v != formatVersion {
		return nil, fmt.Errorf("unsupported metadata format %d", v)
	}
	var doc document
	if err := decMode.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	m = &decl.Mod{Name: doc.Name, Version: doc.Version}
	for _, ref := range doc.Refs {
		dep := findRef(refs, ref.Name)
		if dep == nil {
			return nil, fmt.Errorf("%s: reference %s not found", doc.Name, ref.Name)
		}
		m.Refs = append(m.Refs, Retarget(dep, ref.Version))
	}
	im := &importer{mod: m}
	for _, td := range doc.Types {
		m.Types = append(m.Types, &decl.Type{
			Name:      td.Name,
			Namespace: td.Namespace,
			Interface: td.Flags&interfaceFlag != 0,
			Struct:    td.Flags&structFlag != 0,
			Static:    td.Flags&staticFlag != 0,
			Mod:       m,
		})
	}
	for i, td := range doc.Types {
		t := m.Types[i]
		if td.Base != nil {
			t.Base = im.typ(*td.Base)
		}
		for _, it := range td.Ifaces {
			t.Ifaces = append(t.Ifaces, im.typ(it))
		}
		for _, md := range td.Members {
			t.Members = append(t.Members, im.member(md, t))
		}
	}
	// Members may refer to members of types later in the module.
	for _, p := range im.patches {
		p()
	}
	return m, nil
}

func findRef(refs []*decl.Mod, name string) *decl.Mod {
	for _, r := range refs {
		if r.Name == name {
			return r
		}
	}
	return nil
}

type importer struct {
	mod     *decl.Mod
	patches []func()
}

func (im *importer) typ(r typeRef) *decl.Type {
	var mod *decl.Mod
	switch {
	case r.Mod == selfMod:
		mod = im.mod
	case r.Mod == univMod:
		mod = decl.Universe()
	case r.Mod-firstRef < len(im.mod.Refs):
		mod = im.mod.Refs[r.Mod-firstRef]
	default:
		panic(ioError{fmt.Errorf("bad module index %d", r.Mod)})
	}
	var t *decl.Type
	for _, tt := range mod.Types {
		if tt.FullName() == r.Name {
			t = tt
			break
		}
	}
	if t == nil {
		panic(ioError{fmt.Errorf("type %s not found in %s", r.Name, mod.Name)})
	}
	for i := 0; i < r.Rank; i++ {
		t = decl.ArrayOf(t)
	}
	return t
}

func (im *importer) member(d memberDoc, container *decl.Type) *decl.Member {
	if d.Kind < 0 || d.Kind > int(decl.Lambda) {
		panic(ioError{fmt.Errorf("bad member kind %d", d.Kind)})
	}
	m := &decl.Member{
		Name:       d.Name,
		Kind:       decl.Kind(d.Kind),
		Container:  container,
		Static:     d.Static,
		Virtual:    d.Virtual,
		IsOverride: d.Override,
		FromMeta:   true,
		Meta:       d.Priority,
	}
	for _, p := range d.Parms {
		if p.Ref < int(decl.ByValue) || p.Ref > int(decl.In) {
			panic(ioError{fmt.Errorf("bad ref kind %d", p.Ref)})
		}
		m.Parms = append(m.Parms, decl.Param{
			Name:     p.Name,
			Type:     im.typ(p.Type),
			Ref:      decl.RefKind(p.Ref),
			Optional: p.Optional,
			Params:   p.Params,
		})
	}
	if d.Receiver != nil {
		m.Receiver = im.typ(*d.Receiver)
	}
	if d.Overrides != nil {
		r := *d.Overrides
		im.patches = append(im.patches, func() { m.Override = im.memberAt(r) })
	}
	if d.Explicit != nil {
		r := *d.Explicit
		im.patches = append(im.patches, func() { m.Explicit = im.memberAt(r) })
	}
	for _, ad := range d.Accessors {
		a := im.member(ad, container)
		a.Owner = m
		m.Accessors = append(m.Accessors, a)
	}
	return m
}

func (im *importer) memberAt(r memberRef) *decl.Member {
	t := im.typ(r.Type)
	ms := Exported(t)
	if r.Index < 0 || r.Index >= len(ms) {
		panic(ioError{fmt.Errorf("bad member index %d of %s", r.Index, t)})
	}
	return ms[r.Index]
}

func writeInt(w io.Writer, n int) {
	if n > math.MaxInt32 {
		panic("int too big")
	}
	if n < math.MinInt32 {
		panic("int too small")
	}
	if _, err := w.Write([]byte{
		byte(0xFF & n),
		byte(0xFF & (n >> 8)),
		byte(0xFF & (n >> 16)),
		byte(0xFF & (n >> 24)),
	}); err != nil {
		panic(ioError{err})
	}
}

func readInt(r io.Reader) int {
	var bs [4]byte
	if _, err := io.ReadFull(r, bs[:]); err != nil {
		panic(ioError{err})
	}
	var i int32
	i |= int32(bs[0]) << 0
	i |= int32(bs[1]) << 8
	i |= int32(bs[2]) << 16
	i |= int32(bs[3]) << 24
	return int(i)
}

func writeString(w io.Writer, s string) {
	writeInt(w, len(s))
	if _, err := io.WriteString(w, s); err != nil {
		panic(ioError{err})
	}
}

func readString(r io.Reader) string {
	n := readInt(r)
	if n < 0 || n > len(magic) {
		panic(ioError{errors.New("not module metadata")})
	}
	bs := make([]byte, n)
	if _, err := io.ReadFull(r, bs); err != nil {
		panic(ioError{err})
	}
	return string(bs)
}
