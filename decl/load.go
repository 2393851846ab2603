package decl

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/eaburns/orp/loc"
)

// An Error is a declaration error found while loading a module.
type Error struct {
	Loc   loc.Loc
	Msg   string
	Notes []string
}

func (err *Error) Error() string {
	var s strings.Builder
	s.WriteString(err.Loc.String())
	s.WriteString(": ")
	s.WriteString(err.Msg)
	for _, n := range err.Notes {
		s.WriteString("\n\t")
		s.WriteString(n)
	}
	return s.String()
}

// A File is one YAML source file of a module.
type File struct {
	Path string
	Src  []byte
}

type yamlMod struct {
	Module     string     `yaml:"module"`
	Version    string     `yaml:"version"`
	References []string   `yaml:"references"`
	Types      []yamlType `yaml:"types"`
	Calls      []yamlCall `yaml:"calls"`
}

type yamlType struct {
	Name       string       `yaml:"name"`
	Namespace  string       `yaml:"namespace"`
	Kind       string       `yaml:"kind"`
	Base       string       `yaml:"base"`
	Interfaces []string     `yaml:"interfaces"`
	Members    []yamlMember `yaml:"members"`
}

type yamlMember struct {
	Kind     string        `yaml:"kind"`
	Name     string        `yaml:"name"`
	Parms    []string      `yaml:"parms"`
	Static   bool          `yaml:"static"`
	This     string        `yaml:"this"`
	Virtual  bool          `yaml:"virtual"`
	Override bool          `yaml:"override"`
	Explicit string        `yaml:"explicit"`
	Partial  string        `yaml:"partial"`
	Attrs    []string      `yaml:"attrs"`
	Get      *yamlAccessor `yaml:"get"`
	Set      *yamlAccessor `yaml:"set"`
}

type yamlAccessor struct {
	Attrs []string `yaml:"attrs"`
}

type yamlCall struct {
	ID          string   `yaml:"id"`
	Kind        string   `yaml:"kind"`
	Name        string   `yaml:"name"`
	Recv        string   `yaml:"recv"`
	Static      bool     `yaml:"static"`
	NoExtension bool     `yaml:"noextension"`
	Set         bool     `yaml:"set"`
	Namespace   string   `yaml:"namespace"`
	Args        []string `yaml:"args"`
}

type loader struct {
	mod   *Mod
	files []*srcFile
	errs  []error
}

type srcFile struct {
	path  string
	ast   *ast.File
	src   yamlMod
	types []*Type
}

// Parse loads a module from a single YAML source string.
// It is a convenience wrapper around Load.
func Parse(modPath, src string, refs ...*Mod) (*Mod, []error) {
	return Load(modPath, []File{{Path: modPath + ".orp.yaml", Src: []byte(src)}}, refs...)
}

// Load loads a module from its YAML source files.
// refs are the modules referenced by the source;
// every name in a references list must be among them.
//
// On error, the returned module may be partially constructed.
func Load(modPath string, files []File, refs ...*Mod) (*Mod, []error) {
	l := &loader{mod: &Mod{Name: modPath, Version: "1.0.0"}}
	for _, f := range files {
		sf, err := parseFile(f)
		if err != nil {
			l.errs = append(l.errs, err)
			continue
		}
		if sf.src.Module != "" {
			l.mod.Name = sf.src.Module
		}
		if sf.src.Version != "" {
			l.mod.Version = sf.src.Version
		}
		l.files = append(l.files, sf)
	}
	if len(l.errs) > 0 {
		return l.mod, l.errs
	}
	l.refs(refs)
	l.declareTypes()
	l.resolveBases()
	l.declareMembers()
	l.linkMembers()
	l.declareCalls()
	return l.mod, sortErrors(l.errs)
}

// ReadReferences returns the module name and the referenced module names
// declared in a YAML source file.
func ReadReferences(f File) (string, []string, error) {
	sf, err := parseFile(f)
	if err != nil {
		return "", nil, err
	}
	return sf.src.Module, sf.src.References, nil
}

func parseFile(f File) (*srcFile, error) {
	file, err := parser.ParseBytes(f.Src, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	sf := &srcFile{path: f.Path, ast: file}
	if err := yaml.UnmarshalWithOptions(f.Src, &sf.src, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return sf, nil
}

func sortErrors(errs []error) []error {
	sort.SliceStable(errs, func(i, j int) bool {
		var ei, ej *Error
		if !errors.As(errs[i], &ei) || !errors.As(errs[j], &ej) {
			return false
		}
		return ei.Loc.Less(ej.Loc)
	})
	return errs
}

// pos returns the location of the YAML node at path, if found.
func (sf *srcFile) pos(path string, vs ...interface{}) loc.Loc {
	p, err := yaml.PathString(fmt.Sprintf(path, vs...))
	if err != nil {
		return loc.Loc{Path: sf.path}
	}
	n, err := p.FilterFile(sf.ast)
	if err != nil || n == nil {
		return loc.Loc{Path: sf.path}
	}
	return loc.Token(sf.path, n.GetToken())
}

func (l *loader) err(at loc.Loc, f string, vs ...interface{}) *Error {
	err := &Error{Loc: at, Msg: fmt.Sprintf(f, vs...)}
	l.errs = append(l.errs, err)
	return err
}

func (l *loader) refs(refs []*Mod) {
	byName := make(map[string]*Mod)
	for _, r := range refs {
		byName[r.Name] = r
	}
	seen := make(map[string]bool)
	for _, sf := range l.files {
		for i, name := range sf.src.References {
			if seen[name] {
				continue
			}
			seen[name] = true
			r, ok := byName[name]
			if !ok {
				l.err(sf.pos("$.references[%d]", i), "referenced module %s not found", name)
				continue
			}
			l.mod.Refs = append(l.mod.Refs, r)
		}
	}
}

func (l *loader) declareTypes() {
	seen := make(map[string]*Type)
	for _, sf := range l.files {
		for i, yt := range sf.src.Types {
			t := &Type{
				Name:      yt.Name,
				Namespace: yt.Namespace,
				Mod:       l.mod,
				Loc:       sf.pos("$.types[%d].name", i),
			}
			switch yt.Kind {
			case "", "class":
			case "interface":
				t.Interface = true
			case "struct":
				t.Struct = true
			case "static":
				t.Static = true
			default:
				l.err(t.Loc, "unknown type kind %s", yt.Kind)
			}
			if prev, ok := seen[t.FullName()]; ok {
				err := l.err(t.Loc, "type %s redefined", t.FullName())
				err.Notes = append(err.Notes, "previous definition is at "+prev.Loc.String())
			}
			seen[t.FullName()] = t
			sf.types = append(sf.types, t)
			l.mod.Types = append(l.mod.Types, t)
		}
	}
}

func (l *loader) typ(at loc.Loc, name string) *Type {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(name, "[]") {
		elem := l.typ(at, strings.TrimSuffix(name, "[]"))
		if elem == nil {
			return nil
		}
		return ArrayOf(elem)
	}
	if t := l.mod.Type(name); t != nil {
		return t
	}
	l.err(at, "type %s not found", name)
	return nil
}

func (l *loader) resolveBases() {
	object := Object()
	for _, sf := range l.files {
		for i, yt := range sf.src.Types {
			t := sf.types[i]
			if yt.Base != "" {
				at := sf.pos("$.types[%d].base", i)
				switch b := l.typ(at, yt.Base); {
				case b == nil:
				case t.Interface:
					l.err(at, "interface %s cannot have a base class", t.Name)
				case b.Interface:
					l.err(at, "base type %s is an interface", b.Name)
				default:
					t.Base = b
				}
			}
			if t.Base == nil && !t.Interface {
				t.Base = object
			}
			for j, n := range yt.Interfaces {
				at := sf.pos("$.types[%d].interfaces[%d]", i, j)
				switch it := l.typ(at, n); {
				case it == nil:
				case !it.Interface:
					l.err(at, "%s is not an interface", it.Name)
				default:
					t.Ifaces = append(t.Ifaces, it)
				}
			}
		}
	}
	for _, t := range l.mod.Types {
		seen := map[*Type]bool{t: true}
		for b := t.Base; b != nil; b = b.Base {
			if seen[b] {
				l.err(t.Loc, "circular base type dependency involving %s", t.Name)
				t.Base = object
				break
			}
			seen[b] = true
		}
	}
}

var memberKinds = map[string]Kind{
	"":                   Method,
	"method":             Method,
	"constructor":        Constructor,
	"ctor":               Constructor,
	"operator":           Operator,
	"conversion":         ConversionOperator,
	"indexer":            Indexer,
	"property":           Property,
	"event":              Event,
	"destructor":         Destructor,
	"static constructor": StaticConstructor,
	"local function":     LocalFunction,
	"lambda":             Lambda,
}

func (l *loader) declareMembers() {
	for _, sf := range l.files {
		for i, yt := range sf.src.Types {
			t := sf.types[i]
			for j, ym := range yt.Members {
				path := fmt.Sprintf("$.types[%d].members[%d]", i, j)
				if m := l.member(sf, path, t, ym); m != nil {
					t.Members = append(t.Members, m)
				}
			}
		}
	}
}

func (l *loader) member(sf *srcFile, path string, t *Type, ym yamlMember) *Member {
	m := &Member{
		Name:       ym.Name,
		Container:  t,
		Static:     ym.Static,
		Virtual:    ym.Virtual,
		IsOverride: ym.Override,
		Loc:        sf.pos(path),
	}
	kind, ok := memberKinds[ym.Kind]
	if !ok {
		l.err(m.Loc, "unknown member kind %s", ym.Kind)
		return nil
	}
	m.Kind = kind
	switch kind {
	case Constructor:
		m.Name = t.Name
	case StaticConstructor:
		m.Name = t.Name
		m.Static = true
	case Indexer:
		m.Name = "this"
	case Destructor:
		m.Name = "~" + t.Name
	case Operator, ConversionOperator:
		m.Static = true
		if m.Name == "" {
			l.err(m.Loc, "operator has no token")
		}
	default:
		if m.Name == "" {
			l.err(m.Loc, "%s has no name", kind)
		}
	}
	switch ym.Partial {
	case "":
	case "definition":
		m.Partial = Definition
	case "implementation":
		m.Partial = Implementation
	default:
		l.err(m.Loc, "unknown partial role %s", ym.Partial)
	}
	if ym.This != "" {
		at := sf.pos(path + ".this")
		if !t.Static {
			l.err(at, "extension member %s must be declared in a static type", m.Name)
		}
		m.Receiver = l.typ(at, ym.This)
		m.Static = true
	}
	for k, s := range ym.Parms {
		at := sf.pos(path+".parms[%d]", k)
		p, typeName, err := parseParam(s)
		if err != nil {
			l.err(at, "%s", err)
			continue
		}
		if p.Type = l.typ(at, typeName); p.Type == nil {
			continue
		}
		if p.Params && (k != len(ym.Parms)-1 || p.Type.Elem == nil) {
			l.err(at, "params parameter must be the last parameter and an array")
			p.Params = false
		}
		m.Parms = append(m.Parms, p)
	}
	m.Attrs = l.attrs(sf, path, ym.Attrs)
	if ym.Explicit != "" {
		// Linked in linkMembers once all interface members are declared.
		m.Explicit = &Member{Name: ym.Explicit, Loc: sf.pos(path + ".explicit")}
	}
	if kind == Indexer {
		if ym.Get != nil || ym.Set == nil {
			m.Accessors = append(m.Accessors, l.accessor(sf, path+".get", m, Getter, ym.Get))
		}
		if ym.Set != nil {
			m.Accessors = append(m.Accessors, l.accessor(sf, path+".set", m, Setter, ym.Set))
		}
	} else if ym.Get != nil || ym.Set != nil {
		l.err(m.Loc, "only indexers have accessors here")
	}
	return m
}

func (l *loader) accessor(sf *srcFile, path string, owner *Member, kind Kind, ya *yamlAccessor) *Member {
	a := &Member{
		Name:      owner.Name,
		Kind:      kind,
		Parms:     owner.Parms,
		Container: owner.Container,
		Static:    owner.Static,
		Receiver:  owner.Receiver,
		Owner:     owner,
		Loc:       owner.Loc,
	}
	if ya != nil {
		a.Loc = sf.pos(path)
		a.Attrs = l.attrs(sf, path, ya.Attrs)
	}
	return a
}

func (l *loader) attrs(sf *srcFile, path string, srcs []string) []Attr {
	var attrs []Attr
	for k, s := range srcs {
		at := sf.pos(path+".attrs[%d]", k)
		a, err := parseAttr(s)
		if err != nil {
			l.err(at, "%s", err)
			continue
		}
		a.Loc = at
		attrs = append(attrs, a)
	}
	return attrs
}

func (l *loader) linkMembers() {
	for _, t := range l.mod.Types {
		for _, m := range t.Members {
			if m.IsOverride {
				l.linkOverride(m)
			}
			if m.Explicit != nil {
				l.linkExplicit(m)
			}
		}
		l.checkPartials(t)
	}
}

func (l *loader) checkPartials(t *Type) {
	defs := make(map[string]*Member)
	impls := make(map[string]*Member)
	for _, m := range t.Members {
		parts := defs
		if m.Partial == Implementation {
			parts = impls
		} else if m.Partial != Definition {
			continue
		}
		sig := m.Signature()
		if prev, ok := parts[sig]; ok {
			err := l.err(m.Loc, "partial member %s has multiple %ss", m, partialNames[m.Partial])
			err.Notes = append(err.Notes, "previous part is at "+prev.Loc.String())
			continue
		}
		parts[sig] = m
	}
	for _, m := range t.Members {
		if m.Partial != Implementation || impls[m.Signature()] != m {
			continue
		}
		if _, ok := defs[m.Signature()]; !ok {
			l.err(m.Loc, "partial implementation %s has no definition", m)
		}
	}
}

var partialNames = map[PartialRole]string{
	Definition:     "definition",
	Implementation: "implementation",
}

func (l *loader) linkOverride(m *Member) {
	sig := m.Signature()
	for b := m.Container.Base; b != nil; b = b.Base {
		for _, bm := range b.Members {
			if bm.Signature() != sig {
				continue
			}
			if !bm.Virtual && !bm.IsOverride {
				err := l.err(m.Loc, "%s cannot override %s: it is not virtual", m, bm)
				err.Notes = append(err.Notes, "overridden member is at "+bm.Loc.String())
				return
			}
			m.Override = bm
			return
		}
	}
	l.err(m.Loc, "%s: no suitable member found to override", m)
}

func (l *loader) linkExplicit(m *Member) {
	ref := m.Explicit
	m.Explicit = nil
	it := l.typ(ref.Loc, ref.Name)
	if it == nil {
		return
	}
	if !implements(m.Container, it) {
		l.err(ref.Loc, "%s does not implement interface %s", m.Container.Name, it.Name)
		return
	}
	sig := m.Signature()
	for _, im := range it.Members {
		if im.Signature() == sig {
			m.Explicit = im
			return
		}
	}
	l.err(ref.Loc, "%s is not a member of interface %s", m, it.Name)
}

func implements(t, iface *Type) bool {
	seen := make(map[*Type]bool)
	var walk func(*Type) bool
	walk = func(t *Type) bool {
		if t == nil || seen[t] {
			return false
		}
		seen[t] = true
		if t == iface {
			return true
		}
		for _, it := range t.Ifaces {
			if walk(it) {
				return true
			}
		}
		return walk(t.Base)
	}
	return walk(t)
}

var callKinds = map[string]CallKind{
	"":            MethodCall,
	"method":      MethodCall,
	"constructor": CtorCall,
	"ctor":        CtorCall,
	"new":         CtorCall,
	"indexer":     IndexerCall,
	"operator":    OperatorCall,
}

func (l *loader) declareCalls() {
	for _, sf := range l.files {
		for i, yc := range sf.src.Calls {
			path := fmt.Sprintf("$.calls[%d]", i)
			c := &Call{
				ID:        yc.ID,
				Name:      yc.Name,
				Static:    yc.Static,
				Set:       yc.Set,
				Namespace: yc.Namespace,
				Mod:       l.mod,
				Loc:       sf.pos(path),
			}
			if c.ID == "" {
				c.ID = strconv.Itoa(len(l.mod.Calls))
			}
			kind, ok := callKinds[yc.Kind]
			if !ok {
				l.err(c.Loc, "unknown call kind %s", yc.Kind)
				continue
			}
			c.Kind = kind
			if yc.Recv != "" {
				c.Recv = l.typ(sf.pos(path+".recv"), yc.Recv)
			} else if kind != OperatorCall {
				l.err(c.Loc, "%s has no receiver", kind)
				continue
			}
			c.Extension = !yc.NoExtension && !c.Static && c.Recv != nil &&
				(kind == MethodCall || kind == IndexerCall)
			for k, s := range yc.Args {
				at := sf.pos(path+".args[%d]", k)
				a, err := l.arg(at, s)
				if err != nil {
					l.err(at, "%s", err)
					continue
				}
				c.Args = append(c.Args, a)
			}
			l.mod.Calls = append(l.mod.Calls, c)
		}
	}
}

func (l *loader) arg(at loc.Loc, s string) (Arg, error) {
	f := fields(s)
	switch {
	case len(f) == 1 && f[0] == "null":
		return Arg{Null: true}, nil
	case len(f) == 1:
		t := l.typ(at, f[0])
		if t == nil {
			return Arg{}, fmt.Errorf("bad argument %q", s)
		}
		return Arg{Type: t}, nil
	case len(f) == 2:
		r, ok := refKinds[f[0]]
		if !ok {
			return Arg{}, fmt.Errorf("bad argument modifier %q", f[0])
		}
		t := l.typ(at, f[1])
		if t == nil {
			return Arg{}, fmt.Errorf("bad argument %q", s)
		}
		return Arg{Type: t, Ref: r}, nil
	default:
		return Arg{}, fmt.Errorf("malformed argument %q", s)
	}
}

var refKinds = map[string]RefKind{"ref": Ref, "out": Out, "in": In}

func fields(s string) []string {
	if i := strings.IndexRune(s, '='); i >= 0 {
		s = s[:i]
	}
	return strings.Fields(s)
}

// parseParam parses a parameter string such as "ref int x",
// "params long[]", or "int y = 0".
// It returns the parameter without its type, and the type name.
func parseParam(s string) (Param, string, error) {
	var p Param
	p.Optional = strings.ContainsRune(s, '=')
	f := fields(s)
	for len(f) > 0 {
		r, isRef := refKinds[f[0]]
		if !isRef && f[0] != "params" {
			break
		}
		if p.Ref != ByValue || p.Params {
			return p, "", fmt.Errorf("malformed parameter %q", s)
		}
		if isRef {
			p.Ref = r
		} else {
			p.Params = true
		}
		f = f[1:]
	}
	if len(f) == 0 || len(f) > 2 {
		return p, "", fmt.Errorf("malformed parameter %q", s)
	}
	if p.Optional && (p.Params || p.Ref == Ref || p.Ref == Out) {
		return p, "", fmt.Errorf("parameter %q cannot have a default value", s)
	}
	if len(f) == 2 {
		p.Name = f[1]
	}
	return p, f[0], nil
}

// parseAttr parses an attribute string such as "OverloadResolutionPriority(1)".
func parseAttr(s string) (Attr, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexRune(s, '(')
	if open < 0 {
		if s == "" || strings.ContainsAny(s, " )") {
			return Attr{}, fmt.Errorf("malformed attribute %q", s)
		}
		return Attr{Name: s}, nil
	}
	if !strings.HasSuffix(s, ")") {
		return Attr{}, fmt.Errorf("malformed attribute %q", s)
	}
	a := Attr{Name: strings.TrimSpace(s[:open])}
	if a.Name == "" {
		return Attr{}, fmt.Errorf("malformed attribute %q", s)
	}
	body := strings.TrimSpace(s[open+1 : len(s)-1])
	if body == "" {
		return a, nil
	}
	for _, arg := range strings.Split(body, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(arg), 0, 64)
		if err != nil {
			return Attr{}, fmt.Errorf("malformed attribute argument %q", strings.TrimSpace(arg))
		}
		a.Args = append(a.Args, v)
	}
	return a, nil
}
