package resolve

import (
	"sort"
	"strings"

	"github.com/eaburns/orp/decl"
)

// A Scope is one step of member lookup.
type Scope struct {
	// Level is the position of the scope in the walk, starting at 0.
	Level int
	// Types are the types whose members are searched.
	// A base-class level has one type.
	// An interface level or the pooled scope of an operator call may have several.
	// An extension level has the static containers of one namespace.
	Types []*decl.Type
	// Extension is set for scopes of extension containers.
	Extension bool
	// Namespace is the namespace of an extension scope.
	Namespace string
}

func (s *Scope) String() string {
	var names []string
	for _, t := range s.Types {
		names = append(names, t.Name)
	}
	if s.Extension {
		return "extensions in namespace " + quoteNamespace(s.Namespace) + " {" + strings.Join(names, ", ") + "}"
	}
	return "{" + strings.Join(names, ", ") + "}"
}

func quoteNamespace(ns string) string {
	if ns == "" {
		return "<global>"
	}
	return ns
}

// walker enumerates the scopes of a call site in lookup order:
// the instance levels, then, if allowed, the extension levels.
// A walker is used once.
type walker struct {
	call *decl.Call
	inst [][]*decl.Type
	// operands are the hierarchy levels of each operand of an operator call.
	// They are searched by operatorGroup, not by next.
	operands [][][]*decl.Type
	exts     []string
	level    int
}

func newWalker(call *decl.Call) *walker {
	w := &walker{call: call}
	switch call.Kind {
	case decl.CtorCall:
		w.inst = [][]*decl.Type{{call.Recv}}
	case decl.OperatorCall:
		var operands []*decl.Type
		if call.Recv != nil {
			operands = append(operands, call.Recv)
		}
		for _, a := range call.Args {
			if a.Type != nil {
				operands = append(operands, a.Type)
			}
		}
		for _, t := range operands {
			w.operands = append(w.operands, hierarchyLevels(t))
		}
		if len(w.operands) > 0 {
			// Level 0 is the pooled operator scope.
			w.level = 1
		}
	default:
		w.inst = hierarchyLevels(call.Recv)
	}
	if call.Extension {
		w.exts = namespaceLevels(call.Namespace)
	}
	return w
}

// next returns the next nonempty scope, or nil when there are no more.
func (w *walker) next() *Scope {
	for len(w.inst) > 0 {
		types := w.inst[0]
		w.inst = w.inst[1:]
		if len(types) == 0 {
			continue
		}
		s := &Scope{Level: w.level, Types: types}
		w.level++
		return s
	}
	for len(w.exts) > 0 {
		ns := w.exts[0]
		w.exts = w.exts[1:]
		containers := extensionContainers(w.call.Mod, ns)
		if len(containers) == 0 {
			continue
		}
		s := &Scope{Level: w.level, Types: containers, Extension: true, Namespace: ns}
		w.level++
		return s
	}
	return nil
}

// hierarchyLevels returns the levels of the type's hierarchy:
// self, base, base's base, and so on for classes and structs,
// and breadth-first base interfaces followed by object for interfaces.
func hierarchyLevels(t *decl.Type) [][]*decl.Type {
	if t == nil {
		return nil
	}
	if !t.Interface {
		var levels [][]*decl.Type
		seen := make(map[*decl.Type]bool)
		for ; t != nil && !seen[t]; t = t.Base {
			seen[t] = true
			levels = append(levels, []*decl.Type{t})
		}
		return levels
	}
	var levels [][]*decl.Type
	seen := map[*decl.Type]bool{t: true}
	level := []*decl.Type{t}
	for len(level) > 0 {
		levels = append(levels, level)
		var nextLevel []*decl.Type
		for _, it := range level {
			for _, b := range it.Ifaces {
				if !seen[b] {
					seen[b] = true
					nextLevel = append(nextLevel, b)
				}
			}
		}
		level = nextLevel
	}
	return append(levels, []*decl.Type{decl.Object()})
}

// namespaceLevels returns the namespace of the call site
// followed by each enclosing namespace, ending with the global namespace.
func namespaceLevels(ns string) []string {
	var levels []string
	for ns != "" {
		levels = append(levels, ns)
		i := strings.LastIndexByte(ns, '.')
		if i < 0 {
			break
		}
		ns = ns[:i]
	}
	return append(levels, "")
}

// extensionContainers returns the static types of the namespace
// that declare extension members, visible from the module,
// sorted by full name.
func extensionContainers(m *decl.Mod, ns string) []*decl.Type {
	if m == nil {
		return nil
	}
	var ts []*decl.Type
	seen := make(map[*decl.Type]bool)
	mods := append([]*decl.Mod{m}, m.Refs...)
	for _, mod := range mods {
		for _, t := range mod.Types {
			if !t.Static || t.Namespace != ns || seen[t] || !hasExtensions(t) {
				continue
			}
			seen[t] = true
			ts = append(ts, t)
		}
	}
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].FullName() < ts[j].FullName()
	})
	return ts
}

func hasExtensions(t *decl.Type) bool {
	for _, m := range t.Members {
		if m.Extension() {
			return true
		}
	}
	return false
}
