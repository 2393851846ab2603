package meta

import (
	"sync"

	"github.com/eaburns/orp/decl"
)

var retargets = struct {
	sync.Mutex
	mods map[retargetKey]*decl.Mod
}{mods: make(map[retargetKey]*decl.Mod)}

type retargetKey struct {
	mod     *decl.Mod
	version string
}

// Retarget returns a module that re-exports the types and members of m
// under the identity version.
// Every retargeted type and member wraps the original in its Underlying field,
// so priorities and conversions read through to the original declarations.
//
// Retarget returns the same module for the same arguments.
func Retarget(m *decl.Mod, version string) *decl.Mod {
	m = origin(m)
	if m.Version == version {
		return m
	}
	retargets.Lock()
	defer retargets.Unlock()
	key := retargetKey{mod: m, version: version}
	if r, ok := retargets.mods[key]; ok {
		return r
	}
	r := retarget(m, version)
	retargets.mods[key] = r
	return r
}

func origin(m *decl.Mod) *decl.Mod {
	for m.Underlying != nil {
		m = m.Underlying
	}
	return m
}

func retarget(m *decl.Mod, version string) *decl.Mod {
	r := &decl.Mod{
		Name:       m.Name,
		Version:    version,
		Refs:       m.Refs,
		Underlying: m,
	}
	types := make(map[*decl.Type]*decl.Type)
	for _, t := range m.Types {
		rt := t.Copy()
		rt.Mod = r
		rt.Underlying = t
		rt.Members = nil
		types[t] = rt
		r.Types = append(r.Types, rt)
	}
	typ := func(t *decl.Type) *decl.Type {
		if t == nil {
			return nil
		}
		if t.Elem != nil {
			if rt, ok := types[t.Elem]; ok {
				return decl.ArrayOf(rt)
			}
			return t
		}
		if rt, ok := types[t]; ok {
			return rt
		}
		return t
	}
	members := make(map[*decl.Member]*decl.Member)
	var wrap func(*decl.Member, *decl.Type) *decl.Member
	wrap = func(mem *decl.Member, container *decl.Type) *decl.Member {
		rm := *mem
		rm.Container = container
		rm.Receiver = typ(mem.Receiver)
		rm.Underlying = mem
		rm.Parms = nil
		for _, p := range mem.Parms {
			p.Type = typ(p.Type)
			rm.Parms = append(rm.Parms, p)
		}
		rm.Accessors = nil
		members[mem] = &rm
		for _, a := range mem.Accessors {
			ra := wrap(a, container)
			ra.Owner = &rm
			rm.Accessors = append(rm.Accessors, ra)
		}
		return &rm
	}
	for _, t := range m.Types {
		rt := types[t]
		rt.Base = typ(t.Base)
		rt.Ifaces = nil
		for _, it := range t.Ifaces {
			rt.Ifaces = append(rt.Ifaces, typ(it))
		}
		for _, mem := range t.Members {
			rt.Members = append(rt.Members, wrap(mem, rt))
		}
	}
	for orig, rm := range members {
		if rm.Override != nil {
			if o, ok := members[orig.Override]; ok {
				rm.Override = o
			}
		}
		if rm.Explicit != nil {
			if e, ok := members[orig.Explicit]; ok {
				rm.Explicit = e
			}
		}
	}
	return r
}
