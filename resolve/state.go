package resolve

import (
	"fmt"
	"reflect"
	"runtime"

	"github.com/eaburns/orp/conv"
	"github.com/eaburns/orp/decl"
	"github.com/eaburns/orp/loc"
)

// Config are configuration parameters for the resolver.
type Config struct {
	// Oracle classifies argument conversions.
	// The default is conv.Standard.
	Oracle conv.Oracle
	// Parallel is the maximum number of call sites
	// that ResolveAll resolves concurrently (default=GOMAXPROCS).
	Parallel int
	// Trace is whether to enable debug tracing.
	Trace bool
}

func setConfigDefaults(cfg *Config) {
	if cfg.Oracle == nil {
		cfg.Oracle = conv.Standard{}
	}
	switch {
	case cfg.Parallel == 0:
		cfg.Parallel = runtime.GOMAXPROCS(0)
	case cfg.Parallel < 0:
		panic(fmt.Sprintf("bad Parallel %d", cfg.Parallel))
	}
}

// state is the per-query state of one resolution.
// A state is used by a single goroutine.
type state struct {
	*Resolver
	// trav is the attribute binding traversal in progress, if any.
	trav   *traversal
	indent string
}

func (r *Resolver) newState() *state {
	return &state{Resolver: r}
}

func (x *state) err(l loc.Loc, f string, vs ...interface{}) *checkError {
	return &checkError{loc: l, msg: fmt.Sprintf(f, vs...)}
}

func (x *state) memberErr(m *decl.Member, f string, vs ...interface{}) *checkError {
	return x.err(m.Loc, f, vs...)
}

// The argument to the returned function,
// if non-empty, only the first element of vs is used.
// It must be a either pointer to a slice of types convertable to error,
// or a pointer to a type convertable to error.
func (x *state) tr(f string, vs ...interface{}) func(...interface{}) {
	if !x.cfg.Trace {
		return func(...interface{}) {}
	}
	x.log(f, vs...)
	olddent := x.indent
	x.indent += "---"
	return func(errs ...interface{}) {
		defer func() { x.indent = olddent }()
		if len(errs) == 0 {
			return
		}
		v := reflect.ValueOf(errs[0])
		if v.IsNil() || v.Elem().Kind() == reflect.Slice && v.Elem().Len() == 0 {
			return
		}
		if v.Elem().Kind() == reflect.Interface && v.Elem().IsNil() {
			return
		}
		x.log("%v", v.Elem().Interface())
	}
}

func (x *state) log(f string, vs ...interface{}) {
	if !x.cfg.Trace {
		return
	}
	x.traceMu.Lock()
	defer x.traceMu.Unlock()
	fmt.Print(x.indent)
	fmt.Printf(f, vs...)
	fmt.Println("")
}
