package decl

import (
	"strings"
)

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

func (p Param) String() string {
	var s strings.Builder
	switch {
	case p.Params:
		s.WriteString("params ")
	case p.Ref != ByValue:
		s.WriteString(p.Ref.String())
		s.WriteRune(' ')
	}
	s.WriteString(p.Type.String())
	if p.Optional {
		s.WriteString(" = default")
	}
	return s.String()
}

func (a Arg) String() string {
	if a.Null {
		return "null"
	}
	if a.Ref != ByValue {
		return a.Ref.String() + " " + a.Type.String()
	}
	return a.Type.String()
}

// String returns the member's user-facing signature,
// for example C.M(int, params long[]) or C.this[int].
func (m *Member) String() string {
	var s strings.Builder
	if m.Container != nil {
		s.WriteString(m.Container.Name)
		s.WriteRune('.')
	}
	if m.Explicit != nil && m.Explicit.Container != nil {
		s.WriteString(m.Explicit.Container.Name)
		s.WriteRune('.')
	}
	open, close := "(", ")"
	switch m.Kind {
	case Indexer:
		s.WriteString("this")
		open, close = "[", "]"
	case Getter, Setter:
		if m.Owner != nil {
			return m.Owner.String() + "." + m.Kind.String()[:3]
		}
		s.WriteString(m.Name)
	case Operator, ConversionOperator:
		s.WriteString("operator ")
		s.WriteString(m.Name)
	case Constructor:
		if m.Container != nil {
			s.WriteString(m.Container.Name)
		}
	default:
		s.WriteString(m.Name)
	}
	s.WriteString(open)
	var parms []string
	if m.Receiver != nil {
		parms = append(parms, "this "+m.Receiver.String())
	}
	for _, p := range m.Parms {
		parms = append(parms, p.String())
	}
	s.WriteString(strings.Join(parms, ", "))
	s.WriteString(close)
	return s.String()
}

// Signature returns the member's signature identity:
// its kind, name, receiver, and parameter types with ref kinds.
// Parameter names and default values are not part of the identity.
func (m *Member) Signature() string {
	var s strings.Builder
	s.WriteString(m.Kind.String())
	s.WriteRune(' ')
	s.WriteString(m.Name)
	s.WriteRune('(')
	if m.Receiver != nil {
		s.WriteString("this ")
		s.WriteString(m.Receiver.Origin().FullName())
		s.WriteRune(';')
	}
	for i, p := range m.Parms {
		if i > 0 {
			s.WriteRune(',')
		}
		if p.Ref != ByValue {
			s.WriteString(p.Ref.String())
			s.WriteRune(' ')
		}
		s.WriteString(p.Type.Origin().FullName())
	}
	s.WriteRune(')')
	return s.String()
}

func (c *Call) String() string {
	var s strings.Builder
	if c.Recv != nil {
		s.WriteString(c.Recv.Name)
	}
	var args []string
	for _, a := range c.Args {
		args = append(args, a.String())
	}
	switch c.Kind {
	case CtorCall:
		s.Reset()
		s.WriteString("new ")
		s.WriteString(c.Recv.String())
		s.WriteString("(" + strings.Join(args, ", ") + ")")
	case IndexerCall:
		s.WriteString("[" + strings.Join(args, ", ") + "]")
	case OperatorCall:
		s.Reset()
		s.WriteString("operator " + c.Name + "(" + strings.Join(args, ", ") + ")")
	default:
		if c.Recv != nil {
			s.WriteRune('.')
		}
		s.WriteString(c.Name + "(" + strings.Join(args, ", ") + ")")
	}
	return s.String()
}
