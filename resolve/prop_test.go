package resolve

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/eaburns/orp/decl"
)

// propParms are parameter types all applicable to an I3 argument.
var propParms = []string{"I1", "I2", "I3", "object"}

// propSrc returns a module declaring C.M(T) for each T of propParms
// selected by mask, with the given priorities,
// and a call of M with an I3 argument.
// A nil prios declares no attributes.
func propSrc(mask int, prios []int32) string {
	var s strings.Builder
	s.WriteString(ifaces)
	s.WriteString("  - name: C\n    members:\n")
	for i, p := range propParms {
		if mask&(1<<i) == 0 {
			continue
		}
		fmt.Fprintf(&s, "      - name: M\n        parms: [%s]\n", p)
		if prios != nil {
			fmt.Fprintf(&s, "        attrs: [\"OverloadResolutionPriority(%d)\"]\n", prios[i])
		}
	}
	s.WriteString("calls:\n  - name: M\n    recv: C\n    args: [I3]\n")
	return s.String()
}

func resolveProp(src string) (*Candidate, error) {
	mod, errs := decl.Parse("test", src)
	if len(errs) > 0 {
		panic(fmt.Sprintf("failed to load: %v", errs))
	}
	return New(Config{}).Resolve(mod.Calls[0])
}

func outcome(c *Candidate, err error) string {
	if err != nil {
		return "error"
	}
	return c.Member.String()
}

func TestPriorityProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 50
	properties := gopter.NewProperties(params)

	properties.Property("higher priority never loses", prop.ForAll(
		func(mask int, prios []int32) bool {
			if mask == 0 || len(prios) < len(propParms) {
				return true
			}
			top := int32(-1 << 31)
			for i := range propParms {
				if mask&(1<<i) != 0 && prios[i] > top {
					top = prios[i]
				}
			}
			best, err := resolveProp(propSrc(mask, prios))
			if err == nil {
				return best.Priority == top
			}
			amb, ok := err.(*AmbiguousError)
			if !ok {
				return false
			}
			for _, c := range amb.Tied {
				if c.Priority != top {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 15),
		gen.SliceOfN(len(propParms), gen.Int32Range(-3, 3)),
	))

	properties.Property("uniform priority is a no-op", prop.ForAll(
		func(mask int, p int32) bool {
			prios := make([]int32, len(propParms))
			for i := range prios {
				prios[i] = p
			}
			with := outcome(resolveProp(propSrc(mask, prios)))
			without := outcome(resolveProp(propSrc(mask, nil)))
			return with == without
		},
		gen.IntRange(1, 15),
		gen.Int32Range(-100, 100),
	))

	properties.Property("farther scopes never change a nearer result", prop.ForAll(
		func(p, q int32) bool {
			src := ifaces + fmt.Sprintf(`
  - name: B
    members:
      - name: M
        parms: [object]
        attrs: ["OverloadResolutionPriority(%d)"]
      - name: M
        parms: [I3]
        attrs: ["OverloadResolutionPriority(%d)"]
  - name: D
    base: B
    members:
      - name: M
        parms: [I1]
calls:
  - name: M
    recv: D
    args: [I3]
`, p, q)
			best, err := resolveProp(src)
			return err == nil && best.Member.String() == "D.M(I1)"
		},
		gen.Int32Range(-10, 10),
		gen.Int32Range(-10, 10),
	))

	properties.TestingRun(t)
}
