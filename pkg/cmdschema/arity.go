package cmdschema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Arity describes how many values a positional slot or keyword accepts.
// The set of implementations is closed: Exact, AtLeast, ZeroOrMore, OneOrMore, Optional and Nested.
type Arity interface {
	// Min returns the minimum number of values.
	Min() int
	// Max returns the maximum number of values or -1 if there is no upper bound.
	Max() int
	// Accepts reports whether n values satisfy the arity.
	Accepts(n int) bool
	String() string

	arity()
}

// Exact accepts exactly N values.
type Exact int

// AtLeast accepts N or more values ("N+").
type AtLeast int

// ZeroOrMore accepts any number of values ("*").
type ZeroOrMore struct{}

// OneOrMore accepts at least one value ("+").
type OneOrMore struct{}

// Optional accepts zero or one value ("?").
type Optional struct{}

// Nested marks a keyword whose values form a block of their own sub-keywords and flags.
type Nested struct {
	Block *BlockSpec
}

var (
	_ Arity = Exact(0)
	_ Arity = AtLeast(0)
	_ Arity = ZeroOrMore{}
	_ Arity = OneOrMore{}
	_ Arity = Optional{}
	_ Arity = Nested{}
)

func accepts(a Arity, n int) bool {
	return n >= a.Min() && (a.Max() < 0 || n <= a.Max())
}

func (a Exact) Min() int { return int(a) }
func (a Exact) Max() int { return int(a) }
func (a Exact) Accepts(n int) bool { return accepts(a, n) }
func (a Exact) String() string { return strconv.Itoa(int(a)) }
func (Exact) arity() {}

func (a AtLeast) Min() int { return int(a) }
func (AtLeast) Max() int { return -1 }
func (a AtLeast) Accepts(n int) bool { return accepts(a, n) }
func (a AtLeast) String() string { return strconv.Itoa(int(a)) + "+" }
func (AtLeast) arity() {}

func (ZeroOrMore) Min() int { return 0 }
func (ZeroOrMore) Max() int { return -1 }
func (ZeroOrMore) Accepts(n int) bool { return n >= 0 }
func (ZeroOrMore) String() string { return "*" }
func (ZeroOrMore) arity() {}

func (OneOrMore) Min() int { return 1 }
func (OneOrMore) Max() int { return -1 }
func (a OneOrMore) Accepts(n int) bool { return accepts(a, n) }
func (OneOrMore) String() string { return "+" }
func (OneOrMore) arity() {}

func (Optional) Min() int { return 0 }
func (Optional) Max() int { return 1 }
func (a Optional) Accepts(n int) bool { return accepts(a, n) }
func (Optional) String() string { return "?" }
func (Optional) arity() {}

// The values of a nested keyword are validated against the block, so any count is fine here.
func (Nested) Min() int { return 0 }
func (Nested) Max() int { return -1 }
func (Nested) Accepts(n int) bool { return n >= 0 }
func (Nested) String() string { return "{...}" }
func (Nested) arity() {}

// ParseArity converts the textual form of an arity ("3", "*", "+", "?" or "2+") into an Arity.
func ParseArity(value string) (Arity, error) {
	value = strings.TrimSpace(value)
	switch value {
	case "*":
		return ZeroOrMore{}, nil
	case "+":
		return OneOrMore{}, nil
	case "?":
		return Optional{}, nil
	case "":
		return nil, eris.New("empty arity")
	}

	if strings.HasSuffix(value, "+") {
		n, ok := parseCount(value[:len(value)-1])
		if !ok {
			return nil, eris.Errorf("invalid arity %q", value)
		}
		return AtLeast(n), nil
	}

	n, ok := parseCount(value)
	if !ok {
		return nil, eris.Errorf("invalid arity %q", value)
	}
	return Exact(n), nil
}

// parseCount only accepts plain decimal digits; strconv.Atoi would also take a sign.
func parseCount(value string) (int, bool) {
	if value == "" || strings.TrimLeft(value, "0123456789") != "" {
		return 0, false
	}

	n, err := strconv.Atoi(value)
	return n, err == nil
}

func checkArity(a Arity) error {
	switch value := a.(type) {
	case nil:
		return eris.New("missing arity")
	case Exact:
		if value < 0 {
			return eris.Errorf("negative arity %d", int(value))
		}
	case AtLeast:
		if value < 0 {
			return eris.Errorf("negative arity %d+", int(value))
		}
	case Nested:
		if value.Block == nil {
			return eris.New("nested keyword without a block")
		}
	case ZeroOrMore, OneOrMore, Optional:
	default:
		return eris.Errorf("unsupported arity %T", a)
	}
	return nil
}

func describeCount(a Arity) string {
	switch a.(type) {
	case ZeroOrMore:
		return "any number of"
	case OneOrMore:
		return "at least 1"
	case Optional:
		return "at most 1"
	case AtLeast:
		return fmt.Sprintf("at least %d", a.Min())
	}
	return a.String()
}
