package cmdschema

import (
	"sort"
	"strings"
)

// Slot is one group of positional arguments. Flags are tokens that may appear among the
// positional arguments without counting towards the slot's arity.
type Slot struct {
	Arity Arity
	Flags []string
}

// PositionalSpec lists the positional slots of a command in order.
// Only the last slot may have a variable arity. A spec without slots accepts no positional arguments.
type PositionalSpec struct {
	Slots []Slot
}

// Positional returns a spec made of a single slot with the given arity.
func Positional(a Arity) PositionalSpec {
	return PositionalSpec{Slots: []Slot{{Arity: a}}}
}

// Min returns the minimum number of positional arguments.
func (p PositionalSpec) Min() int {
	total := 0
	for _, slot := range p.Slots {
		total += slot.Arity.Min()
	}
	return total
}

// Max returns the maximum number of positional arguments or -1 if the last slot is unbounded.
func (p PositionalSpec) Max() int {
	total := 0
	for _, slot := range p.Slots {
		if slot.Arity.Max() < 0 {
			return -1
		}
		total += slot.Arity.Max()
	}
	return total
}

// IsFlag reports whether token is a flag of one of the slots.
func (p PositionalSpec) IsFlag(token string) bool {
	for _, slot := range p.Slots {
		for _, flag := range slot.Flags {
			if flag == token {
				return true
			}
		}
	}
	return false
}

func (p PositionalSpec) String() string {
	switch len(p.Slots) {
	case 0:
		return "0"
	case 1:
		if len(p.Slots[0].Flags) == 0 {
			return p.Slots[0].Arity.String()
		}
	}

	parts := make([]string, len(p.Slots))
	for idx, slot := range p.Slots {
		parts[idx] = slot.Arity.String()
		if len(slot.Flags) > 0 {
			parts[idx] += " (" + strings.Join(slot.Flags, "|") + ")"
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// BlockSpec describes the arguments accepted inside a command invocation or inside a nested keyword block.
type BlockSpec struct {
	Positional PositionalSpec
	Flags      []string
	Keywords   map[string]Arity
}

// HasFlag reports whether token is one of the block's flags.
func (b *BlockSpec) HasFlag(token string) bool {
	for _, flag := range b.Flags {
		if flag == token {
			return true
		}
	}
	return false
}

// Keyword returns the arity of the named keyword.
func (b *BlockSpec) Keyword(name string) (Arity, bool) {
	a, ok := b.Keywords[name]
	return a, ok
}

// KeywordNames returns the declared keywords in sorted order.
func (b *BlockSpec) KeywordNames() []string {
	names := make([]string, 0, len(b.Keywords))
	for name := range b.Keywords {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// clone returns a deep copy of the block. The block must be free of cycles.
func (b *BlockSpec) clone() BlockSpec {
	result := BlockSpec{Flags: cloneStrings(b.Flags)}
	if b.Positional.Slots != nil {
		result.Positional.Slots = make([]Slot, len(b.Positional.Slots))
		for idx, slot := range b.Positional.Slots {
			result.Positional.Slots[idx] = Slot{Arity: slot.Arity, Flags: cloneStrings(slot.Flags)}
		}
	}
	if b.Keywords != nil {
		result.Keywords = make(map[string]Arity, len(b.Keywords))
		for name, a := range b.Keywords {
			if nested, ok := a.(Nested); ok && nested.Block != nil {
				block := nested.Block.clone()
				a = Nested{Block: &block}
			}
			result.Keywords[name] = a
		}
	}
	return result
}

func cloneStrings(list []string) []string {
	if list == nil {
		return nil
	}
	result := make([]string, len(list))
	copy(result, list)
	return result
}

// CommandSpec is the accepted shape of one custom command.
type CommandSpec struct {
	Name string
	BlockSpec
}
