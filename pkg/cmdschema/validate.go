package cmdschema

import (
	"strconv"
)

// KeywordArg is one keyword occurrence of an invocation.
// Block holds the classified sub-arguments of a nested keyword. If Block is nil for a nested
// keyword, Values are classified against the nested spec before validation.
type KeywordArg struct {
	Name   string
	Values []string
	Block  *Invocation
}

// Invocation is a parsed command call split into positional arguments, flags and keyword blocks.
type Invocation struct {
	Positional []string
	Flags      []string
	Keywords   []KeywordArg
}

// Validate checks inv against the command spec and returns every violation found.
func (c *CommandSpec) Validate(inv Invocation) []Violation {
	var violations []Violation
	c.BlockSpec.validate(c.Name, inv, &violations)
	return violations
}

func (b *BlockSpec) validate(path string, inv Invocation, out *[]Violation) {
	b.validatePositional(path, inv.Positional, out)

	for _, flag := range inv.Flags {
		if b.HasFlag(flag) || b.Positional.IsFlag(flag) {
			continue
		}

		*out = append(*out, Violation{
			Path:       path,
			Kind:       UnknownFlag,
			Subject:    flag,
			Suggestion: suggest(flag, b.flagsAndKeywords()),
		})
	}

	for _, kw := range inv.Keywords {
		a, ok := b.Keywords[kw.Name]
		if !ok {
			*out = append(*out, Violation{
				Path:       path,
				Kind:       UnknownKeyword,
				Subject:    kw.Name,
				Suggestion: suggest(kw.Name, b.flagsAndKeywords()),
			})
			continue
		}

		if nested, ok := a.(Nested); ok {
			block := kw.Block
			if block == nil {
				classified := nested.Block.Classify(kw.Values)
				block = &classified
			}
			nested.Block.validate(joinPath(path, kw.Name), *block, out)
			continue
		}

		if kw.Block != nil {
			*out = append(*out, Violation{Path: path, Kind: UnexpectedBlock, Subject: kw.Name})
			continue
		}

		if !a.Accepts(len(kw.Values)) {
			*out = append(*out, Violation{
				Path:     path,
				Kind:     KeywordArity,
				Subject:  kw.Name,
				Expected: describeCount(a),
				Actual:   strconv.Itoa(len(kw.Values)),
			})
		}
	}
}

func (b *BlockSpec) validatePositional(path string, args []string, out *[]Violation) {
	count := 0
	for _, arg := range args {
		if !b.Positional.IsFlag(arg) {
			count++
		}
	}

	lower := b.Positional.Min()
	upper := b.Positional.Max()
	switch {
	case count < lower:
		*out = append(*out, Violation{
			Path:     path,
			Kind:     MissingPositional,
			Expected: describePositional(b.Positional),
			Actual:   strconv.Itoa(count),
		})
	case upper >= 0 && count > upper:
		*out = append(*out, Violation{
			Path:     path,
			Kind:     ExtraPositional,
			Expected: describePositional(b.Positional),
			Actual:   strconv.Itoa(count),
		})
	}
}

func describePositional(p PositionalSpec) string {
	lower := p.Min()
	upper := p.Max()
	switch {
	case upper < 0:
		return "at least " + strconv.Itoa(lower)
	case lower == upper:
		return strconv.Itoa(lower)
	}
	return strconv.Itoa(lower) + " to " + strconv.Itoa(upper)
}

func (b *BlockSpec) flagsAndKeywords() []string {
	result := make([]string, 0, len(b.Flags)+len(b.Keywords))
	result = append(result, b.Flags...)
	for name := range b.Keywords {
		result = append(result, name)
	}
	return result
}

// Classify splits a flat argument list into positional arguments, flags and keyword blocks.
// A token naming a keyword opens a new keyword block and a token naming a flag is recorded as
// flag and closes the open block. Other tokens belong to the open keyword, or are positional
// while no keyword is open. An upper case token outside of any keyword is taken as an (unknown)
// keyword, so that it gets reported as such, if the block accepts no positional arguments or the
// token is a near miss of a declared keyword.
// The values of nested keywords are classified recursively.
func (b *BlockSpec) Classify(tokens []string) Invocation {
	var inv Invocation
	open := -1

	for _, token := range tokens {
		if _, ok := b.Keywords[token]; ok {
			inv.Keywords = append(inv.Keywords, KeywordArg{Name: token})
			open = len(inv.Keywords) - 1
			continue
		}

		if b.HasFlag(token) {
			inv.Flags = append(inv.Flags, token)
			open = -1
			continue
		}

		if open < 0 && b.unknownKeyword(token) {
			inv.Keywords = append(inv.Keywords, KeywordArg{Name: token})
			open = len(inv.Keywords) - 1
			continue
		}

		if open < 0 {
			inv.Positional = append(inv.Positional, token)
		} else {
			inv.Keywords[open].Values = append(inv.Keywords[open].Values, token)
		}
	}

	for idx := range inv.Keywords {
		kw := &inv.Keywords[idx]
		if nested, ok := b.Keywords[kw.Name].(Nested); ok {
			block := nested.Block.Classify(kw.Values)
			kw.Block = &block
			kw.Values = nil
		}
	}

	return inv
}

func (b *BlockSpec) unknownKeyword(token string) bool {
	if !looksLikeKeyword(token) || b.Positional.IsFlag(token) {
		return false
	}
	return b.Positional.Max() == 0 || suggest(token, b.KeywordNames()) != ""
}

func looksLikeKeyword(token string) bool {
	if len(token) < 2 || token[0] < 'A' || token[0] > 'Z' {
		return false
	}

	for idx := 1; idx < len(token); idx++ {
		c := token[idx]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}
