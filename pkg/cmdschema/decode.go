package cmdschema

import (
	"sort"
	"strconv"
)

// DecodeCommand converts a raw declaration into a CommandSpec.
//
// A raw declaration is the generic tree produced by the loaders (map[string]interface{},
// []interface{}, string, int64, bool, float64 and nil) and looks like this:
//
//	{
//	  "pargs": "1+",
//	  "flags": ["STATIC", "SHARED"],
//	  "kwargs": {
//	    "SRCS": "*",
//	    "PROPERTIES": {"kwargs": {"VERSION": 1}},
//	  },
//	}
func DecodeCommand(name string, raw interface{}) (CommandSpec, error) {
	block, err := decodeBlock(name, "", raw)
	if err != nil {
		return CommandSpec{}, err
	}
	return CommandSpec{Name: name, BlockSpec: block}, nil
}

func joinPath(path, elem string) string {
	if path == "" {
		return elem
	}
	return path + "." + elem
}

func decodeBlock(command, path string, raw interface{}) (BlockSpec, error) {
	var block BlockSpec
	if raw == nil {
		return block, nil
	}

	fields, ok := raw.(map[string]interface{})
	if !ok {
		return block, schemaErrorf(command, path, "expected a mapping but found %s", typeName(raw))
	}

	for _, key := range sortedKeys(fields) {
		var err error
		value := fields[key]
		switch key {
		case "pargs":
			block.Positional, err = decodePositional(command, joinPath(path, key), value)
		case "flags":
			block.Flags, err = decodeStringList(command, joinPath(path, key), value)
		case "kwargs":
			block.Keywords, err = decodeKeywords(command, joinPath(path, key), value)
		default:
			err = schemaErrorf(command, joinPath(path, key), "unknown field %q (expected pargs, flags or kwargs)", key)
		}
		if err != nil {
			return block, err
		}
	}

	return block, nil
}

func decodeKeywords(command, path string, raw interface{}) (map[string]Arity, error) {
	if raw == nil {
		return nil, nil
	}

	fields, ok := raw.(map[string]interface{})
	if !ok {
		return nil, schemaErrorf(command, path, "expected a mapping of keywords but found %s", typeName(raw))
	}

	result := make(map[string]Arity, len(fields))
	for _, name := range sortedKeys(fields) {
		a, err := decodeArity(command, joinPath(path, name), fields[name], true)
		if err != nil {
			return nil, err
		}
		result[name] = a
	}
	return result, nil
}

func decodeArity(command, path string, raw interface{}, allowNested bool) (Arity, error) {
	switch value := raw.(type) {
	case int64:
		if value < 0 {
			return nil, schemaErrorf(command, path, "negative arity %d", value)
		}
		return Exact(value), nil
	case string:
		a, err := ParseArity(value)
		if err != nil {
			return nil, &SchemaError{Command: command, Path: path, Reason: "invalid arity descriptor", Err: err}
		}
		return a, nil
	case map[string]interface{}:
		if !allowNested {
			return nil, schemaErrorf(command, path, "nested blocks are only allowed as keyword values")
		}
		block, err := decodeBlock(command, path, value)
		if err != nil {
			return nil, err
		}
		return Nested{Block: &block}, nil
	}

	return nil, schemaErrorf(command, path, "invalid arity descriptor of type %s (expected an integer, \"*\", \"+\", \"?\", \"N+\" or a mapping)", typeName(raw))
}

func decodePositional(command, path string, raw interface{}) (PositionalSpec, error) {
	var spec PositionalSpec
	switch value := raw.(type) {
	case nil:
		return spec, nil
	case []interface{}:
		spec.Slots = make([]Slot, len(value))
		for idx, item := range value {
			slot, err := decodeSlot(command, joinPath(path, strconv.Itoa(idx)), item)
			if err != nil {
				return spec, err
			}
			spec.Slots[idx] = slot
		}
	default:
		slot, err := decodeSlot(command, path, value)
		if err != nil {
			return spec, err
		}
		spec.Slots = []Slot{slot}
	}

	return spec, nil
}

func decodeSlot(command, path string, raw interface{}) (Slot, error) {
	var slot Slot

	fields, ok := raw.(map[string]interface{})
	if !ok {
		a, err := decodeArity(command, path, raw, false)
		if err != nil {
			return slot, err
		}
		slot.Arity = a
		return slot, nil
	}

	for _, key := range sortedKeys(fields) {
		var err error
		switch key {
		case "nargs":
			slot.Arity, err = decodeArity(command, joinPath(path, key), fields[key], false)
		case "flags":
			slot.Flags, err = decodeStringList(command, joinPath(path, key), fields[key])
		default:
			err = schemaErrorf(command, joinPath(path, key), "unknown field %q (expected nargs or flags)", key)
		}
		if err != nil {
			return slot, err
		}
	}

	if slot.Arity == nil {
		return slot, schemaErrorf(command, path, "positional slot without nargs")
	}
	return slot, nil
}

func decodeStringList(command, path string, raw interface{}) ([]string, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, schemaErrorf(command, path, "expected a list of strings but found %s", typeName(raw))
	}

	result := make([]string, len(items))
	for idx, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, schemaErrorf(command, joinPath(path, strconv.Itoa(idx)), "expected a string but found %s", typeName(item))
		}
		result[idx] = str
	}
	return result, nil
}

// checkBlock verifies the invariants of a block that the type system can't express.
func checkBlock(command, path string, block *BlockSpec) error {
	return checkNestedBlock(command, path, block, map[*BlockSpec]bool{})
}

// checkNestedBlock is checkBlock with the chain of enclosing blocks. A block may be shared by
// several keywords but must not contain itself.
func checkNestedBlock(command, path string, block *BlockSpec, ancestors map[*BlockSpec]bool) error {
	ancestors[block] = true
	defer delete(ancestors, block)

	seenFlags := make(map[string]bool, len(block.Flags))
	for _, flag := range block.Flags {
		if flag == "" {
			return schemaErrorf(command, joinPath(path, "flags"), "empty flag")
		}
		if seenFlags[flag] {
			return schemaErrorf(command, joinPath(path, "flags"), "duplicate flag %s", flag)
		}
		seenFlags[flag] = true
	}

	for idx, slot := range block.Positional.Slots {
		slotPath := joinPath(joinPath(path, "pargs"), strconv.Itoa(idx))
		if err := checkArity(slot.Arity); err != nil {
			return &SchemaError{Command: command, Path: slotPath, Reason: "invalid positional arity", Err: err}
		}
		if _, ok := slot.Arity.(Nested); ok {
			return schemaErrorf(command, slotPath, "positional slots can't be nested blocks")
		}
		if idx < len(block.Positional.Slots)-1 && slot.Arity.Min() != slot.Arity.Max() {
			return schemaErrorf(command, slotPath, "only the last positional slot may have a variable arity, found %s", slot.Arity)
		}
		for _, flag := range slot.Flags {
			if flag == "" {
				return schemaErrorf(command, slotPath, "empty flag")
			}
		}
	}

	for _, name := range block.KeywordNames() {
		a := block.Keywords[name]
		kwPath := joinPath(joinPath(path, "kwargs"), name)
		if name == "" {
			return schemaErrorf(command, kwPath, "empty keyword name")
		}
		if seenFlags[name] {
			return schemaErrorf(command, kwPath, "%s is declared both as flag and keyword", name)
		}
		if err := checkArity(a); err != nil {
			return &SchemaError{Command: command, Path: kwPath, Reason: "invalid keyword arity", Err: err}
		}
		if nested, ok := a.(Nested); ok {
			if ancestors[nested.Block] {
				return schemaErrorf(command, kwPath, "nested block %s contains itself", name)
			}
			if err := checkNestedBlock(command, kwPath, nested.Block, ancestors); err != nil {
				return err
			}
		}
	}

	return nil
}

// Raw converts the spec back into its raw declaration form. DecodeCommand(name, spec.Raw())
// yields an equivalent spec.
func (b *BlockSpec) Raw() map[string]interface{} {
	result := make(map[string]interface{})
	if len(b.Positional.Slots) > 0 {
		slots := make([]interface{}, len(b.Positional.Slots))
		for idx, slot := range b.Positional.Slots {
			if len(slot.Flags) > 0 {
				slots[idx] = map[string]interface{}{
					"nargs": rawArity(slot.Arity),
					"flags": stringsToRaw(slot.Flags),
				}
			} else {
				slots[idx] = rawArity(slot.Arity)
			}
		}

		if len(slots) == 1 && len(b.Positional.Slots[0].Flags) == 0 {
			result["pargs"] = slots[0]
		} else {
			result["pargs"] = slots
		}
	}

	if len(b.Flags) > 0 {
		result["flags"] = stringsToRaw(b.Flags)
	}

	if len(b.Keywords) > 0 {
		kwargs := make(map[string]interface{}, len(b.Keywords))
		for name, a := range b.Keywords {
			kwargs[name] = rawArity(a)
		}
		result["kwargs"] = kwargs
	}

	return result
}

func rawArity(a Arity) interface{} {
	switch value := a.(type) {
	case Exact:
		return int64(value)
	case Nested:
		return value.Block.Raw()
	}
	return a.String()
}

func stringsToRaw(items []string) []interface{} {
	result := make([]interface{}, len(items))
	for idx, item := range items {
		result[idx] = item
	}
	return result
}

func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func typeName(raw interface{}) string {
	switch raw.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int64:
		return "integer"
	case float64:
		return "float"
	case string:
		return "string"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "mapping"
	}
	return "unknown value"
}
