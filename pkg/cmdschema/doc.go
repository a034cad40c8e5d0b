// Package cmdschema implements the registry of custom CMake command signatures used by the
// listfile formatter and linter.
// Each command declares its positional arity, the flags it accepts and its keyword arguments
// (which may themselves be nested keyword blocks). The declarations are loaded once from a
// Starlark, YAML or JSON document, frozen and then shared read-only by every consumer.
package cmdschema
