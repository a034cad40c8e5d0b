package cmdschema

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	declarationsKey = "additional_commands"
	parseSection    = "parse"
)

//go:embed defaults.star
var defaultSchema []byte

// Declarations maps command names to their raw declarations.
type Declarations map[string]interface{}

// SupportedFormat reports whether LoadFile knows how to read filename.
func SupportedFormat(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".star", ".py", ".bzl", ".yaml", ".yml", ".json", ".jsonc":
		return true
	}
	return false
}

// LoadFile reads a schema document and builds a frozen registry from it. The format is picked
// based on the file extension.
func LoadFile(ctx context.Context, filename string) (*Registry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read schema %s", filename)
	}

	return Load(ctx, filename, data)
}

// Load builds a frozen registry from an in-memory schema document. filename is only used to
// pick the format and for messages.
func Load(ctx context.Context, filename string, data []byte) (*Registry, error) {
	decls, err := ReadDeclarations(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	registry, err := Build(decls)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load schema %s", filename)
	}

	log(ctx).Debug().Str("path", filename).Int("commands", registry.Len()).Msg("Loaded command schema")
	return registry, nil
}

// Default returns a registry with the built-in declarations for the project's CMake helpers.
func Default(ctx context.Context) (*Registry, error) {
	return Load(ctx, "defaults.star", defaultSchema)
}

// Build registers all declarations in a fresh registry and freezes it. On error no registry is returned.
func Build(decls Declarations) (*Registry, error) {
	registry := New()
	for _, name := range sortedKeys(decls) {
		if err := registry.RegisterRaw(name, decls[name]); err != nil {
			return nil, err
		}
	}

	registry.Freeze()
	return registry, nil
}

// ReadDeclarations parses a schema document into its raw declarations.
//
// The document root is either the command mapping itself, or a mapping with an
// additional_commands entry, optionally placed inside a parse section.
func ReadDeclarations(ctx context.Context, filename string, data []byte) (Declarations, error) {
	var doc interface{}
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".star", ".py", ".bzl":
		doc, err = readStarlark(ctx, filename, data)
	case ".yaml", ".yml":
		doc, err = readYAML(data)
	case ".json", ".jsonc":
		doc, err = readJSON(data)
	default:
		return nil, &SchemaError{Reason: "unsupported schema format " + filepath.Ext(filename) + " for " + filename}
	}
	if err != nil {
		return nil, &SchemaError{Reason: "failed to parse " + filename, Err: err}
	}

	doc, err = normalize(doc)
	if err != nil {
		return nil, &SchemaError{Reason: "failed to parse " + filename, Err: err}
	}

	root, ok := doc.(map[string]interface{})
	if !ok {
		return nil, &SchemaError{Reason: "the root of " + filename + " must be a mapping but is a " + typeName(doc)}
	}

	if section, ok := root[parseSection].(map[string]interface{}); ok {
		// cmake-format keeps other parser settings (vartags, proptags) next to the commands
		if _, present := section[declarationsKey]; !present {
			return nil, &SchemaError{Reason: "the " + parseSection + " section of " + filename + " does not declare " + declarationsKey}
		}
		root = section
	}

	if commands, present := root[declarationsKey]; present {
		if commands == nil {
			return Declarations{}, nil
		}

		root, ok = commands.(map[string]interface{})
		if !ok {
			return nil, &SchemaError{Reason: declarationsKey + " in " + filename + " must be a mapping but is a " + typeName(commands)}
		}
	}

	return Declarations(root), nil
}

func readYAML(data []byte) (interface{}, error) {
	var doc interface{}
	// yaml.v3 rejects duplicate mapping keys on its own
	err := yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func readJSON(data []byte) (interface{}, error) {
	data = jsonc.ToJSON(data)

	if err := checkDuplicateKeys(json.NewDecoder(bytes.NewReader(data))); err != nil {
		return nil, err
	}

	var doc interface{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "invalid JSON")
	}
	return doc, nil
}

// checkDuplicateKeys walks the token stream of one JSON value and fails on the first object
// that repeats a key; encoding/json silently keeps the last one.
func checkDuplicateKeys(decoder *json.Decoder) error {
	token, err := decoder.Token()
	if err != nil {
		if err == io.EOF {
			return eris.New("empty document")
		}
		return eris.Wrap(err, "invalid JSON")
	}

	delim, ok := token.(json.Delim)
	if !ok {
		return nil
	}

	switch delim {
	case '{':
		seen := make(map[string]bool)
		for decoder.More() {
			keyToken, err := decoder.Token()
			if err != nil {
				return eris.Wrap(err, "invalid JSON")
			}

			key := keyToken.(string)
			if seen[key] {
				return eris.Errorf("duplicate key %q", key)
			}
			seen[key] = true

			if err := checkDuplicateKeys(decoder); err != nil {
				return eris.Wrapf(err, "in %s", key)
			}
		}
	case '[':
		for decoder.More() {
			if err := checkDuplicateKeys(decoder); err != nil {
				return err
			}
		}
	}

	// consume the closing delimiter
	if _, err := decoder.Token(); err != nil {
		return eris.Wrap(err, "invalid JSON")
	}
	return nil
}

// normalize converts the output of the different decoders into the raw declaration tree.
func normalize(value interface{}) (interface{}, error) {
	switch value := value.(type) {
	case nil, string, bool, int64, float64:
		return value, nil
	case int:
		return int64(value), nil
	case uint64:
		return int64(value), nil
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return i, nil
		}
		f, err := value.Float64()
		if err != nil {
			return nil, eris.Wrapf(err, "invalid number %s", value)
		}
		return f, nil
	case []interface{}:
		result := make([]interface{}, len(value))
		for idx, item := range value {
			converted, err := normalize(item)
			if err != nil {
				return nil, err
			}
			result[idx] = converted
		}
		return result, nil
	case map[string]interface{}:
		result := make(map[string]interface{}, len(value))
		for key, item := range value {
			converted, err := normalize(item)
			if err != nil {
				return nil, err
			}
			result[key] = converted
		}
		return result, nil
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(value))
		for rawKey, item := range value {
			key, ok := rawKey.(string)
			if !ok {
				return nil, eris.Errorf("found key %v but only string keys are supported", rawKey)
			}

			converted, err := normalize(item)
			if err != nil {
				return nil, err
			}
			result[key] = converted
		}
		return result, nil
	}

	return nil, eris.Errorf("unsupported value %v (%T)", value, value)
}
