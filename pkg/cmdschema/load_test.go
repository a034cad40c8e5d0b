package cmdschema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	logger := zerolog.Nop()
	return WithLogger(context.Background(), &logger)
}

const yamlSchema = `
parse:
  additional_commands:
    cc_library:
      pargs: "1+"
      flags: [STATIC, SHARED]
      kwargs:
        SRCS: "*"
        PROPERTIES:
          kwargs:
            VERSION: 1
    create_debian_packages:
      pargs:
        - nargs: "+"
          flags: [FORCE_PBUILDER]
    get_debs:
      pargs: [3, "*"]
`

const jsonSchema = `{
	// comments are fine
	"additional_commands": {
		"cc_library": {
			"pargs": "1+",
			"flags": ["STATIC", "SHARED"],
			"kwargs": {
				"SRCS": "*",
				"PROPERTIES": {"kwargs": {"VERSION": 1}},
			},
		},
		"create_debian_packages": {
			"pargs": [{"nargs": "+", "flags": ["FORCE_PBUILDER"]}],
		},
		"get_debs": {"pargs": [3, "*"]},
	},
}`

const starlarkSchema = `
_flags = ["STATIC", "SHARED"]

additional_commands = {
    "cc_library": {
        "pargs": "1+",
        "flags": _flags,
        "kwargs": {
            "SRCS": "*",
            "PROPERTIES": {"kwargs": {"VERSION": 1}},
        },
    },
    "create_debian_packages": {
        "pargs": [{"nargs": "+", "flags": ["FORCE_PBUILDER"]}],
    },
    "get_debs": {"pargs": (3, "*")},
}

info("declared %d commands" % len(additional_commands))
`

func TestLoadFormatsAgree(t *testing.T) {
	ctx := testContext()

	fromYAML, err := Load(ctx, "schema.yaml", []byte(yamlSchema))
	require.NoError(t, err)
	fromJSON, err := Load(ctx, "schema.jsonc", []byte(jsonSchema))
	require.NoError(t, err)
	fromStar, err := Load(ctx, "schema.star", []byte(starlarkSchema))
	require.NoError(t, err)

	expected := []string{"cc_library", "create_debian_packages", "get_debs"}
	for _, r := range []*Registry{fromYAML, fromJSON, fromStar} {
		require.Equal(t, expected, r.Names())
		for _, name := range expected {
			want, err := fromYAML.Lookup(name)
			require.NoError(t, err)
			got, err := r.Lookup(name)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}

	spec, err := fromStar.Lookup("cc_library")
	require.NoError(t, err)
	assert.Equal(t, Positional(AtLeast(1)), spec.Positional)
	assert.Equal(t, []string{"STATIC", "SHARED"}, spec.Flags)
	assert.Equal(t, ZeroOrMore{}, spec.Keywords["SRCS"])
	props, ok := spec.Keywords["PROPERTIES"].(Nested)
	require.True(t, ok)
	assert.Equal(t, Exact(1), props.Block.Keywords["VERSION"])

	spec, err = fromStar.Lookup("get_debs")
	require.NoError(t, err)
	assert.Equal(t, PositionalSpec{Slots: []Slot{{Arity: Exact(3)}, {Arity: ZeroOrMore{}}}}, spec.Positional)
}

func TestLoadedRegistryIsFrozen(t *testing.T) {
	r, err := Load(testContext(), "schema.yaml", []byte(yamlSchema))
	require.NoError(t, err)
	assert.True(t, IsSchemaError(r.Register("other", CommandSpec{})))
}

func TestLoadBareCommandMapping(t *testing.T) {
	r, err := Load(testContext(), "schema.json", []byte(`{"pkg_find": {"kwargs": {"PKG": "*"}}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg_find"}, r.Names())
}

func TestLoadDuplicateKeys(t *testing.T) {
	ctx := testContext()

	cases := map[string]string{
		"dup.json": `{"cc_test": {"pargs": 1}, "cc_test": {"pargs": 2}}`,
		"nested.json": `{"cc_test": {"kwargs": {"PROPERTIES": {"kwargs": {"A": 1, "A": 1}}}}}`,
		"dup.yaml": "cc_test:\n  pargs: 1\ncc_test:\n  pargs: 2\n",
		"dup.star": `additional_commands = {"cc_test": {"pargs": 1}, "cc_test": {"pargs": 2}}`,
		"kw.star": `additional_commands = {"cc_test": {"kwargs": {"SRCS": "*", "SRCS": "+"}}}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := Load(ctx, name, []byte(doc))
			require.Error(t, err)
			assert.Nil(t, r)
			assert.True(t, IsSchemaError(err))
		})
	}
}

func TestLoadInvalidDeclarations(t *testing.T) {
	ctx := testContext()

	cases := map[string]string{
		"bad arity":       `{"cmd": {"pargs": "x"}}`,
		"bool arity":      `{"cmd": {"kwargs": {"A": true}}}`,
		"float arity":     `{"cmd": {"kwargs": {"A": 1.5}}}`,
		"negative":        `{"cmd": {"kwargs": {"A": -1}}}`,
		"unknown field":   `{"cmd": {"nargs": 1}}`,
		"flags not list":  `{"cmd": {"flags": "STATIC"}}`,
		"flag not string": `{"cmd": {"flags": [1]}}`,
		"nested pargs":    `{"cmd": {"pargs": [[1]]}}`,
		"slot no nargs":   `{"cmd": {"pargs": [{"flags": ["A"]}]}}`,
		"not a mapping":   `{"cmd": ["SRCS"]}`,
		"root list":       `[1, 2]`,
		"variadic first":  `{"cmd": {"pargs": ["*", 1]}}`,
		"broken nested":   `{"cmd": {"kwargs": {"PROPERTIES": {"kwargs": {"VERSION": "many"}}}}}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := Load(ctx, "schema.json", []byte(doc))
			require.Error(t, err)
			assert.Nil(t, r, "partial registries must not be returned")
			assert.True(t, IsSchemaError(err))
		})
	}

	_, err := Load(ctx, "schema.toml", []byte(""))
	assert.True(t, IsSchemaError(err))

	_, err = Load(ctx, "schema.star", []byte("x = 1"))
	assert.True(t, IsSchemaError(err))

	_, err = Load(ctx, "schema.star", []byte("additional_commands = {"))
	assert.True(t, IsSchemaError(err))
}

func TestSchemaErrorPath(t *testing.T) {
	_, err := Load(testContext(), "schema.json", []byte(`{"cc_library": {"kwargs": {"PROPERTIES": {"kwargs": {"VERSION": "many"}}}}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cc_library")
	assert.Contains(t, err.Error(), "kwargs.PROPERTIES.kwargs.VERSION")
}

func TestDefaultRegistry(t *testing.T) {
	r, err := Default(testContext())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"cc_binary",
		"cc_library",
		"cc_test",
		"check_call",
		"create_debian_binary_packages",
		"create_debian_packages",
		"exportvars",
		"format_and_lint",
		"get_debs",
		"importvars",
		"pkg_find",
		"stage_files",
	}, r.Names())

	spec, err := r.Lookup("cc_test")
	require.NoError(t, err)
	assert.Equal(t, Positional(Exact(1)), spec.Positional)
	assert.Equal(t, []string{"ARGV", "DEPS", "LABELS", "PKGDEPS", "SRCS", "TEST_DEPS", "WORKING_DIRECTORY"}, spec.KeywordNames())

	spec, err = r.Lookup("check_call")
	require.NoError(t, err)
	assert.Equal(t, Exact(1), spec.Keywords["TIMEOUT"])
	assert.Len(t, spec.Flags, 4)

	spec, err = r.Lookup("cc_binary")
	require.NoError(t, err)
	props, ok := spec.Keywords["PROPERTIES"].(Nested)
	require.True(t, ok)
	assert.Equal(t, []string{"EXPORT_NAME", "OUTPUT_NAME"}, props.Block.KeywordNames())

	spec, err = r.Lookup("importvars")
	require.NoError(t, err)
	assert.Equal(t, OneOrMore{}, spec.Keywords["VARS"])
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlSchema), 0644))

	r, err := LoadFile(testContext(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	_, err = LoadFile(testContext(), filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)
}

func TestRawRoundTrip(t *testing.T) {
	r, err := Default(testContext())
	require.NoError(t, err)

	for _, name := range r.Names() {
		spec, err := r.Lookup(name)
		require.NoError(t, err)

		decoded, err := DecodeCommand(name, spec.Raw())
		require.NoError(t, err)
		assert.Equal(t, *spec, decoded, name)
	}
}

func TestParseArity(t *testing.T) {
	cases := map[string]Arity{
		"0":  Exact(0),
		"1":  Exact(1),
		"*":  ZeroOrMore{},
		"+":  OneOrMore{},
		"?":  Optional{},
		"1+": AtLeast(1),
		"3+": AtLeast(3),
	}
	for input, want := range cases {
		got, err := ParseArity(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
		assert.Equal(t, input, got.String())
	}

	for _, input := range []string{"", "x", "-1", "+1", "1++", "-2+", "*+"} {
		_, err := ParseArity(input)
		assert.Error(t, err, input)
	}
}

func TestLoadCmakeFormatConfig(t *testing.T) {
	ctx := testContext()

	fromConfig, err := LoadFile(ctx, filepath.Join("testdata", "cmake-format.py"))
	require.NoError(t, err)

	defaults, err := Default(ctx)
	require.NoError(t, err)
	require.Equal(t, defaults.Names(), fromConfig.Names())

	for _, name := range defaults.Names() {
		want, err := defaults.Lookup(name)
		require.NoError(t, err)
		got, err := fromConfig.Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestLoadConfigSections(t *testing.T) {
	ctx := testContext()

	doc := `_deps = {"DEPS": "*"}

with section("format"):
  line_width = 100

# parser settings
with section("parse"):
  # helpers
  additional_commands = {
    "pkg_find": {
      "kwargs": _deps,
    },
  }
  vartags = []
`
	r, err := Load(ctx, ".cmake-format.py", []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg_find"}, r.Names())

	_, err = Load(ctx, ".cmake-format.py", []byte("with section(\"parse\"):\n  vartags = []\n"))
	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
	assert.Contains(t, err.Error(), "does not declare additional_commands")

	// errors inside a section point at the line in the original file
	_, err = Load(ctx, ".cmake-format.py", []byte("with section(\"parse\"):\n  additional_commands = {}\n  broken = undefined_name\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".cmake-format.py:3:")
}

func TestParseSectionWithoutCommands(t *testing.T) {
	ctx := testContext()

	cases := map[string]string{
		"config.yaml": "parse:\n  vartags: []\n",
		"config.json": `{"parse": {"proptags": []}}`,
		"config.star": `parse = {"vartags": []}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(ctx, name, []byte(doc))
			require.Error(t, err)
			assert.True(t, IsSchemaError(err))
			assert.Contains(t, err.Error(), "parse section")
			assert.NotContains(t, err.Error(), "vartags")
		})
	}
}
