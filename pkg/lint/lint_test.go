package lint

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngld/knossos/packages/cmkschema/pkg/cmdschema"
)

func testSetup(t *testing.T) (context.Context, *cmdschema.Registry) {
	logger := zerolog.Nop()
	ctx := cmdschema.WithLogger(context.Background(), &logger)

	registry, err := cmdschema.Default(ctx)
	require.NoError(t, err)
	return ctx, registry
}

const goodListfile = `
cc_library(knossos STATIC
  SRCS a.cc b.cc
  DEPS fmt
  PROPERTIES
    VERSION 1.0
    SOVERSION 1)

create_debian_packages(libknossos FORCE_PBUILDER OUTPUTS out.deb)
get_debs(a b c)
add_executable(anything goes here)
check_call(COMMAND ls -l OUTPUT_QUIET TIMEOUT 10)
`

const badListfile = `
cc_test(SRCS a.cc)
cc_library(foo SRCS a.cc PROPERTIES VERSON 1)
importvars(file VARS)
create_debian_binary_packages(a b c)
`

func TestCheckSourceClean(t *testing.T) {
	ctx, registry := testSetup(t)

	diags, err := CheckSource(ctx, registry, "CMakeLists.txt", []byte(goodListfile))
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestCheckSourceProblems(t *testing.T) {
	ctx, registry := testSetup(t)

	diags, err := CheckSource(ctx, registry, "CMakeLists.txt", []byte(badListfile))
	require.NoError(t, err)
	require.Len(t, diags, 4)

	assert.Equal(t, "cc_test", diags[0].Command)
	assert.Equal(t, 2, diags[0].Pos.Line)
	assert.Equal(t, cmdschema.MissingPositional, diags[0].Violation.Kind)

	assert.Equal(t, "cc_library", diags[1].Command)
	assert.Equal(t, cmdschema.UnknownKeyword, diags[1].Violation.Kind)
	assert.Equal(t, "cc_library.PROPERTIES", diags[1].Violation.Path)
	assert.Equal(t, "VERSION", diags[1].Violation.Suggestion)

	assert.Equal(t, cmdschema.KeywordArity, diags[2].Violation.Kind)
	assert.Equal(t, "VARS", diags[2].Violation.Subject)

	assert.Equal(t, cmdschema.MissingPositional, diags[3].Violation.Kind)
	assert.Equal(t, "CMakeLists.txt:5:1: create_debian_binary_packages: missing required positional argument: expected at least 4, got 3", diags[3].String())
}

func TestCheckSourceSyntaxError(t *testing.T) {
	ctx, registry := testSetup(t)

	_, err := CheckSource(ctx, registry, "CMakeLists.txt", []byte(`cc_test("unterminated)`))
	assert.Error(t, err)
}

func TestCheckFiles(t *testing.T) {
	ctx, registry := testSetup(t)
	dir := t.TempDir()

	files := []string{
		filepath.Join(dir, "b.cmake"),
		filepath.Join(dir, "a.cmake"),
		filepath.Join(dir, "c.cmake"),
	}
	require.NoError(t, os.WriteFile(files[0], []byte(badListfile), 0644))
	require.NoError(t, os.WriteFile(files[1], []byte(badListfile), 0644))
	require.NoError(t, os.WriteFile(files[2], []byte(goodListfile), 0644))

	var checked int32
	diags, err := Check(ctx, registry, files, Options{
		Jobs: 2,
		Progress: func(string) {
			atomic.AddInt32(&checked, 1)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), checked)
	require.Len(t, diags, 8)

	for idx, diag := range diags {
		if idx < 4 {
			assert.Equal(t, files[1], diag.File)
		} else {
			assert.Equal(t, files[0], diag.File)
		}
	}
	assert.Equal(t, 2, diags[0].Pos.Line)
	assert.Equal(t, 5, diags[3].Pos.Line)

	_, err = Check(ctx, registry, []string{filepath.Join(dir, "missing.cmake")}, Options{})
	assert.Error(t, err)
}
