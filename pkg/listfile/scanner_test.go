package listfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanInvocations(t *testing.T) {
	src := `# leading comment
cmake_minimum_required(VERSION 3.10)

cc_library(foo STATIC # trailing comment
  SRCS foo.c "bar baz.c"
  PROPERTIES VERSION 1.0)

#[[ a bracket comment
cc_test(ignored) ]]
cc_test(foo_test SRCS [=[weird ]] name.c]=] )
if((A) AND B)
endif()
`
	invocations, err := Scan("CMakeLists.txt", []byte(src))
	require.NoError(t, err)
	require.Len(t, invocations, 5)

	assert.Equal(t, "cmake_minimum_required", invocations[0].Name)
	assert.Equal(t, Pos{Line: 2, Col: 1}, invocations[0].Pos)
	assert.Equal(t, []string{"VERSION", "3.10"}, invocations[0].Tokens())

	lib := invocations[1]
	assert.Equal(t, "cc_library", lib.Name)
	assert.Equal(t, Pos{Line: 4, Col: 1}, lib.Pos)
	assert.Equal(t, []string{"foo", "STATIC", "SRCS", "foo.c", "bar baz.c", "PROPERTIES", "VERSION", "1.0"}, lib.Tokens())
	assert.Equal(t, Quoted, lib.Args[4].Kind)
	assert.Equal(t, Pos{Line: 5, Col: 14}, lib.Args[4].Pos)

	test := invocations[2]
	assert.Equal(t, "cc_test", test.Name)
	assert.Equal(t, Pos{Line: 10, Col: 1}, test.Pos)
	assert.Equal(t, []string{"foo_test", "SRCS", "weird ]] name.c"}, test.Tokens())
	assert.Equal(t, Bracket, test.Args[2].Kind)

	cond := invocations[3]
	assert.Equal(t, "if", cond.Name)
	assert.Equal(t, []string{"A", "AND", "B"}, cond.Tokens())
	assert.Len(t, cond.Args, 5)
	assert.Equal(t, Paren, cond.Args[0].Kind)

	assert.Equal(t, "endif", invocations[4].Name)
	assert.Empty(t, invocations[4].Args)
}

func TestScanEscapes(t *testing.T) {
	invocations, err := Scan("test.cmake", []byte(`message("a \"quoted\" \\ value\n" semi\;colon)`))
	require.NoError(t, err)
	require.Len(t, invocations, 1)
	assert.Equal(t, []string{"a \"quoted\" \\ value\n", `semi\;colon`}, invocations[0].Tokens())
}

func TestScanErrors(t *testing.T) {
	cases := map[string]string{
		"unterminated quote":   `message("oops)`,
		"unterminated call":    "cc_test(foo\n",
		"unterminated bracket": `cc_test([[foo)`,
		"unterminated comment": "#[[ never closed\ncc_test(foo)",
		"missing paren":        "cc_test foo",
		"stray token":          "(foo)",
	}

	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Scan("broken.cmake", []byte(src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "broken.cmake:")
		})
	}
}

func TestScanEmpty(t *testing.T) {
	invocations, err := Scan("empty.cmake", []byte("  # nothing here\n\n"))
	require.NoError(t, err)
	assert.Empty(t, invocations)
}
