package cmdschema

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	decls, err := ReadDeclarations(testContext(), "schema.json", []byte(jsonSchema))
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "schema.cache")
	info := CacheInfo{Source: "schema.json", ModTime: time.Unix(1600000000, 0), Size: 42}
	require.NoError(t, WriteCache(file, info, decls))

	gotInfo, gotDecls, err := ReadCache(file)
	require.NoError(t, err)
	assert.True(t, info.Matches(gotInfo))
	assert.Equal(t, decls, gotDecls)
}

func TestLoadCached(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "schema.yaml")
	cacheFile := filepath.Join(dir, "schema.cache")
	require.NoError(t, os.WriteFile(source, []byte(yamlSchema), 0644))

	r, err := LoadCached(testContext(), source, cacheFile)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
	assert.FileExists(t, cacheFile)

	// the cache is used as long as the source is unchanged
	info, decls, err := ReadCache(cacheFile)
	require.NoError(t, err)
	delete(decls, "get_debs")
	require.NoError(t, WriteCache(cacheFile, info, decls))

	r, err = LoadCached(testContext(), source, cacheFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"cc_library", "create_debian_packages"}, r.Names())

	// a modified source invalidates the cache
	later := info.ModTime.Add(time.Minute)
	require.NoError(t, os.Chtimes(source, later, later))

	r, err = LoadCached(testContext(), source, cacheFile)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	// a broken cache is ignored and rewritten
	require.NoError(t, os.WriteFile(cacheFile, []byte("garbage"), 0644))
	r, err = LoadCached(testContext(), source, cacheFile)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	_, _, err = ReadCache(cacheFile)
	assert.NoError(t, err)
}
