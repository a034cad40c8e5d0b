package cmdschema

import (
	"context"
	"encoding/gob"
	"os"
	"time"

	"github.com/rotisserie/eris"
)

func init() {
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}

// CacheInfo identifies the schema document a cache was generated from.
type CacheInfo struct {
	Source  string
	ModTime time.Time
	Size    int64
}

func statSource(source string) (CacheInfo, error) {
	info, err := os.Stat(source)
	if err != nil {
		return CacheInfo{}, err
	}

	return CacheInfo{Source: source, ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Matches reports whether the cache was generated from the current version of its source.
func (c CacheInfo) Matches(other CacheInfo) bool {
	return c.Source == other.Source && c.Size == other.Size && c.ModTime.Equal(other.ModTime)
}

func WriteCache(file string, info CacheInfo, decls Declarations) error {
	handle, err := os.Create(file)
	if err != nil {
		return err
	}
	defer handle.Close()

	encoder := gob.NewEncoder(handle)
	err = encoder.Encode(info)
	if err != nil {
		return err
	}

	return encoder.Encode(decls)
}

func ReadCache(file string) (CacheInfo, Declarations, error) {
	handle, err := os.Open(file)
	if err != nil {
		return CacheInfo{}, nil, err
	}
	defer handle.Close()

	decoder := gob.NewDecoder(handle)

	var info CacheInfo
	err = decoder.Decode(&info)
	if err != nil {
		return CacheInfo{}, nil, err
	}

	var result Declarations
	err = decoder.Decode(&result)
	if err != nil {
		return info, nil, err
	}

	return info, result, nil
}

// LoadCached works like LoadFile but reuses the declarations stored in cacheFile as long as the
// source hasn't changed since the cache was written. A stale or unreadable cache is rebuilt.
func LoadCached(ctx context.Context, filename, cacheFile string) (*Registry, error) {
	if cacheFile == "" {
		return LoadFile(ctx, filename)
	}

	current, err := statSource(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read schema %s", filename)
	}

	cached, decls, err := ReadCache(cacheFile)
	if err == nil && cached.Matches(current) {
		log(ctx).Debug().Str("path", cacheFile).Msg("Using cached schema")
		registry, err := Build(decls)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to load cached schema %s", cacheFile)
		}
		return registry, nil
	}
	if err != nil && !os.IsNotExist(err) {
		log(ctx).Warn().Err(err).Str("path", cacheFile).Msg("Ignoring unreadable schema cache")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read schema %s", filename)
	}

	decls, err = ReadDeclarations(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	registry, err := Build(decls)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to load schema %s", filename)
	}

	err = WriteCache(cacheFile, current, decls)
	if err != nil {
		log(ctx).Warn().Err(err).Str("path", cacheFile).Msg("Failed to write schema cache")
	}

	return registry, nil
}
