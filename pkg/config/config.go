package config

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/ngld/knossos/packages/cmkschema/pkg/cmdschema"
)

// Config describes all configuration options
type Config struct {
	Schema  string   `usage:"Command schema to load (.star, .py, .yaml, .json); the built-in schema is used if empty"`
	Cache   string   `usage:"File used to cache the decoded schema"`
	Include []string `default:"**/CMakeLists.txt,**/*.cmake" usage:"Glob patterns selecting the listfiles to check"`
	Jobs    int      `default:"4" usage:"Number of files checked in parallel"`
	Log     struct {
		Level string `default:"info"`
		JSON  bool   `default:"false" usage:"Output JSONND instead of pretty console messages"`
	}
}

var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Loader initializes an empty config object and returns a new Loader for this object.
// Command line flags are handled by the CLI so the loader only reads the config file and the environment.
func Loader(files ...string) (*Config, *aconfig.Loader) {
	if len(files) == 0 {
		files = []string{"cmkschema.toml", ".cmkschema.toml"}
	}

	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CMKSCHEMA",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	if cfg.Schema != "" && !cmdschema.SupportedFormat(cfg.Schema) {
		return eris.Errorf(`Invalid value for schema: %s (must be a .star, .py, .bzl, .yaml, .yml, .json or .jsonc file)`, cfg.Schema)
	}

	for _, pattern := range cfg.Include {
		if !doublestar.ValidatePattern(pattern) {
			return eris.Errorf(`Invalid value for include: %s`, pattern)
		}
	}

	if cfg.Jobs < 1 {
		return eris.Errorf(`Invalid value for jobs: %d (must be at least 1)`, cfg.Jobs)
	}

	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}
