package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ngld/knossos/packages/cmkschema/pkg/cmdschema"
	"github.com/ngld/knossos/packages/cmkschema/pkg/config"
)

// setup loads the config, applies the command line overrides and prepares the logger.
func setup(cmd *cobra.Command) (context.Context, *config.Config, error) {
	flags := cmd.Flags()

	configFile, err := flags.GetString("config")
	if err != nil {
		return nil, nil, err
	}

	var files []string
	if configFile != "" {
		files = []string{configFile}
	}

	cfg, loader := config.Loader(files...)
	if err := loader.Load(); err != nil {
		return nil, nil, eris.Wrap(err, "failed to load config")
	}

	if err := applyFlags(flags, cfg); err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var logger zerolog.Logger
	if cfg.Log.JSON {
		zerolog.ErrorMarshalFunc = func(err error) interface{} {
			return eris.ToJSON(err, true)
		}
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(NewConsoleWriter(os.Stderr))
	}
	logger = logger.Level(cfg.LogLevel())

	ctx := cmdschema.WithLogger(context.Background(), &logger)
	return ctx, cfg, nil
}

// applyFlags copies the explicitly set command line flags over the loaded config.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	if flags.Changed("schema") {
		if cfg.Schema, err = flags.GetString("schema"); err != nil {
			return err
		}
	}
	if flags.Changed("cache") {
		if cfg.Cache, err = flags.GetString("cache"); err != nil {
			return err
		}
	}
	if flags.Changed("log-level") {
		level, err := flags.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.Log.Level = strings.ToLower(level)
	}
	if flags.Changed("json") {
		if cfg.Log.JSON, err = flags.GetBool("json"); err != nil {
			return err
		}
	}
	return nil
}

func loadRegistry(ctx context.Context, cfg *config.Config) (*cmdschema.Registry, error) {
	if cfg.Schema == "" {
		return cmdschema.Default(ctx)
	}

	return cmdschema.LoadCached(ctx, cfg.Schema, cfg.Cache)
}
