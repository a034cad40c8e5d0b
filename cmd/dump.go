package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Prints the loaded command schema as YAML",
	Long: `Loads the configured schema (or the built-in one) and prints the decoded declarations.
The output can be used as schema file itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, err := setup(cmd)
		if err != nil {
			return err
		}

		registry, err := loadRegistry(ctx, cfg)
		if err != nil {
			return err
		}

		commands := make(map[string]interface{}, registry.Len())
		for _, name := range registry.Names() {
			spec, err := registry.Lookup(name)
			if err != nil {
				return err
			}
			commands[name] = spec.Raw()
		}

		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		defer encoder.Close()

		return encoder.Encode(map[string]interface{}{
			"additional_commands": commands,
		})
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
