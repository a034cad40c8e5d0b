package cmd

import (
	"strings"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ngld/knossos/packages/cmkschema/pkg/cmdschema"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup command",
	Short: "Shows the declared signature of a command",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return eris.New("Expected 1 argument!")
		}

		ctx, cfg, err := setup(cmd)
		if err != nil {
			return err
		}

		registry, err := loadRegistry(ctx, cfg)
		if err != nil {
			return err
		}

		spec, err := registry.Lookup(args[0])
		if err != nil {
			return err
		}

		colorstring.Printf("[blue][bold]==>[reset] %s\n", spec.Name)
		printBlock(&spec.BlockSpec, "  ")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func printBlock(block *cmdschema.BlockSpec, indent string) {
	colorstring.Printf("%s[green]positional:[reset] %s\n", indent, block.Positional.String())
	if len(block.Flags) > 0 {
		colorstring.Printf("%s[green]flags:[reset] %s\n", indent, strings.Join(block.Flags, " "))
	}

	for _, name := range block.KeywordNames() {
		a := block.Keywords[name]
		if nested, ok := a.(cmdschema.Nested); ok {
			colorstring.Printf("%s[green]%s:[reset]\n", indent, name)
			printBlock(nested.Block, indent+"  ")
			continue
		}
		colorstring.Printf("%s[green]%s:[reset] %s\n", indent, name, a.String())
	}
}
