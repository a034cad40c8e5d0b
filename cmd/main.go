package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cmkschema",
	Short: "Command schema tools for CMake listfiles",
	Long: `This command loads the signatures of the project's custom CMake commands and
uses them to check how these commands are invoked in CMakeLists.txt and *.cmake files.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("schema", "s", "", "command schema to load instead of the built-in one")
	flags.String("cache", "", "file used to cache the decoded schema")
	flags.String("config", "", "config file to read instead of cmkschema.toml")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.Bool("json", false, "log JSON messages instead of colored console output")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
