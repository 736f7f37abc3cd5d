// Command seshat introspects live databases and renders migration scripts.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stokaro/seshat/cmd/describe"
	"github.com/stokaro/seshat/cmd/script"
)

var rootCmd = &cobra.Command{
	Use:   "seshat",
	Short: "Schema introspection and migration rendering",
	Long: `Seshat reads a live database's catalog into a schema snapshot, models
structural changes as an ordered list of migration steps over a before/after
schema pair, and renders each step into dialect-correct SQL.`,
}

func main() {
	rootCmd.AddCommand(describe.NewDescribeCommand())
	rootCmd.AddCommand(script.NewScriptCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
