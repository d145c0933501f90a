// Package cli is the command tree of the stylesheet build tool.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "markdown-snippets-styles",
	Short: "Build the highlight theme stylesheets for the snippet preview",
	Long: `markdown-snippets-styles writes one flat stylesheet per highlight theme.
The preview serves the same sheets itself; exported files are for packaging
and for inspecting a theme.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
