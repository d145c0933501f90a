package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-markdown-snippets/internal/styles"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List highlight theme names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range styles.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
