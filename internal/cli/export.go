package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-markdown-snippets/internal/styles"
)

var (
	exportOut  string
	exportFrom string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write theme stylesheets into a directory",
	Long: `Write one <theme>.min.css per registered highlight theme into --out.
With --from, copy every *.min.css below that directory instead, flattening
nested paths (base16/foo.min.css becomes base16-foo.min.css).`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output directory")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Copy prebuilt stylesheets from this directory")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	var (
		written []string
		err     error
	)
	if exportFrom != "" {
		written, err = styles.CopyTree(exportFrom, exportOut)
	} else {
		written, err = styles.Export(exportOut)
	}
	if err != nil {
		return fmt.Errorf("exporting stylesheets: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d stylesheets to %s\n", len(written), exportOut)
	return nil
}
