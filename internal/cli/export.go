package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attraddr/attraddr-go/internal/services/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export resolved addresses",
	Long: `Renders the resolved address table in one of the supported formats:
` + formatList() + `

Without --output the result is written to stdout.

Examples:
  attraddr -p show.aa export csv --output addresses.csv
  attraddr -p show.aa export ma3_dmx_remotes --output remotes.xml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := export.Format(args[0])
		if !format.Valid() {
			return fmt.Errorf("unknown format %q, expected one of: %s", args[0], formatList())
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		out, err := s.Export(format)
		if err != nil {
			return err
		}

		if exportOutput == "" {
			fmt.Print(out)
			return nil
		}
		if err := os.WriteFile(exportOutput, []byte(out), 0o644); err != nil {
			return fmt.Errorf("failed to write export file: %w", err)
		}
		fmt.Printf("Wrote %s\n", exportOutput)
		return nil
	},
}

func formatList() string {
	names := make([]string, len(export.Formats()))
	for i, f := range export.Formats() {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
