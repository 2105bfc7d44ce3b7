package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/gdtf"
	"github.com/attraddr/attraddr-go/internal/services/csvimport"
	"github.com/attraddr/attraddr-go/internal/services/ma3"
	"github.com/attraddr/attraddr-go/internal/services/mvr"
)

var importFormat string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import fixtures from an MVR, CSV, or console XML file",
	Long: `Imports fixture patch data into the project. The format is detected
from the file extension; use --format to override.

Examples:
  attraddr -p show.aa import rig.mvr
  attraddr -p show.aa import patch.csv
  attraddr -p show.aa import stage.xml --format ma3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		format := importFormat
		if format == "" {
			format = detectFormat(path)
		}
		if format == "" {
			return fmt.Errorf("cannot detect import format for %q, use --format", path)
		}

		s, err := openSession()
		if err != nil {
			return err
		}

		var fixtures []*fixture.Fixture
		var profiles *gdtf.Registry
		var warnings []string

		switch format {
		case "mvr":
			res, err := mvr.ImportFile(path)
			if err != nil {
				return err
			}
			fixtures, profiles, warnings = res.Fixtures, res.Profiles, res.Warnings
		case "csv":
			res, err := importCSVFile(path, len(s.Fixtures())+1)
			if err != nil {
				return err
			}
			fixtures, warnings = res.Fixtures, res.Warnings
		case "ma3":
			res, err := ma3.ImportFile(path)
			if err != nil {
				return err
			}
			fixtures, warnings = res.Fixtures, res.Warnings
		default:
			return fmt.Errorf("unknown import format %q (mvr, csv, ma3)", format)
		}

		s.AddFixtures(fixtures, profiles)

		fmt.Printf("Imported %d fixtures from %s\n", len(fixtures), filepath.Base(path))
		if profiles != nil && profiles.Len() > 0 {
			fmt.Printf("Loaded %d embedded GDTF profiles\n", profiles.Len())
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		return saveSession(s)
	},
}

func importCSVFile(path string, startFixtureID int) (*csvimport.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	headers, _, err := csvimport.Preview(f, 0)
	_ = f.Close()
	if err != nil {
		return nil, err
	}
	return csvimport.ImportFile(path, csvimport.GuessMapping(headers), startFixtureID)
}

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mvr", ".zip":
		return "mvr"
	case ".csv":
		return "csv"
	case ".xml":
		return "ma3"
	}
	return ""
}

func init() {
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "Import format: mvr, csv, or ma3")
	rootCmd.AddCommand(importCmd)
}
