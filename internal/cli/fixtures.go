package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/attraddr/attraddr-go/internal/fixture"
)

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "List the project's fixtures",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		fixtures := s.Fixtures()
		if len(fixtures) == 0 {
			fmt.Println("No fixtures imported yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FID\tNAME\tTYPE\tADDRESS\tROLE\tPROFILE\tSELECTED")
		for _, f := range fixtures {
			profile := "-"
			if f.Matched {
				profile = fmt.Sprintf("%s / %s", f.ProfileName, f.ModeName)
			}
			selected := ""
			if f.Selected {
				selected = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%d.%03d\t%s\t%s\t%s\n",
				f.FixtureID, f.Name, f.Type, f.Universe, f.Channel, f.Role, profile, selected)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d fixtures\n", len(fixtures))
		return nil
	},
}

var roleCmd = &cobra.Command{
	Use:   "role <fixture> <PRIMARY|SECONDARY|UNASSIGNED>",
	Short: "Set a fixture's linking role",
	Long: `Sets the primary/secondary role of one fixture. The fixture may be
referenced by its numeric fixture id or its exact name.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		f, err := findFixture(s, args[0])
		if err != nil {
			return err
		}
		if err := s.SetRole(f.ID, fixture.Role(args[1])); err != nil {
			return err
		}
		fmt.Printf("Set %s (ID: %d) to %s\n", f.Name, f.FixtureID, args[1])
		return saveSession(s)
	},
}

var selectCmd = &cobra.Command{
	Use:   "select <fixture> <true|false>",
	Short: "Include or exclude a fixture from export",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		f, err := findFixture(s, args[0])
		if err != nil {
			return err
		}
		selected := args[1] == "true"
		if err := s.SetSelected(f.ID, selected); err != nil {
			return err
		}
		fmt.Printf("Set %s (ID: %d) selected=%v\n", f.Name, f.FixtureID, selected)
		return saveSession(s)
	},
}

var fixtureIDCmd = &cobra.Command{
	Use:   "fixture-id <fixture> <id>",
	Short: "Correct a fixture's console ID",
	Long: `Assigns a numeric console ID to one fixture, clearing the invalid
flag set when an import could not parse the source value.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		f, err := findFixture(s, args[0])
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("fixture id must be numeric, got %q", args[1])
		}
		if err := s.SetFixtureID(f.ID, id); err != nil {
			return err
		}
		fmt.Printf("Set %s fixture id to %d\n", f.Name, id)
		return saveSession(s)
	},
}

var patchCmd = &cobra.Command{
	Use:   "patch <fixture> <universe.channel>",
	Short: "Correct a fixture's DMX starting address",
	Long: `Re-patches one fixture, clearing the invalid flag set when an import
could not parse the source address. Resolved addresses are discarded and
must be re-resolved.

Example:
  attraddr -p show.aa patch "Spot 3" 4.101`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		f, err := findFixture(s, args[0])
		if err != nil {
			return err
		}
		rawU, rawC, found := strings.Cut(args[1], ".")
		if !found {
			return fmt.Errorf("patch must be universe.channel, got %q", args[1])
		}
		universe, errU := strconv.Atoi(rawU)
		channel, errC := strconv.Atoi(rawC)
		if errU != nil || errC != nil {
			return fmt.Errorf("patch must be numeric universe.channel, got %q", args[1])
		}
		if err := s.SetPatch(f.ID, universe, channel); err != nil {
			return err
		}
		fmt.Printf("Patched %s at %d.%03d\n", f.Name, universe, channel)
		return saveSession(s)
	},
}

var attributesCmd = &cobra.Command{
	Use:   "attributes [attribute...]",
	Short: "Show or restrict the attributes included in exports",
	Long: `Without arguments, prints the attributes currently selected for
address resolution and export. With arguments, restricts resolution to the
named attributes. Use "all" to clear the restriction.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			attrs := s.SelectedAttributes()
			if len(attrs) == 0 {
				fmt.Println("No attributes available, match fixtures first.")
				return nil
			}
			for _, a := range attrs {
				fmt.Println(a)
			}
			return nil
		}
		if len(args) == 1 && args[0] == "all" {
			s.SetSelectedAttributes(nil)
			fmt.Println("Attribute restriction cleared.")
		} else {
			s.SetSelectedAttributes(args)
			fmt.Printf("Restricted to %d attributes.\n", len(args))
		}
		return saveSession(s)
	},
}

func init() {
	rootCmd.AddCommand(fixturesCmd)
	rootCmd.AddCommand(roleCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(fixtureIDCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(attributesCmd)
}
