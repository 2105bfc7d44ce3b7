package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match fixture types against GDTF profiles",
}

var matchAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Auto-match every unmatched fixture type",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		matched, warnings, err := s.AutoMatch(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Matched %d fixture types (%d fixtures)\n", matched.Types, matched.Fixtures)
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		summary := s.Summarize().Match
		fmt.Printf("Fixtures matched: %d/%d (%.0f%%)\n", summary.Matched, summary.Total, summary.MatchRate)
		return saveSession(s)
	},
}

var matchCandidatesCmd = &cobra.Command{
	Use:   "candidates <fixture-type>",
	Short: "List profiles plausibly matching a fixture type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		candidates := s.Candidates(args[0])
		if len(candidates) == 0 {
			fmt.Printf("No candidate profiles for %q.\n", args[0])
			return nil
		}
		for _, p := range candidates {
			fmt.Printf("%s (%s)\n", p.Name, p.Source)
			for _, mode := range p.ModeNames() {
				fmt.Printf("  mode: %s\n", mode)
			}
		}
		return nil
	},
}

var (
	matchType    string
	matchProfile string
	matchMode    string
)

var matchApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Match one fixture type to a specific profile and mode",
	Long: `Overrides the heuristic for one fixture type.

Example:
  attraddr -p show.aa match apply --type "Spot 575" --profile "Generic Spot 575" --mode "Standard"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if matchType == "" || matchProfile == "" {
			return fmt.Errorf("--type and --profile are required")
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		mode := matchMode
		if mode == "" {
			profile, ok := s.Registry().Get(matchProfile)
			if !ok {
				return fmt.Errorf("profile %q not loaded", matchProfile)
			}
			first, ok := profile.FirstMode()
			if !ok {
				return fmt.Errorf("profile %q declares no modes", matchProfile)
			}
			mode = first.Name
		}
		if err := s.ApplyMatch(context.Background(), matchType, matchProfile, mode); err != nil {
			return err
		}
		fmt.Printf("Matched %q to %q\n", matchType, matchProfile)
		return saveSession(s)
	},
}

func init() {
	matchApplyCmd.Flags().StringVar(&matchType, "type", "", "Fixture type to match")
	matchApplyCmd.Flags().StringVar(&matchProfile, "profile", "", "Profile name")
	matchApplyCmd.Flags().StringVar(&matchMode, "mode", "", "Mode name (default: first declared mode)")

	matchCmd.AddCommand(matchAutoCmd)
	matchCmd.AddCommand(matchCandidatesCmd)
	matchCmd.AddCommand(matchApplyCmd)
	rootCmd.AddCommand(matchCmd)
}
