package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve per-attribute DMX addresses for matched fixtures",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		summary := s.ResolveAddresses()
		fmt.Printf("Resolved %d fixtures, %d unresolved\n", summary.Resolved, summary.Unresolved)
		for _, f := range summary.Failures {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", f.FixtureName, f.Reason)
		}
		return saveSession(s)
	},
}

var (
	seqStart      int
	seqInterval   int
	seqBreaks     bool
	seqBreakCount int
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Assign sequence numbers to resolved attributes",
	Long: `Numbers every resolved fixture/attribute pair in fixture id order.

Examples:
  attraddr -p show.aa sequence
  attraddr -p show.aa sequence --start 2001 --interval 2 --breaks --break-count 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		cfg := s.SequenceConfig()
		if cmd.Flags().Changed("start") {
			cfg.StartNumber = seqStart
		}
		if cmd.Flags().Changed("interval") {
			cfg.Interval = seqInterval
		}
		if cmd.Flags().Changed("breaks") {
			cfg.AddBreaks = seqBreaks
		}
		if cmd.Flags().Changed("break-count") {
			cfg.BreakSequences = seqBreakCount
		}
		if err := s.SetSequenceConfig(cmd.Context(), cfg); err != nil {
			return err
		}

		assigned, err := s.AssignSequences()
		if err != nil {
			return err
		}
		fmt.Printf("Assigned %d sequence numbers starting at %d\n", assigned, cfg.StartNumber)
		return saveSession(s)
	},
}

func init() {
	sequenceCmd.Flags().IntVar(&seqStart, "start", 0, "First sequence number")
	sequenceCmd.Flags().IntVar(&seqInterval, "interval", 0, "Step between consecutive numbers")
	sequenceCmd.Flags().BoolVar(&seqBreaks, "breaks", false, "Insert gaps between fixtures")
	sequenceCmd.Flags().IntVar(&seqBreakCount, "break-count", 0, "Gap size when --breaks is set")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(sequenceCmd)
}
