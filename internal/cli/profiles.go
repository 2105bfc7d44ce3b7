package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attraddr/attraddr-go/internal/gdtf"
	"github.com/attraddr/attraddr-go/internal/services/project"
)

var profilesFolder string

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List loaded GDTF profiles, optionally loading a folder first",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		if profilesFolder != "" {
			loaded, err := gdtf.LoadFolder(profilesFolder)
			if err != nil {
				return fmt.Errorf("failed to load GDTF folder: %w", err)
			}
			s.LoadProfiles(loaded)
			fmt.Printf("Loaded %d profiles from %s\n", loaded.Len(), profilesFolder)
			if err := saveSession(s); err != nil {
				return err
			}
		}

		profiles := s.Registry().Profiles()
		if len(profiles) == 0 {
			fmt.Println("No profiles loaded.")
			return nil
		}
		for _, p := range profiles {
			fmt.Printf("%s (%s): %s\n", p.Name, p.Source, strings.Join(p.ModeNames(), ", "))
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show project archive metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectPath == "" {
			return fmt.Errorf("--project is required")
		}
		info, err := project.ReadInfo(projectPath)
		if err != nil {
			return err
		}
		fmt.Printf("Project:  %s\n", info.Name)
		fmt.Printf("Version:  %s\n", info.Version)
		fmt.Printf("Created:  %s\n", info.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Modified: %s\n", info.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Fixtures: %d\n", info.FixtureCount)
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show matching and linking progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		sum := s.Summarize()
		fmt.Printf("Fixtures:    %d (%d selected)\n", sum.Match.Total, sum.Match.Selected)
		fmt.Printf("Matched:     %d/%d (%.0f%%)\n", sum.Match.Matched, sum.Match.Total, sum.Match.MatchRate)
		fmt.Printf("Primaries:   %d\n", sum.Link.Primaries)
		fmt.Printf("Secondaries: %d (%d linked, %d orphaned)\n", sum.Link.Secondaries, sum.Link.Linked, sum.Link.Orphaned)
		fmt.Printf("Unassigned:  %d\n", sum.Link.Unassigned)
		return nil
	},
}

func init() {
	profilesCmd.Flags().StringVar(&profilesFolder, "load", "", "GDTF folder to load before listing")
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(summaryCmd)
}
