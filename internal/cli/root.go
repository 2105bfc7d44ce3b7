// Package cli implements the command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/services/project"
	"github.com/attraddr/attraddr-go/internal/services/session"
)

var (
	// Global flags
	projectPath string

	// loadedState carries identity fields from the opened archive so saves
	// keep the same project id and creation time.
	loadedState *project.State
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "attraddr",
	Short: "Attraddr - DMX address documentation for lighting fixtures",
	Long: `Attraddr imports fixture patch data from MVR files, CSV exports, and
console XML, matches fixtures against GDTF profiles, resolves per-attribute
DMX addresses, and exports the result as text, CSV, JSON, or MA3 XML.

State lives in a project archive (` + project.Extension + ` file) passed with --project.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", "", "Path to project archive ("+project.Extension+")")
}

// openSession builds a session, restoring the project archive when the
// --project file exists. A missing file starts an empty project.
func openSession() (*session.Session, error) {
	s := session.New(nil, nil)
	if projectPath == "" {
		return s, nil
	}
	if _, err := os.Stat(projectPath); os.IsNotExist(err) {
		return s, nil
	}

	st, warnings, err := project.Load(projectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	st.Apply(s)
	ctx := context.Background()
	if err := st.SequenceConfig.Validate(); err == nil {
		_ = s.SetSequenceConfig(ctx, st.SequenceConfig)
	}
	if err := st.ExportConfig.Validate(); err == nil {
		_ = s.SetExportConfig(ctx, st.ExportConfig)
	}
	loadedState = st
	return s, nil
}

// saveSession writes the session back to the project archive. Without a
// --project flag the session is discarded after the command.
func saveSession(s *session.Session) error {
	if projectPath == "" {
		fmt.Fprintln(os.Stderr, "warning: no --project file, changes not saved")
		return nil
	}
	st := project.FromSession(s)
	if loadedState != nil {
		st.ProjectID = loadedState.ProjectID
		st.CreatedAt = loadedState.CreatedAt
	}
	path, err := project.Save(projectPath, st)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	projectPath = path
	return nil
}

// findFixture resolves a command-line fixture reference, matching the
// internal id, the numeric fixture id, or the exact name.
func findFixture(s *session.Session, ref string) (*fixture.Fixture, error) {
	fixtures := s.Fixtures()
	if f := fixture.FindByID(fixtures, ref); f != nil {
		return f, nil
	}
	if id, err := strconv.Atoi(ref); err == nil {
		for _, f := range fixtures {
			if f.FixtureID == id && !f.FixtureIDInvalid {
				return f, nil
			}
		}
	}
	for _, f := range fixtures {
		if strings.EqualFold(f.Name, ref) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no fixture matches %q", ref)
}
