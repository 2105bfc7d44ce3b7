// Package project saves and loads complete project state as a zip archive
// holding a project.json document. The archive keeps the fixture list,
// loaded profiles, attribute selection, and both configurations, so a
// session can be resumed exactly where it was left.
package project

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucsky/cuid"

	"github.com/attraddr/attraddr-go/internal/fixture"
	"github.com/attraddr/attraddr-go/internal/gdtf"
	"github.com/attraddr/attraddr-go/internal/services/export"
	"github.com/attraddr/attraddr-go/internal/services/sequence"
	"github.com/attraddr/attraddr-go/internal/services/session"
)

const (
	// Version is the current project file format version.
	Version = "2.0"

	// Extension is the project archive file extension.
	Extension = ".aa"

	documentName = "project.json"
)

// ErrNotAProject indicates the file is not a readable project archive.
var ErrNotAProject = errors.New("not a project archive")

// State is the serialized project document.
type State struct {
	Version            string              `json:"version"`
	ProjectID          string              `json:"projectId"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
	Fixtures           []*fixture.Fixture  `json:"fixtures"`
	Profiles           []*gdtf.Profile     `json:"profiles"`
	SelectedAttributes []string            `json:"selectedAttributes,omitempty"`
	SequenceConfig     sequence.Config     `json:"sequenceConfig"`
	ExportConfig       export.FormatConfig `json:"exportConfig"`
}

// Info is a lightweight summary of a project archive.
type Info struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	FixtureCount int       `json:"fixtureCount"`
}

// FromSession captures a session's state into a project document.
func FromSession(s *session.Session) *State {
	now := time.Now().UTC()
	return &State{
		Version:            Version,
		ProjectID:          cuid.New(),
		CreatedAt:          now,
		UpdatedAt:          now,
		Fixtures:           s.Fixtures(),
		Profiles:           s.Registry().Profiles(),
		SelectedAttributes: s.SelectedAttributes(),
		SequenceConfig:     s.SequenceConfig(),
		ExportConfig:       s.ExportConfig(),
	}
}

// Apply restores the document into a session, replacing its state. Config
// persistence is intentionally skipped; archives restore the working state
// without overwriting the user's stored defaults.
func (st *State) Apply(s *session.Session) {
	registry := gdtf.NewRegistry()
	for _, p := range st.Profiles {
		registry.Add(p)
	}
	s.Clear()
	s.ReplaceFixtures(st.Fixtures, registry)
	s.SetSelectedAttributes(st.SelectedAttributes)
}

// Save writes the project document to a zip archive at path. The .aa
// extension is appended when missing.
func Save(path string, st *State) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), Extension) {
		path += Extension
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode project: %w", err)
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	entry, err := w.Create(documentName)
	if err != nil {
		return "", fmt.Errorf("failed to create project archive: %w", err)
	}
	if _, err := entry.Write(data); err != nil {
		return "", fmt.Errorf("failed to write project document: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize project archive: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write project file: %w", err)
	}
	return path, nil
}

// Load reads a project archive. A version mismatch is reported as a
// warning, not an error, so newer files still open on a best-effort basis.
func Load(path string) (*State, []string, error) {
	if !strings.EqualFold(filepath.Ext(path), Extension) {
		return nil, nil, fmt.Errorf("%w: expected %s file, got %q", ErrNotAProject, Extension, filepath.Ext(path))
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotAProject, err)
	}
	defer r.Close()

	data, err := readDocument(&r.Reader)
	if err != nil {
		return nil, nil, err
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, nil, fmt.Errorf("failed to decode project document: %w", err)
	}

	var warnings []string
	if st.Version != Version {
		warnings = append(warnings, fmt.Sprintf("project version mismatch: expected %s, got %s", Version, st.Version))
	}
	return &st, warnings, nil
}

// ReadInfo returns archive metadata without applying the project.
func ReadInfo(path string) (*Info, error) {
	st, _, err := Load(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Info{
		Name:         name,
		Path:         path,
		Version:      st.Version,
		CreatedAt:    st.CreatedAt,
		UpdatedAt:    st.UpdatedAt,
		FixtureCount: len(st.Fixtures),
	}, nil
}

func readDocument(r *zip.Reader) ([]byte, error) {
	for _, f := range r.File {
		if f.Name != documentName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open project document: %w", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read project document: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: missing %s", ErrNotAProject, documentName)
}
