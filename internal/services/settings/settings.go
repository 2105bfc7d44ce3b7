// Package settings persists user preferences: saved type matches and the
// numbering and export configurations. Values live in SQLite through the
// repository layer; callers always get usable defaults when nothing is
// stored yet.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/attraddr/attraddr-go/internal/database/models"
	"github.com/attraddr/attraddr-go/internal/database/repositories"
	"github.com/attraddr/attraddr-go/internal/services/export"
	"github.com/attraddr/attraddr-go/internal/services/sequence"
)

// Store provides typed access to persisted settings.
type Store struct {
	settings *repositories.SettingRepository
	matches  *repositories.MatchRepository
}

// NewStore creates a settings store over the given database.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		settings: repositories.NewSettingRepository(db),
		matches:  repositories.NewMatchRepository(db),
	}
}

// SavedMatch is one remembered (profile, mode) choice for a fixture type.
type SavedMatch struct {
	ProfileName string   `json:"profileName"`
	ModeName    string   `json:"modeName"`
	Attributes  []string `json:"attributes,omitempty"`
}

// SavedMatches is a snapshot of all remembered matches, keyed by fixture
// type. It satisfies the matching engine's preference lookup.
type SavedMatches map[string]SavedMatch

// SavedMatch returns the remembered choice for a fixture type.
func (m SavedMatches) SavedMatch(fixtureType string) (string, string, bool) {
	saved, ok := m[fixtureType]
	return saved.ProfileName, saved.ModeName, ok
}

// SavedMatches loads all remembered matches.
func (s *Store) SavedMatches(ctx context.Context) (SavedMatches, error) {
	rows, err := s.matches.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved matches: %w", err)
	}
	out := make(SavedMatches, len(rows))
	for _, row := range rows {
		saved := SavedMatch{ProfileName: row.ProfileName, ModeName: row.ModeName}
		if row.Attributes != "" {
			if err := json.Unmarshal([]byte(row.Attributes), &saved.Attributes); err != nil {
				log.Printf("Warning: ignoring corrupt attribute list for type %q: %v", row.FixtureType, err)
			}
		}
		out[row.FixtureType] = saved
	}
	return out, nil
}

// SaveMatch remembers a (profile, mode) choice for a fixture type.
func (s *Store) SaveMatch(ctx context.Context, fixtureType string, saved SavedMatch) error {
	attrs, err := json.Marshal(saved.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attribute list: %w", err)
	}
	if _, err := s.matches.Upsert(ctx, fixtureType, saved.ProfileName, saved.ModeName, string(attrs)); err != nil {
		return fmt.Errorf("failed to save match for type %q: %w", fixtureType, err)
	}
	return nil
}

// ForgetMatch removes the remembered choice for a fixture type.
func (s *Store) ForgetMatch(ctx context.Context, fixtureType string) error {
	return s.matches.Delete(ctx, fixtureType)
}

// SequenceConfig returns the stored numbering configuration, or the
// default when none is stored or the stored value fails to decode.
func (s *Store) SequenceConfig(ctx context.Context) (sequence.Config, error) {
	cfg := sequence.DefaultConfig()
	setting, err := s.settings.FindByKey(ctx, models.SettingSequenceConfig)
	if err != nil {
		return cfg, fmt.Errorf("failed to load sequence config: %w", err)
	}
	if setting == nil {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(setting.Value), &cfg); err != nil {
		log.Printf("Warning: stored sequence config is corrupt, using defaults: %v", err)
		return sequence.DefaultConfig(), nil
	}
	return cfg, nil
}

// SaveSequenceConfig validates and stores the numbering configuration.
func (s *Store) SaveSequenceConfig(ctx context.Context, cfg sequence.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode sequence config: %w", err)
	}
	if _, err := s.settings.Upsert(ctx, models.SettingSequenceConfig, string(data)); err != nil {
		return fmt.Errorf("failed to save sequence config: %w", err)
	}
	return nil
}

// ExportConfig returns the stored MA3 export configuration, or the default
// when none is stored or the stored value fails to decode.
func (s *Store) ExportConfig(ctx context.Context) (export.FormatConfig, error) {
	cfg := export.DefaultFormatConfig()
	setting, err := s.settings.FindByKey(ctx, models.SettingExportConfig)
	if err != nil {
		return cfg, fmt.Errorf("failed to load export config: %w", err)
	}
	if setting == nil {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(setting.Value), &cfg); err != nil {
		log.Printf("Warning: stored export config is corrupt, using defaults: %v", err)
		return export.DefaultFormatConfig(), nil
	}
	return cfg, nil
}

// SaveExportConfig validates and stores the MA3 export configuration.
func (s *Store) SaveExportConfig(ctx context.Context, cfg export.FormatConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode export config: %w", err)
	}
	if _, err := s.settings.Upsert(ctx, models.SettingExportConfig, string(data)); err != nil {
		return fmt.Errorf("failed to save export config: %w", err)
	}
	return nil
}
