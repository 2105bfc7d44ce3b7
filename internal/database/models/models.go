// Package models contains the database model definitions.
// These models map directly to the SQLite database tables.
package models

import (
	"time"
)

// Setting represents a persisted configuration value. Structured configs
// such as sequence numbering parameters are stored JSON-encoded in Value.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }

// Well-known setting keys.
const (
	SettingSequenceConfig = "sequence_config"
	SettingExportConfig   = "export_config"
)

// TypeMatch remembers which profile and mode a fixture type was matched
// to, so re-imports of the same rig match without user interaction.
// Table: type_matches
type TypeMatch struct {
	ID          string    `gorm:"column:id;primaryKey"`
	FixtureType string    `gorm:"column:fixture_type;uniqueIndex"`
	ProfileName string    `gorm:"column:profile_name"`
	ModeName    string    `gorm:"column:mode_name"`
	Attributes  string    `gorm:"column:attributes;default:[]"` // JSON array of selected attribute names
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (TypeMatch) TableName() string { return "type_matches" }
