package repositories

import (
	"context"
	"errors"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/attraddr/attraddr-go/internal/database/models"
)

// MatchRepository handles saved type-match data access.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// FindAll returns all saved matches.
func (r *MatchRepository) FindAll(ctx context.Context) ([]models.TypeMatch, error) {
	var matches []models.TypeMatch
	result := r.db.WithContext(ctx).
		Order("fixture_type ASC").
		Find(&matches)
	return matches, result.Error
}

// FindByType returns the saved match for a fixture type, or nil if none.
func (r *MatchRepository) FindByType(ctx context.Context, fixtureType string) (*models.TypeMatch, error) {
	var match models.TypeMatch
	result := r.db.WithContext(ctx).First(&match, "fixture_type = ?", fixtureType)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &match, nil
}

// Upsert creates or updates the saved match for a fixture type.
func (r *MatchRepository) Upsert(ctx context.Context, fixtureType, profileName, modeName, attributes string) (*models.TypeMatch, error) {
	var match models.TypeMatch

	result := r.db.WithContext(ctx).First(&match, "fixture_type = ?", fixtureType)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		match = models.TypeMatch{
			ID:          cuid.New(),
			FixtureType: fixtureType,
			ProfileName: profileName,
			ModeName:    modeName,
			Attributes:  attributes,
		}
		if err := r.db.WithContext(ctx).Create(&match).Error; err != nil {
			return nil, err
		}
		return &match, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	match.ProfileName = profileName
	match.ModeName = modeName
	match.Attributes = attributes
	if err := r.db.WithContext(ctx).Save(&match).Error; err != nil {
		return nil, err
	}

	return &match, nil
}

// Delete removes the saved match for a fixture type.
func (r *MatchRepository) Delete(ctx context.Context, fixtureType string) error {
	return r.db.WithContext(ctx).Delete(&models.TypeMatch{}, "fixture_type = ?", fixtureType).Error
}
