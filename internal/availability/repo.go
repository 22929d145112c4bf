package availability

import (
	"context"
	"errors"

	"github.com/catalyst/moodle-availability-paypal/internal/repo"
	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	"gorm.io/gorm"
)

// Repository loads raw availability configuration for gated entities.
type Repository struct {
	repo.Base
}

// NewRepository constructs an availability repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ModuleAvailability returns the availability JSON of the course module, or
// empty when the module is missing or unrestricted.
func (r *Repository) ModuleAvailability(ctx context.Context, moduleID int64) (string, error) {
	var module models.CourseModule
	err := r.DB(ctx).Where("id = ?", moduleID).First(&module).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if module.Availability == nil {
		return "", nil
	}
	return *module.Availability, nil
}

// SectionAvailability returns the availability JSON of the course section, or
// empty when the section is missing or unrestricted.
func (r *Repository) SectionAvailability(ctx context.Context, sectionID int64) (string, error) {
	var section models.CourseSection
	err := r.DB(ctx).Where("id = ?", sectionID).First(&section).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if section.Availability == nil {
		return "", nil
	}
	return *section.Availability, nil
}
