package users

import (
	"context"
	"errors"

	"github.com/catalyst/moodle-availability-paypal/internal/repo"
	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes user lookups over the host users table.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID loads a live (not deleted) user, returning nil on miss.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListSiteAdmins returns every account flagged as a site administrator.
func (r *Repository) ListSiteAdmins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	err := r.DB(ctx).
		Where("siteadmin = ? AND deleted = ?", true, false).
		Order("id ASC").
		Find(&admins).Error
	return admins, err
}

// ListWithCapability returns users granted the capability within the context.
func (r *Repository) ListWithCapability(ctx context.Context, contextID int64, capability string) ([]models.User, error) {
	var holders []models.User
	err := r.DB(ctx).
		Joins("JOIN role_assignments ra ON ra.userid = users.id").
		Where("ra.contextid = ? AND ra.capability = ? AND users.deleted = ?", contextID, capability, false).
		Order("users.id ASC").
		Find(&holders).Error
	return holders, err
}
