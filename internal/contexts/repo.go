package contexts

import (
	"context"
	"errors"

	"github.com/catalyst/moodle-availability-paypal/internal/repo"
	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	"github.com/catalyst/moodle-availability-paypal/pkg/enums"
	"gorm.io/gorm"
)

// SystemContextID is the fixed id of the root system context.
const SystemContextID int64 = 1

// Repository exposes context-hierarchy lookups.
type Repository struct {
	repo.Base
}

// NewRepository constructs a contexts repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByID loads a context node, returning nil when it does not exist.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Context, error) {
	var node models.Context
	err := r.DB(ctx).Where("id = ?", id).First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// IsUserContext reports whether the node wraps a single user account.
func IsUserContext(node *models.Context) bool {
	return node != nil && node.ContextLevel == enums.ContextLevelUser
}
