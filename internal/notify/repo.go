package notify

import (
	"context"

	"github.com/catalyst/moodle-availability-paypal/internal/repo"
	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	"gorm.io/gorm"
)

// MessageRepository writes rows into the host messaging table.
type MessageRepository struct {
	repo.Base
}

// NewMessageRepository constructs a message repo bound to the provided GORM DB.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{Base: repo.NewBase(db)}
}

// Create inserts one message row.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.DB(ctx).Create(message).Error
}
