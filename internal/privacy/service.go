package privacy

import (
	"context"
	"time"

	"github.com/catalyst/moodle-availability-paypal/internal/contexts"
	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	pkgerrors "github.com/catalyst/moodle-availability-paypal/pkg/errors"
)

type transactionStore interface {
	ListByUserAndContext(ctx context.Context, userID, contextID int64) ([]models.PayPalTransaction, error)
	ListContextIDsByUser(ctx context.Context, userID int64) ([]int64, error)
	ListUserIDsByContext(ctx context.Context, contextID int64) ([]int64, error)
	DeleteByContext(ctx context.Context, contextID int64) (int64, error)
	DeleteByUserAndContexts(ctx context.Context, userID int64, contextIDs []int64) (int64, error)
	DeleteByContextAndUsers(ctx context.Context, contextID int64, userIDs []int64) (int64, error)
}

type contextSource interface {
	FindByID(ctx context.Context, id int64) (*models.Context, error)
}

// Service answers data-subject-rights requests against the transaction table.
// All operations are pure filtered reads and deletes.
type Service struct {
	store transactionStore
	ctxs  contextSource
}

// NewService wires the privacy provider.
func NewService(store transactionStore, ctxs contextSource) (*Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction store required")
	}
	if ctxs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "context source required")
	}
	return &Service{store: store, ctxs: ctxs}, nil
}

// TransactionExport is one exported row with integer fields kept numeric.
type TransactionExport struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userid"`
	ContextID        int64     `json:"contextid"`
	SectionID        int64     `json:"sectionid"`
	Business         string    `json:"business"`
	ReceiverEmail    string    `json:"receiver_email"`
	ReceiverID       string    `json:"receiver_id"`
	ItemName         string    `json:"item_name"`
	Memo             string    `json:"memo"`
	Tax              string    `json:"tax"`
	OptionName1      string    `json:"option_name1"`
	OptionSelection1 string    `json:"option_selection1_x"`
	OptionName2      string    `json:"option_name2"`
	OptionSelection2 string    `json:"option_selection2_x"`
	PaymentStatus    string    `json:"payment_status"`
	PendingReason    string    `json:"pending_reason"`
	ReasonCode       string    `json:"reason_code"`
	TxnID            string    `json:"txn_id"`
	ParentTxnID      string    `json:"parent_txn_id"`
	PaymentType      string    `json:"payment_type"`
	TimeUpdated      time.Time `json:"timeupdated"`
}

// ContextExport groups one context's rows into a single export payload.
type ContextExport struct {
	ContextID    int64               `json:"contextid"`
	Transactions []TransactionExport `json:"transactions"`
}

// ContextsForUser lists the context ids where the user has transaction rows.
func (s *Service) ContextsForUser(ctx context.Context, userID int64) ([]int64, error) {
	ids, err := s.store.ListContextIDsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contexts for user")
	}
	return ids, nil
}

// UsersInContext lists the user ids with transaction rows in the context.
func (s *Service) UsersInContext(ctx context.Context, contextID int64) ([]int64, error) {
	ids, err := s.store.ListUserIDsByContext(ctx, contextID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users in context")
	}
	return ids, nil
}

// ExportUserData returns the user's rows grouped per approved context. A
// context without rows produces no payload.
func (s *Service) ExportUserData(ctx context.Context, userID int64, contextIDs []int64) ([]ContextExport, error) {
	exports := make([]ContextExport, 0, len(contextIDs))
	for _, contextID := range contextIDs {
		rows, err := s.store.ListByUserAndContext(ctx, userID, contextID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rows for export")
		}
		if len(rows) == 0 {
			continue
		}
		export := ContextExport{
			ContextID:    contextID,
			Transactions: make([]TransactionExport, 0, len(rows)),
		}
		for _, row := range rows {
			export.Transactions = append(export.Transactions, exportRow(row))
		}
		exports = append(exports, export)
	}
	return exports, nil
}

// DeleteForContext erases every row in the context. Only user-scoped
// contexts are erasable this way; anything else is a no-op.
func (s *Service) DeleteForContext(ctx context.Context, contextID int64) (int64, error) {
	node, err := s.ctxs.FindByID(ctx, contextID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load context")
	}
	if !contexts.IsUserContext(node) {
		return 0, nil
	}
	count, err := s.store.DeleteByContext(ctx, contextID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete rows for context")
	}
	return count, nil
}

// DeleteForUser erases the user's rows across the approved contexts.
func (s *Service) DeleteForUser(ctx context.Context, userID int64, contextIDs []int64) (int64, error) {
	count, err := s.store.DeleteByUserAndContexts(ctx, userID, contextIDs)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete rows for user")
	}
	return count, nil
}

// DeleteForUsers erases the approved users' rows within one context.
func (s *Service) DeleteForUsers(ctx context.Context, contextID int64, userIDs []int64) (int64, error) {
	count, err := s.store.DeleteByContextAndUsers(ctx, contextID, userIDs)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete rows for users")
	}
	return count, nil
}

func exportRow(row models.PayPalTransaction) TransactionExport {
	return TransactionExport{
		ID:               row.ID,
		UserID:           row.UserID,
		ContextID:        row.ContextID,
		SectionID:        row.SectionID,
		Business:         row.Business,
		ReceiverEmail:    row.ReceiverEmail,
		ReceiverID:       row.ReceiverID,
		ItemName:         row.ItemName,
		Memo:             row.Memo,
		Tax:              row.Tax,
		OptionName1:      row.OptionName1,
		OptionSelection1: row.OptionSelection1,
		OptionName2:      row.OptionName2,
		OptionSelection2: row.OptionSelection2,
		PaymentStatus:    row.PaymentStatus,
		PendingReason:    row.PendingReason,
		ReasonCode:       row.ReasonCode,
		TxnID:            row.TxnID,
		ParentTxnID:      row.ParentTxnID,
		PaymentType:      row.PaymentType,
		TimeUpdated:      row.TimeUpdated,
	}
}
