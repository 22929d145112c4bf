package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTransactionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS availability_paypal_tnx (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  userid INTEGER NOT NULL,
  contextid INTEGER NOT NULL,
  sectionid INTEGER NOT NULL DEFAULT 0,
  business TEXT,
  receiver_email TEXT,
  receiver_id TEXT,
  item_name TEXT,
  memo TEXT,
  tax TEXT,
  option_name1 TEXT,
  option_selection1_x TEXT,
  option_name2 TEXT,
  option_selection2_x TEXT,
  payment_status TEXT,
  pending_reason TEXT,
  reason_code TEXT,
  txn_id TEXT,
  parent_txn_id TEXT,
  payment_type TEXT,
  ignored INTEGER NOT NULL DEFAULT 0,
  timeupdated DATETIME NOT NULL
);`
	require.NoError(t, db.Exec(schema).Error)

	return db
}

func seedTransaction(t *testing.T, repo *Repository, userID, contextID int64, txnID string) *models.PayPalTransaction {
	t.Helper()
	row := &models.PayPalTransaction{
		UserID:        userID,
		ContextID:     contextID,
		TxnID:         txnID,
		PaymentStatus: "Completed",
		TimeUpdated:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), row))
	return row
}

func TestRepository_CreateAllowsDuplicateTxnIDs(t *testing.T) {
	repo := NewRepository(setupTransactionsTestDB(t))

	seedTransaction(t, repo, 1, 10, "TXN-1")
	seedTransaction(t, repo, 1, 10, "TXN-1")

	count, err := repo.CountByTxnID(context.Background(), "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepository_FindByTxnIDReturnsOldest(t *testing.T) {
	repo := NewRepository(setupTransactionsTestDB(t))

	first := seedTransaction(t, repo, 1, 10, "TXN-1")
	seedTransaction(t, repo, 2, 20, "TXN-1")

	found, err := repo.FindByTxnID(context.Background(), "TXN-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
}

func TestRepository_FindByTxnIDMissIsNil(t *testing.T) {
	repo := NewRepository(setupTransactionsTestDB(t))

	found, err := repo.FindByTxnID(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_ListByUserAndContext(t *testing.T) {
	repo := NewRepository(setupTransactionsTestDB(t))

	seedTransaction(t, repo, 1, 10, "TXN-1")
	seedTransaction(t, repo, 1, 10, "TXN-2")
	seedTransaction(t, repo, 1, 20, "TXN-3")
	seedTransaction(t, repo, 2, 10, "TXN-4")

	rows, err := repo.ListByUserAndContext(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "TXN-1", rows[0].TxnID)
	assert.Equal(t, "TXN-2", rows[1].TxnID)
}

func TestRepository_ListContextIDsByUser(t *testing.T) {
	repo := NewRepository(setupTransactionsTestDB(t))

	seedTransaction(t, repo, 1, 20, "TXN-1")
	seedTransaction(t, repo, 1, 10, "TXN-2")
	seedTransaction(t, repo, 1, 10, "TXN-3")
	seedTransaction(t, repo, 2, 30, "TXN-4")

	ids, err := repo.ListContextIDsByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, ids)
}

func TestRepository_ListUserIDsByContext(t *testing.T) {
	repo := NewRepository(setupTransactionsTestDB(t))

	seedTransaction(t, repo, 5, 10, "TXN-1")
	seedTransaction(t, repo, 3, 10, "TXN-2")
	seedTransaction(t, repo, 3, 10, "TXN-3")
	seedTransaction(t, repo, 9, 99, "TXN-4")

	ids, err := repo.ListUserIDsByContext(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, ids)
}

func TestRepository_DeleteByContext(t *testing.T) {
	repo := NewRepository(setupTransactionsTestDB(t))

	seedTransaction(t, repo, 1, 10, "TXN-1")
	seedTransaction(t, repo, 2, 10, "TXN-2")
	seedTransaction(t, repo, 1, 20, "TXN-3")

	deleted, err := repo.DeleteByContext(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(20), remaining[0].ContextID)
}

func TestRepository_DeleteByUserAndContexts(t *testing.T) {
	repo := NewRepository(setupTransactionsTestDB(t))

	seedTransaction(t, repo, 1, 10, "TXN-1")
	seedTransaction(t, repo, 1, 20, "TXN-2")
	seedTransaction(t, repo, 1, 30, "TXN-3")
	seedTransaction(t, repo, 2, 10, "TXN-4")

	deleted, err := repo.DeleteByUserAndContexts(context.Background(), 1, []int64{10, 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	// Empty context list is a no-op, not a full delete.
	deleted, err = repo.DeleteByUserAndContexts(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	rows, err := repo.ListByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRepository_DeleteByContextAndUsers(t *testing.T) {
	repo := NewRepository(setupTransactionsTestDB(t))

	seedTransaction(t, repo, 1, 10, "TXN-1")
	seedTransaction(t, repo, 2, 10, "TXN-2")
	seedTransaction(t, repo, 3, 10, "TXN-3")

	deleted, err := repo.DeleteByContextAndUsers(context.Background(), 10, []int64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	ids, err := repo.ListUserIDsByContext(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
}
