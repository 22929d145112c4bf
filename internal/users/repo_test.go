package users

import (
	"context"
	"testing"

	"github.com/catalyst/moodle-availability-paypal/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	usersTable := `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  firstname TEXT NOT NULL DEFAULT '',
  lastname TEXT NOT NULL DEFAULT '',
  deleted INTEGER NOT NULL DEFAULT 0,
  siteadmin INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	roleAssignments := `
CREATE TABLE IF NOT EXISTS role_assignments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  userid INTEGER NOT NULL,
  contextid INTEGER NOT NULL,
  capability TEXT NOT NULL
);`
	require.NoError(t, db.Exec(usersTable).Error)
	require.NoError(t, db.Exec(roleAssignments).Error)

	return db
}

func seedUser(t *testing.T, db *gorm.DB, user *models.User) *models.User {
	t.Helper()
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRepository_FindByIDSkipsDeletedUsers(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	live := seedUser(t, db, &models.User{Username: "alice"})
	gone := seedUser(t, db, &models.User{Username: "bob", Deleted: true})

	found, err := repo.FindByID(context.Background(), live.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Username)

	missing, err := repo.FindByID(context.Background(), gone.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_FindByIDMissIsNil(t *testing.T) {
	repo := NewRepository(setupUsersTestDB(t))

	found, err := repo.FindByID(context.Background(), 12345)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepository_ListSiteAdmins(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	seedUser(t, db, &models.User{Username: "alice"})
	admin := seedUser(t, db, &models.User{Username: "root", SiteAdmin: true})
	seedUser(t, db, &models.User{Username: "gone", SiteAdmin: true, Deleted: true})

	admins, err := repo.ListSiteAdmins(context.Background())
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, admin.ID, admins[0].ID)
}

func TestRepository_ListWithCapability(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	holder := seedUser(t, db, &models.User{Username: "teacher"})
	other := seedUser(t, db, &models.User{Username: "student"})
	deleted := seedUser(t, db, &models.User{Username: "gone", Deleted: true})

	capability := "availability/paypal:receivenotifications"
	require.NoError(t, db.Create(&models.RoleAssignment{UserID: holder.ID, ContextID: 1, Capability: capability}).Error)
	require.NoError(t, db.Create(&models.RoleAssignment{UserID: other.ID, ContextID: 1, Capability: "other/cap"}).Error)
	require.NoError(t, db.Create(&models.RoleAssignment{UserID: other.ID, ContextID: 2, Capability: capability}).Error)
	require.NoError(t, db.Create(&models.RoleAssignment{UserID: deleted.ID, ContextID: 1, Capability: capability}).Error)

	holders, err := repo.ListWithCapability(context.Background(), 1, capability)
	require.NoError(t, err)
	require.Len(t, holders, 1)
	assert.Equal(t, holder.ID, holders[0].ID)
}
