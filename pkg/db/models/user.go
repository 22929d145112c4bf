package models

import "time"

// User represents a platform account.
type User struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Username  string     `gorm:"column:username;type:text;not null;uniqueIndex"`
	Email     string     `gorm:"column:email;type:text;not null"`
	FirstName string     `gorm:"column:firstname;type:text;not null"`
	LastName  string     `gorm:"column:lastname;type:text;not null"`
	Deleted   bool       `gorm:"column:deleted;not null;default:false"`
	SiteAdmin bool       `gorm:"column:siteadmin;not null;default:false"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt *time.Time `gorm:"column:deleted_at"`
}

// TableName pins the users table name.
func (User) TableName() string {
	return "users"
}
