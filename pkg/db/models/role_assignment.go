package models

// RoleAssignment grants a capability to a user within a context.
type RoleAssignment struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64  `gorm:"column:userid;not null;index"`
	ContextID  int64  `gorm:"column:contextid;not null;index"`
	Capability string `gorm:"column:capability;type:text;not null"`
}

// TableName pins the role assignments table name.
func (RoleAssignment) TableName() string {
	return "role_assignments"
}
