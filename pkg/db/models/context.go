package models

import "github.com/catalyst/moodle-availability-paypal/pkg/enums"

// Context is a node in the platform permission-scope hierarchy. InstanceID
// points at the entity the node wraps (a user, course, or course module,
// depending on ContextLevel).
type Context struct {
	ID           int64              `gorm:"column:id;primaryKey;autoIncrement"`
	ContextLevel enums.ContextLevel `gorm:"column:contextlevel;not null"`
	InstanceID   int64              `gorm:"column:instanceid;not null"`
}

// TableName pins the contexts table name.
func (Context) TableName() string {
	return "contexts"
}
