package models

// CourseModule is an activity inside a course. Availability holds the raw
// availability-condition JSON, empty when unrestricted.
type CourseModule struct {
	ID           int64   `gorm:"column:id;primaryKey;autoIncrement"`
	CourseID     int64   `gorm:"column:course;not null;index"`
	Name         string  `gorm:"column:name;type:text;not null"`
	Availability *string `gorm:"column:availability;type:text"`
}

// TableName pins the course modules table name.
func (CourseModule) TableName() string {
	return "course_modules"
}
