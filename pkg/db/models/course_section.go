package models

// CourseSection is a numbered section of a course. Availability holds the raw
// availability-condition JSON, empty when unrestricted.
type CourseSection struct {
	ID           int64   `gorm:"column:id;primaryKey;autoIncrement"`
	CourseID     int64   `gorm:"column:course;not null;index"`
	Section      int     `gorm:"column:section;not null"`
	Name         string  `gorm:"column:name;type:text"`
	Availability *string `gorm:"column:availability;type:text"`
}

// TableName pins the course sections table name.
func (CourseSection) TableName() string {
	return "course_sections"
}
