package models

import "time"

// Message is a row in the host messaging table. Delivery downstream of the
// insert is handled by the messaging bus, not by this service.
type Message struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserIDTo    int64     `gorm:"column:useridto;not null;index"`
	Subject     string    `gorm:"column:subject;type:text;not null"`
	FullMessage string    `gorm:"column:fullmessage;type:text;not null"`
	TimeCreated time.Time `gorm:"column:timecreated;not null"`
}

// TableName pins the messages table name.
func (Message) TableName() string {
	return "messages"
}
