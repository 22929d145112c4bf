package models

import "time"

// PayPalTransaction records one payment notification, accepted or rejected.
// Rows are append-only; the IPN handler is the only writer.
type PayPalTransaction struct {
	ID        int64 `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64 `gorm:"column:userid;not null;index"`
	ContextID int64 `gorm:"column:contextid;not null;index"`
	SectionID int64 `gorm:"column:sectionid;not null;default:0"`

	Business         string `gorm:"column:business;type:text"`
	ReceiverEmail    string `gorm:"column:receiver_email;type:text"`
	ReceiverID       string `gorm:"column:receiver_id;type:text"`
	ItemName         string `gorm:"column:item_name;type:text"`
	Memo             string `gorm:"column:memo;type:text"`
	Tax              string `gorm:"column:tax;type:text"`
	OptionName1      string `gorm:"column:option_name1;type:text"`
	OptionSelection1 string `gorm:"column:option_selection1_x;type:text"`
	OptionName2      string `gorm:"column:option_name2;type:text"`
	OptionSelection2 string `gorm:"column:option_selection2_x;type:text"`
	PaymentStatus    string `gorm:"column:payment_status;type:text"`
	PendingReason    string `gorm:"column:pending_reason;type:text"`
	ReasonCode       string `gorm:"column:reason_code;type:text"`
	TxnID            string `gorm:"column:txn_id;type:text;index"`
	ParentTxnID      string `gorm:"column:parent_txn_id;type:text"`
	PaymentType      string `gorm:"column:payment_type;type:text"`

	// Ignored marks rows kept only as an audit trail of rejected notifications.
	Ignored bool `gorm:"column:ignored;not null;default:false"`

	TimeUpdated time.Time `gorm:"column:timeupdated;not null"`
}

// TableName keeps the historical table name used by the plugin.
func (PayPalTransaction) TableName() string {
	return "availability_paypal_tnx"
}
