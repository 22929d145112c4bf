package enums

// PaymentStatus mirrors the payment_status values PayPal reports in an IPN.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusRefunded  PaymentStatus = "Refunded"
	PaymentStatusReversed  PaymentStatus = "Reversed"
	PaymentStatusDenied    PaymentStatus = "Denied"
	PaymentStatusFailed    PaymentStatus = "Failed"
)

// PendingReasonEcheck is the one pending reason treated as good as completed.
const PendingReasonEcheck = "echeck"

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsSettled reports whether the status counts as an accepted payment.
func (p PaymentStatus) IsSettled(pendingReason string) bool {
	if p == PaymentStatusCompleted {
		return true
	}
	return p == PaymentStatusPending && pendingReason == PendingReasonEcheck
}
