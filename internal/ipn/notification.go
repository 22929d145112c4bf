package ipn

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/catalyst/moodle-availability-paypal/pkg/paypal"
)

// Field names the gateway sends that the handler reads by name. Every field
// is optional; extraction never fails, validation happens later.
const (
	fieldBusiness         = "business"
	fieldReceiverEmail    = "receiver_email"
	fieldReceiverID       = "receiver_id"
	fieldItemName         = "item_name"
	fieldMemo             = "memo"
	fieldTax              = "tax"
	fieldOptionName1      = "option_name1"
	fieldOptionSelection1 = "option_selection1_x"
	fieldOptionName2      = "option_name2"
	fieldOptionSelection2 = "option_selection2_x"
	fieldPaymentStatus    = "payment_status"
	fieldPendingReason    = "pending_reason"
	fieldReasonCode       = "reason_code"
	fieldTxnID            = "txn_id"
	fieldParentTxnID      = "parent_txn_id"
	fieldPaymentType      = "payment_type"
	fieldCurrency         = "mc_currency"
	fieldGross            = "mc_gross"
	fieldCustom           = "custom"
)

// Notification is one parsed IPN payload. Field order is preserved because
// the verification call must replay the fields exactly as received.
type Notification struct {
	fields []paypal.Field
	values map[string]string
}

// ParseForm decodes a form-encoded request body into a Notification. Pairs
// that fail to unescape keep their raw text; a missing "=" yields an empty
// value, matching how the gateway tolerates sloppy encoders.
func ParseForm(raw string) *Notification {
	n := &Notification{values: make(map[string]string)}
	if raw == "" {
		return n
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		n.fields = append(n.fields, paypal.Field{Name: key, Value: value})
		if _, seen := n.values[key]; !seen {
			n.values[key] = value
		}
	}
	return n
}

// Fields returns the field set in received order.
func (n *Notification) Fields() []paypal.Field {
	return n.fields
}

// Get returns the first value received for the key, or empty.
func (n *Notification) Get(key string) string {
	return n.values[key]
}

// Values returns a copy of the field map for notification bodies.
func (n *Notification) Values() map[string]string {
	out := make(map[string]string, len(n.values))
	for k, v := range n.values {
		out[k] = v
	}
	return out
}

// Custom splits the composite custom field ("userid-contextid-sectionid")
// into its positional ids. Absent or unparseable positions default to -1.
func (n *Notification) Custom() (userID, contextID, sectionID int64) {
	parts := strings.Split(n.Get(fieldCustom), "-")
	return customPart(parts, 0), customPart(parts, 1), customPart(parts, 2)
}

func customPart(parts []string, index int) int64 {
	if index >= len(parts) {
		return -1
	}
	value, err := strconv.ParseInt(strings.TrimSpace(parts[index]), 10, 64)
	if err != nil {
		return -1
	}
	return value
}
