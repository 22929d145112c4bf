package availability

import (
	"encoding/json"

	pkgerrors "github.com/catalyst/moodle-availability-paypal/pkg/errors"
)

// ConditionTypePayPal tags a payment condition inside an availability tree.
const ConditionTypePayPal = "paypal"

// ConditionSet is the decoded top level of an availability JSON column.
type ConditionSet struct {
	Op         string      `json:"op"`
	Conditions []Condition `json:"c"`
}

// Condition is one restriction inside a set. Only paypal conditions carry the
// payment fields; other types keep their raw form untouched.
type Condition struct {
	Type          string `json:"type"`
	BusinessEmail string `json:"businessemail,omitempty"`
	Currency      string `json:"currency,omitempty"`
	Cost          string `json:"cost,omitempty"`
	ItemName      string `json:"itemname,omitempty"`
	ItemNumber    string `json:"itemnumber,omitempty"`
}

// PayPalCondition is the payment rule a gated module or section is configured
// with.
type PayPalCondition struct {
	BusinessEmail string
	Currency      string
	Cost          string
	ItemName      string
	ItemNumber    string
}

// FirstPayPal decodes raw availability JSON and returns the first payment
// condition, or nil when the tree holds none. Later paypal conditions are
// ignored.
func FirstPayPal(raw string) (*PayPalCondition, error) {
	if raw == "" {
		return nil, nil
	}

	var set ConditionSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode availability json")
	}

	for _, cond := range set.Conditions {
		if cond.Type != ConditionTypePayPal {
			continue
		}
		return &PayPalCondition{
			BusinessEmail: cond.BusinessEmail,
			Currency:      cond.Currency,
			Cost:          cond.Cost,
			ItemName:      cond.ItemName,
			ItemNumber:    cond.ItemNumber,
		}, nil
	}
	return nil, nil
}
