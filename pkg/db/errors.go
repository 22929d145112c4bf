package db

import "strings"

// IsUniqueViolation reports whether err carries a Postgres unique-constraint
// failure. A non-empty constraintName narrows the match to that constraint;
// note the transaction table deliberately has no unique index on txn_id, so
// duplicate notifications never trip this.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
