package constants

// Session / context keys
const (
	ContextKeyUserID = "user_id"
)

// Authentication
const (
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SystemUserID is the reserved actor id for engine-driven operations
// (auto-assignment, unassign-on-close, reminder jobs). It bypasses the
// eligibility check.
const SystemUserID uint64 = 0
