package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgInternal           = "Internal server error"
	ErrMsgMissingID          = "Missing registration ID"
)

// Query parameter defaults
const (
	defaultPageSize  = 100
	defaultAuditSize = 50
)
