package bulk

import "errors"

// Sentinel errors for the bulk service layer.
var (
	ErrInvalidRequest      = errors.New("invalid bulk request")
	ErrOperationInProgress = errors.New("another bulk operation is in progress for this mailbox")
)
