package engine

import "errors"

// Errors reported by Dispatch and the lifecycle methods. The named
// operations (UpdateOrderStatus, MarkRead, ...) swallow ErrNotFound so that
// updates to missing entities stay harmless no-ops.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrIllegalTransition = errors.New("illegal order status transition")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrSyncInProgress    = errors.New("sync already in progress")
	ErrInvalidFormat     = errors.New("invalid export format")
	ErrNoLoader          = errors.New("no loader configured")
)
