package engine

import "github.com/kiwari-pos/opsdash/internal/enum"

// TransitionPolicy decides whether an order may move from one status to
// another. It is consulted by UpdateOrderStatus and by UpdateOrder patches
// that change the status.
type TransitionPolicy func(from, to enum.OrderStatus) bool

// PermissiveTransitions accepts every change between known statuses, which
// lets staff override the normal flow by hand.
func PermissiveTransitions(from, to enum.OrderStatus) bool {
	return to.Valid()
}

// forward lists the next status in the normal fulfilment flow.
var forward = map[enum.OrderStatus]enum.OrderStatus{
	enum.OrderStatusPending:    enum.OrderStatusAccepted,
	enum.OrderStatusAccepted:   enum.OrderStatusPreparing,
	enum.OrderStatusPreparing:  enum.OrderStatusReady,
	enum.OrderStatusReady:      enum.OrderStatusDelivering,
	enum.OrderStatusDelivering: enum.OrderStatusCompleted,
}

// StrictTransitions only allows a single step forward, or cancellation from
// any non-terminal status. Setting the current status again is allowed.
func StrictTransitions(from, to enum.OrderStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == enum.OrderStatusCancelled {
		return true
	}
	return forward[from] == to
}
