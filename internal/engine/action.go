package engine

import (
	"fmt"
	"strings"
)

// Action is a single state transition. The set of actions is closed: only
// types in this package can implement it, and each one carries its own
// apply step.
type Action interface {
	apply(tx *txn) error
}

var (
	_ Action = CreateOrder{}
	_ Action = UpdateOrderStatus{}
	_ Action = UpdateOrder{}
	_ Action = CancelOrder{}
	_ Action = DeleteOrder{}
	_ Action = UpdatePaymentStatus{}
	_ Action = UpdateInventory{}
	_ Action = AddInventoryItem{}
	_ Action = UpdateInventoryItem{}
	_ Action = RemoveInventoryItem{}
	_ Action = AddCustomer{}
	_ Action = UpdateCustomer{}
	_ Action = RemoveCustomer{}
	_ Action = AddNotification{}
	_ Action = MarkRead{}
	_ Action = ClearAll{}
	_ Action = UpdateSettings{}
	_ Action = replaceCollection{}
	_ Action = loadDataset{}
	_ Action = setConnection{}
	_ Action = setSyncing{}
	_ Action = degrade{}
	_ Action = applyTick{}
)

func actionName(a Action) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", a), "engine.")
}

// run applies a and swallows the error. Used by the named operations, for
// which a missing entity or rejected change is a silent no-op.
func (e *Engine) run(a Action) *txn {
	tx, _ := e.apply(a)
	return tx
}
