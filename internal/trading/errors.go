package trading

import "fmt"

// ValidationError signals a pre-trade risk rule violation. Orders that fail
// validation are never persisted or executed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NotFoundError signals an unknown order or position id
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// InvalidStateError signals an illegal order status transition, such as
// cancelling an order that is no longer pending.
type InvalidStateError struct {
	Status OrderStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot cancel order with status %s", e.Status)
}
