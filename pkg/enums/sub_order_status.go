package enums

import "fmt"

// SubOrderStatus maps to the sub_order_status_enum enum in Postgres.
// Sibling sub-orders under one order move independently.
type SubOrderStatus string

const (
	SubOrderStatusPlaced    SubOrderStatus = "placed"
	SubOrderStatusConfirmed SubOrderStatus = "confirmed"
	SubOrderStatusShipped   SubOrderStatus = "shipped"
	SubOrderStatusDelivered SubOrderStatus = "delivered"
	SubOrderStatusCancelled SubOrderStatus = "cancelled"
	SubOrderStatusReturned  SubOrderStatus = "returned"
)

var validSubOrderStatuses = []SubOrderStatus{
	SubOrderStatusPlaced,
	SubOrderStatusConfirmed,
	SubOrderStatusShipped,
	SubOrderStatusDelivered,
	SubOrderStatusCancelled,
	SubOrderStatusReturned,
}

var subOrderTransitions = map[SubOrderStatus][]SubOrderStatus{
	SubOrderStatusPlaced:    {SubOrderStatusConfirmed, SubOrderStatusCancelled},
	SubOrderStatusConfirmed: {SubOrderStatusShipped, SubOrderStatusCancelled},
	SubOrderStatusShipped:   {SubOrderStatusDelivered, SubOrderStatusCancelled},
	SubOrderStatusDelivered: {SubOrderStatusReturned},
}

// IsValid reports whether the value matches the canonical sub-order status enum.
func (s SubOrderStatus) IsValid() bool {
	for _, candidate := range validSubOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is a legal one-step move from s.
func (s SubOrderStatus) CanTransitionTo(next SubOrderStatus) bool {
	for _, candidate := range subOrderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseSubOrderStatus converts raw input into SubOrderStatus.
func ParseSubOrderStatus(value string) (SubOrderStatus, error) {
	for _, candidate := range validSubOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sub-order status %q", value)
}
