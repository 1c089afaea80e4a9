package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type_enum enum in Postgres.
type OutboxAggregateType string

const (
	AggregateWalletTxn OutboxAggregateType = "wallet_transaction"
	AggregateSubOrder  OutboxAggregateType = "sub_order"
	AggregateOrder     OutboxAggregateType = "order"
	// AggregateVendorWallet scopes balance-wide events like drift repairs.
	AggregateVendorWallet OutboxAggregateType = "vendor_wallet"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateWalletTxn,
	AggregateSubOrder,
	AggregateOrder,
	AggregateVendorWallet,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type_enum enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventWalletHoldCredited    OutboxEventType = "wallet_hold_credited"
	EventWalletUnlocked        OutboxEventType = "wallet_unlocked"
	EventWalletReversed        OutboxEventType = "wallet_reversed"
	EventPayoutReleased        OutboxEventType = "payout_released"
	EventPayoutFailed          OutboxEventType = "payout_failed"
	EventReconciliationFlagged OutboxEventType = "reconciliation_flagged"
	EventBalanceDriftRepaired  OutboxEventType = "balance_drift_repaired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventWalletHoldCredited,
	EventWalletUnlocked,
	EventWalletReversed,
	EventPayoutReleased,
	EventPayoutFailed,
	EventReconciliationFlagged,
	EventBalanceDriftRepaired,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
