package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// Idempotency keys are deterministic per business event so webhook retries
// and crash replays collapse onto the same ledger row. The unique index on
// wallet_transactions.idempotency_key is the enforcement point; nothing keeps
// a cache that could disagree with it.

// HoldCreditKey keys the single hold credit a delivered sub-order may earn.
func HoldCreditKey(subOrderID uuid.UUID) string {
	return fmt.Sprintf("suborder:%s:delivered_hold_credit", subOrderID)
}

// CancelDeductKey keys the netting deduct for a cancelled sub-order.
func CancelDeductKey(subOrderID uuid.UUID) string {
	return fmt.Sprintf("suborder:%s:cancel_deduct", subOrderID)
}

// ReturnDeductKey keys the netting deduct for a returned sub-order.
func ReturnDeductKey(subOrderID uuid.UUID) string {
	return fmt.Sprintf("suborder:%s:return_deduct", subOrderID)
}

// ShortfallAdjustmentKey keys the flagged adjustment appended when a reversal
// cannot be fully covered because funds were already paid out.
func ShortfallAdjustmentKey(subOrderID uuid.UUID, event string) string {
	return fmt.Sprintf("suborder:%s:%s:shortfall_adjustment", subOrderID, event)
}

// UnlockAuditKey keys the zero-weight audit row recorded when a hold credit
// is promoted to available.
func UnlockAuditKey(creditID uuid.UUID) string {
	return fmt.Sprintf("txn:%s:hold_to_available", creditID)
}

// PayoutKey keys a payout release by vendor and external reference.
func PayoutKey(vendorStoreID uuid.UUID, reference string) string {
	return fmt.Sprintf("vendor:%s:payout:%s", vendorStoreID, reference)
}

// PayoutFailedKey keys the audit row recorded when a payout fails downstream.
func PayoutFailedKey(payoutTxnID uuid.UUID) string {
	return fmt.Sprintf("payout:%s:failed", payoutTxnID)
}
