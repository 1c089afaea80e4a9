package types

import "fmt"

// TxnMetaKind discriminates the reference a wallet transaction points at.
type TxnMetaKind string

const (
	TxnMetaKindPayoutReference  TxnMetaKind = "payout_reference"
	TxnMetaKindOrderReference   TxnMetaKind = "order_reference"
	TxnMetaKindManualAdjustment TxnMetaKind = "manual_adjustment"
)

// TxnMeta is the structured reference data stored on a wallet transaction.
// It replaces an open JSON blob with a small tagged union: one known
// reference kind plus a residual free-text note.
type TxnMeta struct {
	Kind      TxnMetaKind `json:"kind"`
	Reference string      `json:"reference,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	FreeText  string      `json:"free_text,omitempty"`
}

// Validate rejects unknown kinds and kind/field mismatches.
func (m TxnMeta) Validate() error {
	switch m.Kind {
	case TxnMetaKindPayoutReference, TxnMetaKindOrderReference:
		if m.Reference == "" {
			return fmt.Errorf("meta kind %s requires a reference", m.Kind)
		}
	case TxnMetaKindManualAdjustment:
		if m.Reason == "" {
			return fmt.Errorf("meta kind %s requires a reason", m.Kind)
		}
	default:
		return fmt.Errorf("invalid txn meta kind %q", m.Kind)
	}
	return nil
}

// PayoutMeta builds the meta payload for payout rows.
func PayoutMeta(reference string) *TxnMeta {
	return &TxnMeta{Kind: TxnMetaKindPayoutReference, Reference: reference}
}

// OrderMeta builds the meta payload for order-linked rows.
func OrderMeta(orderCode string) *TxnMeta {
	return &TxnMeta{Kind: TxnMetaKindOrderReference, Reference: orderCode}
}

// AdjustmentMeta builds the meta payload for manual adjustments.
func AdjustmentMeta(reason string) *TxnMeta {
	return &TxnMeta{Kind: TxnMetaKindManualAdjustment, Reason: reason}
}
