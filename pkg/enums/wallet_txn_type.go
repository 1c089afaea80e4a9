package enums

import "fmt"

// WalletTxnType maps to the wallet_txn_type_enum enum in Postgres.
type WalletTxnType string

const (
	WalletTxnTypeDeliveredHoldCredit WalletTxnType = "delivered_hold_credit"
	WalletTxnTypeHoldToAvailable     WalletTxnType = "hold_to_available"
	WalletTxnTypePayoutReleased      WalletTxnType = "payout_released"
	WalletTxnTypePayoutFailed        WalletTxnType = "payout_failed"
	WalletTxnTypeCancelDeduct        WalletTxnType = "cancel_deduct"
	WalletTxnTypeReturnDeduct        WalletTxnType = "return_deduct"
	WalletTxnTypeAdjustment          WalletTxnType = "adjustment"
)

var validWalletTxnTypes = []WalletTxnType{
	WalletTxnTypeDeliveredHoldCredit,
	WalletTxnTypeHoldToAvailable,
	WalletTxnTypePayoutReleased,
	WalletTxnTypePayoutFailed,
	WalletTxnTypeCancelDeduct,
	WalletTxnTypeReturnDeduct,
	WalletTxnTypeAdjustment,
}

var walletTxnTypeLabels = map[WalletTxnType]string{
	WalletTxnTypeDeliveredHoldCredit: "Delivery credit",
	WalletTxnTypeHoldToAvailable:     "Hold released",
	WalletTxnTypePayoutReleased:      "Payout",
	WalletTxnTypePayoutFailed:        "Payout failed",
	WalletTxnTypeCancelDeduct:        "Cancellation deduction",
	WalletTxnTypeReturnDeduct:        "Return deduction",
	WalletTxnTypeAdjustment:          "Adjustment",
}

// IsValid reports whether the value matches the canonical wallet txn type enum.
func (t WalletTxnType) IsValid() bool {
	for _, candidate := range validWalletTxnTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Label returns the human-readable statement label for the type.
func (t WalletTxnType) Label() string {
	if label, ok := walletTxnTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseWalletTxnType converts raw input into WalletTxnType.
func ParseWalletTxnType(value string) (WalletTxnType, error) {
	for _, candidate := range validWalletTxnTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet txn type %q", value)
}
