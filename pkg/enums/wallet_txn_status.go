package enums

import "fmt"

// WalletTxnStatus maps to the wallet_txn_status_enum enum in Postgres.
type WalletTxnStatus string

const (
	WalletTxnStatusHold      WalletTxnStatus = "hold"
	WalletTxnStatusAvailable WalletTxnStatus = "available"
	WalletTxnStatusPaid      WalletTxnStatus = "paid"
	WalletTxnStatusReversed  WalletTxnStatus = "reversed"
	WalletTxnStatusFailed    WalletTxnStatus = "failed"
)

var validWalletTxnStatuses = []WalletTxnStatus{
	WalletTxnStatusHold,
	WalletTxnStatusAvailable,
	WalletTxnStatusPaid,
	WalletTxnStatusReversed,
	WalletTxnStatusFailed,
}

// walletTxnTransitions is the legal status graph. The ledger store enforces
// it with a compare-and-swap, so a losing racer can never replay a move.
var walletTxnTransitions = map[WalletTxnStatus][]WalletTxnStatus{
	WalletTxnStatusHold:      {WalletTxnStatusAvailable, WalletTxnStatusReversed},
	WalletTxnStatusAvailable: {WalletTxnStatusReversed},
	WalletTxnStatusPaid:      {WalletTxnStatusReversed},
}

// IsValid reports whether the value matches the canonical status enum.
func (s WalletTxnStatus) IsValid() bool {
	for _, candidate := range validWalletTxnStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s WalletTxnStatus) CanTransitionTo(next WalletTxnStatus) bool {
	for _, candidate := range walletTxnTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseWalletTxnStatus converts raw input into WalletTxnStatus.
func ParseWalletTxnStatus(value string) (WalletTxnStatus, error) {
	for _, candidate := range validWalletTxnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet txn status %q", value)
}
