package enums

import "fmt"

// WalletTxnDirection records which way money moves; the amount itself is
// always a non-negative magnitude.
type WalletTxnDirection string

const (
	WalletTxnDirectionCredit WalletTxnDirection = "credit"
	WalletTxnDirectionDebit  WalletTxnDirection = "debit"
)

// IsValid reports whether the value matches the canonical direction enum.
func (d WalletTxnDirection) IsValid() bool {
	return d == WalletTxnDirectionCredit || d == WalletTxnDirectionDebit
}

// Sign returns +1 for credits and -1 for debits.
func (d WalletTxnDirection) Sign() int {
	if d == WalletTxnDirectionDebit {
		return -1
	}
	return 1
}

// ParseWalletTxnDirection converts raw input into WalletTxnDirection.
func ParseWalletTxnDirection(value string) (WalletTxnDirection, error) {
	switch WalletTxnDirection(value) {
	case WalletTxnDirectionCredit:
		return WalletTxnDirectionCredit, nil
	case WalletTxnDirectionDebit:
		return WalletTxnDirectionDebit, nil
	}
	return "", fmt.Errorf("invalid wallet txn direction %q", value)
}
