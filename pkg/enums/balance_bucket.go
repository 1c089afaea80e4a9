package enums

import "fmt"

// BalanceBucket names one of the three vendor balance pools.
type BalanceBucket string

const (
	BalanceBucketHold      BalanceBucket = "hold"
	BalanceBucketAvailable BalanceBucket = "available"
	BalanceBucketPaid      BalanceBucket = "paid"
)

// IsValid reports whether the value names a known bucket.
func (b BalanceBucket) IsValid() bool {
	return b == BalanceBucketHold || b == BalanceBucketAvailable || b == BalanceBucketPaid
}

// BucketForStatus maps a ledger status to the bucket that stores its funds.
// Reversed and failed rows hold no funds.
func BucketForStatus(status WalletTxnStatus) (BalanceBucket, bool) {
	switch status {
	case WalletTxnStatusHold:
		return BalanceBucketHold, true
	case WalletTxnStatusAvailable:
		return BalanceBucketAvailable, true
	case WalletTxnStatusPaid:
		return BalanceBucketPaid, true
	}
	return "", false
}

// ParseBalanceBucket converts raw input into BalanceBucket.
func ParseBalanceBucket(value string) (BalanceBucket, error) {
	b := BalanceBucket(value)
	if !b.IsValid() {
		return "", fmt.Errorf("invalid balance bucket %q", value)
	}
	return b, nil
}
