package wallet

import (
	"github.com/shopspring/decimal"

	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
)

// Delta is a set of bucket movements. Zero values mean "no change".
type Delta struct {
	Hold      decimal.Decimal
	Available decimal.Decimal
	Paid      decimal.Decimal
}

// Add folds another delta into this one.
func (d Delta) Add(other Delta) Delta {
	return Delta{
		Hold:      d.Hold.Add(other.Hold),
		Available: d.Available.Add(other.Available),
		Paid:      d.Paid.Add(other.Paid),
	}
}

// Sub returns d minus other.
func (d Delta) Sub(other Delta) Delta {
	return Delta{
		Hold:      d.Hold.Sub(other.Hold),
		Available: d.Available.Sub(other.Available),
		Paid:      d.Paid.Sub(other.Paid),
	}
}

// IsZero reports whether every bucket movement is zero.
func (d Delta) IsZero() bool {
	return d.Hold.IsZero() && d.Available.IsZero() && d.Paid.IsZero()
}

// Contribution maps one ledger row to the bucket deltas it contributes to
// its vendor's balance. It is the single source of truth for both the
// incremental path (applied in the same transaction as the ledger write) and
// the replay path (summing contributions over the whole ledger), so the two
// can never disagree about what a row means.
//
// A reversed credit keeps contributing to the bucket recorded in
// reversed_from; the linked deduct row carries the minus, netting zero.
// Audit rows (payout_failed, flagged adjustments) weigh nothing.
func Contribution(txn models.WalletTransaction) Delta {
	amount := txn.Amount

	switch txn.Type {
	case enums.WalletTxnTypeDeliveredHoldCredit:
		switch txn.Status {
		case enums.WalletTxnStatusHold:
			return Delta{Hold: amount}
		case enums.WalletTxnStatusAvailable:
			return Delta{Available: amount}
		case enums.WalletTxnStatusReversed:
			if txn.ReversedFrom == nil {
				return Delta{}
			}
			return bucketDelta(*txn.ReversedFrom, amount)
		}
		return Delta{}

	case enums.WalletTxnTypePayoutReleased:
		if txn.Status == enums.WalletTxnStatusPaid {
			return Delta{Available: amount.Neg(), Paid: amount}
		}
		// Reversed payouts weigh nothing; the flip itself restores available.
		return Delta{}

	case enums.WalletTxnTypeCancelDeduct, enums.WalletTxnTypeReturnDeduct:
		switch txn.Status {
		case enums.WalletTxnStatusHold:
			return Delta{Hold: amount.Neg()}
		case enums.WalletTxnStatusAvailable:
			return Delta{Available: amount.Neg()}
		}
		return Delta{}

	case enums.WalletTxnTypeAdjustment:
		if txn.Status != enums.WalletTxnStatusAvailable {
			// Failed adjustments are flagged for manual reconciliation and
			// never move money on their own.
			return Delta{}
		}
		if txn.Direction == enums.WalletTxnDirectionCredit {
			return Delta{Available: amount}
		}
		return Delta{Available: amount.Neg()}
	}

	// payout_failed and hold_to_available rows are audit-only.
	return Delta{}
}

func bucketDelta(bucket enums.BalanceBucket, amount decimal.Decimal) Delta {
	switch bucket {
	case enums.BalanceBucketHold:
		return Delta{Hold: amount}
	case enums.BalanceBucketAvailable:
		return Delta{Available: amount}
	case enums.BalanceBucketPaid:
		return Delta{Paid: amount}
	}
	return Delta{}
}
