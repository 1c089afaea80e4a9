package wallet

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/zaymart/zaymart-backend/pkg/db/models"
	"github.com/zaymart/zaymart-backend/pkg/enums"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestContribution(t *testing.T) {
	availableBucket := enums.BalanceBucketAvailable
	holdBucket := enums.BalanceBucketHold

	cases := []struct {
		name string
		txn  models.WalletTransaction
		want Delta
	}{
		{
			name: "hold credit in hold",
			txn: models.WalletTransaction{
				Type:      enums.WalletTxnTypeDeliveredHoldCredit,
				Direction: enums.WalletTxnDirectionCredit,
				Status:    enums.WalletTxnStatusHold,
				Amount:    d("540.00"),
			},
			want: Delta{Hold: d("540.00")},
		},
		{
			name: "hold credit unlocked",
			txn: models.WalletTransaction{
				Type:      enums.WalletTxnTypeDeliveredHoldCredit,
				Direction: enums.WalletTxnDirectionCredit,
				Status:    enums.WalletTxnStatusAvailable,
				Amount:    d("540.00"),
			},
			want: Delta{Available: d("540.00")},
		},
		{
			name: "reversed credit keeps contributing to its old bucket",
			txn: models.WalletTransaction{
				Type:         enums.WalletTxnTypeDeliveredHoldCredit,
				Direction:    enums.WalletTxnDirectionCredit,
				Status:       enums.WalletTxnStatusReversed,
				Amount:       d("540.00"),
				ReversedFrom: &availableBucket,
			},
			want: Delta{Available: d("540.00")},
		},
		{
			name: "payout released",
			txn: models.WalletTransaction{
				Type:      enums.WalletTxnTypePayoutReleased,
				Direction: enums.WalletTxnDirectionDebit,
				Status:    enums.WalletTxnStatusPaid,
				Amount:    d("300.00"),
			},
			want: Delta{Available: d("-300.00"), Paid: d("300.00")},
		},
		{
			name: "reversed payout weighs nothing",
			txn: models.WalletTransaction{
				Type:      enums.WalletTxnTypePayoutReleased,
				Direction: enums.WalletTxnDirectionDebit,
				Status:    enums.WalletTxnStatusReversed,
				Amount:    d("300.00"),
			},
			want: Delta{},
		},
		{
			name: "cancel deduct against hold",
			txn: models.WalletTransaction{
				Type:      enums.WalletTxnTypeCancelDeduct,
				Direction: enums.WalletTxnDirectionDebit,
				Status:    enums.WalletTxnStatusHold,
				Amount:    d("540.00"),
			},
			want: Delta{Hold: d("-540.00")},
		},
		{
			name: "return deduct against available",
			txn: models.WalletTransaction{
				Type:      enums.WalletTxnTypeReturnDeduct,
				Direction: enums.WalletTxnDirectionDebit,
				Status:    enums.WalletTxnStatusAvailable,
				Amount:    d("540.00"),
			},
			want: Delta{Available: d("-540.00")},
		},
		{
			name: "payout failure audit row weighs nothing",
			txn: models.WalletTransaction{
				Type:      enums.WalletTxnTypePayoutFailed,
				Direction: enums.WalletTxnDirectionCredit,
				Status:    enums.WalletTxnStatusFailed,
				Amount:    d("300.00"),
			},
			want: Delta{},
		},
		{
			name: "adjustment debit against available",
			txn: models.WalletTransaction{
				Type:      enums.WalletTxnTypeAdjustment,
				Direction: enums.WalletTxnDirectionDebit,
				Status:    enums.WalletTxnStatusAvailable,
				Amount:    d("100.00"),
			},
			want: Delta{Available: d("-100.00")},
		},
		{
			name: "flagged adjustment weighs nothing",
			txn: models.WalletTransaction{
				Type:                   enums.WalletTxnTypeAdjustment,
				Direction:              enums.WalletTxnDirectionDebit,
				Status:                 enums.WalletTxnStatusFailed,
				Amount:                 d("100.00"),
				RequiresReconciliation: true,
			},
			want: Delta{},
		},
		{
			name: "reversed credit without recorded bucket",
			txn: models.WalletTransaction{
				Type:      enums.WalletTxnTypeDeliveredHoldCredit,
				Direction: enums.WalletTxnDirectionCredit,
				Status:    enums.WalletTxnStatusReversed,
				Amount:    d("540.00"),
			},
			want: Delta{},
		},
		{
			name: "reversed credit from hold bucket",
			txn: models.WalletTransaction{
				Type:         enums.WalletTxnTypeDeliveredHoldCredit,
				Direction:    enums.WalletTxnDirectionCredit,
				Status:       enums.WalletTxnStatusReversed,
				Amount:       d("540.00"),
				ReversedFrom: &holdBucket,
			},
			want: Delta{Hold: d("540.00")},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Contribution(tc.txn)
			assert.True(t, got.Hold.Equal(tc.want.Hold), "hold: got %s want %s", got.Hold, tc.want.Hold)
			assert.True(t, got.Available.Equal(tc.want.Available), "available: got %s want %s", got.Available, tc.want.Available)
			assert.True(t, got.Paid.Equal(tc.want.Paid), "paid: got %s want %s", got.Paid, tc.want.Paid)
		})
	}
}

func TestDeltaArithmetic(t *testing.T) {
	a := Delta{Hold: d("10"), Available: d("5")}
	b := Delta{Hold: d("-10"), Available: d("-5")}
	assert.True(t, a.Add(b).IsZero())
	assert.True(t, a.Sub(a).IsZero())
	assert.False(t, a.IsZero())
}
