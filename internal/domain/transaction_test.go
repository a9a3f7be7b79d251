package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransaction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tx      Transaction
		wantErr error
	}{
		{
			name: "Valid deposit should pass",
			tx: Transaction{
				ID:        uuid.New(),
				AccountID: uuid.New(),
				Type:      TransactionTypeDeposit,
				Category:  CategoryOther,
				Amount:    decimal.NewFromInt(100),
			},
			wantErr: nil,
		},
		{
			name: "Zero amount should fail",
			tx: Transaction{
				ID:        uuid.New(),
				AccountID: uuid.New(),
				Type:      TransactionTypePayment,
				Category:  CategoryFood,
				Amount:    decimal.Zero,
			},
			wantErr: ErrAmountNotPositive,
		},
		{
			name: "Negative amount should fail",
			tx: Transaction{
				ID:        uuid.New(),
				AccountID: uuid.New(),
				Type:      TransactionTypeWithdrawal,
				Category:  CategoryOther,
				Amount:    decimal.NewFromInt(-50),
			},
			wantErr: ErrAmountNotPositive,
		},
		{
			name: "Negative fee should fail",
			tx: Transaction{
				ID:        uuid.New(),
				AccountID: uuid.New(),
				Type:      TransactionTypeTransfer,
				Category:  CategoryOther,
				Amount:    decimal.NewFromInt(50),
				Fee:       decimal.NewFromInt(-1),
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "Fee on a deposit should fail",
			tx: Transaction{
				ID:        uuid.New(),
				AccountID: uuid.New(),
				Type:      TransactionTypeDeposit,
				Category:  CategoryOther,
				Amount:    decimal.NewFromInt(100),
				Fee:       decimal.NewFromInt(2),
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "Unknown type should fail",
			tx: Transaction{
				ID:        uuid.New(),
				AccountID: uuid.New(),
				Type:      TransactionType("loan"),
				Category:  CategoryOther,
				Amount:    decimal.NewFromInt(50),
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "Unknown category should fail",
			tx: Transaction{
				ID:        uuid.New(),
				AccountID: uuid.New(),
				Type:      TransactionTypePayment,
				Category:  TransactionCategory("rent"),
				Amount:    decimal.NewFromInt(50),
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "Missing account reference should fail",
			tx: Transaction{
				ID:       uuid.New(),
				Type:     TransactionTypePayment,
				Category: CategoryOther,
				Amount:   decimal.NewFromInt(50),
			},
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestTransaction_Delta(t *testing.T) {
	deposit := Transaction{Type: TransactionTypeDeposit, Amount: decimal.NewFromInt(500)}
	assert.True(t, deposit.Delta().Equal(decimal.NewFromInt(500)), "deposits apply a positive delta")

	withdrawal := Transaction{Type: TransactionTypeWithdrawal, Amount: decimal.NewFromInt(200)}
	assert.True(t, withdrawal.Delta().Equal(decimal.NewFromInt(-200)), "withdrawals apply a negative delta")

	payment := Transaction{
		Type:   TransactionTypePayment,
		Amount: decimal.NewFromInt(100),
		Fee:    decimal.NewFromFloat(2.50),
	}
	assert.True(t, payment.Delta().Equal(decimal.NewFromFloat(-102.50)), "fee is part of the debit")
}

func TestTransaction_CanTransitionTo(t *testing.T) {
	pending := Transaction{Status: TransactionStatusPending}
	assert.True(t, pending.CanTransitionTo(TransactionStatusCompleted))
	assert.True(t, pending.CanTransitionTo(TransactionStatusFailed))
	assert.True(t, pending.CanTransitionTo(TransactionStatusCancelled))
	assert.False(t, pending.CanTransitionTo(TransactionStatusPending))

	// Terminal states never move again, in any direction
	for _, status := range []TransactionStatus{
		TransactionStatusCompleted,
		TransactionStatusFailed,
		TransactionStatusCancelled,
	} {
		tx := Transaction{Status: status}
		assert.True(t, tx.IsTerminal())
		assert.False(t, tx.CanTransitionTo(TransactionStatusPending))
		assert.False(t, tx.CanTransitionTo(TransactionStatusCompleted))
		assert.False(t, tx.CanTransitionTo(TransactionStatusFailed))
	}
}
