package notify

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nucore/fincore-backend/internal/domain"
)

func settledTx() *domain.Transaction {
	return &domain.Transaction{
		ID:        uuid.New(),
		AccountID: uuid.New(),
		Type:      domain.TransactionTypeDeposit,
		Status:    domain.TransactionStatusCompleted,
		Category:  domain.CategoryOther,
		Amount:    decimal.NewFromInt(100),
	}
}

func TestRegistry_DeliversOnlyToOwningUser(t *testing.T) {
	registry := NewRegistry(4)
	alice := uuid.New()
	bob := uuid.New()

	aliceEvents, cancelAlice := registry.Subscribe(alice)
	defer cancelAlice()
	bobEvents, cancelBob := registry.Subscribe(bob)
	defer cancelBob()

	tx := settledTx()
	registry.TransactionSettled(alice, tx)

	select {
	case event := <-aliceEvents:
		assert.Equal(t, tx.ID, event.Transaction.ID)
	default:
		t.Fatal("expected an event for alice")
	}
	assert.Empty(t, bobEvents)
}

func TestRegistry_FanOutToMultipleSubscribers(t *testing.T) {
	registry := NewRegistry(4)
	userID := uuid.New()

	first, cancelFirst := registry.Subscribe(userID)
	defer cancelFirst()
	second, cancelSecond := registry.Subscribe(userID)
	defer cancelSecond()

	registry.TransactionSettled(userID, settledTx())

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestRegistry_CancelClosesChannelAndRemovesSubscription(t *testing.T) {
	registry := NewRegistry(4)
	userID := uuid.New()

	events, cancel := registry.Subscribe(userID)
	require.Equal(t, 1, registry.SubscriberCount(userID))

	cancel()
	assert.Equal(t, 0, registry.SubscriberCount(userID))

	_, open := <-events
	assert.False(t, open, "cancelled channel must be closed")

	// A second cancel is a no-op
	cancel()
}

func TestRegistry_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	registry := NewRegistry(1)
	userID := uuid.New()

	events, cancel := registry.Subscribe(userID)
	defer cancel()

	first := settledTx()
	registry.TransactionSettled(userID, first)
	registry.TransactionSettled(userID, settledTx()) // dropped, must not block

	event := <-events
	assert.Equal(t, first.ID, event.Transaction.ID)
	assert.Empty(t, events)
}
