package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPendingPayment, StatusAwaitingShipment, true},
		{StatusAwaitingShipment, StatusShipped, true},
		{StatusShipped, StatusCompleted, true},
		{StatusCompleted, StatusPartiallyReviewed, true},
		{StatusCompleted, StatusFullyReviewed, true},
		{StatusPartiallyReviewed, StatusFullyReviewed, true},
		{StatusPartiallyReviewed, StatusPartiallyReviewed, true},

		// never backward
		{StatusShipped, StatusPendingPayment, false},
		{StatusCompleted, StatusShipped, false},
		{StatusFullyReviewed, StatusPartiallyReviewed, false},
		{StatusFullyReviewed, StatusCompleted, false},
		{StatusPendingPayment, StatusShipped, false},
		{StatusAwaitingShipment, StatusCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestInitialStatusByPayMethod(t *testing.T) {
	assert.Equal(t, StatusPendingPayment, PayOnline.InitialStatus())
	assert.Equal(t, StatusAwaitingShipment, PayOnDelivery.InitialStatus())
}

func TestPayMethodValid(t *testing.T) {
	assert.True(t, PayOnDelivery.Valid())
	assert.True(t, PayOnline.Valid())
	assert.False(t, PayMethod(0).Valid())
	assert.False(t, PayMethod(3).Valid())
}

func TestReviewStatus(t *testing.T) {
	partial := []OrderLine{{IsCommented: true}, {IsCommented: false}}
	assert.Equal(t, StatusPartiallyReviewed, reviewStatus(partial))

	full := []OrderLine{{IsCommented: true}, {IsCommented: true}}
	assert.Equal(t, StatusFullyReviewed, reviewStatus(full))
}
