package statemachine

import (
	"testing"

	"food-ordering-api/apperror"
	"food-ordering-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgeTableIsExact(t *testing.T) {
	allowed := map[[2]models.OrderStatus]bool{}
	for _, e := range [][2]models.OrderStatus{
		{models.StatusPlaced, models.StatusConfirmed},
		{models.StatusConfirmed, models.StatusPreparing},
		{models.StatusPreparing, models.StatusOutForDelivery},
		{models.StatusOutForDelivery, models.StatusDelivered},
		{models.StatusPlaced, models.StatusCancelled},
		{models.StatusConfirmed, models.StatusCancelled},
	} {
		allowed[e] = true
	}

	for _, from := range models.OrderStatuses() {
		for _, to := range models.OrderStatuses() {
			_, err := Edge(from, to)
			if allowed[[2]models.OrderStatus{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, apperror.InvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, IsTerminal(models.StatusDelivered))
	assert.True(t, IsTerminal(models.StatusCancelled))
	assert.False(t, IsTerminal(models.StatusPlaced))

	admin := Actor{ID: "admin", Role: models.RoleAdmin}
	for _, from := range []models.OrderStatus{models.StatusDelivered, models.StatusCancelled} {
		for _, to := range models.OrderStatuses() {
			_, err := Check(from, to, admin, Subject{})
			assert.ErrorIs(t, err, apperror.InvalidTransition)
		}
	}
}

func TestCustomerCannotSkipToDelivered(t *testing.T) {
	customer := Actor{ID: "c-1", Role: models.RoleCustomer}
	_, err := Check(models.StatusPlaced, models.StatusDelivered, customer, Subject{CustomerID: "c-1"})
	assert.ErrorIs(t, err, apperror.InvalidTransition)
}

func TestForwardEdgesRequireRestaurantOwner(t *testing.T) {
	subject := Subject{CustomerID: "c-1", RestaurantOwnerID: "owner-a"}

	_, err := Check(models.StatusPlaced, models.StatusConfirmed, Actor{ID: "owner-a", Role: models.RoleOwner}, subject)
	assert.NoError(t, err)

	_, err = Check(models.StatusPlaced, models.StatusConfirmed, Actor{ID: "owner-b", Role: models.RoleOwner}, subject)
	assert.ErrorIs(t, err, apperror.Forbidden)

	_, err = Check(models.StatusPlaced, models.StatusConfirmed, Actor{ID: "c-1", Role: models.RoleCustomer}, subject)
	assert.ErrorIs(t, err, apperror.Forbidden)

	_, err = Check(models.StatusPlaced, models.StatusConfirmed, Actor{ID: "x", Role: models.RoleAdmin}, subject)
	assert.NoError(t, err)
}

func TestUnownedRestaurantForbidsOwners(t *testing.T) {
	_, err := Check(models.StatusPlaced, models.StatusConfirmed,
		Actor{ID: "owner-a", Role: models.RoleOwner}, Subject{CustomerID: "c-1"})
	assert.ErrorIs(t, err, apperror.Forbidden)
}

func TestCancelRequiresOrderCustomer(t *testing.T) {
	subject := Subject{CustomerID: "c-1", RestaurantOwnerID: "owner-a"}

	_, err := Check(models.StatusConfirmed, models.StatusCancelled, Actor{ID: "c-1", Role: models.RoleCustomer}, subject)
	assert.NoError(t, err)

	_, err = Check(models.StatusPlaced, models.StatusCancelled, Actor{ID: "c-2", Role: models.RoleCustomer}, subject)
	assert.ErrorIs(t, err, apperror.Forbidden)

	_, err = Check(models.StatusPlaced, models.StatusCancelled, Actor{ID: "owner-a", Role: models.RoleOwner}, subject)
	assert.ErrorIs(t, err, apperror.Forbidden)
}

func TestValidTransitionsFrom(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.StatusConfirmed, models.StatusCancelled},
		ValidTransitionsFrom(models.StatusPlaced))
	assert.Empty(t, ValidTransitionsFrom(models.StatusDelivered))
}

func TestGetAllTransitionsReturnsCopy(t *testing.T) {
	all := GetAllTransitions()
	require.Len(t, all, 6)
	all[0].To = models.StatusDelivered

	_, err := Edge(models.StatusPlaced, models.StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, GetAllTransitions()[0].To)
}
