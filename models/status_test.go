package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_HappyPath(t *testing.T) {
	path := []struct {
		from, to BookingStatus
		role     Role
	}{
		{StatusPending, StatusProviderSearch, RoleSystem},
		{StatusProviderSearch, StatusProviderAssigned, RoleSystem},
		{StatusProviderAssigned, StatusProviderOnWay, RoleProvider},
		{StatusProviderOnWay, StatusWorkInProgress, RoleProvider},
		{StatusWorkInProgress, StatusWorkCompleted, RoleProvider},
		{StatusWorkCompleted, StatusPaymentPending, RoleSystem},
		{StatusPaymentPending, StatusCompleted, RoleSystem},
	}
	for _, step := range path {
		require.NoError(t, CanTransition(step.from, step.to, step.role),
			"%s -> %s as %s", step.from, step.to, step.role)
	}
}

func TestCanTransition_CustomerCancelWindow(t *testing.T) {
	require.NoError(t, CanTransition(StatusPending, StatusCancelled, RoleCustomer))
	require.NoError(t, CanTransition(StatusProviderSearch, StatusCancelled, RoleCustomer))

	// Once a provider is assigned the customer can no longer cancel directly.
	err := CanTransition(StatusProviderAssigned, StatusCancelled, RoleCustomer)
	require.ErrorIs(t, err, ErrRoleForbidden)
	err = CanTransition(StatusWorkInProgress, StatusCancelled, RoleCustomer)
	require.ErrorIs(t, err, ErrRoleForbidden)
}

func TestCanTransition_AdminOverride(t *testing.T) {
	require.NoError(t, CanTransition(StatusWorkInProgress, StatusCancelled, RoleAdmin))
	require.NoError(t, CanTransition(StatusWorkInProgress, StatusRefunded, RoleAdmin))
	require.NoError(t, CanTransition(StatusPaymentPending, StatusRefunded, RoleAdmin))
}

func TestCanTransition_InvalidEdges(t *testing.T) {
	require.ErrorIs(t, CanTransition(StatusPending, StatusWorkInProgress, RoleAdmin), ErrInvalidTransition)
	require.ErrorIs(t, CanTransition(StatusCompleted, StatusProviderSearch, RoleAdmin), ErrInvalidTransition)
	require.ErrorIs(t, CanTransition(StatusCancelled, StatusPending, RoleSystem), ErrInvalidTransition)

	// Providers cannot kick off a search.
	require.ErrorIs(t, CanTransition(StatusPending, StatusProviderSearch, RoleProvider), ErrRoleForbidden)
	// Only the engine assigns providers; nobody does it via the public table.
	require.ErrorIs(t, CanTransition(StatusProviderSearch, StatusProviderAssigned, RoleProvider), ErrRoleForbidden)
}

func TestBookingStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRefunded.Terminal())
	assert.False(t, StatusProviderSearch.Terminal())
	assert.False(t, StatusPending.Terminal())
}

func TestBookingStatus_RequiresAssignment(t *testing.T) {
	assert.False(t, StatusPending.RequiresAssignment())
	assert.False(t, StatusProviderSearch.RequiresAssignment())
	assert.False(t, StatusCancelled.RequiresAssignment())
	for _, s := range AssignedStatuses {
		assert.True(t, s.RequiresAssignment(), string(s))
	}
}
