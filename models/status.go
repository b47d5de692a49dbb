package models

import "errors"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending          BookingStatus = "pending"
	StatusProviderSearch   BookingStatus = "provider_search"
	StatusProviderAssigned BookingStatus = "provider_assigned"
	StatusProviderOnWay    BookingStatus = "provider_on_way"
	StatusWorkInProgress   BookingStatus = "work_in_progress"
	StatusWorkCompleted    BookingStatus = "work_completed"
	StatusPaymentPending   BookingStatus = "payment_pending"
	StatusCompleted        BookingStatus = "completed"
	StatusCancelled        BookingStatus = "cancelled"
	StatusRefunded         BookingStatus = "refunded"
)

// Role identifies who is requesting a status transition.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
	// RoleSystem covers internal engine transitions (dispatch, escalation).
	RoleSystem Role = "system"
)

var (
	// ErrInvalidTransition means the edge does not exist in the lifecycle graph.
	ErrInvalidTransition = errors.New("invalid booking status transition")
	// ErrRoleForbidden means the edge exists but the caller's role may not take it.
	ErrRoleForbidden = errors.New("role not permitted for this transition")
)

// AssignedStatuses are the states in which AssignedProviderID must be set.
var AssignedStatuses = []BookingStatus{
	StatusProviderAssigned,
	StatusProviderOnWay,
	StatusWorkInProgress,
	StatusWorkCompleted,
	StatusPaymentPending,
	StatusCompleted,
}

// Terminal reports whether the booking can never be reopened for matching.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

// RequiresAssignment reports whether the state is only valid with a bound provider.
func (s BookingStatus) RequiresAssignment() bool {
	for _, st := range AssignedStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProviderSearch, StatusProviderAssigned,
		StatusProviderOnWay, StatusWorkInProgress, StatusWorkCompleted,
		StatusPaymentPending, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// transitions maps each lifecycle edge to the roles allowed to take it.
// The assigned-provider check for RoleProvider edges is enforced by the
// caller, which knows the actor's identity.
var transitions = map[BookingStatus]map[BookingStatus][]Role{
	StatusPending: {
		StatusProviderSearch: {RoleSystem, RoleAdmin},
		StatusCancelled:      {RoleCustomer, RoleAdmin, RoleSystem},
	},
	StatusProviderSearch: {
		StatusProviderAssigned: {RoleSystem},
		StatusCancelled:        {RoleCustomer, RoleAdmin, RoleSystem},
	},
	StatusProviderAssigned: {
		StatusProviderOnWay: {RoleProvider, RoleAdmin},
		StatusCancelled:     {RoleAdmin},
	},
	StatusProviderOnWay: {
		StatusWorkInProgress: {RoleProvider, RoleAdmin},
		StatusCancelled:      {RoleAdmin},
	},
	StatusWorkInProgress: {
		StatusWorkCompleted: {RoleProvider, RoleAdmin},
		StatusCancelled:     {RoleAdmin},
		StatusRefunded:      {RoleAdmin},
	},
	StatusWorkCompleted: {
		StatusPaymentPending: {RoleProvider, RoleAdmin, RoleSystem},
		StatusRefunded:       {RoleAdmin},
	},
	StatusPaymentPending: {
		StatusCompleted: {RoleAdmin, RoleSystem},
		StatusRefunded:  {RoleAdmin},
	},
}

// CanTransition validates a requested lifecycle edge for the given role.
// It returns ErrInvalidTransition for edges that do not exist and
// ErrRoleForbidden for edges the role may not take.
func CanTransition(from, to BookingStatus, role Role) error {
	edges, ok := transitions[from]
	if !ok {
		return ErrInvalidTransition
	}
	roles, ok := edges[to]
	if !ok {
		return ErrInvalidTransition
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return ErrRoleForbidden
}
