package userRepo

import (
	"context"
	"errors"

	"fixly/models"
)

// ErrNotFound means no user exists with the given id.
var ErrNotFound = errors.New("user not found")

// Repository exposes the customer lookup the notification gateway needs.
// User account management is an external collaborator.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
