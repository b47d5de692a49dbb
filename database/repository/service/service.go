package serviceRepo

import (
	"context"
	"errors"

	"fixly/models"
)

// ErrNotFound means no service exists with the given id.
var ErrNotFound = errors.New("service not found")

// Repository defines read access to the service catalogue. Matching uses
// it to resolve a service id to its category.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.Service, error)
}
