package handlers

import (
	jobRepo "fixly/database/repository/jobrequest"
	"fixly/services/dispatch"
	"fixly/services/matching"
)

// HandlerBundle groups the services the HTTP layer depends on. It is wired
// once in main and passed to route registration.
type HandlerBundle struct {
	Bookings dispatch.BookingService
	Resolver dispatch.ResolverService
	Matcher  matching.Service
	Presence matching.Presence
	Offers   jobRepo.Repository
}
