// Package tasks defines the durable scheduled work the dispatch engine
// relies on. Tasks live in Redis via asynq, so response-window expiry and
// escalation survive process restarts; every handler re-derives state from
// the store before acting, which keeps re-delivery harmless.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TypeEscalationCheck fires when a booking's offers may have expired, or
	// after the decline grace delay.
	TypeEscalationCheck = "dispatch:escalate"
	// TypeScheduledDispatch starts the provider search for a scheduled
	// booking shortly before its slot.
	TypeScheduledDispatch = "dispatch:scheduled_start"
)

// EscalationPayload identifies the booking an escalation check concerns.
type EscalationPayload struct {
	BookingID string `json:"booking_id"`
}

// ScheduledDispatchPayload identifies the booking to start searching for.
type ScheduledDispatchPayload struct {
	BookingID string `json:"booking_id"`
}

// NewEscalationTask builds an escalation check that fires at processAt.
func NewEscalationTask(bookingID string, processAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(EscalationPayload{BookingID: bookingID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal escalation payload: %w", err)
	}
	opts := []asynq.Option{asynq.ProcessAt(processAt)}
	return asynq.NewTask(TypeEscalationCheck, b), opts, nil
}

// NewScheduledDispatchTask builds the search kickoff for a scheduled booking.
func NewScheduledDispatchTask(bookingID string, processAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ScheduledDispatchPayload{BookingID: bookingID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal scheduled dispatch payload: %w", err)
	}
	opts := []asynq.Option{asynq.ProcessAt(processAt)}
	return asynq.NewTask(TypeScheduledDispatch, b), opts, nil
}
