package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Scheduler enqueues durable dispatch work. The engine depends on this
// interface so tests can observe scheduling without Redis.
type Scheduler interface {
	// ScheduleEscalation enqueues an escalation check for the booking at t.
	ScheduleEscalation(ctx context.Context, bookingID string, t time.Time) error
	// ScheduleDispatch enqueues the search kickoff for a scheduled booking.
	ScheduleDispatch(ctx context.Context, bookingID string, t time.Time) error
}

// AsynqScheduler implements Scheduler on an asynq client.
type AsynqScheduler struct {
	Client *asynq.Client
}

func (s *AsynqScheduler) ScheduleEscalation(ctx context.Context, bookingID string, t time.Time) error {
	task, opts, err := NewEscalationTask(bookingID, t)
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue escalation for booking %s: %w", bookingID, err)
	}
	return nil
}

func (s *AsynqScheduler) ScheduleDispatch(ctx context.Context, bookingID string, t time.Time) error {
	task, opts, err := NewScheduledDispatchTask(bookingID, t)
	if err != nil {
		return err
	}
	if _, err := s.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue scheduled dispatch for booking %s: %w", bookingID, err)
	}
	return nil
}
