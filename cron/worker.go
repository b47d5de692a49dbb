package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fixly/config"
	"fixly/services/dispatch"
	"fixly/services/tasks"
	"fixly/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// NewDispatchWorker builds the asynq server that drives the durable side
// of the dispatch engine: response-window escalation checks and scheduled
// search kickoffs. Handlers are idempotent, so asynq's at-least-once
// delivery and retries are safe.
func NewDispatchWorker(escalator dispatch.EscalationService, bookings dispatch.BookingService) (*asynq.Server, *asynq.ServeMux) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeEscalationCheck, handleEscalation(escalator))
	mux.HandleFunc(tasks.TypeScheduledDispatch, handleScheduledDispatch(bookings))
	return srv, mux
}

// RunDispatchWorker starts the worker in the background and reports fatal
// startup errors on the returned channel.
func RunDispatchWorker(srv *asynq.Server, mux *asynq.ServeMux) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		utils.GetLogger().Info("dispatch worker starting")
		if err := srv.Run(mux); err != nil {
			errCh <- fmt.Errorf("dispatch worker stopped: %w", err)
		}
	}()
	return errCh
}

func handleEscalation(escalator dispatch.EscalationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.EscalationPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			// Malformed payloads never become valid; do not retry.
			utils.GetLogger().Error("invalid escalation payload", zap.Error(err))
			return fmt.Errorf("invalid escalation payload: %v: %w", err, asynq.SkipRetry)
		}
		if err := escalator.Escalate(ctx, p.BookingID); err != nil {
			utils.GetLogger().Error("escalation check failed",
				zap.String("booking_id", p.BookingID), zap.Error(err))
			return err
		}
		return nil
	}
}

func handleScheduledDispatch(bookings dispatch.BookingService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.ScheduledDispatchPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			utils.GetLogger().Error("invalid scheduled dispatch payload", zap.Error(err))
			return fmt.Errorf("invalid scheduled dispatch payload: %v: %w", err, asynq.SkipRetry)
		}

		err := bookings.StartSearch(ctx, p.BookingID)
		if err == nil {
			return nil
		}
		// A booking with nobody available is terminally cancelled inside
		// StartSearch; retrying the task cannot change that.
		var npe *utils.NoProvidersAvailableError
		if errors.As(err, &npe) {
			utils.GetLogger().Info("scheduled dispatch found no providers",
				zap.String("booking_id", p.BookingID))
			return nil
		}
		utils.GetLogger().Error("scheduled dispatch failed",
			zap.String("booking_id", p.BookingID), zap.Error(err))
		return err
	}
}
