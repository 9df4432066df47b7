// Package event appends domain events to the outbox. The worker relays them
// to the broker, so a write here never waits on Redis.
package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/pkg/logger"
)

type Service struct {
	outboxRepo repository.OutboxRepository
	logger     *logger.Logger
}

func NewService(outboxRepo repository.OutboxRepository, log *logger.Logger) *Service {
	return &Service{outboxRepo: outboxRepo, logger: log}
}

func (s *Service) Emit(ctx context.Context, eventType string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// Record emits eventType with the report as payload, plus a failure event
// when the report stopped early. Outbox errors are logged, never returned:
// the writes the report describes have already happened.
func (s *Service) Record(ctx context.Context, eventType string, report *model.Report) {
	if s == nil || report == nil {
		return
	}
	if _, failed := report.Failure(); failed {
		eventType = model.EventCascadeStepsFailure
	}
	if err := s.Emit(ctx, eventType, report); err != nil {
		s.logger.Error(err, "failed to record event",
			"event_type", eventType,
			"subject", report.Subject.String())
	}
}
