package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
)

type outboxRepo struct {
	s *Store
}

func (r *outboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	if err := r.s.lock("outbox.Create"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	event.ID = uuid.New()
	event.Status = string(model.OutboxStatusPending)
	event.CreatedAt = now
	event.UpdatedAt = now
	c := *event
	r.s.outbox = append(r.s.outbox, &c)
	return nil
}

func (r *outboxRepo) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	if err := r.s.lock("outbox.GetPendingEventsWithLock"); err != nil {
		return nil, err
	}
	defer r.s.mu.Unlock()
	now := time.Now()
	var out []*model.OutboxEvent
	for _, evt := range r.s.outbox {
		if len(out) == limit {
			break
		}
		if evt.Status != string(model.OutboxStatusPending) || (evt.RetryAt != nil && evt.RetryAt.After(now)) {
			continue
		}
		c := *evt
		out = append(out, &c)
	}
	return out, nil
}

func (r *outboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	if err := r.s.lock("outbox.UpdateStatus"); err != nil {
		return err
	}
	defer r.s.mu.Unlock()
	for _, evt := range r.s.outbox {
		if evt.ID != id {
			continue
		}
		now := time.Now().UTC()
		evt.Status = string(status)
		evt.ErrorMessage = errorMessage
		evt.RetryAt = retryAt
		if errorMessage != nil {
			evt.RetryCount++
		}
		if status == model.OutboxStatusProcessed {
			evt.ProcessedAt = &now
		}
		evt.UpdatedAt = now
	}
	return nil
}

func (r *outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	if err := r.s.lock("outbox.DeleteProcessedBefore"); err != nil {
		return 0, err
	}
	defer r.s.mu.Unlock()
	kept := r.s.outbox[:0]
	var n int64
	for _, evt := range r.s.outbox {
		if evt.Status == string(model.OutboxStatusProcessed) && evt.ProcessedAt != nil && evt.ProcessedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, evt)
	}
	r.s.outbox = kept
	return n, nil
}

// OutboxEvents returns a copy of every stored event, oldest first.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OutboxEvent, 0, len(s.outbox))
	for _, evt := range s.outbox {
		out = append(out, *evt)
	}
	return out
}
