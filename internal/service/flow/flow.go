// Package flow holds the plumbing shared by the synchronization services:
// bounded fan-out, lookup error mapping and closing out a step report.
package flow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/event"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
	"github.com/jwalitptl/practice-api/pkg/logger"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

const DefaultConcurrency = 8

// ForEach runs fn for every id with at most limit calls in flight. Every
// issued call runs to completion; the first error is returned.
func ForEach(ctx context.Context, limit int, ids []uuid.UUID, fn func(ctx context.Context, id uuid.UUID) error) error {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, id := range ids {
		g.Go(func() error {
			return fn(ctx, id)
		})
	}
	return g.Wait()
}

// Lookup maps a repository read error to the API error for resource.
func Lookup(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, err)
	}
	return apperrors.NewInternal(err)
}

// Recorder closes out finished reports.
type Recorder struct {
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Events  *event.Service
}

// Finish observes the report, emits eventType to the outbox and returns a
// PartialCascade error when a step failed.
func (r Recorder) Finish(ctx context.Context, report *model.Report, eventType string, started time.Time) error {
	r.Metrics.ObserveReport(report, started)
	r.Events.Record(ctx, eventType, report)

	step, failed := report.Failure()
	if !failed {
		if r.Logger != nil {
			r.Logger.Debug("cascade finished",
				"operation", report.Operation,
				"subject", report.Subject.String(),
				"steps", len(report.Steps))
		}
		return nil
	}
	if r.Logger != nil {
		r.Logger.Error(step.Err, "cascade stopped",
			"operation", report.Operation,
			"subject", report.Subject.String(),
			"step", step.Step)
	}
	return apperrors.NewPartialCascade(report.Operation, step.Step, step.Err)
}
