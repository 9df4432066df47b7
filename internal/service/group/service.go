package group

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/internal/repository"
	"github.com/jwalitptl/practice-api/internal/service/cascade"
	"github.com/jwalitptl/practice-api/internal/service/flow"
	"github.com/jwalitptl/practice-api/internal/service/membership"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

type Service struct {
	store      repository.Store
	membership *membership.Service
	cascade    *cascade.Service
}

func NewService(store repository.Store, membershipSvc *membership.Service, cascadeSvc *cascade.Service) *Service {
	return &Service{store: store, membership: membershipSvc, cascade: cascadeSvc}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req *model.CreateGroupRequest) (*model.Group, *model.Report, error) {
	return s.membership.CreateGroup(ctx, membership.CreateGroupInput{
		OwnerID:   ownerID,
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
		Goals:     req.Goals,
		Members:   req.Members,
	})
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Group, error) {
	g, err := s.store.Groups.Get(ctx, id)
	if err != nil {
		return nil, flow.Lookup("group", err)
	}
	if g.OwnerID != ownerID {
		return nil, apperrors.NewNotFound("group", nil)
	}
	return g, nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID) ([]*model.Group, error) {
	groups, err := s.store.Groups.List(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}
	return groups, nil
}

func (s *Service) UpdateGoals(ctx context.Context, ownerID, id uuid.UUID, goals []string) (*model.Group, error) {
	g, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	g.Goals = lo.Uniq(goals)
	if err := s.store.Groups.SetGoals(ctx, id, g.Goals); err != nil {
		return nil, flow.Lookup("group", err)
	}
	g.UpdatedAt = time.Now().UTC()
	return g, nil
}

// Delete runs the group cascade. A group already gone is passed through so
// an interrupted cascade can be finished.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) (*model.Report, error) {
	g, err := s.store.Groups.Get(ctx, id)
	switch {
	case err == nil:
		if g.OwnerID != ownerID {
			return nil, apperrors.NewNotFound("group", nil)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NewInternal(err)
	}
	return s.cascade.DeleteGroup(ctx, id)
}
