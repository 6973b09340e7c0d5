package service

import (
	"context"

	"github.com/lexhaven/firmportal/internal/domain"
	"github.com/lexhaven/firmportal/internal/repo/postgres"
	"github.com/lexhaven/firmportal/pkg/events"
	"github.com/lexhaven/firmportal/pkg/logger"
)

type CaseService interface {
	Create(ctx context.Context, userID int64, req *domain.CaseRequest) (*domain.Case, error)
	Get(ctx context.Context, userID, id int64) (*domain.Case, error)
	List(ctx context.Context, userID int64, limit, offset int) ([]domain.Case, error)
	Update(ctx context.Context, userID, id int64, req *domain.CaseRequest) (*domain.Case, error)
	Delete(ctx context.Context, userID, id int64) error
}

type caseService struct {
	caseRepo postgres.CaseRepository
	eventBus events.Publisher
}

func NewCaseService(caseRepo postgres.CaseRepository, eventBus events.Publisher) CaseService {
	return &caseService{caseRepo: caseRepo, eventBus: eventBus}
}

func (s *caseService) Create(ctx context.Context, userID int64, req *domain.CaseRequest) (*domain.Case, error) {
	req.Normalize()
	if verr := req.Validate(); verr != nil {
		return nil, verr
	}

	c, err := s.caseRepo.Create(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		err := s.eventBus.Publish(ctx, events.CaseCreated, events.CaseCreatedEvent{
			CaseID:     c.ID,
			UserID:     userID,
			ClientName: c.ClientName,
			CaseType:   c.CaseType,
			CreatedAt:  c.CreatedAt,
		})
		if err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", events.CaseCreated, "error", err)
		}
	}

	return c, nil
}

func (s *caseService) Get(ctx context.Context, userID, id int64) (*domain.Case, error) {
	c, err := s.caseRepo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *caseService) List(ctx context.Context, userID int64, limit, offset int) ([]domain.Case, error) {
	cases, err := s.caseRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if cases == nil {
		cases = []domain.Case{}
	}
	return cases, nil
}

func (s *caseService) Update(ctx context.Context, userID, id int64, req *domain.CaseRequest) (*domain.Case, error) {
	req.Normalize()
	if verr := req.Validate(); verr != nil {
		return nil, verr
	}

	c, err := s.caseRepo.Update(ctx, userID, id, req)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *caseService) Delete(ctx context.Context, userID, id int64) error {
	deleted, err := s.caseRepo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}
