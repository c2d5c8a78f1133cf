package eventtypes

import (
	"context"
	"strings"

	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/Domenick1991/medlaw-booking/internal/repository"
	"go.uber.org/zap"
)

type EventTypeUseCase interface {
	List(ctx context.Context) ([]domain.EventType, error)
	Resolve(ctx context.Context, consultationType string) (*domain.EventType, error)
}

type Cache interface {
	GetEventTypes(ctx context.Context) ([]domain.EventType, error)
	SetEventTypes(ctx context.Context, types []domain.EventType) error
}

type EventTypeService struct {
	repo  repository.EventTypeRepository
	cache Cache
	log   *zap.Logger
}

func NewEventTypeService(repo repository.EventTypeRepository, cache Cache, log *zap.Logger) *EventTypeService {
	return &EventTypeService{repo: repo, cache: cache, log: log}
}

func (s *EventTypeService) List(ctx context.Context) ([]domain.EventType, error) {
	if s.cache != nil {
		cached, err := s.cache.GetEventTypes(ctx)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil {
			s.log.Warn("event types cache read failed", zap.Error(err))
		}
	}

	types, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil && len(types) > 0 {
		if err := s.cache.SetEventTypes(ctx, types); err != nil {
			s.log.Warn("event types cache write failed", zap.Error(err))
		}
	}
	return types, nil
}

// Resolve picks the first event type whose name contains the consultation
// type, ignoring case, and falls back to the first one listed.
func (s *EventTypeService) Resolve(ctx context.Context, consultationType string) (*domain.EventType, error) {
	types, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, domain.ErrNoEventTypes
	}

	needle := strings.ToLower(strings.TrimSpace(consultationType))
	if needle != "" {
		for i := range types {
			if strings.Contains(strings.ToLower(types[i].Name), needle) {
				return &types[i], nil
			}
		}
	}
	return &types[0], nil
}

var _ EventTypeUseCase = (*EventTypeService)(nil)
