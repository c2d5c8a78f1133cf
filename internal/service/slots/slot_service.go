package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/medlaw-booking/internal/domain"
	"github.com/Domenick1991/medlaw-booking/internal/repository"
)

type SlotUseCase interface {
	ListAvailable(ctx context.Context, from time.Time, days int) ([]domain.AvailabilitySlot, error)
}

type SlotService struct {
	repo    repository.SlotRepository
	maxDays int
}

func NewSlotService(repo repository.SlotRepository, maxDays int) *SlotService {
	return &SlotService{repo: repo, maxDays: maxDays}
}

// ListAvailable returns bookable slots starting within days of from.
func (s *SlotService) ListAvailable(ctx context.Context, from time.Time, days int) ([]domain.AvailabilitySlot, error) {
	if days <= 0 {
		vErr := domain.NewValidationError()
		vErr.Add("days", "days must be positive")
		return nil, vErr
	}
	if s.maxDays > 0 && days > s.maxDays {
		vErr := domain.NewValidationError()
		vErr.Add("days", fmt.Sprintf("days must be at most %d", s.maxDays))
		return nil, vErr
	}
	return s.repo.ListAvailable(ctx, from, from.AddDate(0, 0, days))
}

var _ SlotUseCase = (*SlotService)(nil)
