package repository

import (
	"context"

	"github.com/Domenick1991/medlaw-booking/internal/domain"
)

type EventTypeRepository interface {
	List(ctx context.Context) ([]domain.EventType, error)
}

type PGEventTypeRepository struct {
	db DB
}

func NewEventTypeRepository(db DB) EventTypeRepository {
	return &PGEventTypeRepository{db: db}
}

// List returns event types oldest first so the fallback choice is stable.
func (r *PGEventTypeRepository) List(ctx context.Context) ([]domain.EventType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM event_types ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]domain.EventType, 0)
	for rows.Next() {
		var et domain.EventType
		if err := rows.Scan(&et.ID, &et.Name); err != nil {
			return nil, err
		}
		types = append(types, et)
	}
	return types, rows.Err()
}

var _ EventTypeRepository = (*PGEventTypeRepository)(nil)
