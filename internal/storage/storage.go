package storage

import (
	"context"

	"yieldSpace/internal/model"
)

// Storage defines a sink for pool event records.
type Storage interface {
	PutEvents(ctx context.Context, records []model.EventRecord) error
}

// Fanout writes every batch to each sink in order and stops at the first error.
type Fanout []Storage

func (f Fanout) PutEvents(ctx context.Context, records []model.EventRecord) error {
	for _, s := range f {
		if err := s.PutEvents(ctx, records); err != nil {
			return err
		}
	}
	return nil
}
