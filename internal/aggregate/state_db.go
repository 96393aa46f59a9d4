package aggregate

import (
	"context"

	"yieldSpace/internal/storage/postgres"
)

// DBStateStore keeps one processing_state row per stream, named by
// Stream.Key, so runs with different windows or filters never share a row.
type DBStateStore struct {
	Store *postgres.Store
}

func (s *DBStateStore) Load(ctx context.Context, stream Stream) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, stream.Key())
}

func (s *DBStateStore) Save(ctx context.Context, stream Stream, ts uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, stream.Key(), ts)
}
