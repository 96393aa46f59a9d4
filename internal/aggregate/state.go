package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrStateMismatch reports a checkpoint written by a run with a different
// window size or pool filter.
var ErrStateMismatch = errors.New("aggregate: checkpoint belongs to another stream")

// Stream identifies the metrics a checkpoint covers. Windows of different
// sizes, or over different pools, advance independently.
type Stream struct {
	WindowSeconds uint64
	// Pools is the pool filter, lowercased, sorted and deduplicated. Empty
	// means every pool.
	Pools []string
}

// NewStream normalizes the pool filter so equal filters compare equal.
func NewStream(windowSeconds uint64, pools []string) Stream {
	var normalized []string
	for _, p := range pools {
		if k := poolKey(p); k != "" {
			normalized = append(normalized, k)
		}
	}
	slices.Sort(normalized)
	return Stream{WindowSeconds: windowSeconds, Pools: slices.Compact(normalized)}
}

// Key is the processing_state name of the stream, e.g. "aggregator:3600" or
// "aggregator:3600:0xaa,0xbb".
func (s Stream) Key() string {
	key := "aggregator:" + strconv.FormatUint(s.WindowSeconds, 10)
	if len(s.Pools) > 0 {
		key += ":" + strings.Join(s.Pools, ",")
	}
	return key
}

// StateStore persists the last processed event timestamp per stream.
type StateStore interface {
	Load(ctx context.Context, stream Stream) (uint64, bool, error)
	Save(ctx context.Context, stream Stream, ts uint64) error
}

// FileStateStore keeps the checkpoint of a single stream in a JSON file. A
// file written for one stream cannot be resumed by another.
type FileStateStore struct {
	Path string
}

type checkpointFile struct {
	Stream        string   `json:"stream"`
	WindowSeconds uint64   `json:"window_seconds"`
	Pools         []string `json:"pools,omitempty"`
	LastProcessed uint64   `json:"last_processed_ts"`
	UpdatedAt     string   `json:"updated_at"`
}

func (s *FileStateStore) Load(_ context.Context, stream Stream) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	rec, ok, err := s.read()
	if err != nil || !ok {
		return 0, false, err
	}
	if err := checkStream(rec, stream); err != nil {
		return 0, false, fmt.Errorf("%s: %w", s.Path, err)
	}
	return rec.LastProcessed, true, nil
}

func (s *FileStateStore) Save(_ context.Context, stream Stream, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if rec, ok, err := s.read(); err != nil {
		return err
	} else if ok {
		if err := checkStream(rec, stream); err != nil {
			return fmt.Errorf("%s: %w", s.Path, err)
		}
	}

	data, err := json.MarshalIndent(checkpointFile{
		Stream:        stream.Key(),
		WindowSeconds: stream.WindowSeconds,
		Pools:         stream.Pools,
		LastProcessed: ts,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

func (s *FileStateStore) read() (checkpointFile, bool, error) {
	var rec checkpointFile
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, false, fmt.Errorf("parse checkpoint %s: %w", s.Path, err)
	}
	return rec, true, nil
}

func checkStream(rec checkpointFile, stream Stream) error {
	if rec.WindowSeconds != stream.WindowSeconds {
		return fmt.Errorf("%w: stored window %ds, run uses %ds", ErrStateMismatch, rec.WindowSeconds, stream.WindowSeconds)
	}
	if rec.Stream != stream.Key() {
		return fmt.Errorf("%w: stored %q, run uses %q", ErrStateMismatch, rec.Stream, stream.Key())
	}
	return nil
}
