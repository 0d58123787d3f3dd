// Package memstore keeps passcode records in process memory, striped over
// independently locked shards.
package memstore

import (
	"context"
	"hash/maphash"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/gopasscode/internal/passcode/entity"
	"github.com/shandysiswandi/gopasscode/internal/passcode/usecase"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
)

// DefaultShards is used when New receives a non-positive shard count.
const DefaultShards = 32

type shard struct {
	mu      sync.Mutex
	records map[string]*entity.Record
}

// Store is safe for concurrent use. Calls for one identifier are serialized;
// identifiers on different shards never contend.
type Store struct {
	seed   maphash.Seed
	shards []*shard
	active *atomic.Int64
}

// New builds a Store and registers the passcode.store.active gauge.
func New(shards int, ins instrument.Instrumentation) *Store {
	if shards <= 0 {
		shards = DefaultShards
	}

	s := &Store{
		seed:   maphash.MakeSeed(),
		shards: make([]*shard, shards),
		active: atomic.NewInt64(0),
	}
	for i := range s.shards {
		s.shards[i] = &shard{records: map[string]*entity.Record{}}
	}

	_, err := ins.Meter("passcode.outbound.memstore").Int64ObservableGauge("passcode.store.active",
		metric.WithDescription("Passcode records currently held in memory"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(s.active.Load())
			return nil
		}),
	)
	if err != nil {
		slog.Error("failed to create passcode store gauge", "error", err)
	}

	return s
}

func (s *Store) shardFor(identifier string) *shard {
	return s.shards[maphash.String(s.seed, identifier)%uint64(len(s.shards))]
}

// Mutate runs fn under the identifier's shard lock and applies its result.
// The record handed to fn is a copy.
func (s *Store) Mutate(ctx context.Context, identifier string, fn usecase.MutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sh := s.shardFor(identifier)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var cur *entity.Record
	if rec, ok := sh.records[identifier]; ok {
		cp := *rec
		cur = &cp
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}

	switch {
	case next == nil && cur != nil:
		delete(sh.records, identifier)
		s.active.Dec()
	case next != nil:
		if cur == nil {
			s.active.Inc()
		}
		cp := *next
		sh.records[identifier] = &cp
	}

	return nil
}

// Sweep drops every record expired at now and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, rec := range sh.records {
			if rec.Expired(now) {
				delete(sh.records, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}

	s.active.Sub(int64(removed))
	return removed
}

// Len is the number of records held, expired or not.
func (s *Store) Len() int {
	return int(s.active.Load())
}
