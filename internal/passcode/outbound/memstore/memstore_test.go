package memstore

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/gopasscode/internal/passcode/entity"
	"github.com/shandysiswandi/gopasscode/internal/pkg/instrument"
)

func get(t *testing.T, s *Store, id string) *entity.Record {
	t.Helper()

	var out *entity.Record
	if err := s.Mutate(context.Background(), id, func(cur *entity.Record) (*entity.Record, error) {
		out = cur
		return cur, nil
	}); err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	return out
}

func TestStore_Mutate(t *testing.T) {
	t.Parallel()

	// Arrange
	s := New(4, instrument.NewNoop())
	ctx := context.Background()
	rec := &entity.Record{CodeHash: "h1", ExpiresAt: time.Now().Add(time.Minute)}

	// Act + Assert: insert
	if err := s.Mutate(ctx, "a@x.io", func(cur *entity.Record) (*entity.Record, error) {
		if cur != nil {
			t.Fatalf("expected empty slot, got %+v", cur)
		}
		return rec, nil
	}); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	// copies do not leak back into the store
	got := get(t, s, "a@x.io")
	got.Attempts = 99
	rec.Attempts = 42
	if again := get(t, s, "a@x.io"); again.Attempts != 0 || again.CodeHash != "h1" {
		t.Fatalf("stored record changed through an alias: %+v", again)
	}

	// failing fn leaves the record alone
	boom := errors.New("boom")
	if err := s.Mutate(ctx, "a@x.io", func(*entity.Record) (*entity.Record, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("Mutate() error = %v, want boom", err)
	}
	if get(t, s, "a@x.io") == nil {
		t.Fatalf("record removed by a failed mutation")
	}

	// nil deletes
	if err := s.Mutate(ctx, "a@x.io", func(*entity.Record) (*entity.Record, error) { return nil, nil }); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if get(t, s, "a@x.io") != nil || s.Len() != 0 {
		t.Fatalf("record still present after delete, Len() = %d", s.Len())
	}

	// deleting a missing record is a no-op
	if err := s.Mutate(ctx, "missing", func(*entity.Record) (*entity.Record, error) { return nil, nil }); err != nil {
		t.Fatalf("delete missing error = %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d after deleting a missing record", s.Len())
	}
}

func TestStore_MutateCanceled(t *testing.T) {
	t.Parallel()

	s := New(1, instrument.NewNoop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Mutate(ctx, "a", func(cur *entity.Record) (*entity.Record, error) {
		called = true
		return cur, nil
	})

	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("Mutate() error = %v, called = %v", err, called)
	}
}

func TestStore_SerializesSameIdentifier(t *testing.T) {
	t.Parallel()

	// Arrange
	s := New(8, instrument.NewNoop())
	const workers = 64

	// Act
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			_ = s.Mutate(context.Background(), "same", func(cur *entity.Record) (*entity.Record, error) {
				if cur == nil {
					return &entity.Record{Attempts: 1}, nil
				}
				cur.Attempts++
				return cur, nil
			})
		})
	}
	wg.Wait()

	// Assert
	if got := get(t, s, "same"); got == nil || got.Attempts != workers {
		t.Fatalf("Attempts = %+v, want %d", got, workers)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}

func TestStore_Sweep(t *testing.T) {
	t.Parallel()

	// Arrange
	s := New(0, instrument.NewNoop())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 10 {
		exp := now.Add(time.Minute)
		if i%2 == 0 {
			exp = now
		}
		id := "id-" + strconv.Itoa(i)
		_ = s.Mutate(context.Background(), id, func(*entity.Record) (*entity.Record, error) {
			return &entity.Record{ExpiresAt: exp}, nil
		})
	}

	// Act
	removed := s.Sweep(now)

	// Assert
	if removed != 5 {
		t.Fatalf("Sweep() = %d, want 5", removed)
	}
	if s.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", s.Len())
	}
	if get(t, s, "id-0") != nil || get(t, s, "id-1") == nil {
		t.Fatalf("wrong records swept")
	}
}
