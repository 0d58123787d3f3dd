package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_GoCollectsErrors(t *testing.T) {
	t.Parallel()

	// Arrange
	m := NewManager(4)
	errBoom := errors.New("boom")

	// Act
	okA := m.Go(context.Background(), func(context.Context) error { return errBoom })
	okB := m.Go(context.Background(), func(context.Context) error { return nil })
	err := m.Wait()

	// Assert
	if !okA || !okB {
		t.Fatalf("Go() accepted = %v,%v, want true,true", okA, okB)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("Wait() error = %v, want %v", err, errBoom)
	}
}

func TestManager_GoRejectsWhenFull(t *testing.T) {
	t.Parallel()

	// Arrange
	m := NewManager(1)
	release := make(chan struct{})
	started := make(chan struct{})
	m.Go(context.Background(), func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	// Act
	accepted := m.Go(context.Background(), func(context.Context) error { return nil })
	close(release)

	// Assert
	if accepted {
		t.Fatalf("Go() accepted work beyond the limit")
	}
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestManager_GoRejectsAfterWait(t *testing.T) {
	t.Parallel()

	m := NewManager(2)
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if m.Go(context.Background(), func(context.Context) error { return nil }) {
		t.Fatalf("Go() accepted work after Wait")
	}
}

func TestManager_GoRecoversPanic(t *testing.T) {
	t.Parallel()

	m := NewManager(1)
	m.Go(context.Background(), func(context.Context) error { panic("kaboom") })

	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v, want nil after recovered panic", err)
	}
}

func TestManager_Every(t *testing.T) {
	t.Parallel()

	// Arrange
	m := NewManager(1)
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32

	// Act
	m.Every(ctx, 5*time.Millisecond, func(context.Context) {
		if ticks.Add(1) == 3 {
			cancel()
		}
	})
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	// Assert
	if got := ticks.Load(); got < 3 {
		t.Fatalf("ticks = %d, want at least 3", got)
	}
}
