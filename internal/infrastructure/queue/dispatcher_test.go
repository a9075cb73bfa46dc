package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/projecthub/portal/internal/core/domain"
)

type recordingService struct {
	mu      sync.Mutex
	events  []domain.AuthEvent
	block   chan struct{}
	failFor string
}

func (s *recordingService) Process(ctx context.Context, ev domain.AuthEvent) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if ev.SessionID == s.failFor {
		return errors.New("insert failed")
	}
	return nil
}

func (s *recordingService) snapshot() []domain.AuthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuthEvent(nil), s.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcher_PreservesPerSessionOrder(t *testing.T) {
	svc := &recordingService{}
	d := NewDispatcher(3, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	const perSession = 20
	sessions := []string{"a", "b", "c", "d", "e"}
	for i := 0; i < perSession; i++ {
		for _, sid := range sessions {
			d.Record(domain.AuthEvent{Type: domain.EventGuardRedirect, SessionID: sid, Target: fmt.Sprint(i)})
		}
	}

	waitFor(t, func() bool { return len(svc.snapshot()) == perSession*len(sessions) })
	cancel()
	d.Wait()

	next := map[string]int{}
	for _, ev := range svc.snapshot() {
		if want := fmt.Sprint(next[ev.SessionID]); ev.Target != want {
			t.Fatalf("session %s: got event %s, want %s", ev.SessionID, ev.Target, want)
		}
		next[ev.SessionID]++
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(0, &recordingService{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("workers = %d, want %d", len(d.workers), defaultWorkers)
	}
	for _, sid := range []string{"", "a", "0f3c9a"} {
		first := d.shardIndex(sid)
		if first < 0 || first >= defaultWorkers {
			t.Fatalf("index %d out of range", first)
		}
		if d.shardIndex(sid) != first {
			t.Fatalf("shard for %q changed", sid)
		}
	}
}

func TestDispatcher_RecordNeverBlocks(t *testing.T) {
	svc := &recordingService{block: make(chan struct{})}
	d := NewDispatcher(1, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer*2; i++ {
			d.Record(domain.AuthEvent{Type: domain.EventLogout, SessionID: "sid"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	cancel()
	d.Wait()
}

func TestDispatcher_ProcessErrorDoesNotStopWorker(t *testing.T) {
	svc := &recordingService{failFor: "bad"}
	d := NewDispatcher(1, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Record(domain.AuthEvent{Type: domain.EventLoginFailed, SessionID: "bad"})
	d.Record(domain.AuthEvent{Type: domain.EventLoginSucceeded, SessionID: "good"})

	waitFor(t, func() bool { return len(svc.snapshot()) == 2 })
	cancel()
	d.Wait()
}
