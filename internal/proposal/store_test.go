package proposal

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCreateAndGet(t *testing.T) {
	s := NewStore(0)
	args := map[string]any{"output_path": "/tmp/x.csv"}

	id := s.Create("export_data", args)
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	p, ok := s.Get(id)
	if !ok {
		t.Fatal("expected proposal to be stored")
	}
	if p.Capability != "export_data" {
		t.Errorf("expected capability=export_data, got %s", p.Capability)
	}
	if p.Args["output_path"] != "/tmp/x.csv" {
		t.Errorf("unexpected args: %v", p.Args)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestIDsAreFresh(t *testing.T) {
	s := NewStore(0)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.Create("update_thresholds", nil)
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestRemoveIsAtMostOnce(t *testing.T) {
	s := NewStore(0)
	id := s.Create("export_data", nil)

	if _, ok := s.Remove(id); !ok {
		t.Fatal("first remove should succeed")
	}
	if _, ok := s.Remove(id); ok {
		t.Fatal("second remove should observe absence")
	}
	if _, ok := s.Get(id); ok {
		t.Fatal("removed proposal should be unreachable")
	}
}

func TestRemoveRaceHasOneWinner(t *testing.T) {
	s := NewStore(0)

	for i := 0; i < 50; i++ {
		id := s.Create("export_data", nil)

		const callers = 8
		var wg sync.WaitGroup
		wins := make(chan bool, callers)

		for j := 0; j < callers; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok := s.Remove(id)
				wins <- ok
			}()
		}
		wg.Wait()
		close(wins)

		won := 0
		for ok := range wins {
			if ok {
				won++
			}
		}
		if won != 1 {
			t.Fatalf("iteration %d: expected exactly one winner, got %d", i, won)
		}
	}
}

func TestConcurrentCreateRemoveSweep(t *testing.T) {
	s := NewStore(0)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			id := s.Create("update_thresholds", nil)
			s.Remove(id)
		}()
		go func() {
			defer wg.Done()
			s.Create("export_data", map[string]any{"format": "csv"})
		}()
		go func() {
			defer wg.Done()
			s.SweepExpired(0)
			s.List()
		}()
	}
	wg.Wait()
}

func TestSweepExpired(t *testing.T) {
	s := NewStore(time.Hour)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	old := s.Create("export_data", nil)
	s.now = func() time.Time { return base.Add(30 * time.Minute) }
	fresh := s.Create("update_thresholds", nil)

	// Just past the TTL for the first proposal only.
	s.now = func() time.Time { return base.Add(time.Hour + time.Second) }

	if n := s.SweepExpired(0); n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}
	if _, ok := s.Get(old); ok {
		t.Error("expired proposal still reachable")
	}
	if _, ok := s.Get(fresh); !ok {
		t.Error("fresh proposal swept early")
	}
}

func TestSweepExplicitMaxAge(t *testing.T) {
	s := NewStore(time.Hour)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	s.Create("export_data", nil)

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	if n := s.SweepExpired(time.Minute); n != 1 {
		t.Fatalf("expected sweep with explicit max age to remove 1, got %d", n)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := NewStore(0)
	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * time.Minute
		s.now = func() time.Time { return base.Add(offset) }
		s.Create("export_data", map[string]any{"n": i})
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 proposals, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Error("expected newest-first ordering")
		}
	}
}

func TestRunSweeperStopsOnCancel(t *testing.T) {
	s := NewStore(time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 5*time.Millisecond)
		close(done)
	}()

	s.Create("export_data", nil)
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}

	if s.Len() != 0 {
		t.Errorf("expected sweeper to expire proposals, %d left", s.Len())
	}
}
