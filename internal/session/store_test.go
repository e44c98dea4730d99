package session

import (
	"context"
	"testing"
	"time"

	"github.com/PetoAdam/homenavi/forecast-service/internal/forecast"
	"github.com/PetoAdam/homenavi/forecast-service/internal/models"

	"github.com/robfig/cron/v3"
)

type nopQuerier struct{}

func (nopQuerier) Timeline(context.Context, string) (models.Timeline, error) {
	return models.Timeline{}, nil
}

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	clock := time.Date(2024, 11, 10, 12, 0, 0, 0, time.UTC)
	s := New(ttl, func(string) *forecast.Controller { return forecast.NewController(nopQuerier{}) })
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestCreateAndGet(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	id, ctrl := s.Create()
	if id == "" || ctrl == nil {
		t.Fatal("Create returned empty session")
	}
	got, ok := s.Get(id)
	if !ok || got != ctrl {
		t.Fatal("Get did not return the created controller")
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Get(missing) should fail")
	}
	other, _ := s.Create()
	if other == id {
		t.Error("session ids must be unique")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d", s.Len())
	}
}

func TestExpiryAndSweep(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	var evicted []string
	s.OnEvict(func(id string) { evicted = append(evicted, id) })

	stale, _ := s.Create()
	*clock = clock.Add(40 * time.Second)
	fresh, _ := s.Create()

	*clock = clock.Add(30 * time.Second)
	if _, ok := s.Get(stale); ok {
		t.Fatal("stale session should have expired")
	}
	if _, ok := s.Get(fresh); !ok {
		t.Fatal("fresh session should be alive")
	}

	// The Get above extended fresh by a full ttl.
	*clock = clock.Add(50 * time.Second)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if len(evicted) != 1 || evicted[0] != stale {
		t.Errorf("evicted = %v", evicted)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d", s.Len())
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	var evicted []string
	s.OnEvict(func(id string) { evicted = append(evicted, id) })

	id, _ := s.Create()
	if !s.Delete(id) {
		t.Fatal("Delete returned false")
	}
	if s.Delete(id) {
		t.Error("second Delete should report missing")
	}
	if len(evicted) != 1 {
		t.Errorf("evicted = %v", evicted)
	}
}

func TestScheduleSweep(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	c := cron.New()

	id, err := s.ScheduleSweep(c, "@every 1m")
	if err != nil {
		t.Fatalf("ScheduleSweep() error = %v", err)
	}
	if e := c.Entry(id); e.ID != id {
		t.Errorf("entry %d not registered", id)
	}
	if _, err := s.ScheduleSweep(c, "every now and then"); err == nil {
		t.Error("expected error for invalid schedule")
	}
}
