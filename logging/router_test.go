package logging_test

import (
	"context"
	"testing"
	"time"

	"broadside/server/logging"
	"broadside/server/logging/sinks"
)

func newMemoryRouter(cfg logging.Config) (*logging.Router, *sinks.MemorySink) {
	cfg.EnabledSinks = []string{"memory"}
	memory := sinks.NewMemorySink()
	router := logging.NewRouter(logging.ClockFunc(func() time.Time {
		return time.UnixMilli(1_000_000)
	}), cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	return router, memory
}

func TestRouterSkipsSinksNotEnabled(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = []string{"console"}
	memory := sinks.NewMemorySink()
	router := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})

	router.Publish(context.Background(), logging.Event{Type: "combat.damage", Severity: logging.SeverityInfo})
	router.Close(context.Background())

	if events := memory.Events(); len(events) != 0 {
		t.Fatalf("disabled sink received %d events", len(events))
	}
	if router.Sink("memory") != nil {
		t.Fatalf("disabled sink registered a worker")
	}
}

func TestRouterDeliversEventsToSinks(t *testing.T) {
	cfg := logging.DefaultConfig()
	router, memory := newMemoryRouter(cfg)

	router.Publish(context.Background(), logging.Event{
		Type:  "combat.damage",
		Tick:  7,
		Actor: logging.ShipRef("ship-1"),
	})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("sink received %d events, want 1", len(events))
	}
	if events[0].Type != "combat.damage" || events[0].Tick != 7 {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if events[0].Time.IsZero() {
		t.Fatalf("router did not stamp the clock time")
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo
	router, memory := newMemoryRouter(cfg)

	router.Publish(context.Background(), logging.Event{Type: "debug.noise", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "combat.damage", Severity: logging.SeverityInfo})
	router.Close(context.Background())

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("sink received %d events, want only the info one", len(events))
	}
	if events[0].Type != "combat.damage" {
		t.Fatalf("wrong event survived the filter: %+v", events[0])
	}
}

func TestRouterInjectsConfiguredFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"region": "test-sea", "shard": 1}
	router, memory := newMemoryRouter(cfg)

	router.Publish(context.Background(), logging.Event{
		Type:     "lifecycle.join",
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"shard": 9},
	})
	router.Close(context.Background())

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("sink received %d events", len(events))
	}
	if events[0].Extra["region"] != "test-sea" {
		t.Fatalf("configured field missing: %+v", events[0].Extra)
	}
	if events[0].Extra["shard"] != 9 {
		t.Fatalf("event field overwritten by config: %+v", events[0].Extra)
	}
}

func TestRouterDropsWithoutBlockingWhenSaturated(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.BufferSize = 4
	router, _ := newMemoryRouter(cfg)

	const published = 1000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < published; i++ {
			router.Publish(context.Background(), logging.Event{Type: "flood", Severity: logging.SeverityInfo})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("publish blocked on a saturated queue")
	}
	router.Close(context.Background())

	stats := router.Stats()
	if stats.EventsTotal+stats.DroppedTotal != published {
		t.Fatalf("events %d + dropped %d != published %d", stats.EventsTotal, stats.DroppedTotal, published)
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	router, memory := newMemoryRouter(logging.DefaultConfig())
	router.Close(context.Background())

	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityInfo})
	if events := memory.Events(); len(events) != 0 {
		t.Fatalf("closed router forwarded %d events", len(events))
	}
}

func TestWithFieldsStampsEveryEvent(t *testing.T) {
	var got logging.Event
	base := logging.PublisherFunc(func(ctx context.Context, event logging.Event) {
		got = event
	})
	pub := logging.WithFields(base, map[string]any{"ship": "ship-1"})

	pub.Publish(context.Background(), logging.Event{Type: "combat.fired"})
	if got.Extra["ship"] != "ship-1" {
		t.Fatalf("field not stamped: %+v", got.Extra)
	}

	pub.Publish(context.Background(), logging.Event{Type: "combat.fired", Extra: map[string]any{"ship": "other"}})
	if got.Extra["ship"] != "other" {
		t.Fatalf("existing field overwritten: %+v", got.Extra)
	}
}
