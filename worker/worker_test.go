package worker

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"econbot/metrics"
)

func TestRunOnceContinuesPastFailures(t *testing.T) {
	m := metrics.NewCollector(nil)
	var ran []string
	task := func(name string, n int, err error) Task {
		return Task{Name: name, Run: func(context.Context) (int, error) {
			ran = append(ran, name)
			return n, err
		}}
	}
	w := New(time.Minute, nil, m,
		task("expire_listings", 2, nil),
		task("default_loans", 0, errors.New("db down")),
		task("purge_cooldowns", 5, nil),
	)

	counts := w.RunOnce(context.Background())
	if len(ran) != 3 {
		t.Fatalf("ran %v", ran)
	}
	if counts["expire_listings"] != 2 || counts["purge_cooldowns"] != 5 {
		t.Fatalf("counts = %v", counts)
	}
	if _, ok := counts["default_loans"]; ok {
		t.Fatal("failed task reported a count")
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`econbot_maintenance_items_total{task="expire_listings"} 2`,
		`econbot_maintenance_items_total{task="purge_cooldowns"} 5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
	if strings.Contains(body, `task="default_loans"`) {
		t.Error("failed task was counted")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan struct{}, 8)
	w := New(time.Millisecond, nil, nil, Task{Name: "tick", Run: func(context.Context) (int, error) {
		select {
		case ticks <- struct{}{}:
		default:
		}
		return 1, nil
	}})

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never ticked")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker ignored cancellation")
	}
}
