package redisstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/mohammed-shakir/cartalex/internal/metrics"
)

// creates new client connected to miniredis for testing
func newMini(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := New(ctx, mr.Addr())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestSetGetDel_HappyPath(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rc.Set(ctx, "k1", []byte("v1"), 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := rc.Get(ctx, "k1")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get k1 = %q, %v, %v", got, ok, err)
	}
	if _, ok, err := rc.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get missing = %v, %v; want absent without error", ok, err)
	}

	n, err := rc.Del(ctx, "k1", "missing")
	if err != nil || n != 1 {
		t.Fatalf("Del = %d, %v; want 1", n, err)
	}
}

func TestTTLExpiry(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	if err := rc.Set(ctx, "ttl-key", []byte("v"), 2*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(3 * time.Second)
	if _, ok, _ := rc.Get(ctx, "ttl-key"); ok {
		t.Fatal("expected ttl-key to be absent after expiry")
	}
}

func TestSets(t *testing.T) {
	rc, mr := newMini(t)
	ctx := context.Background()

	if err := rc.SAddWithTTL(ctx, "s", time.Minute, "a", "b", "a"); err != nil {
		t.Fatalf("SAdd: %v", err)
	}
	got, err := rc.SMembers(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Fatalf("members (-want +got):\n%s", diff)
	}
	if ttl := mr.TTL("s"); ttl != time.Minute {
		t.Fatalf("set ttl=%v want 1m", ttl)
	}
}

func TestContextDeadline_IsRespected(t *testing.T) {
	rc, _ := newMini(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rc.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected error on Set with canceled context")
	}
	if _, _, err := rc.Get(ctx, "k"); err == nil {
		t.Fatalf("expected error on Get with canceled context")
	}
	if _, err := rc.Del(ctx, "k"); err == nil {
		t.Fatalf("expected error on Del with canceled context")
	}
}

func TestMetrics_Recorded(t *testing.T) {
	p, err := metrics.Init(metrics.Config{})
	if err != nil {
		t.Fatal(err)
	}
	rc, _ := newMini(t)
	ctx := context.Background()

	_ = rc.Set(ctx, "m1", []byte("x"), time.Minute)
	_, _, _ = rc.Get(ctx, "m1")
	_, _ = rc.Del(ctx, "m1")

	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, op := range []string{"set", "get", "del"} {
		want := `cache_operation_duration_seconds_count{backend="redis",op="` + op + `",result="ok"}`
		if !strings.Contains(body, want) {
			t.Fatalf("missing %s; got:\n%s", want, body)
		}
	}
}
