package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestLiveness(t *testing.T) {
	rr := httptest.NewRecorder()
	Liveness()(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q", ct)
	}
}

func TestReadiness(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("dial tcp 10.0.0.5:5432: connection refused") })
	slow := pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	cases := []struct {
		name   string
		deps   map[string]Pinger
		code   int
		status string
		checks map[string]string
	}{
		{"no deps", nil, http.StatusOK, "ready", map[string]string{}},
		{"database up", map[string]Pinger{"database": up}, http.StatusOK, "ready", map[string]string{"database": "ok"}},
		{
			"redis down", map[string]Pinger{"database": up, "redis": down},
			http.StatusServiceUnavailable, "not_ready",
			map[string]string{"database": "ok", "redis": "unreachable"},
		},
		{
			"timeout", map[string]Pinger{"database": slow},
			http.StatusServiceUnavailable, "not_ready",
			map[string]string{"database": "unreachable"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Readiness(50*time.Millisecond, tc.deps)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rr.Code != tc.code {
				t.Fatalf("status=%d want %d", rr.Code, tc.code)
			}
			if strings.Contains(rr.Body.String(), "refused") {
				t.Fatalf("driver error leaked: %s", rr.Body.String())
			}
			var got readiness
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if got.Status != tc.status {
				t.Fatalf("status field=%q want %q", got.Status, tc.status)
			}
			if diff := cmp.Diff(tc.checks, got.Checks); diff != "" {
				t.Fatalf("checks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
