package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Readiness pings every dependency concurrently, all sharing one timeout.
// Ping errors are reported as "unreachable" so driver messages never leak.
func Readiness(timeout time.Duration, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		out := readiness{Status: "ready", Checks: make(map[string]string, len(deps))}
		var mu sync.Mutex
		var g errgroup.Group
		for name, p := range deps {
			g.Go(func() error {
				state := "ok"
				if err := p.Ping(ctx); err != nil {
					state = "unreachable"
				}
				mu.Lock()
				out.Checks[name] = state
				if state != "ok" {
					out.Status = "not_ready"
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
