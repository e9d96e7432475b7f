package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/cartalex/internal/core/observability"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func ok(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }

func TestCORS(t *testing.T) {
	h := CORS("http://localhost:3000")(http.HandlerFunc(ok))

	cases := []struct {
		origin string
		method string
		want   int
		allow  string
	}{
		{"", http.MethodGet, http.StatusOK, ""},
		{"http://localhost:3000", http.MethodGet, http.StatusOK, "http://localhost:3000"},
		{"http://localhost:3000", http.MethodOptions, http.StatusNoContent, "http://localhost:3000"},
		{"http://evil.example", http.MethodGet, http.StatusForbidden, ""},
	}
	for _, c := range cases {
		req := httptest.NewRequest(c.method, "/getValues/periodes", nil)
		if c.origin != "" {
			req.Header.Set("Origin", c.origin)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != c.want {
			t.Fatalf("origin=%q method=%s status=%d want %d", c.origin, c.method, rr.Code, c.want)
		}
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != c.allow {
			t.Fatalf("origin=%q allow=%q want %q", c.origin, got, c.allow)
		}
	}
}

func TestRecover_WritesGenericJSON(t *testing.T) {
	h := Recover(discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("db exploded: password=secret")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Body.String() != internalErrorBody {
		t.Fatalf("body=%q leaks detail or is not generic", rr.Body.String())
	}
}

func TestLogging_PropagatesRequestID(t *testing.T) {
	h := Logging(discard())(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "abc" {
		t.Fatalf("X-Request-ID=%q want abc", got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	if got := rr.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Fatalf("generated X-Request-ID=%q", got)
	}
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := observability.Init(reg); err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	r.Use(Metrics())
	r.Get("/getValues/{relation}", ok)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/getValues/periodes", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/getValues/vestiges", nil))

	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	if !strings.Contains(body, `http_requests_total{method="GET",route="/getValues/{relation}",status="200"}`) {
		t.Fatalf("missing route-pattern series:\n%s", body)
	}
	if strings.Contains(body, `route="/getValues/periodes"`) {
		t.Fatalf("raw path leaked into labels:\n%s", body)
	}
}
