package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/mohammed-shakir/cartalex/internal/catalog"
	"github.com/mohammed-shakir/cartalex/internal/store"
	"github.com/mohammed-shakir/cartalex/internal/store/storetest"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newRouter(t *testing.T, db store.Querier) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	New(catalog.Sites(), db, discard(), 9).Mount(r, nil)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decodeRows(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v (%s)", err, rr.Body.String())
	}
	return out
}

func siteIDs(rows []map[string]any) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["site_id"].(float64))
	}
	return out
}

func TestCandidates_FilterBySelections(t *testing.T) {
	h := newRouter(t, storetest.New(t))

	cases := []struct {
		target string
		want   []float64
	}{
		{"/sitesFouilles/vestiges?periode=Romain", []float64{1, 3}},
		{"/sitesFouilles/vestiges?periode=Romain%7CByzantin&vestiges.floor=annee%7C120", []float64{2, 3, 4}},
		{"/sitesFouilles/decouvertes?p.nom=Breccia", []float64{1, 3}},
		{"/sitesFouilles/bibliographies?auteur=Adriani", []float64{2}},
		{"/sitesFouilles/vestiges?periode=Inconnu", []float64{}},
	}
	for _, c := range cases {
		got := siteIDs(decodeRows(t, get(t, h, c.target)))
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", c.target, diff)
		}
	}
}

func TestCandidates_EmptyResultIsJSONArray(t *testing.T) {
	h := newRouter(t, storetest.New(t))
	rr := get(t, h, "/sitesFouilles/vestiges?periode=Inconnu")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("body=%q want []", rr.Body.String())
	}
}

func TestValues_DistinctOrdered(t *testing.T) {
	h := newRouter(t, storetest.New(t))
	rows := decodeRows(t, get(t, h, "/getValues/periodes?field=periode&order=debut"))
	var got []string
	for _, r := range rows {
		got = append(got, r["periode"].(string))
	}
	if diff := cmp.Diff([]string{"Ptolemaique", "Romain", "Byzantin"}, got); diff != "" {
		t.Fatalf("values (-want +got):\n%s", diff)
	}

	rows = decodeRows(t, get(t, h, "/getValues/decouvertes?field=nom&fromTable=personnes&alias=inventeur&limit=2"))
	if len(rows) != 2 || rows[0]["inventeur"] != "Adriani" {
		t.Fatalf("aliased page = %v", rows)
	}
}

func TestErrors_StatusMapping(t *testing.T) {
	h := newRouter(t, storetest.New(t))
	cases := []struct {
		target string
		want   int
	}{
		{"/getValues/unknown?field=x", http.StatusNotFound},
		{"/getValues/periodes", http.StatusBadRequest},
		{"/getValues/periodes?field=periode;DROP", http.StatusBadRequest},
		{"/sitesFouilles/unknown", http.StatusNotFound},
		{"/sitesFouilles/vestiges?floor=annee", http.StatusBadRequest},
		{"/sitesFouilles/vestiges?nom_document=x", http.StatusBadRequest},
		{"/sitesFouilles/abc/details", http.StatusBadRequest},
		{"/sitesFouilles/999/details", http.StatusNotFound},
		{"/sitesFouilles/zones", http.StatusBadRequest},
		{"/getValues/zones?res=99", http.StatusBadRequest},
	}
	for _, c := range cases {
		rr := get(t, h, c.target)
		if rr.Code != c.want {
			t.Fatalf("%s status=%d want %d (body %s)", c.target, rr.Code, c.want, rr.Body.String())
		}
	}
}

type failingDB struct{}

func (failingDB) Query(context.Context, string, ...any) ([]store.Row, error) {
	return nil, errors.New(`pq: relation "secret_table" does not exist`)
}
func (failingDB) Ping(context.Context) error { return nil }
func (failingDB) Close() error               { return nil }

func TestErrors_InternalDetailNotLeaked(t *testing.T) {
	h := newRouter(t, failingDB{})
	for _, target := range []string{
		"/sitesFouilles/vestiges?periode=Romain",
		"/getValues/periodes?field=periode",
		"/getInfos/sitesFouilles",
		"/sitesFouilles/1/details",
		"/getValues/zones",
	} {
		rr := get(t, h, target)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s status=%d", target, rr.Code)
		}
		if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"Internal Server Error"}` {
			t.Fatalf("%s body=%s", target, got)
		}
	}
}

func TestDetails(t *testing.T) {
	h := newRouter(t, storetest.New(t))
	rr := get(t, h, "/sitesFouilles/3/details")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var got struct {
		Details        map[string]any   `json:"details"`
		Vestiges       []map[string]any `json:"vestiges"`
		Bibliographies []map[string]any `json:"bibliographies"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Details["num_tkaczow"] != "T3" {
		t.Fatalf("details=%v", got.Details)
	}
	var kinds []string
	for _, v := range got.Vestiges {
		kinds = append(kinds, v["caracterisation"].(string))
	}
	if diff := cmp.Diff([]string{"Citerne", "Mur"}, kinds); diff != "" {
		t.Fatalf("vestiges (-want +got):\n%s", diff)
	}
	if len(got.Bibliographies) != 1 || got.Bibliographies[0]["nom_document"] != "Rapport 1907" {
		t.Fatalf("bibliographies=%v", got.Bibliographies)
	}

	rr = get(t, h, "/sitesFouilles/5/details")
	if !strings.Contains(rr.Body.String(), `"vestiges":[]`) {
		t.Fatalf("site without finds must carry empty arrays: %s", rr.Body.String())
	}
}

func TestInfos_FixedAlias(t *testing.T) {
	h := newRouter(t, storetest.New(t))
	rows := decodeRows(t, get(t, h, "/getInfos/sitesFouilles?num_tkaczow=T2"))
	if len(rows) != 1 || rows[0]["inventeur"] != "Adriani" {
		t.Fatalf("infos=%v", rows)
	}
}

func TestZones_ValuesThenCandidates(t *testing.T) {
	h := newRouter(t, storetest.New(t))

	zs := decodeRows(t, get(t, h, "/getValues/zones?res=0"))
	if len(zs) != 1 || zs[0]["sites"].(float64) != 4 {
		t.Fatalf("res 0 zones=%v (site 5 has no coordinates)", zs)
	}

	cell := zs[0]["zone"].(string)
	got := siteIDs(decodeRows(t, get(t, h, "/sitesFouilles/zones?cell="+cell)))
	if diff := cmp.Diff([]float64{1, 2, 3, 4}, got); diff != "" {
		t.Fatalf("zone candidates (-want +got):\n%s", diff)
	}

	page := siteIDs(decodeRows(t, get(t, h, "/sitesFouilles/zones?cell="+cell+"&limit=3&offset=3")))
	if diff := cmp.Diff([]float64{4}, page); diff != "" {
		t.Fatalf("paged zone candidates (-want +got):\n%s", diff)
	}

	bbox := siteIDs(decodeRows(t, get(t, h, "/sitesFouilles/zones?bbox=29.80,31.10,30.00,31.30&res=7")))
	if len(bbox) == 0 {
		t.Fatal("bbox covering Alexandria returned no sites")
	}
}

func TestZones_LimitNearMaxIntReturnsRemainder(t *testing.T) {
	h := newRouter(t, storetest.New(t))
	huge := "&limit=9223372036854775807"

	if zs := decodeRows(t, get(t, h, "/getValues/zones?res=0"+huge)); len(zs) != 1 {
		t.Fatalf("zones=%v", zs)
	}
	if zs := decodeRows(t, get(t, h, "/getValues/zones?res=0"+huge+"&offset=1")); len(zs) != 0 {
		t.Fatalf("zones past the end=%v", zs)
	}

	cell := decodeRows(t, get(t, h, "/getValues/zones?res=0"))[0]["zone"].(string)
	got := siteIDs(decodeRows(t, get(t, h, "/sitesFouilles/zones?cell="+cell+huge+"&offset=1")))
	if diff := cmp.Diff([]float64{2, 3, 4}, got); diff != "" {
		t.Fatalf("zone candidates (-want +got):\n%s", diff)
	}
}
