package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/cartalex/internal/catalog"
)

// Middleware wraps a route with the cache layer for its tag.
type Middleware func(tag string) func(http.Handler) http.Handler

// Mount registers every endpoint of the catalog's layer on r.
func (a *API) Mount(r chi.Router, cached Middleware) {
	if cached == nil {
		cached = func(string) func(http.Handler) http.Handler {
			return func(h http.Handler) http.Handler { return h }
		}
	}
	layer := a.cat.Layer()

	r.With(cached(catalog.TagZones)).Get("/getValues/zones", a.ZoneValues)
	r.Get("/getValues/{relation}", func(w http.ResponseWriter, req *http.Request) {
		tag := catalog.ValuesTag(chi.URLParam(req, "relation"))
		cached(tag)(http.HandlerFunc(a.Values)).ServeHTTP(w, req)
	})
	r.With(cached(catalog.TagInfos)).Get("/getInfos/"+layer, a.Infos)

	r.Route("/"+layer, func(r chi.Router) {
		r.With(cached(catalog.TagZones)).Get("/zones", a.ZoneCandidates)
		r.With(cached(catalog.TagDetails)).Get("/{id}/details", a.Details)
		r.Get("/{relation}", func(w http.ResponseWriter, req *http.Request) {
			tag := catalog.CandidatesTag(chi.URLParam(req, "relation"))
			cached(tag)(http.HandlerFunc(a.Candidates)).ServeHTTP(w, req)
		})
	})
}
