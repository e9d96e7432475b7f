package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/cartalex/internal/catalog"
	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
	mylog "github.com/mohammed-shakir/cartalex/internal/logger"
	"github.com/mohammed-shakir/cartalex/internal/predicate"
	"github.com/mohammed-shakir/cartalex/internal/store"
)

// Values serves GET /getValues/{relation}: the distinct values of one field.
func (a *API) Values(w http.ResponseWriter, r *http.Request) {
	relation := chi.URLParam(r, "relation")
	r = r.WithContext(mylog.WithRelation(r.Context(), relation))

	src, err := a.cat.Values(relation)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	d, err := predicate.ParseDistinct(q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sql, args, err := a.cat.ValuesSQL(src, d, predicate.ParsePage(q))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rows, err := a.db.Query(r.Context(), sql, args...)
	if err != nil {
		a.fail(w, r, fmt.Errorf("values %s: %w", relation, err))
		return
	}
	writeJSON(w, http.StatusOK, rowsOrEmpty(rows))
}

// Candidates serves GET /{layer}/{relation}: the site ids matching the
// request's selections.
func (a *API) Candidates(w http.ResponseWriter, r *http.Request) {
	relation := chi.URLParam(r, "relation")
	src, err := a.cat.Candidates(relation)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.serveCandidates(w, r.WithContext(mylog.WithRelation(r.Context(), relation)), src)
}

// Infos serves GET /getInfos/{layer}.
func (a *API) Infos(w http.ResponseWriter, r *http.Request) {
	a.serveCandidates(w, r, a.cat.Infos())
}

func (a *API) serveCandidates(w http.ResponseWriter, r *http.Request, src catalog.CandidateSource) {
	q := r.URL.Query()
	p, err := predicate.ParseParams(q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sql, args, err := src.SQL(p, predicate.ParsePage(q))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rows, err := a.db.Query(r.Context(), sql, args...)
	if err != nil {
		a.fail(w, r, fmt.Errorf("candidates %s: %w", src.Name, err))
		return
	}
	writeJSON(w, http.StatusOK, rowsOrEmpty(rows))
}

type siteDetails struct {
	Details        store.Row   `json:"details"`
	Vestiges       []store.Row `json:"vestiges"`
	Bibliographies []store.Row `json:"bibliographies"`
}

// Details serves GET /{layer}/{id}/details: the popup data of one site.
func (a *API) Details(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		a.fail(w, r, apierr.Validation("id", "site id must be an integer, got %q", raw))
		return
	}

	var site, vestiges, biblio []store.Row
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		site, err = a.db.Query(ctx, catalog.DetailsSiteSQL, id)
		return err
	})
	g.Go(func() (err error) {
		vestiges, err = a.db.Query(ctx, catalog.DetailsVestigesSQL, id)
		return err
	})
	g.Go(func() (err error) {
		biblio, err = a.db.Query(ctx, catalog.DetailsBibliographiesSQL, id)
		return err
	})
	if err := g.Wait(); err != nil {
		a.fail(w, r, fmt.Errorf("details %d: %w", id, err))
		return
	}
	if len(site) == 0 {
		a.fail(w, r, apierr.NotFound("site", raw))
		return
	}
	writeJSON(w, http.StatusOK, siteDetails{
		Details:        site[0],
		Vestiges:       rowsOrEmpty(vestiges),
		Bibliographies: rowsOrEmpty(biblio),
	})
}
