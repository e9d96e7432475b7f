package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/cartalex/internal/catalog"
	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
	"github.com/mohammed-shakir/cartalex/internal/predicate"
	"github.com/mohammed-shakir/cartalex/internal/zones"
)

func (a *API) resolution(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("res"))
	if raw == "" {
		return a.zoneRes, nil
	}
	res, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierr.Validation("res", "resolution must be an integer, got %q", raw)
	}
	return res, zones.ValidateRes(res)
}

func (a *API) sites(r *http.Request) ([]zones.Site, error) {
	rows, err := a.db.Query(r.Context(), catalog.ZoneSitesSQL)
	if err != nil {
		return nil, fmt.Errorf("zone sites: %w", err)
	}
	return zones.SitesFromRows(rows)
}

// ZoneValues serves GET /getValues/zones?res=N: the H3 cells holding sites.
func (a *API) ZoneValues(w http.ResponseWriter, r *http.Request) {
	res, err := a.resolution(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	sites, err := a.sites(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	zs, err := zones.Zones(sites, res)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paginate(zs, predicate.ParsePage(r.URL.Query())))
}

type candidate struct {
	SiteID int64 `json:"site_id"`
}

// ZoneCandidates serves GET /{layer}/zones?cell=a|b or ?bbox=x1,y1,x2,y2.
func (a *API) ZoneCandidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		cells []h3.Cell
		err   error
	)
	switch {
	case q.Get("cell") != "":
		var toks []string
		for _, v := range q["cell"] {
			for t := range strings.SplitSeq(v, predicate.Sep) {
				if t = strings.TrimSpace(t); t != "" {
					toks = append(toks, t)
				}
			}
		}
		cells, err = zones.ParseCells(toks)
	case q.Get("bbox") != "":
		var res int
		if res, err = a.resolution(r); err == nil {
			var bb zones.BBox
			if bb, err = zones.ParseBBox(q.Get("bbox")); err == nil {
				cells, err = zones.CellsForBBox(bb, res)
			}
		}
	default:
		err = apierr.Validation("", "cell or bbox is required")
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	sites, err := a.sites(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ids, err := zones.SitesIn(sites, cells)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]candidate, len(ids))
	for i, id := range ids {
		out[i] = candidate{SiteID: id}
	}
	writeJSON(w, http.StatusOK, paginate(out, predicate.ParsePage(q)))
}

func paginate[T any](items []T, p predicate.Page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit < end-p.Offset {
		end = p.Offset + p.Limit
	}
	return items[p.Offset:end]
}
