// Package httpapi serves the value, candidate, info, details and zone
// endpoints over the relation catalog.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mohammed-shakir/cartalex/internal/catalog"
	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
	"github.com/mohammed-shakir/cartalex/internal/store"
)

type API struct {
	cat     *catalog.Catalog
	db      store.Querier
	log     *slog.Logger
	zoneRes int
}

func New(cat *catalog.Catalog, db store.Querier, log *slog.Logger, zoneRes int) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{cat: cat, db: db, log: log, zoneRes: zoneRes}
}

func (a *API) Catalog() *catalog.Catalog { return a.cat }

const internalError = "Internal Server Error"

// fail writes the error response. Server-side detail, SQL errors included,
// stays in the log.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apierr.Status(err)
	if status >= http.StatusInternalServerError {
		a.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, status, map[string]string{"error": internalError})
		return
	}
	a.log.DebugContext(r.Context(), "request rejected",
		"path", r.URL.Path, "status", status, "err", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func rowsOrEmpty(rows []store.Row) []store.Row {
	if rows == nil {
		return []store.Row{}
	}
	return rows
}
