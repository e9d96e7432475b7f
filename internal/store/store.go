// Package store runs read queries against the relational backing store.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/cartalex/internal/core/observability"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Querier is the read surface the HTTP API needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)
	Ping(ctx context.Context) error
	Close() error
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

type Options struct {
	Driver       string
	URL          string
	MaxConns     int
	QueryTimeout time.Duration
}

// Open connects the configured driver.
func Open(ctx context.Context, o Options) (Querier, error) {
	var (
		q   Querier
		err error
	)
	switch o.Driver {
	case DriverPostgres, "":
		q, err = NewPostgres(ctx, o.URL, o.MaxConns)
	case DriverSQLite:
		q, err = NewSQLite(o.URL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", o.Driver)
	}
	if err != nil {
		return nil, err
	}
	if o.QueryTimeout > 0 {
		q = &timeoutQuerier{Querier: q, timeout: o.QueryTimeout}
	}
	return q, nil
}

type timeoutQuerier struct {
	Querier
	timeout time.Duration
}

func (t *timeoutQuerier) Query(ctx context.Context, sql string, args ...any) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Querier.Query(ctx, sql, args...)
}

func observe(driver string, start time.Time, err error) {
	observability.ObserveDBQuery(driver, err, time.Since(start).Seconds())
}
