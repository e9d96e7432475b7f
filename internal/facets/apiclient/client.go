// Package apiclient fetches facet values and candidate sets from the site API.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/roaring64"

	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
	"github.com/mohammed-shakir/cartalex/internal/core/observability"
	"github.com/mohammed-shakir/cartalex/internal/facets"
)

const DefaultPageSize = 500

// maxPages stops a server that never returns a short page.
const maxPages = 10000

type Client struct {
	base     *url.URL
	hc       *http.Client
	pageSize int
	log      *slog.Logger
}

type Option func(*Client)

func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func New(base string, hc *http.Client, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", base)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{base: u, hc: hc, pageSize: DefaultPageSize, log: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

var (
	_ facets.ValueFetcher     = (*Client)(nil)
	_ facets.CandidateFetcher = (*Client)(nil)
)

// FetchValues reads every page of GET /getValues/{relation}.
func (c *Client) FetchValues(ctx context.Context, q facets.ValuesQuery) ([]facets.Record, error) {
	start := time.Now()
	params := url.Values{}
	params.Set("field", q.Field)
	for k, v := range map[string]string{"fromTable": q.FromTable, "alias": q.Alias, "order": q.Order} {
		if v != "" {
			params.Set(k, v)
		}
	}
	var out []facets.Record
	err := c.pages(ctx, "values", []string{"getValues", q.Relation}, params, func(page []facets.Record) error {
		out = append(out, page...)
		return nil
	})
	observability.ObserveFacetFetch("values", err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []facets.Record{}
	}
	return out, nil
}

// FetchCandidates reads every page of GET /{layer}/{relation} and collects
// the site_id of each row.
func (c *Client) FetchCandidates(ctx context.Context, q facets.CandidateQuery) (*roaring64.Bitmap, error) {
	start := time.Now()
	bm := roaring64.New()
	rel := []string{q.Layer, q.Relation}
	err := c.pages(ctx, "candidates", rel, q.Params, func(page []facets.Record) error {
		for _, rec := range page {
			id, err := siteID(rec)
			if err != nil {
				return apierr.Fetch("candidates", c.endpoint(rel, nil), err)
			}
			bm.Add(id)
		}
		return nil
	})
	observability.ObserveFacetFetch("candidates", err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return bm, nil
}

func (c *Client) pages(ctx context.Context, op string, segs []string, params url.Values, each func([]facets.Record) error) error {
	q := url.Values{}
	for k, vs := range params {
		if k == "limit" || k == "offset" {
			continue
		}
		q[k] = append([]string(nil), vs...)
	}
	q.Set("limit", strconv.Itoa(c.pageSize))
	for n, offset := 0, 0; n < maxPages; n, offset = n+1, offset+c.pageSize {
		q.Set("offset", strconv.Itoa(offset))
		page, err := c.get(ctx, op, c.endpoint(segs, q))
		if err != nil {
			return err
		}
		if err := each(page); err != nil {
			return err
		}
		if len(page) < c.pageSize {
			return nil
		}
	}
	return apierr.Fetch(op, c.endpoint(segs, nil), fmt.Errorf("more than %d pages", maxPages))
}

func (c *Client) endpoint(segs []string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/")
	raw := u.Path
	for _, s := range segs {
		u.Path += "/" + s
		raw += "/" + url.PathEscape(s)
	}
	u.RawPath = raw
	u.RawQuery = ""
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) get(ctx context.Context, op, target string) ([]facets.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apierr.Fetch(op, target, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, apierr.Fetch(op, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		c.log.DebugContext(ctx, "api error response", "url", target, "status", resp.StatusCode, "body", string(b))
		return nil, &apierr.FetchError{Op: op, URL: target, Status: resp.StatusCode, Err: apiMessage(b)}
	}

	var page []facets.Record
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&page); err != nil {
		return nil, apierr.Fetch(op, target, fmt.Errorf("decode body: %w", err))
	}
	return page, nil
}

func apiMessage(body []byte) error {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("%s", e.Error)
	}
	return nil
}

func siteID(rec facets.Record) (uint64, error) {
	v, ok := rec["site_id"]
	if !ok {
		return 0, fmt.Errorf("row without site_id")
	}
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		s = t
	default:
		return 0, fmt.Errorf("site_id has type %T", v)
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("site_id %q is not a non-negative integer", s)
	}
	return uint64(id), nil
}
