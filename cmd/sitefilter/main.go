// Command sitefilter drives a FilterCollection against a running site API.
//
//	sitefilter values --config configs/filters.yaml
//	sitefilter ids --select vestiges.periode=Romain --select decouvertes.p.nom=Breccia
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/cartalex/internal/catalog"
	"github.com/mohammed-shakir/cartalex/internal/core/httpclient"
	"github.com/mohammed-shakir/cartalex/internal/facets"
	"github.com/mohammed-shakir/cartalex/internal/facets/apiclient"
	"github.com/mohammed-shakir/cartalex/internal/logger"
)

type options struct {
	api      string
	config   string
	layer    string
	selects  []string
	format   string
	timeout  time.Duration
	pageSize int
	verbose  bool
	errOut   io.Writer
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:          "sitefilter",
		Short:        "Query the excavation-site facets",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.api, "api", envOr("CARTALEX_API", "http://localhost:3001"), "site API base URL")
	pf.StringVar(&o.config, "config", "configs/filters.yaml", "filter configuration file")
	pf.StringVar(&o.layer, "layer", catalog.LayerSites, "map layer")
	pf.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall timeout")
	pf.IntVar(&o.pageSize, "page-size", apiclient.DefaultPageSize, "rows per API page")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	values := &cobra.Command{
		Use:   "values",
		Short: "List every filter with its available values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.errOut = cmd.ErrOrStderr()
			return runValues(cmd.Context(), o, cmd.OutOrStdout())
		},
	}

	ids := &cobra.Command{
		Use:   "ids",
		Short: "Print the sites matching the selections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.errOut = cmd.ErrOrStderr()
			return runIDs(cmd.Context(), o, cmd.OutOrStdout())
		},
	}
	ids.Flags().StringArrayVarP(&o.selects, "select", "s", nil, "selection as filter.subfilter=value (repeatable)")
	ids.Flags().StringVar(&o.format, "format", "ids", "output format: ids or maplibre")

	root.AddCommand(values, ids)
	return root
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (o *options) collection(ctx context.Context) (*facets.FilterCollection, error) {
	cfg, err := facets.LoadConfig(o.config)
	if err != nil {
		return nil, err
	}
	filters, ok := cfg.Layer(o.layer)
	if !ok {
		return nil, fmt.Errorf("layer %q is not configured in %s", o.layer, o.config)
	}

	level := "warn"
	if o.verbose {
		level = "debug"
	}
	zl := logger.Build(logger.Config{Level: level, Console: true, Service: "sitefilter", Component: "cli"}, o.errOut)
	log := logger.NewSlog(&zl)

	cli, err := apiclient.New(o.api, httpclient.NewOutbound(o.timeout),
		apiclient.WithPageSize(o.pageSize), apiclient.WithLogger(log))
	if err != nil {
		return nil, err
	}
	fc := facets.NewFilterCollection(o.layer, filters, cli, cli, log)
	if err := fc.InitFilters(ctx); err != nil {
		return nil, err
	}
	return fc, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func runValues(ctx context.Context, o *options, out io.Writer) error {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()
	fc, err := o.collection(ctx)
	if err != nil {
		return err
	}
	for _, f := range fc.Filters() {
		fmt.Fprintf(out, "%s\n", f.Name)
		for _, s := range f.SubFilters() {
			recs, err := s.Values()
			if err != nil {
				fmt.Fprintf(out, "  %s: unavailable\n", s.Label())
				continue
			}
			vals := make([]string, 0, len(recs))
			for _, r := range recs {
				vals = append(vals, display(r, s))
			}
			fmt.Fprintf(out, "  %s: %s\n", s.Label(), strings.Join(vals, ", "))
		}
	}
	return nil
}

// display picks the value column of a record: the alias when set, else the field.
func display(r facets.Record, s *facets.SubFilter) string {
	key := s.Field
	if s.Alias != "" {
		key = s.Alias
	}
	if v, ok := r[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return "NULL"
}

func runIDs(ctx context.Context, o *options, out io.Writer) error {
	if o.format != "ids" && o.format != "maplibre" {
		return fmt.Errorf("unknown format %q", o.format)
	}
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()
	fc, err := o.collection(ctx)
	if err != nil {
		return err
	}
	for _, sel := range o.selects {
		filter, sub, value, err := parseSelect(sel)
		if err != nil {
			return err
		}
		if err := fc.Check(filter, sub, value); err != nil {
			return err
		}
	}
	res, err := fc.FilteredIDs(ctx)
	if err != nil {
		return err
	}

	if o.format == "maplibre" {
		enc := json.NewEncoder(out)
		return enc.Encode(facets.MapFilter(res, facets.IdentityTranslator{}))
	}
	if res.Unconstrained {
		_, err := fmt.Fprintln(out, "all")
		return err
	}
	for _, id := range res.IDs {
		if _, err := fmt.Fprintln(out, id); err != nil {
			return err
		}
	}
	return nil
}

// parseSelect splits "filter.subfilter=value". The subfilter name may itself
// contain dots (p.nom), so only the first dot separates the filter.
func parseSelect(s string) (filter, sub, value string, err error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", "", fmt.Errorf("selection %q: want filter.subfilter=value", s)
	}
	filter, sub, ok = strings.Cut(key, ".")
	if !ok || filter == "" || sub == "" {
		return "", "", "", fmt.Errorf("selection %q: want filter.subfilter=value", s)
	}
	return filter, sub, value, nil
}
