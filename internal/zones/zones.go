// Package zones buckets sites into H3 cells so a spatial zone can act as a
// facet like any other.
package zones

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
)

// Site is a located site; X is longitude and Y latitude (EPSG:4326).
type Site struct {
	ID int64
	X  float64
	Y  float64
}

// Zone is one cell that contains at least one site.
type Zone struct {
	Cell  string `json:"zone"`
	Res   int    `json:"res"`
	Sites int    `json:"sites"`
}

// BBox is a lon/lat rectangle.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

func ValidateRes(res int) error {
	if res < 0 || res > 15 {
		return apierr.Validation("res", "invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

func cellOf(s Site, res int) (h3.Cell, error) {
	c, err := h3.LatLngToCell(h3.LatLng{Lat: s.Y, Lng: s.X}, res)
	if err != nil {
		return 0, fmt.Errorf("h3 cell for site %d: %w", s.ID, err)
	}
	return c, nil
}

// Zones returns the distinct cells at res that contain sites, sorted by cell.
func Zones(sites []Site, res int) ([]Zone, error) {
	if err := ValidateRes(res); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, s := range sites {
		c, err := cellOf(s, res)
		if err != nil {
			return nil, err
		}
		counts[c.String()]++
	}
	out := make([]Zone, 0, len(counts))
	for cell, n := range counts {
		out = append(out, Zone{Cell: cell, Res: res, Sites: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out, nil
}

// ParseCells validates cell tokens. Cells may mix resolutions.
func ParseCells(tokens []string) ([]h3.Cell, error) {
	out := make([]h3.Cell, 0, len(tokens))
	for _, tok := range tokens {
		var c h3.Cell
		if err := c.UnmarshalText([]byte(tok)); err != nil || !c.IsValid() {
			return nil, apierr.Validation("cell", "invalid h3 cell %q", tok)
		}
		out = append(out, c)
	}
	return out, nil
}

// SitesIn returns the ids of sites inside any of cells, sorted ascending.
func SitesIn(sites []Site, cells []h3.Cell) ([]int64, error) {
	byRes := map[int]map[h3.Cell]struct{}{}
	for _, c := range cells {
		r := c.Resolution()
		if byRes[r] == nil {
			byRes[r] = map[h3.Cell]struct{}{}
		}
		byRes[r][c] = struct{}{}
	}

	var out []int64
	for _, s := range sites {
		for r, set := range byRes {
			c, err := cellOf(s, r)
			if err != nil {
				return nil, err
			}
			if _, ok := set[c]; ok {
				out = append(out, s.ID)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// CellsForBBox covers the rectangle with cells at res.
func CellsForBBox(bb BBox, res int) ([]h3.Cell, error) {
	if err := ValidateRes(res); err != nil {
		return nil, err
	}
	if !(bb.X2 > bb.X1 && bb.Y2 > bb.Y1) {
		return nil, apierr.Validation("bbox", "bbox must satisfy x2>x1 and y2>y1")
	}
	if bb.X1 < -180 || bb.X2 > 180 || bb.Y1 < -90 || bb.Y2 > 90 {
		return nil, apierr.Validation("bbox", "bbox out of range")
	}
	outer := h3.GeoLoop{
		{Lat: bb.Y1, Lng: bb.X1},
		{Lat: bb.Y1, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X2},
		{Lat: bb.Y2, Lng: bb.X1},
	}
	cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}
	return cells, nil
}

// ParseBBox reads "x1,y1,x2,y2" with an optional trailing ",EPSG:4326".
func ParseBBox(raw string) (BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) == 5 {
		if srid := strings.ToUpper(strings.TrimSpace(parts[4])); srid != "EPSG:4326" {
			return BBox{}, apierr.Validation("bbox", "only EPSG:4326 is supported (got %q)", srid)
		}
		parts = parts[:4]
	}
	if len(parts) != 4 {
		return BBox{}, apierr.Validation("bbox", "expected x1,y1,x2,y2[,EPSG:4326]")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, apierr.Validation("bbox", "coordinate %d is not a number", i+1)
		}
		v[i] = f
	}
	return BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}
