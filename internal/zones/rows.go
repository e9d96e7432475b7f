package zones

import (
	"fmt"
	"strconv"
)

// SitesFromRows converts site_id, x, y rows into Sites. Drivers differ in
// the numeric types they return.
func SitesFromRows(rows []map[string]any) ([]Site, error) {
	out := make([]Site, 0, len(rows))
	for _, r := range rows {
		id, err := toInt64(r["site_id"])
		if err != nil {
			return nil, fmt.Errorf("site_id: %w", err)
		}
		x, err := toFloat64(r["x"])
		if err != nil {
			return nil, fmt.Errorf("site %d x: %w", id, err)
		}
		y, err := toFloat64(r["y"])
		if err != nil {
			return nil, fmt.Errorf("site %d y: %w", id, err)
		}
		out = append(out, Site{ID: id, X: x, Y: y})
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
