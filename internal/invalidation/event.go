// Package invalidation defines the change events that purge cached responses.
package invalidation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event announces a row change in a backing-store table.
type Event struct {
	Version int       `json:"version"`
	Op      string    `json:"op"`
	Table   string    `json:"table"`
	TS      time.Time `json:"ts"`
	ID      *int64    `json:"id,omitempty"`
	Source  string    `json:"source,omitempty"`
}

// TableSet reports whether a table is known to the catalog.
type TableSet interface {
	HasTable(table string) bool
}

func (e Event) Validate(tables TableSet) error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	switch e.Op {
	case "insert", "update", "delete":
	default:
		return fmt.Errorf("op must be insert|update|delete")
	}
	if strings.TrimSpace(e.Table) == "" {
		return fmt.Errorf("table is required")
	}
	if tables != nil && !tables.HasTable(e.Table) {
		return fmt.Errorf("unknown table %q", e.Table)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// Key identifies the changed row, or the whole table when no id is set.
func (e Event) Key() string {
	if e.ID == nil {
		return e.Table
	}
	return e.Table + ":" + strconv.FormatInt(*e.ID, 10)
}
