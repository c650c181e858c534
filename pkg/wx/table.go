// Package wx holds the observation data model shared by the catalog,
// the bulk downloader and the imputation pipeline: stations, the
// column-typed observation table and the schema that names which
// columns are keys, constants and imputation targets.
package wx

import (
	"database/sql"
	"fmt"
	"time"
)

// Kind distinguishes numeric measurement columns from text metadata.
type Kind int

const (
	Numeric Kind = iota
	Text
)

// Column is a single named column. Numeric columns use Floats, text
// columns use Strings; the unused slice stays nil.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []sql.NullFloat64
	Strings []sql.NullString
}

// Empty reports whether every value in the column is absent.
func (c *Column) Empty() bool {
	switch c.Kind {
	case Numeric:
		for _, v := range c.Floats {
			if v.Valid {
				return false
			}
		}
	case Text:
		for _, v := range c.Strings {
			if v.Valid {
				return false
			}
		}
	}
	return true
}

// Table is a set of observation rows keyed by (station, timestamp).
// TimeIDs are zero until AssignTimeIDs runs.
type Table struct {
	StationIDs []string
	Times      []time.Time
	TimeIDs    []int
	Columns    []*Column
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

func (t *Table) Nrow() int {
	return len(t.StationIDs)
}

// Column returns the named column, or nil if it does not exist.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddColumn appends a column. The column must already be row-aligned
// with the table.
func (t *Table) AddColumn(c *Column) error {
	if t.Column(c.Name) != nil {
		return fmt.Errorf("column %q already exists", c.Name)
	}
	n := len(c.Floats)
	if c.Kind == Text {
		n = len(c.Strings)
	}
	if n != t.Nrow() {
		return fmt.Errorf("column %q has %d rows, table has %d", c.Name, n, t.Nrow())
	}
	t.Columns = append(t.Columns, c)
	return nil
}

// AppendRow adds one row. values maps column name to either
// sql.NullFloat64 or sql.NullString; columns not present in the map get
// an absent value.
func (t *Table) AppendRow(stationID string, ts time.Time, values map[string]any) error {
	t.StationIDs = append(t.StationIDs, stationID)
	t.Times = append(t.Times, ts)
	t.TimeIDs = append(t.TimeIDs, 0)
	for _, c := range t.Columns {
		v, ok := values[c.Name]
		switch c.Kind {
		case Numeric:
			var f sql.NullFloat64
			if ok {
				f, ok = v.(sql.NullFloat64)
				if !ok {
					return fmt.Errorf("column %q: want sql.NullFloat64, got %T", c.Name, v)
				}
			}
			c.Floats = append(c.Floats, f)
		case Text:
			var s sql.NullString
			if ok {
				s, ok = v.(sql.NullString)
				if !ok {
					return fmt.Errorf("column %q: want sql.NullString, got %T", c.Name, v)
				}
			}
			c.Strings = append(c.Strings, s)
		}
	}
	return nil
}
