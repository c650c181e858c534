package wx

import (
	"database/sql"
	"time"
)

// Recompose joins the fully imputed numeric columns back with the
// table's metadata columns. The result has one row per table row.
//
// By default metadata is taken from the reference station only: rows
// belonging to other stations come out with absent metadata, matching
// a left join of the numeric view against the reference station's rows
// on (station_id, time_id). With allStations set, every row keeps its
// own station's metadata instead.
func Recompose(t *Table, s Schema, refStation string, allStations bool) *Table {
	out := &Table{
		StationIDs: append([]string(nil), t.StationIDs...),
		Times:      append([]time.Time(nil), t.Times...),
		TimeIDs:    append([]int(nil), t.TimeIDs...),
	}

	copyNumeric := func(c *Column) {
		out.Columns = append(out.Columns, &Column{
			Name:   c.Name,
			Kind:   Numeric,
			Floats: append([]sql.NullFloat64(nil), c.Floats...),
		})
	}

	for _, name := range s.Constants {
		if c := t.Column(name); c != nil && c.Kind == Numeric {
			copyNumeric(c)
		}
	}
	for _, name := range s.Targets {
		if c := t.Column(name); c != nil && c.Kind == Numeric {
			copyNumeric(c)
		}
	}

	for _, c := range t.Columns {
		if c.Kind != Text {
			continue
		}
		strs := make([]sql.NullString, t.Nrow())
		for i := range strs {
			if allStations || t.StationIDs[i] == refStation {
				strs[i] = c.Strings[i]
			}
		}
		out.Columns = append(out.Columns, &Column{Name: c.Name, Kind: Text, Strings: strs})
	}

	return out
}
