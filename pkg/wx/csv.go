package wx

import (
	"encoding/csv"
	"io"
	"strconv"
)

const timeLayout = "2006-01-02 15:04:05"

// WriteCSV writes the table with a header row. Absent values become
// empty fields.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"station", "time", "time_id"}
	for _, c := range t.Columns {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := 0; i < t.Nrow(); i++ {
		row := []string{
			t.StationIDs[i],
			t.Times[i].UTC().Format(timeLayout),
			strconv.Itoa(t.TimeIDs[i]),
		}
		for _, c := range t.Columns {
			switch c.Kind {
			case Numeric:
				if c.Floats[i].Valid {
					row = append(row, strconv.FormatFloat(c.Floats[i].Float64, 'f', -1, 64))
				} else {
					row = append(row, "")
				}
			case Text:
				if c.Strings[i].Valid {
					row = append(row, c.Strings[i].String)
				} else {
					row = append(row, "")
				}
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
