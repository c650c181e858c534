package bulk

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lox/meteofill/pkg/wx"
)

const (
	dailyLayout  = "2006-01-02"
	hourlyLayout = "2006-01-02 15:04"
)

// parseArchive decompresses one station archive and appends its rows,
// restricted to [start, end], to the shared table. The first archive
// establishes the column set; later archives may add columns, which
// are backfilled as absent for rows already present.
func parseArchive(tbl *wx.Table, gzBody []byte, stationID string, iv wx.Interval, start, end time.Time) error {
	raw, err := gunzip(gzBody)
	if err != nil {
		return err
	}

	r := csv.NewReader(bytes.NewReader(raw))
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	timeCol := -1
	timeName := "date"
	layout := dailyLayout
	if iv == wx.IntervalHourly {
		timeName = "time"
		layout = hourlyLayout
	}

	schema := wx.SchemaFor(iv)
	cols := make([]*wx.Column, len(header))
	for i, name := range header {
		if name == timeName {
			timeCol = i
			continue
		}
		kind := wx.Text
		if schema.IsTarget(name) || schema.IsConstant(name) {
			kind = wx.Numeric
		}
		c, err := ensureColumn(tbl, name, kind)
		if err != nil {
			return err
		}
		cols[i] = c
	}
	if timeCol < 0 {
		return fmt.Errorf("archive has no %q column", timeName)
	}

	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := time.Parse(layout, record[timeCol])
		if err != nil {
			return fmt.Errorf("line %d: parse %s: %w", line, timeName, err)
		}
		ts = ts.UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}

		values := make(map[string]any, len(header))
		for i, field := range record {
			if i == timeCol || cols[i] == nil {
				continue
			}
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			switch cols[i].Kind {
			case wx.Numeric:
				f, err := strconv.ParseFloat(field, 64)
				if err != nil {
					return fmt.Errorf("line %d: column %s: %w", line, cols[i].Name, err)
				}
				values[cols[i].Name] = sql.NullFloat64{Float64: f, Valid: true}
			case wx.Text:
				values[cols[i].Name] = sql.NullString{String: field, Valid: true}
			}
		}
		if err := tbl.AppendRow(stationID, ts, values); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return nil
}

// ensureColumn returns the table's column of that name, creating it
// backfilled with absent values when a later archive introduces it.
func ensureColumn(tbl *wx.Table, name string, kind wx.Kind) (*wx.Column, error) {
	if c := tbl.Column(name); c != nil {
		if c.Kind != kind {
			return nil, fmt.Errorf("column %q: archives disagree on type", name)
		}
		return c, nil
	}
	c := &wx.Column{Name: name, Kind: kind}
	switch kind {
	case wx.Numeric:
		c.Floats = make([]sql.NullFloat64, tbl.Nrow())
	case wx.Text:
		c.Strings = make([]sql.NullString, tbl.Nrow())
	}
	if err := tbl.AddColumn(c); err != nil {
		return nil, err
	}
	return c, nil
}
