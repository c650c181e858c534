// Package catalog maintains a local SQLite copy of the provider's
// station inventory. Refresh replaces the whole copy from the gzipped
// bulk dump; Search finds stations near a coordinate that cover a year
// range at a given interval.
package catalog

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/meteofill/internal/httputil"
	"github.com/lox/meteofill/pkg/wx"
)

const lastModifiedKey = "stations_last_modified"

type Catalog struct {
	db       *sql.DB
	client   *http.Client
	endpoint string
}

// New wraps an open database. Call Migrate before anything else.
func New(db *sql.DB, endpoint string) *Catalog {
	return &Catalog{
		db:       db,
		client:   httputil.NewClient(0),
		endpoint: endpoint,
	}
}

// SetTimeout overrides the HTTP timeout for refreshes.
func (c *Catalog) SetTimeout(d time.Duration) {
	c.client = httputil.NewClient(d)
}

// stationRecord mirrors one entry of the provider's station dump.
type stationRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Daily     bool    `json:"daily"`
	Hourly    bool    `json:"hourly"`
	FirstYear int     `json:"first_year"`
	LastYear  int     `json:"last_year"`
}

// LastModified returns the dump date recorded at the last refresh, or
// the zero time if the catalog has never been populated.
func (c *Catalog) LastModified(ctx context.Context) (time.Time, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM catalog_meta WHERE key = ?`, lastModifiedKey).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last modified: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last modified %q: %w", value, err)
	}
	return ts, nil
}

// Refresh downloads the full station dump and replaces the local copy.
// It is not incremental.
func (c *Catalog) Refresh(ctx context.Context) error {
	var body []byte
	var modified time.Time

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch stations: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch stations: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch stations: status %d: %s", resp.StatusCode, string(b)))
		}

		if lm := resp.Header.Get("Last-Modified"); lm != "" {
			if ts, err := http.ParseTime(lm); err == nil {
				modified = ts.UTC()
			}
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return err
	}
	if modified.IsZero() {
		modified = time.Now().UTC()
	}

	records, err := decodeDump(body)
	if err != nil {
		return err
	}

	if err := c.replaceStations(ctx, records, modified); err != nil {
		return err
	}
	log.Printf("catalog: refreshed %d stations (dump dated %s)", len(records), modified.Format("2006-01-02"))
	return nil
}

func decodeDump(body []byte) ([]stationRecord, error) {
	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gunzip stations: %w", err)
	}
	defer gz.Close()

	var records []stationRecord
	if err := json.NewDecoder(gz).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}
	return records, nil
}

func (c *Catalog) replaceStations(ctx context.Context, records []stationRecord, modified time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM stations`); err != nil {
		return fmt.Errorf("clear stations: %w", err)
	}
	for _, r := range records {
		_, err := tx.Exec(`
			INSERT INTO stations (station_id, name, country, latitude, longitude, elevation, daily, hourly, first_year, last_year)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, r.Name, r.Country, r.Latitude, r.Longitude, r.Elevation, r.Daily, r.Hourly, r.FirstYear, r.LastYear)
		if err != nil {
			return fmt.Errorf("insert station %s: %w", r.ID, err)
		}
	}
	_, err = tx.Exec(`
		INSERT INTO catalog_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, lastModifiedKey, modified.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record last modified: %w", err)
	}
	return tx.Commit()
}

// UpsertStation inserts or updates a single station. Refresh is the
// normal write path; this exists for seeding and tests.
func (c *Catalog) UpsertStation(st wx.Station) error {
	_, err := c.db.Exec(`
		INSERT INTO stations (station_id, name, country, latitude, longitude, elevation, daily, hourly, first_year, last_year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			elevation = excluded.elevation,
			daily = excluded.daily,
			hourly = excluded.hourly,
			first_year = excluded.first_year,
			last_year = excluded.last_year
	`, st.ID, st.Name, st.Country, st.Latitude, st.Longitude, st.Elevation, st.Daily, st.Hourly, st.FirstYear, st.LastYear)
	return err
}
