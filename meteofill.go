// Package meteofill fetches historical weather observations for the
// ground stations nearest a coordinate, cleans the result and fills
// missing numeric readings with per-column regression models trained
// on station identity and a per-station time index.
package meteofill

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lox/meteofill/internal/impute"
	"github.com/lox/meteofill/internal/metrics"
	"github.com/lox/meteofill/pkg/wx"
)

const (
	// SearchRadiusKM bounds the station search around the query point.
	SearchRadiusKM = 200.0
	// MaxStations caps how many nearest stations are used.
	MaxStations = 5

	// catalogStaleAfter triggers a full catalog refresh.
	catalogStaleAfter = 90 * 24 * time.Hour
)

// Default date range used when a request leaves Start/End zero.
var (
	DefaultStart = time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2018, 4, 15, 0, 0, 0, 0, time.UTC)
)

// Catalog is the station metadata service.
type Catalog interface {
	// LastModified reports the date of the local copy of the station
	// inventory; the zero time means it was never populated.
	LastModified(ctx context.Context) (time.Time, error)
	// Refresh re-downloads the inventory in full.
	Refresh(ctx context.Context) error
	// Search returns stations within radiusKM of the coordinate that
	// publish the interval and cover [startYear, endYear], ordered by
	// ascending distance.
	Search(ctx context.Context, lat, lon, radiusKM float64, iv wx.Interval, startYear, endYear int) ([]wx.Station, error)
}

// Downloader is the bulk observation service.
type Downloader interface {
	Download(ctx context.Context, stationIDs []string, iv wx.Interval, start, end time.Time) (*wx.Table, error)
}

// Request carries the call-time parameters of a pipeline run. Zero
// fields fall back to the documented defaults.
type Request struct {
	Latitude  float64
	Longitude float64
	Interval  wx.Interval // default daily
	Start     time.Time   // default 2018-02-01
	End       time.Time   // default 2018-04-15
}

func (r *Request) setDefaults() {
	if r.Interval == "" {
		r.Interval = wx.IntervalDaily
	}
	if r.Start.IsZero() {
		r.Start = DefaultStart
	}
	if r.End.IsZero() {
		r.End = DefaultEnd
	}
}

// Pipeline wires the catalog and downloader into the fetch-and-impute
// flow. The zero seed means each run samples fresh randomness; fix it
// for reproducible output.
type Pipeline struct {
	catalog Catalog
	bulk    Downloader

	trees    int
	seed     int64
	rawIDs   bool
	allMeta  bool
	maxDepth int
}

func New(catalog Catalog, bulk Downloader) *Pipeline {
	return &Pipeline{catalog: catalog, bulk: bulk}
}

// SetSeed fixes the imputation randomness for reproducible runs.
func (p *Pipeline) SetSeed(seed int64) {
	p.seed = seed
}

// SetTrees overrides the ensemble size (default 5000).
func (p *Pipeline) SetTrees(n int) {
	p.trees = n
}

// SetMaxDepth limits tree depth during imputation (0 = unlimited).
func (p *Pipeline) SetMaxDepth(d int) {
	p.maxDepth = d
}

// SetRawStationEncoding feeds the numeric station identifier to the
// model instead of an ordinal index, reproducing providers whose
// identifiers are used as plain numbers.
func (p *Pipeline) SetRawStationEncoding(on bool) {
	p.rawIDs = on
}

// SetMetaFromAllStations carries each station's own metadata columns
// into the result instead of broadcasting the nearest station's.
func (p *Pipeline) SetMetaFromAllStations(on bool) {
	p.allMeta = on
}

// FetchAndImpute runs the full pipeline: refresh the catalog if it is
// stale, pick the nearest stations, download their observations,
// clean, impute missing numeric values and recompose one table.
func (p *Pipeline) FetchAndImpute(ctx context.Context, req Request) (*wx.Table, error) {
	req.setDefaults()
	if !req.Interval.Valid() {
		return nil, fmt.Errorf("unknown interval %q", req.Interval)
	}
	if req.End.Before(req.Start) {
		return nil, fmt.Errorf("end %s before start %s", req.End.Format("2006-01-02"), req.Start.Format("2006-01-02"))
	}

	if err := p.ensureFresh(ctx); err != nil {
		return nil, err
	}

	stations, err := p.catalog.Search(ctx, req.Latitude, req.Longitude, SearchRadiusKM, req.Interval, req.Start.Year(), req.End.Year())
	if err != nil {
		return nil, fmt.Errorf("station search: %w", err)
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("no stations within %.0f km of (%.4f, %.4f) covering %d-%d",
			SearchRadiusKM, req.Latitude, req.Longitude, req.Start.Year(), req.End.Year())
	}
	if len(stations) > MaxStations {
		stations = stations[:MaxStations]
	}

	ids := make([]string, len(stations))
	for i, st := range stations {
		ids[i] = st.ID
	}
	log.Printf("pipeline: using %d stations, nearest %s (%.1f km)", len(ids), ids[0], stations[0].DistanceKM)

	tbl, err := p.bulk.Download(ctx, ids, req.Interval, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	tbl.DropEmptyColumns()
	tbl.DropFlagColumns(wx.FlagSuffix)
	tbl.AssignTimeIDs()

	schema := wx.SchemaFor(req.Interval)
	view := tbl.NumericView(schema)

	encoding := impute.EncodeOrdinal
	if p.rawIDs {
		encoding = impute.EncodeRawID
	}
	res, err := impute.Fill(view, impute.Options{
		Trees:    p.trees,
		MaxDepth: p.maxDepth,
		Seed:     p.seed,
		Encoding: encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("impute: %w", err)
	}

	var filled int
	for _, n := range res.Filled {
		filled += n
	}
	metrics.ColumnsImputedTotal.Add(float64(len(res.Filled)))
	metrics.ColumnsSkippedTotal.Add(float64(len(res.Skipped)))
	metrics.ValuesFilledTotal.Add(float64(filled))
	log.Printf("pipeline: imputed %d values across %d columns, %d columns skipped", filled, len(res.Filled), len(res.Skipped))

	return wx.Recompose(tbl, schema, ids[0], p.allMeta), nil
}

// ensureFresh refreshes the catalog when its last full download is
// more than 90 days old (or has never happened). A refresh failure
// aborts the run; there is no stale-data fallback.
func (p *Pipeline) ensureFresh(ctx context.Context) error {
	lm, err := p.catalog.LastModified(ctx)
	if err != nil {
		return fmt.Errorf("catalog age: %w", err)
	}
	if time.Since(lm) <= catalogStaleAfter {
		return nil
	}
	log.Printf("pipeline: catalog stale (last modified %s), refreshing", lm.Format("2006-01-02"))
	if err := p.catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("catalog refresh: %w", err)
	}
	metrics.CatalogRefreshesTotal.Inc()
	return nil
}
