package meteofill

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/lox/meteofill/pkg/wx"
)

type fakeCatalog struct {
	lastModified time.Time
	refreshed    int
	refreshErr   error
	stations     []wx.Station
}

func (f *fakeCatalog) LastModified(ctx context.Context) (time.Time, error) {
	return f.lastModified, nil
}

func (f *fakeCatalog) Refresh(ctx context.Context) error {
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.refreshed++
	f.lastModified = time.Now()
	return nil
}

func (f *fakeCatalog) Search(ctx context.Context, lat, lon, radiusKM float64, iv wx.Interval, startYear, endYear int) ([]wx.Station, error) {
	var out []wx.Station
	for _, st := range f.stations {
		if st.DistanceKM <= radiusKM && st.Supports(iv) && st.Covers(startYear, endYear) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKM < out[j].DistanceKM })
	return out, nil
}

type fakeDownloader struct {
	table      *wx.Table
	gotIDs     []string
	gotStart   time.Time
	gotEnd     time.Time
	downloadOK bool
}

func (f *fakeDownloader) Download(ctx context.Context, stationIDs []string, iv wx.Interval, start, end time.Time) (*wx.Table, error) {
	f.gotIDs = stationIDs
	f.gotStart, f.gotEnd = start, end
	f.downloadOK = true
	if f.table == nil {
		return nil, fmt.Errorf("no data")
	}
	return f.table, nil
}

func fv(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }
func sv(v string) sql.NullString   { return sql.NullString{String: v, Valid: true} }

// sixStations returns stations at distances 10..60 km, all covering
// the default date range.
func sixStations() []wx.Station {
	var out []wx.Station
	for i := 0; i < 6; i++ {
		out = append(out, wx.Station{
			ID:         fmt.Sprintf("1000%d", i+1),
			Daily:      true,
			FirstYear:  2000,
			LastYear:   2020,
			DistanceKM: float64((i + 1) * 10),
		})
	}
	return out
}

// obsTable builds a two-station daily table with a hole in tmax and a
// constant prcp column plus metadata and flag columns.
func obsTable(t *testing.T) *wx.Table {
	t.Helper()
	tbl := wx.NewTable()
	tbl.Columns = []*wx.Column{
		{Name: wx.ColLatitude, Kind: wx.Numeric},
		{Name: "tmax", Kind: wx.Numeric},
		{Name: "prcp", Kind: wx.Numeric},
		{Name: "snow", Kind: wx.Numeric}, // entirely absent
		{Name: "tmax_flag", Kind: wx.Text},
		{Name: "name", Kind: wx.Text},
	}

	base := time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC)
	add := func(station string, day int, tmax sql.NullFloat64, name string) {
		values := map[string]any{
			wx.ColLatitude: fv(-36.7),
			"tmax":         tmax,
			"prcp":         fv(0), // single distinct value, never eligible
			"tmax_flag":    sv("G"),
			"name":         sv(name),
		}
		if err := tbl.AppendRow(station, base.AddDate(0, 0, day), values); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}

	for d := 0; d < 6; d++ {
		add("10001", d, fv(20+float64(d)), "Alpha")
	}
	for d := 0; d < 6; d++ {
		if d == 3 {
			add("10002", d, sql.NullFloat64{}, "Beta")
			continue
		}
		add("10002", d, fv(15+float64(d)), "Beta")
	}
	return tbl
}

func newTestPipeline(cat *fakeCatalog, dl *fakeDownloader) *Pipeline {
	p := New(cat, dl)
	p.SetTrees(30)
	p.SetSeed(42)
	return p
}

func TestFetchAndImputeEndToEnd(t *testing.T) {
	cat := &fakeCatalog{lastModified: time.Now(), stations: sixStations()}
	dl := &fakeDownloader{table: obsTable(t)}
	p := newTestPipeline(cat, dl)

	out, err := p.FetchAndImpute(context.Background(), Request{Latitude: -36.7, Longitude: 146.9})
	if err != nil {
		t.Fatalf("FetchAndImpute: %v", err)
	}

	// Selector keeps the 5 nearest of 6 candidates.
	want := []string{"10001", "10002", "10003", "10004", "10005"}
	if len(dl.gotIDs) != len(want) {
		t.Fatalf("downloaded %d stations, want %d", len(dl.gotIDs), len(want))
	}
	for i, id := range want {
		if dl.gotIDs[i] != id {
			t.Errorf("gotIDs[%d] = %s, want %s", i, dl.gotIDs[i], id)
		}
	}
	if !dl.gotStart.Equal(DefaultStart) || !dl.gotEnd.Equal(DefaultEnd) {
		t.Errorf("date range = %v..%v, want defaults", dl.gotStart, dl.gotEnd)
	}

	// Cleaning: empty and flag columns gone.
	if out.Column("snow") != nil {
		t.Error("all-absent snow column should be dropped")
	}
	if out.Column("tmax_flag") != nil {
		t.Error("flag column should be dropped")
	}

	// time_id per station.
	for i := 0; i < 6; i++ {
		if out.TimeIDs[i] != i+1 || out.TimeIDs[6+i] != i+1 {
			t.Fatalf("TimeIDs wrong at %d: %v", i, out.TimeIDs)
		}
	}

	// The hole in the second station's tmax is filled; observed
	// values are untouched.
	tmax := out.Column("tmax")
	if tmax == nil {
		t.Fatal("tmax column missing")
	}
	if !tmax.Floats[9].Valid {
		t.Error("missing tmax should be imputed")
	} else if p := tmax.Floats[9].Float64; p < 15 || p > 25 {
		t.Errorf("imputed tmax %v outside plausible range", p)
	}
	if tmax.Floats[0].Float64 != 20 || tmax.Floats[5].Float64 != 25 {
		t.Error("observed tmax values changed")
	}

	// prcp has one distinct value and must pass through unimputed.
	prcp := out.Column("prcp")
	for i := range prcp.Floats {
		if !prcp.Floats[i].Valid || prcp.Floats[i].Float64 != 0 {
			t.Fatalf("prcp[%d] = %+v, want untouched 0", i, prcp.Floats[i])
		}
	}

	// Metadata broadcast from the nearest station only.
	name := out.Column("name")
	if !name.Strings[0].Valid || name.Strings[0].String != "Alpha" {
		t.Error("reference station metadata missing")
	}
	if name.Strings[9].Valid {
		t.Error("non-reference station metadata should be absent")
	}
}

func TestFetchAndImputeRefreshesStaleCatalog(t *testing.T) {
	cat := &fakeCatalog{
		lastModified: time.Now().Add(-91 * 24 * time.Hour),
		stations:     sixStations(),
	}
	dl := &fakeDownloader{table: obsTable(t)}
	p := newTestPipeline(cat, dl)

	if _, err := p.FetchAndImpute(context.Background(), Request{}); err != nil {
		t.Fatalf("FetchAndImpute: %v", err)
	}
	if cat.refreshed != 1 {
		t.Errorf("refreshed = %d, want 1", cat.refreshed)
	}
}

func TestFetchAndImputeSkipsFreshCatalog(t *testing.T) {
	cat := &fakeCatalog{
		lastModified: time.Now().Add(-30 * 24 * time.Hour),
		stations:     sixStations(),
	}
	dl := &fakeDownloader{table: obsTable(t)}
	p := newTestPipeline(cat, dl)

	if _, err := p.FetchAndImpute(context.Background(), Request{}); err != nil {
		t.Fatalf("FetchAndImpute: %v", err)
	}
	if cat.refreshed != 0 {
		t.Errorf("refreshed = %d, want 0", cat.refreshed)
	}
}

func TestFetchAndImputeRefreshFailureAborts(t *testing.T) {
	cat := &fakeCatalog{refreshErr: fmt.Errorf("mirror down")}
	dl := &fakeDownloader{}
	p := newTestPipeline(cat, dl)

	if _, err := p.FetchAndImpute(context.Background(), Request{}); err == nil {
		t.Error("refresh failure should abort the run")
	}
	if dl.downloadOK {
		t.Error("download must not run after a failed refresh")
	}
}

func TestFetchAndImputeNoStations(t *testing.T) {
	cat := &fakeCatalog{lastModified: time.Now()}
	dl := &fakeDownloader{}
	p := newTestPipeline(cat, dl)

	if _, err := p.FetchAndImpute(context.Background(), Request{}); err == nil {
		t.Error("zero stations should be an error")
	}
}

func TestFetchAndImputeFewerThanFiveStations(t *testing.T) {
	cat := &fakeCatalog{lastModified: time.Now(), stations: sixStations()[:3]}
	dl := &fakeDownloader{table: obsTable(t)}
	p := newTestPipeline(cat, dl)

	if _, err := p.FetchAndImpute(context.Background(), Request{}); err != nil {
		t.Fatalf("FetchAndImpute: %v", err)
	}
	if len(dl.gotIDs) != 3 {
		t.Errorf("downloaded %d stations, want all 3 available", len(dl.gotIDs))
	}
}

func TestFetchAndImputeValidatesRequest(t *testing.T) {
	cat := &fakeCatalog{lastModified: time.Now(), stations: sixStations()}
	p := newTestPipeline(cat, &fakeDownloader{})

	if _, err := p.FetchAndImpute(context.Background(), Request{Interval: "weekly"}); err == nil {
		t.Error("unknown interval should fail")
	}

	req := Request{
		Start: time.Date(2018, 4, 15, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2018, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if _, err := p.FetchAndImpute(context.Background(), req); err == nil {
		t.Error("inverted date range should fail")
	}
}

func TestFetchAndImputeMetaFromAllStations(t *testing.T) {
	cat := &fakeCatalog{lastModified: time.Now(), stations: sixStations()}
	dl := &fakeDownloader{table: obsTable(t)}
	p := newTestPipeline(cat, dl)
	p.SetMetaFromAllStations(true)

	out, err := p.FetchAndImpute(context.Background(), Request{})
	if err != nil {
		t.Fatalf("FetchAndImpute: %v", err)
	}
	name := out.Column("name")
	if !name.Strings[9].Valid || name.Strings[9].String != "Beta" {
		t.Error("every station should keep its own metadata")
	}
}
