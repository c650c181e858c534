package impute

import (
	"database/sql"
	"testing"

	"github.com/lox/meteofill/pkg/wx"
)

func present(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

var absent = sql.NullFloat64{}

// makeView builds a single-column view over two stations with
// sequential time ids.
func makeView(name string, values ...sql.NullFloat64) *wx.NumericView {
	n := len(values)
	v := &wx.NumericView{
		Columns: []*wx.Column{{Name: name, Kind: wx.Numeric, Floats: values}},
	}
	for i := 0; i < n; i++ {
		station := "10001"
		timeID := i + 1
		if i >= n/2 {
			station = "10002"
			timeID = i - n/2 + 1
		}
		v.StationIDs = append(v.StationIDs, station)
		v.TimeIDs = append(v.TimeIDs, timeID)
	}
	return v
}

func TestSkipsColumnWithOneDistinctValue(t *testing.T) {
	// [1,1,1,1,NA]: only one distinct present value.
	view := makeView("prcp",
		present(1), present(1), present(1), present(1), absent)

	res, err := Fill(view, Options{Trees: 10, Seed: 1})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	if len(res.Skipped) != 1 || res.Skipped[0] != "prcp" {
		t.Errorf("Skipped = %v, want [prcp]", res.Skipped)
	}
	if view.Columns[0].Floats[4].Valid {
		t.Error("ineligible column must stay unimputed")
	}
}

func TestSkipsColumnWithFourDistinctValues(t *testing.T) {
	// [1,2,3,4,NA]: four distinct present values, below threshold.
	view := makeView("snow",
		present(1), present(2), present(3), present(4), absent)

	res, err := Fill(view, Options{Trees: 10, Seed: 1})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	if len(res.Skipped) != 1 {
		t.Errorf("Skipped = %v, want [snow]", res.Skipped)
	}
	for i := 0; i < 4; i++ {
		got := view.Columns[0].Floats[i]
		if !got.Valid || got.Float64 != float64(i+1) {
			t.Errorf("value %d changed: %+v", i, got)
		}
	}
	if view.Columns[0].Floats[4].Valid {
		t.Error("missing entry should remain missing")
	}
}

func TestFillsOnlyMissingEntries(t *testing.T) {
	values := []sql.NullFloat64{
		present(10), present(11), present(12), absent, present(14),
		present(20), present(21), present(22), present(23), present(24),
	}
	orig := make([]sql.NullFloat64, len(values))
	copy(orig, values)

	view := makeView("tmax", values...)
	res, err := Fill(view, Options{Trees: 50, Seed: 42})
	if err != nil {
		t.Fatalf("Fill: %v", err)
	}

	if res.Filled["tmax"] != 1 {
		t.Errorf("Filled[tmax] = %d, want 1", res.Filled["tmax"])
	}

	col := view.Columns[0]
	if !col.Floats[3].Valid {
		t.Fatal("missing entry was not filled")
	}
	if p := col.Floats[3].Float64; p < 10 || p > 24 {
		t.Errorf("imputed value %v outside observed range", p)
	}
	for i, o := range orig {
		if i == 3 {
			continue
		}
		if col.Floats[i] != o {
			t.Errorf("observed value %d was overwritten: got %+v want %+v", i, col.Floats[i], o)
		}
	}
}

func TestColumnsModelledIndependently(t *testing.T) {
	// The second column's hole must be filled from its own present
	// values, not influenced by the first column's imputed entry.
	a := []sql.NullFloat64{present(1), present(2), present(3), present(4), present(5), absent}
	b := []sql.NullFloat64{absent, present(100), present(101), present(102), present(103), present(104)}

	view := &wx.NumericView{
		StationIDs: []string{"A", "A", "A", "A", "A", "A"},
		TimeIDs:    []int{1, 2, 3, 4, 5, 6},
		Columns: []*wx.Column{
			{Name: "tmin", Kind: wx.Numeric, Floats: a},
			{Name: "tmax", Kind: wx.Numeric, Floats: b},
		},
	}

	if _, err := Fill(view, Options{Trees: 50, Seed: 3}); err != nil {
		t.Fatalf("Fill: %v", err)
	}

	if p := b[0].Float64; p < 100 || p > 104 {
		t.Errorf("tmax imputed %v, want within its own range [100,104]", p)
	}
}

func TestSeedReproducibility(t *testing.T) {
	build := func() *wx.NumericView {
		return makeView("tmax",
			present(10), present(11), present(12), absent, present(14),
			present(20), present(21), absent, present(23), present(24))
	}

	v1, v2 := build(), build()
	if _, err := Fill(v1, Options{Trees: 30, Seed: 7}); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if _, err := Fill(v2, Options{Trees: 30, Seed: 7}); err != nil {
		t.Fatalf("Fill: %v", err)
	}

	for i := range v1.Columns[0].Floats {
		if v1.Columns[0].Floats[i] != v2.Columns[0].Floats[i] {
			t.Fatalf("same seed produced different fill at row %d", i)
		}
	}
}

func TestRawStationEncoding(t *testing.T) {
	view := makeView("tmax",
		present(10), present(11), present(12), absent, present(14),
		present(20), present(21), present(22), present(23), present(24))

	if _, err := Fill(view, Options{Trees: 10, Seed: 1, Encoding: EncodeRawID}); err != nil {
		t.Fatalf("Fill with numeric ids: %v", err)
	}

	bad := makeView("tmax", present(1), present(2), present(3), present(4), present(5), absent)
	bad.StationIDs = []string{"ABC", "ABC", "ABC", "ABC", "ABC", "ABC"}
	if _, err := Fill(bad, Options{Trees: 10, Seed: 1, Encoding: EncodeRawID}); err == nil {
		t.Error("raw encoding with non-numeric ids should fail")
	}
}
