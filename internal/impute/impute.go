// Package impute fills missing numeric observation values. Each
// eligible column is modelled independently: a regression forest is
// trained on (station, time_id) over the rows where the column is
// present, then its predictions replace the absent entries. Observed
// values are never touched.
package impute

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/lox/meteofill/internal/forest"
	"github.com/lox/meteofill/pkg/wx"
)

// StationEncoding controls how station identity enters the regression.
type StationEncoding int

const (
	// EncodeOrdinal numbers stations by first appearance in the
	// table. The ordering is arbitrary but stable.
	EncodeOrdinal StationEncoding = iota
	// EncodeRawID parses the station identifier as a number, which
	// lets the model exploit an ordering between identifiers that has
	// no physical meaning. Kept as an option because some providers'
	// numeric identifiers are used this way downstream.
	EncodeRawID
)

// MinDistinct is the eligibility threshold: a column with fewer
// distinct present values is left untouched.
const MinDistinct = 5

type Options struct {
	Trees    int
	MTry     int
	MaxDepth int
	// Seed fixes the forest randomness; 0 seeds from the clock.
	Seed     int64
	Encoding StationEncoding
}

// Result reports what the engine did per column.
type Result struct {
	// Filled maps column name to the number of values imputed.
	Filled map[string]int
	// Skipped lists columns that failed the eligibility check.
	Skipped []string
}

// Fill imputes every eligible column of the view in place.
func Fill(view *wx.NumericView, opts Options) (*Result, error) {
	stations, err := encodeStations(view.StationIDs, opts.Encoding)
	if err != nil {
		return nil, err
	}

	// One base seed drives per-column seeds so the whole pass is
	// reproducible while columns still train on distinct streams.
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	seeds := rand.New(rand.NewSource(opts.Seed))

	res := &Result{Filled: make(map[string]int)}
	for _, col := range view.Columns {
		colSeed := seeds.Int63()
		if !eligible(col) {
			res.Skipped = append(res.Skipped, col.Name)
			continue
		}

		var xs [][]float64
		var ys []float64
		for i, v := range col.Floats {
			if v.Valid {
				xs = append(xs, []float64{stations[i], float64(view.TimeIDs[i])})
				ys = append(ys, v.Float64)
			}
		}

		f, err := forest.Train(xs, ys, forest.Options{
			Trees:    opts.Trees,
			MTry:     opts.MTry,
			MaxDepth: opts.MaxDepth,
			Seed:     colSeed,
		})
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}

		for i, v := range col.Floats {
			if v.Valid {
				continue
			}
			p := f.Predict([]float64{stations[i], float64(view.TimeIDs[i])})
			col.Floats[i].Float64 = p
			col.Floats[i].Valid = true
			res.Filled[col.Name]++
		}
	}
	return res, nil
}

// eligible counts distinct present values against MinDistinct.
func eligible(col *wx.Column) bool {
	distinct := make(map[float64]struct{})
	for _, v := range col.Floats {
		if v.Valid {
			distinct[v.Float64] = struct{}{}
			if len(distinct) >= MinDistinct {
				return true
			}
		}
	}
	return false
}

func encodeStations(ids []string, enc StationEncoding) ([]float64, error) {
	out := make([]float64, len(ids))
	switch enc {
	case EncodeOrdinal:
		seen := make(map[string]float64)
		for i, id := range ids {
			v, ok := seen[id]
			if !ok {
				v = float64(len(seen))
				seen[id] = v
			}
			out[i] = v
		}
	case EncodeRawID:
		for i, id := range ids {
			v, err := strconv.ParseFloat(id, 64)
			if err != nil {
				return nil, fmt.Errorf("station %q is not numeric, raw encoding impossible", id)
			}
			out[i] = v
		}
	default:
		return nil, fmt.Errorf("unknown station encoding %d", enc)
	}
	return out, nil
}
