package wx

// FlagSuffix marks provider quality-flag columns, dropped during cleaning.
const FlagSuffix = "_flag"

// Constant columns ride along with every row but carry no signal for
// the regression: they are fixed per station.
const (
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
	ColElevation = "elevation"
)

// Schema enumerates, per interval, which columns are held constant,
// which numeric columns are candidates for imputation, and which text
// columns are metadata. Keeping this explicit (rather than filtering
// column names at runtime) makes the exclusion rules checkable in one
// place.
type Schema struct {
	Interval  Interval
	Constants []string
	Targets   []string
	Meta      []string
}

var dailySchema = Schema{
	Interval:  IntervalDaily,
	Constants: []string{ColLatitude, ColLongitude, ColElevation},
	Targets:   []string{"tavg", "tmin", "tmax", "prcp", "snow", "wdir", "wspd", "wpgt", "pres", "tsun"},
	Meta:      []string{"name"},
}

var hourlySchema = Schema{
	Interval:  IntervalHourly,
	Constants: []string{ColLatitude, ColLongitude, ColElevation},
	Targets:   []string{"temp", "dwpt", "rhum", "prcp", "snow", "wdir", "wspd", "wpgt", "pres", "tsun", "coco"},
	Meta:      []string{"name"},
}

// SchemaFor returns the column schema for an interval.
func SchemaFor(iv Interval) Schema {
	if iv == IntervalHourly {
		return hourlySchema
	}
	return dailySchema
}

// IsTarget reports whether name is a candidate imputation target.
func (s Schema) IsTarget(name string) bool {
	for _, t := range s.Targets {
		if t == name {
			return true
		}
	}
	return false
}

// IsConstant reports whether name is a per-station constant column.
func (s Schema) IsConstant(name string) bool {
	for _, c := range s.Constants {
		if c == name {
			return true
		}
	}
	return false
}
