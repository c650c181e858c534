package wx

// Interval is the temporal resolution of observations.
type Interval string

const (
	IntervalDaily  Interval = "daily"
	IntervalHourly Interval = "hourly"
)

// Valid reports whether the interval is one the provider supports.
func (iv Interval) Valid() bool {
	return iv == IntervalDaily || iv == IntervalHourly
}

// Station is read-only reference data from the station catalog.
type Station struct {
	ID        string
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
	Elevation float64
	Daily     bool
	Hourly    bool
	FirstYear int
	LastYear  int

	// DistanceKM is the great-circle distance from the query point,
	// populated by catalog searches.
	DistanceKM float64
}

// Supports reports whether the station publishes data at the given interval.
func (s Station) Supports(iv Interval) bool {
	switch iv {
	case IntervalDaily:
		return s.Daily
	case IntervalHourly:
		return s.Hourly
	}
	return false
}

// Covers reports whether the station's record spans the given year range.
func (s Station) Covers(startYear, endYear int) bool {
	return s.FirstYear <= startYear && s.LastYear >= endYear
}
