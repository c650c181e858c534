package catalog

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/lox/meteofill/pkg/wx"
)

const earthRadiusKM = 6371.0

// distanceKM is the haversine great-circle distance.
func distanceKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// Search returns stations within radiusKM of (lat, lon) that publish
// the interval and whose record covers [startYear, endYear], ordered
// by ascending distance. The caller decides how many to keep.
func (c *Catalog) Search(ctx context.Context, lat, lon, radiusKM float64, iv wx.Interval, startYear, endYear int) ([]wx.Station, error) {
	intervalCol := "daily"
	if iv == wx.IntervalHourly {
		intervalCol = "hourly"
	}

	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT station_id, name, country, latitude, longitude, elevation, daily, hourly, first_year, last_year
		FROM stations
		WHERE %s = TRUE AND first_year <= ? AND last_year >= ?
	`, intervalCol), startYear, endYear)
	if err != nil {
		return nil, fmt.Errorf("search stations: %w", err)
	}
	defer rows.Close()

	var found []wx.Station
	for rows.Next() {
		var st wx.Station
		if err := rows.Scan(&st.ID, &st.Name, &st.Country, &st.Latitude, &st.Longitude, &st.Elevation, &st.Daily, &st.Hourly, &st.FirstYear, &st.LastYear); err != nil {
			return nil, err
		}
		st.DistanceKM = distanceKM(lat, lon, st.Latitude, st.Longitude)
		if st.DistanceKM <= radiusKM {
			found = append(found, st)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].DistanceKM < found[j].DistanceKM
	})
	return found, nil
}
