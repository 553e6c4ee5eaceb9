package core

import (
	"math"
	"time"
)

const earthRadiusKm = 6371.0

// Sample is one GPS fix taken during a trip.
type Sample struct {
	Coordinate
	Time time.Time
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// NewTrip builds a mileage entry from the start and stop samples of a GPS trip.
// The distance is the straight great-circle distance rounded to 10 m.
func NewTrip(start, end Sample, purpose string) (MileageEntry, error) {
	if start.Time.IsZero() || end.Time.IsZero() {
		return MileageEntry{}, ErrZeroDate
	}
	if end.Time.Before(start.Time) {
		return MileageEntry{}, ErrInvalidInterval
	}
	dist := math.Round(Haversine(start.Coordinate, end.Coordinate)*100) / 100

	startLoc, endLoc := start.Coordinate, end.Coordinate
	startTime, endTime := start.Time, end.Time
	return MileageEntry{
		Date:          start.Time,
		StartAddress:  start.Address,
		EndAddress:    end.Address,
		Distance:      dist,
		Purpose:       purpose,
		StartTime:     &startTime,
		EndTime:       &endTime,
		StartLocation: &startLoc,
		EndLocation:   &endLoc,
	}, nil
}

// Duration of a GPS trip; zero for manual entries.
func (m MileageEntry) Duration() time.Duration {
	if m.StartTime == nil || m.EndTime == nil {
		return 0
	}
	if d := m.EndTime.Sub(*m.StartTime); d > 0 {
		return d
	}
	return 0
}
