package domain

import "errors"

// ErrInvalidCoordinate is returned when a latitude/longitude pair is outside
// the valid range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a latitude/longitude pair in decimal degrees.
// It is a value type; treat it as immutable.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that latitude is within [-90, 90] and longitude within
// [-180, 180]. Callers must validate coordinates at the boundary before any
// distance computation.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return ErrInvalidCoordinate
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}
