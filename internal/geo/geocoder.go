// Package geo converts coordinates into a session locality.
package geo

import (
	"fmt"
	"strings"

	geocoding "github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"

	"github.com/phantomlink/phantom-link/internal/types"
)

// Geocoder resolves latitude/longitude into a (city, state) pair.
type Geocoder struct {
	geocoder geocoding.Geocoder
}

// NewGeocoder returns a Nominatim-backed Geocoder.
func NewGeocoder() *Geocoder {
	return &Geocoder{geocoder: openstreetmap.Geocoder()}
}

// ReverseLocality converts coordinates to a locality. The state falls back to
// "Unknown" when the address carries none; a missing city falls back to the
// second element of the formatted-address hierarchy.
func (g *Geocoder) ReverseLocality(lat, lng float64) (types.Locality, error) {
	address, err := g.geocoder.ReverseGeocode(lat, lng)
	if err != nil {
		return types.Locality{}, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	if address == nil {
		return types.Locality{}, fmt.Errorf("could not determine a location from the coordinates provided")
	}
	return localityFromAddress(*address), nil
}

func localityFromAddress(address geocoding.Address) types.Locality {
	city := address.City
	if city == "" {
		if parts := strings.Split(address.FormattedAddress, ", "); len(parts) > 1 {
			city = parts[1]
		}
	}
	state := address.State
	if state == "" {
		state = "Unknown"
	}
	return types.Locality{City: city, State: state}
}
