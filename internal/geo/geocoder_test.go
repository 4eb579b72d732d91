package geo

import (
	"testing"

	geocoding "github.com/codingsince1985/geo-golang"
)

func TestLocalityFromAddress(t *testing.T) {
	cases := []struct {
		name      string
		address   geocoding.Address
		wantCity  string
		wantState string
	}{
		{
			name:      "city and state present",
			address:   geocoding.Address{City: "Boston", State: "Massachusetts"},
			wantCity:  "Boston",
			wantState: "Massachusetts",
		},
		{
			name: "city falls back to formatted hierarchy",
			address: geocoding.Address{
				State:            "Massachusetts",
				FormattedAddress: "12 Main Street, Salem, Essex County, Massachusetts, USA",
			},
			wantCity:  "Salem",
			wantState: "Massachusetts",
		},
		{
			name:      "missing state becomes Unknown",
			address:   geocoding.Address{City: "Boston"},
			wantCity:  "Boston",
			wantState: "Unknown",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := localityFromAddress(tc.address)
			if got.City != tc.wantCity || got.State != tc.wantState {
				t.Fatalf("locality = %#v, want %s/%s", got, tc.wantCity, tc.wantState)
			}
		})
	}
}
