package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		country string
		want    string
	}{
		{"national number with country name", "098765 43210", "India", "+919876543210"},
		{"international number ignores country", "+1 650-253-0000", "", "+16502530000"},
		{"unknown country keeps raw input", " 123 ", "Atlantis", "123"},
		{"invalid number keeps raw input", "123", "IN", "123"},
		{"empty stays empty", "   ", "India", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeE164(tc.input, tc.country); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRegionFor(t *testing.T) {
	if RegionFor("in") != "IN" {
		t.Fatal("two-letter codes are upper-cased")
	}
	if RegionFor("United Arab Emirates") != "AE" {
		t.Fatal("country names resolve through the lookup table")
	}
}
