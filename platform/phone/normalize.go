// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var countryRegions = map[string]string{
	"india":                "IN",
	"united states":        "US",
	"usa":                  "US",
	"united kingdom":       "GB",
	"uk":                   "GB",
	"united arab emirates": "AE",
	"uae":                  "AE",
	"saudi arabia":         "SA",
	"canada":               "CA",
	"australia":            "AU",
	"germany":              "DE",
	"france":               "FR",
	"netherlands":          "NL",
	"singapore":            "SG",
	"pakistan":             "PK",
	"bangladesh":           "BD",
	"nepal":                "NP",
	"sri lanka":            "LK",
	"qatar":                "QA",
	"kuwait":               "KW",
	"oman":                 "OM",
	"bahrain":              "BH",
}

// RegionFor resolves a country name or ISO 3166 alpha-2 code to a phone region.
// Unknown countries return "".
func RegionFor(country string) string {
	trimmed := strings.TrimSpace(country)
	if len(trimmed) == 2 {
		return strings.ToUpper(trimmed)
	}
	return countryRegions[strings.ToLower(trimmed)]
}

// NormalizeE164 formats a phone number to E.164 using the country as the
// default region for numbers without a leading +. If parsing fails, it
// returns the trimmed input.
func NormalizeE164(input, country string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	region := RegionFor(country)
	if region == "" && !strings.HasPrefix(trimmed, "+") {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
