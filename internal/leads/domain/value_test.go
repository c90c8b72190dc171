package domain

import (
	"errors"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestNormalizeValueCoercesToZero(t *testing.T) {
	inputs := []*string{nil, strPtr(""), strPtr("   "), strPtr("null"), strPtr("abc"), strPtr("-5")}
	for _, in := range inputs {
		got, err := NormalizeValue(in, false)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.IsZero() {
			t.Fatalf("expected zero, got %s", got)
		}
	}
}

func TestNormalizeValueRoundsToTwoPlaces(t *testing.T) {
	cases := map[string]string{
		"123.456":  "123.46",
		"123.454":  "123.45",
		"1,500":    "1500",
		"  42.1 ":  "42.1",
		"0.005":    "0.01",
		"10000.00": "10000",
	}
	for raw, want := range cases {
		got, err := NormalizeValue(strPtr(raw), false)
		if err != nil {
			t.Fatalf("NormalizeValue(%q) error: %v", raw, err)
		}
		if got.String() != want {
			t.Fatalf("NormalizeValue(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestNormalizeValueStrictRejects(t *testing.T) {
	if _, err := NormalizeValue(strPtr("abc"), true); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if _, err := NormalizeValue(strPtr("-1"), true); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue for negative, got %v", err)
	}
	got, err := NormalizeValue(strPtr(""), true)
	if err != nil || !got.IsZero() {
		t.Fatalf("empty input is zero even in strict mode, got %s %v", got, err)
	}
}
