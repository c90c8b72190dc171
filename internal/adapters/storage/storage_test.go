package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidateContentType(t *testing.T) {
	allowed := []string{
		"text/csv",
		"text/csv; charset=utf-8",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"Application/Vnd.MS-Excel",
	}
	for _, ct := range allowed {
		if err := validateContentType(ct); err != nil {
			t.Fatalf("%q: expected allowed, got %v", ct, err)
		}
	}
	if err := validateContentType("image/png"); err == nil {
		t.Fatal("expected image/png to be rejected")
	}
}

func TestValidateFileSize(t *testing.T) {
	if err := validateFileSize(0, 10); err == nil {
		t.Fatal("expected empty file to be rejected")
	}
	if err := validateFileSize(11, 10); err == nil {
		t.Fatal("expected oversized file to be rejected")
	}
	if err := validateFileSize(10, 10); err != nil {
		t.Fatalf("expected limit size to pass, got %v", err)
	}
}

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("12345678-9abc-4def-8123-456789abcdef")

	if got := objectKey("acme/2024", "leads.csv", id); got != "acme/2024/leads_12345678.csv" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := objectKey("acme", `C:\Users\sam\march leads.xlsx`, id); got != "acme/march leads_12345678.xlsx" {
		t.Fatalf("expected path components stripped, got %q", got)
	}
	if got := objectKey("acme", "../../etc/passwd", id); strings.Contains(got, "..") {
		t.Fatalf("expected traversal stripped, got %q", got)
	}
}
