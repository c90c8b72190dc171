package adapters

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStorage struct {
	bucket, folder, fileName, contentType string
	body                                  []byte
	rejectType                            bool
}

func (f *fakeStorage) UploadFile(_ context.Context, bucket, folder, fileName, contentType string, reader io.Reader, _ int64) (string, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	f.bucket, f.folder, f.fileName, f.contentType, f.body = bucket, folder, fileName, contentType, body
	return folder + "/" + fileName, nil
}

func (f *fakeStorage) EnsureBucketExists(context.Context, string) error { return nil }

func (f *fakeStorage) ValidateContentType(string) error {
	if f.rejectType {
		return errors.New("content type not allowed")
	}
	return nil
}

func (f *fakeStorage) ValidateFileSize(size int64) error {
	if size <= 0 {
		return errors.New("empty file")
	}
	return nil
}

func TestArchiveUploadsUnderCompanyAndMonth(t *testing.T) {
	store := &fakeStorage{}
	archive := NewLeadImportArchive(store, "lead-imports")
	archive.now = func() time.Time { return time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC) }
	companyID := uuid.New()

	key, err := archive.Archive(context.Background(), companyID, "march.csv", "", []byte("name,phone\n"))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if store.bucket != "lead-imports" {
		t.Fatalf("unexpected bucket %q", store.bucket)
	}
	if want := companyID.String() + "/2024/03"; store.folder != want {
		t.Fatalf("expected folder %q, got %q", want, store.folder)
	}
	if store.contentType != "application/octet-stream" {
		t.Fatalf("expected default content type, got %q", store.contentType)
	}
	if string(store.body) != "name,phone\n" || key == "" {
		t.Fatalf("unexpected upload %q key %q", store.body, key)
	}
}

func TestArchiveRejectsInvalidFiles(t *testing.T) {
	store := &fakeStorage{rejectType: true}
	archive := NewLeadImportArchive(store, "lead-imports")

	if _, err := archive.Archive(context.Background(), uuid.New(), "x.exe", "application/x-msdownload", []byte("MZ")); err == nil {
		t.Fatal("expected content type rejection")
	}
	if store.body != nil {
		t.Fatal("rejected files must not be uploaded")
	}
}
