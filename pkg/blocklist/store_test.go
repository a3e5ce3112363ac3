package blocklist

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestStoreSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/data")
	in := &Intermediate{
		Source:      "nextdns",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Records: []Record{
			{Order: 2, Category: "Privacy", URL: "https://example.com/b"},
			{Order: 1, Category: "Privacy", URL: "https://example.com/a", Name: "A"},
		},
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	data, err := afero.ReadFile(fs, "/data/blocklists_nextdns.json")
	if err != nil {
		t.Fatalf("intermediate not written: %v", err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("intermediate should end with a newline")
	}

	got, err := store.Load("nextdns")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(got.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got.Records))
	}
	if got.Records[0].URL != "https://example.com/a" || got.Records[0].Name != "A" {
		t.Errorf("records should be sorted by order, got %+v", got.Records[0])
	}
	if !got.GeneratedAt.Equal(in.GeneratedAt) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, in.GeneratedAt)
	}

	entries, _ := afero.ReadDir(fs, "/data")
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), TempFilePrefix) {
			t.Errorf("temp file %s left behind", entry.Name())
		}
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/data")
	_, err := store.Load("frogeye")
	if !errors.Is(err, ErrMissingSourceData) {
		t.Fatalf("expected ErrMissingSourceData, got %v", err)
	}
	var missing *MissingSourceError
	if !errors.As(err, &missing) || missing.Source != "frogeye" {
		t.Errorf("unexpected error details: %v", err)
	}
}

func TestStoreLoadRejectsBadContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{not json"},
		{"wrong source", `{"source":"nextdns","records":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "/data/blocklists_firebog.json", []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewStore(fs, "/data").Load("firebog")
			if !errors.Is(err, ErrMissingSourceData) {
				t.Errorf("expected ErrMissingSourceData, got %v", err)
			}
		})
	}
}

func TestStoreSaveReadOnly(t *testing.T) {
	store := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/data")
	err := store.Save(&Intermediate{Source: "nextdns"})
	if !errors.Is(err, ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
}

func TestIntermediateCategories(t *testing.T) {
	in := &Intermediate{Records: []Record{
		{Category: "Privacy"}, {Category: "Security"}, {Category: "Privacy"}, {Category: "Ads"},
	}}
	got := strings.Join(in.Categories(), ",")
	if got != "Privacy,Security,Ads" {
		t.Errorf("Categories() = %s", got)
	}
}
