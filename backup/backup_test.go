package backup_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/ladzaretti/vlt-cli/backup"
)

func TestCreateAndVerify(t *testing.T) {
	records := []backup.SourceRecord{
		{ID: "1", Kind: "secret", Body: []byte("hunter2"), UpdatedAt: "2026-01-01T00:00:00Z"},
		{ID: "2", Kind: "secret", Body: []byte("s3cr3t"), UpdatedAt: "2026-01-02T00:00:00Z"},
	}

	archive, err := backup.Create(records, []byte("backup-password"), "vault-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	header, err := backup.Verify(archive)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if header.EntryCount != len(records) {
		t.Errorf("got entry count %d, want %d", header.EntryCount, len(records))
	}

	if header.SourceVaultID != "vault-1" {
		t.Errorf("got source vault id %q, want %q", header.SourceVaultID, "vault-1")
	}
}

func TestVerify_TamperedArchive(t *testing.T) {
	archive, err := backup.Create([]backup.SourceRecord{
		{ID: "1", Kind: "secret", Body: []byte("hunter2"), UpdatedAt: "2026-01-01T00:00:00Z"},
	}, []byte("backup-password"), "vault-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tampered := append([]byte{}, archive...)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := backup.Verify(tampered); !errors.Is(err, backup.ErrChecksumMismatch) {
		t.Errorf("got error %v, want %v", err, backup.ErrChecksumMismatch)
	}
}

func TestRestore_NewRecordsAlwaysWritten(t *testing.T) {
	records := []backup.SourceRecord{
		{ID: "1", Kind: "secret", Body: []byte("hunter2"), UpdatedAt: "2026-01-01T00:00:00Z"},
		{ID: "2", Kind: "secret", Body: []byte("s3cr3t"), UpdatedAt: "2026-01-02T00:00:00Z"},
	}

	password := []byte("backup-password")

	archive, err := backup.Create(records, password, "vault-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var written []string

	opts := backup.Options{
		Resolution: backup.Overwrite,
		Lookup: func(string) (bool, []string, bool, string, string) {
			return false, nil, false, "", ""
		},
		Write: func(id, _ string, body []byte, _ []string, _ bool, _, _ string) error {
			written = append(written, string(body))
			return nil
		},
	}

	report, err := backup.Restore(archive, password, opts)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if report.Restored != len(records) {
		t.Errorf("got restored %d, want %d", report.Restored, len(records))
	}

	if len(written) != len(records) {
		t.Fatalf("got %d writes, want %d", len(written), len(records))
	}
}

func TestCreateIncremental_FiltersByUpdatedAt(t *testing.T) {
	since := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	records := []backup.SourceRecord{
		{ID: "1", Kind: "secret", Body: []byte("old"), UpdatedAt: "2026-01-01T00:00:00Z"},
		{ID: "2", Kind: "secret", Body: []byte("new"), UpdatedAt: "2026-02-01T00:00:00Z"},
	}

	password := []byte("backup-password")

	archive, err := backup.CreateIncremental(records, password, "vault-1", since)
	if err != nil {
		t.Fatalf("CreateIncremental: %v", err)
	}

	header, err := backup.Verify(archive)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if header.EntryCount != 1 {
		t.Fatalf("got entry count %d, want 1", header.EntryCount)
	}

	if header.Since == nil {
		t.Fatal("want header.Since to be set")
	}

	var restored []string

	opts := backup.Options{
		Resolution: backup.Overwrite,
		Lookup: func(string) (bool, []string, bool, string, string) {
			return false, nil, false, "", ""
		},
		Write: func(id, _ string, body []byte, _ []string, _ bool, _, _ string) error {
			restored = append(restored, id)
			return nil
		},
	}

	if _, err := backup.Restore(archive, password, opts); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if len(restored) != 1 || restored[0] != "2" {
		t.Errorf("got restored ids %v, want [2]", restored)
	}
}

func TestRestore_MergeUnionsTagsAndOrsFavorite(t *testing.T) {
	records := []backup.SourceRecord{
		{ID: "1", Kind: "secret", Body: []byte("new-value"), Tags: []string{"b", "c"}, Favorite: false, CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-02T00:00:00Z"},
	}

	password := []byte("backup-password")

	archive, err := backup.Create(records, password, "vault-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var (
		gotTags     []string
		gotFavorite bool
	)

	opts := backup.Options{
		Resolution: backup.Merge,
		Lookup: func(string) (bool, []string, bool, string, string) {
			return true, []string{"a", "b"}, true, "2025-12-01T00:00:00Z", "2026-01-01T00:00:00Z"
		},
		Write: func(_, _ string, _ []byte, tags []string, favorite bool, _, _ string) error {
			gotTags = tags
			gotFavorite = favorite
			return nil
		},
	}

	if _, err := backup.Restore(archive, password, opts); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	for _, want := range []string{"a", "b", "c"} {
		if !slices.Contains(gotTags, want) {
			t.Errorf("merged tags %v missing %q", gotTags, want)
		}
	}

	if !gotFavorite {
		t.Error("want merged favorite to be true (target true OR archive false)")
	}
}

func TestRestore_OverwriteUsesArchiveValues(t *testing.T) {
	records := []backup.SourceRecord{
		{ID: "1", Kind: "secret", Body: []byte("new-value"), Tags: []string{"archive-tag"}, Favorite: true, CreatedAt: "2026-01-01T00:00:00Z", UpdatedAt: "2026-01-02T00:00:00Z"},
	}

	password := []byte("backup-password")

	archive, err := backup.Create(records, password, "vault-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var (
		gotTags     []string
		gotFavorite bool
	)

	opts := backup.Options{
		Resolution: backup.Overwrite,
		Lookup: func(string) (bool, []string, bool, string, string) {
			return true, []string{"target-tag"}, false, "2025-12-01T00:00:00Z", "2026-01-01T00:00:00Z"
		},
		Write: func(_, _ string, _ []byte, tags []string, favorite bool, _, _ string) error {
			gotTags = tags
			gotFavorite = favorite
			return nil
		},
	}

	if _, err := backup.Restore(archive, password, opts); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if len(gotTags) != 1 || gotTags[0] != "archive-tag" {
		t.Errorf("got tags %v, want archive's own [archive-tag]", gotTags)
	}

	if !gotFavorite {
		t.Error("want overwrite to take the archive's favorite flag (true)")
	}
}

func TestRestore_WrongPassword(t *testing.T) {
	archive, err := backup.Create([]backup.SourceRecord{
		{ID: "1", Kind: "secret", Body: []byte("hunter2"), UpdatedAt: "2026-01-01T00:00:00Z"},
	}, []byte("backup-password"), "vault-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	opts := backup.Options{
		Resolution: backup.Overwrite,
		Lookup: func(string) (bool, []string, bool, string, string) {
			return false, nil, false, "", ""
		},
		Write: func(string, string, []byte, []string, bool, string, string) error {
			return nil
		},
	}

	if _, err := backup.Restore(archive, []byte("wrong-password"), opts); !errors.Is(err, backup.ErrInvalidBackupPassword) {
		t.Errorf("got error %v, want %v", err, backup.ErrInvalidBackupPassword)
	}
}
