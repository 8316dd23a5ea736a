package backup

import (
	"fmt"

	"github.com/ladzaretti/vlt-cli/vaultcrypto"
)

// ConflictResolution selects how a restore handles a record id that
// already exists in the target.
type ConflictResolution string

const (
	// Overwrite replaces the colliding target record in full.
	Overwrite ConflictResolution = "overwrite"

	// Skip leaves the colliding target record untouched.
	Skip ConflictResolution = "skip"

	// Merge overwrites the body but unions tags, ORs favorite, and takes
	// the max of the two updated_at timestamps. created_at is preserved
	// from the target.
	Merge ConflictResolution = "merge"
)

// TargetLookup resolves whether a record id already exists in the restore
// target, returning its current tags/favorite/timestamps if so.
type TargetLookup func(id string) (exists bool, tags []string, favorite bool, createdAt, updatedAt string)

// Writer persists a restored record into the target vault, returning an
// error if the write fails. For Merge it receives the already-combined
// tags/favorite/timestamps.
type Writer func(id, kind string, body []byte, tags []string, favorite bool, createdAt, updatedAt string) error

// Options configures a restore operation.
type Options struct {
	Resolution ConflictResolution
	Lookup     TargetLookup
	Write      Writer
}

// RecordError describes a single record that failed to restore, without
// aborting the rest of the batch.
type RecordError struct {
	ID      string
	Message string
}

// Report summarizes the outcome of a restore operation.
type Report struct {
	Total    int
	Restored int
	Skipped  int
	Errors   []RecordError
}

// Restore verifies the archive header and checksum, derives the backup
// key from backupPassword and the archive's own salt, then iterates
// records in archive order, applying opts.Resolution via opts.Lookup and
// opts.Write.
//
// A single record's failure is recorded in the returned report and does
// not abort the batch; only a failure to open the very first record (bad
// password) or a checksum mismatch aborts the whole restore.
func Restore(archive []byte, backupPassword []byte, opts Options) (Report, error) {
	p, err := parse(archive)
	if err != nil {
		return Report{}, err
	}

	hasher := newChecksumHasher()
	for _, r := range p.Records {
		hasher.Write(r.Ciphertext)
	}

	if !hasher.Equal(p.Checksum) {
		return Report{}, ErrChecksumMismatch
	}

	kdf := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithSalt(p.Header.KDFSalt))
	key := kdf.Derive(backupPassword)

	aes, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return Report{}, fmt.Errorf("restore: %w", ErrSerialisation)
	}

	report := Report{Total: len(p.Records)}

	for i, r := range p.Records {
		body, err := aes.Open(r.Nonce, r.Ciphertext)
		if err != nil {
			if i == 0 {
				return Report{}, ErrInvalidBackupPassword
			}

			report.Errors = append(report.Errors, RecordError{ID: r.ID, Message: err.Error()})

			continue
		}

		if err := restoreRecord(r, body, opts, &report); err != nil {
			report.Errors = append(report.Errors, RecordError{ID: r.ID, Message: err.Error()})
			continue
		}
	}

	return report, nil
}

func restoreRecord(r Record, body []byte, opts Options, report *Report) error {
	exists, targetTags, targetFavorite, createdAt, targetUpdatedAt := opts.Lookup(r.ID)

	if !exists {
		createdAt := r.CreatedAt
		if len(createdAt) == 0 {
			createdAt = nowTimestamp()
		}

		report.Restored++

		return opts.Write(r.ID, r.Kind, body, r.Tags, r.Favorite, createdAt, r.UpdatedAt)
	}

	switch opts.Resolution {
	case Skip:
		report.Skipped++
		return nil
	case Merge:
		tags := unionTags(targetTags, r.Tags)
		favorite := targetFavorite || r.Favorite
		updatedAt := maxTimestamp(targetUpdatedAt, r.UpdatedAt)

		report.Restored++

		return opts.Write(r.ID, r.Kind, body, tags, favorite, createdAt, updatedAt)
	case Overwrite:
		fallthrough
	default:
		report.Restored++
		return opts.Write(r.ID, r.Kind, body, r.Tags, r.Favorite, r.CreatedAt, r.UpdatedAt)
	}
}

func unionTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))

	for _, t := range append(append([]string{}, a...), b...) {
		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}

func maxTimestamp(a, b string) string {
	if a > b {
		return a
	}

	return b
}
