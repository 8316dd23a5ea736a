package vaultdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	cmdutil "github.com/ladzaretti/vlt-cli/util"
	"github.com/ladzaretti/vlt-cli/vaulterrors"
)

// PasswordRecord is a row of the legacy password_entries table.
//
// Unlike the general secrets table, password records are addressed by a
// deterministic id (see [vaultcrypto.StablePasswordID]) rather than an
// autoincrement integer, so that re-importing the same site/username pair
// is idempotent.
type PasswordRecord struct {
	ID                 string
	Site               string
	Username           string
	Nonce              []byte
	Ciphertext         []byte
	Notes              sql.NullString
	Tags               string // JSON array
	CreatedAt          string
	UpdatedAt          string
	LastUsed           sql.NullString
	PasswordChangedAt  string
	Favorite           bool
}

const insertPasswordRecord = `
	INSERT INTO password_entries
		(id, site, username, nonce, ciphertext, notes, tags, created_at, updated_at, password_changed_at, favorite)
	VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		nonce = excluded.nonce,
		ciphertext = excluded.ciphertext,
		notes = excluded.notes,
		tags = excluded.tags,
		updated_at = excluded.updated_at,
		password_changed_at = excluded.password_changed_at
`

// UpsertPasswordRecord inserts or replaces a legacy password entry keyed by
// its deterministic id.
func (s *VaultDB) UpsertPasswordRecord(ctx context.Context, r PasswordRecord) error {
	_, err := s.db.ExecContext(ctx, insertPasswordRecord,
		r.ID, r.Site, r.Username, r.Nonce, r.Ciphertext, r.Notes, r.Tags,
		r.CreatedAt, r.UpdatedAt, r.PasswordChangedAt, r.Favorite)

	return wrapConstraintErr(err)
}

const selectPasswordRecord = `
	SELECT id, site, username, nonce, ciphertext, notes, tags, created_at, updated_at, last_used, password_changed_at, favorite
	FROM password_entries
	WHERE id = ?
`

// GetPasswordRecord returns the password record for id.
func (s *VaultDB) GetPasswordRecord(ctx context.Context, id string) (PasswordRecord, error) {
	var r PasswordRecord

	row := s.db.QueryRowContext(ctx, selectPasswordRecord, id)
	err := row.Scan(&r.ID, &r.Site, &r.Username, &r.Nonce, &r.Ciphertext, &r.Notes, &r.Tags,
		&r.CreatedAt, &r.UpdatedAt, &r.LastUsed, &r.PasswordChangedAt, &r.Favorite)

	if errors.Is(err, sql.ErrNoRows) {
		return r, vaulterrors.ErrEntryNotFound
	}

	return r, err
}

const listPasswordRecords = `
	SELECT id, site, username, nonce, ciphertext, notes, tags, created_at, updated_at, last_used, password_changed_at, favorite
	FROM password_entries
	ORDER BY site, username
`

// ListPasswordRecords returns every legacy password entry.
func (s *VaultDB) ListPasswordRecords(ctx context.Context) ([]PasswordRecord, error) {
	rows, err := s.db.QueryContext(ctx, listPasswordRecords)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:wsl

	var records []PasswordRecord

	for rows.Next() {
		var r PasswordRecord
		if err := rows.Scan(&r.ID, &r.Site, &r.Username, &r.Nonce, &r.Ciphertext, &r.Notes, &r.Tags,
			&r.CreatedAt, &r.UpdatedAt, &r.LastUsed, &r.PasswordChangedAt, &r.Favorite); err != nil {
			return nil, err
		}

		records = append(records, r)
	}

	return records, rows.Err()
}

const touchPasswordLastUsed = `
	UPDATE password_entries SET last_used = ? WHERE id = ?
`

// TouchPasswordLastUsed records that a password entry was accessed.
func (s *VaultDB) TouchPasswordLastUsed(ctx context.Context, id string, timestamp string) error {
	_, err := s.db.ExecContext(ctx, touchPasswordLastUsed, timestamp, id)
	return err
}

const deletePasswordRecordsByIDs = `
	DELETE FROM password_entries WHERE id IN (%s)
`

// DeletePasswordRecordsByIDs deletes legacy password entries by id.
//
// If the IDs slice is empty, the function returns [ErrNoIDsProvided].
func (s *VaultDB) DeletePasswordRecordsByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNoIDsProvided
	}

	placeholders := make([]string, len(ids))
	for i := range ids {
		placeholders[i] = "?"
	}

	query := "DELETE FROM password_entries WHERE id IN (" + strings.Join(placeholders, ",") + ")"

	res, err := s.db.ExecContext(ctx, query, cmdutil.ToAnySlice(ids)...)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

const filterPasswordRecordsBySite = `
	SELECT id, site, username, nonce, ciphertext, notes, tags, created_at, updated_at, last_used, password_changed_at, favorite
	FROM password_entries
	WHERE site GLOB ?
	ORDER BY site, username
`

// FilterPasswordRecordsBySite returns password entries whose site matches
// the given GLOB pattern.
func (s *VaultDB) FilterPasswordRecordsBySite(ctx context.Context, sitePattern string) ([]PasswordRecord, error) {
	rows, err := s.db.QueryContext(ctx, filterPasswordRecordsBySite, sitePattern)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:wsl

	var records []PasswordRecord

	for rows.Next() {
		var r PasswordRecord
		if err := rows.Scan(&r.ID, &r.Site, &r.Username, &r.Nonce, &r.Ciphertext, &r.Notes, &r.Tags,
			&r.CreatedAt, &r.UpdatedAt, &r.LastUsed, &r.PasswordChangedAt, &r.Favorite); err != nil {
			return nil, err
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
