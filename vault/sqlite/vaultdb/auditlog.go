package vaultdb

import (
	"context"
	"database/sql"
)

// AuditEntry is a row of the secret_audit_log table.
//
// secret_id deliberately has no foreign key to either secrets or
// password_entries: the audit trail must survive the deletion of the
// record it describes.
type AuditEntry struct {
	ID         int64
	SecretID   string
	SecretKind string
	Timestamp  string
	Action     string
	User       sql.NullString
	Details    sql.NullString
}

const insertAuditEntry = `
	INSERT INTO secret_audit_log (secret_id, secret_kind, timestamp, action, user, details)
	VALUES (?, ?, ?, ?, ?, ?)
`

// InsertAuditEntry appends an entry to the secret audit log.
func (s *VaultDB) InsertAuditEntry(ctx context.Context, e AuditEntry) error {
	_, err := s.db.ExecContext(ctx, insertAuditEntry, e.SecretID, e.SecretKind, e.Timestamp, e.Action, e.User, e.Details)
	return err
}

const listAuditEntriesBySecretID = `
	SELECT id, secret_id, secret_kind, timestamp, action, user, details
	FROM secret_audit_log
	WHERE secret_id = ?
	ORDER BY id DESC
`

// ListAuditEntriesBySecretID returns the audit trail for a given secret id,
// most recent first. Entries persist even after the secret itself is deleted.
func (s *VaultDB) ListAuditEntriesBySecretID(ctx context.Context, secretID string) ([]AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, listAuditEntriesBySecretID, secretID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:wsl

	var entries []AuditEntry

	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.SecretID, &e.SecretKind, &e.Timestamp, &e.Action, &e.User, &e.Details); err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
