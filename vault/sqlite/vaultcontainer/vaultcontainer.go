// Package vaultcontainer provides access to the vault container database
// schema: the on-disk database holding the encrypted, serialized vault
// along with the cryptographic material needed to decrypt it.
package vaultcontainer

import (
	"context"
	"crypto/sha1" //nolint:gosec // in this context, SHA-1 is for change detection, not security.
	"database/sql"

	"github.com/ladzaretti/vlt-cli/vault/types"
)

// VaultContainer provides access to the vault container database schema.
//
// This database stores the cryptographic data required to perform operations
// such as encrypting or decrypting the vault and its secrets, plus a bounded
// history of previous encrypted snapshots.
type VaultContainer struct {
	db                  types.CoreDB
	maxHistorySnapshots int
}

// New returns a [VaultContainer] backed by db, retaining at most
// maxHistorySnapshots rows in the history table. A non-positive value
// disables history retention entirely.
func New(db types.DBTX, maxHistorySnapshots int) *VaultContainer {
	return &VaultContainer{
		db:                  db,
		maxHistorySnapshots: maxHistorySnapshots,
	}
}

// WithTx returns a new [VaultContainer] using the given transaction.
func (vc *VaultContainer) WithTx(tx *sql.Tx) *VaultContainer {
	return &VaultContainer{
		db:                  tx,
		maxHistorySnapshots: vc.maxHistorySnapshots,
	}
}

const insertVault = `
	INSERT INTO
		vault_container (
			id,
			auth_phc,
			kdf_phc,
			nonce,
			vault_encrypted,
			checksum,
			updated_at
		)
	VALUES
		(0, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP) ON CONFLICT (id) DO
	UPDATE
	SET
		auth_phc = excluded.auth_phc,
		kdf_phc = excluded.kdf_phc,
		nonce = excluded.nonce,
		vault_encrypted = excluded.vault_encrypted,
		checksum = excluded.checksum,
		updated_at = excluded.updated_at
	WHERE
		vault_container.checksum <> excluded.checksum;
`

// InsertNewVault inserts or replaces the single vault_container row.
func (vc *VaultContainer) InsertNewVault(ctx context.Context, auth string, kdf string, nonce []byte, ciphervault []byte) error {
	//nolint:gosec // in this context, SHA-1 is for change detection, not security.
	checksum := sha1.Sum(ciphervault)
	if _, err := vc.db.ExecContext(ctx, insertVault, auth, kdf, nonce, ciphervault, checksum[:]); err != nil {
		return err
	}

	return nil
}

const selectCurrentVault = `
	SELECT
		vault_encrypted, nonce, checksum
	FROM
		vault_container
	WHERE
		id = 0;
`

const insertHistory = `
	INSERT INTO vault_history (vault_encrypted, nonce, checksum, created_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP);
`

const pruneHistory = `
	DELETE FROM vault_history
	WHERE id NOT IN (
		SELECT id FROM vault_history ORDER BY id DESC LIMIT ?
	);
`

const updateVault = `
	UPDATE vault_container
	SET
		nonce = $1,
		vault_encrypted = $2,
		checksum = $3,
		updated_at = CURRENT_TIMESTAMP
	WHERE
		id = 0
		AND checksum <> $3;
`

// UpdateVault replaces the encrypted vault payload and its nonce.
//
// Before overwriting, the previous snapshot is archived into the vault
// history table (if history retention is enabled), and the table is pruned
// back to maxHistorySnapshots rows.
func (vc *VaultContainer) UpdateVault(ctx context.Context, nonce []byte, ciphervault []byte) error {
	if vc.maxHistorySnapshots > 0 {
		var (
			prevVault    []byte
			prevNonce    []byte
			prevChecksum []byte
		)

		row := vc.db.QueryRowContext(ctx, selectCurrentVault)
		if err := row.Scan(&prevVault, &prevNonce, &prevChecksum); err != nil && err != sql.ErrNoRows {
			return err
		}

		if prevVault != nil {
			if _, err := vc.db.ExecContext(ctx, insertHistory, prevVault, prevNonce, prevChecksum); err != nil {
				return err
			}

			if _, err := vc.db.ExecContext(ctx, pruneHistory, vc.maxHistorySnapshots); err != nil {
				return err
			}
		}
	}

	//nolint:gosec // in this context, SHA-1 is for change detection, not security.
	checksum := sha1.Sum(ciphervault)
	_, err := vc.db.ExecContext(ctx, updateVault, nonce, ciphervault, checksum[:])

	return err
}

const selectVault = `
	SELECT
		auth_phc, kdf_phc, nonce, vault_encrypted
	FROM
		vault_container
	WHERE
		id = 0;
`

// CipherData holds the cryptographic material and encrypted payload
// associated with a vault container row.
type CipherData struct {
	AuthPHC string
	KDFPHC  string
	Nonce   []byte
	Vault   []byte
}

// SelectVault returns the current cipher data for the vault container.
func (vc *VaultContainer) SelectVault(ctx context.Context) (*CipherData, error) {
	row := vc.db.QueryRowContext(ctx, selectVault)

	var data CipherData
	if err := row.Scan(&data.AuthPHC, &data.KDFPHC, &data.Nonce, &data.Vault); err != nil {
		return nil, err
	}

	return &data, nil
}

// HistorySnapshot is a previously archived encrypted vault payload.
type HistorySnapshot struct {
	ID         int64
	Vault      []byte
	Nonce      []byte
	Checksum   []byte
	CreatedAt  string
}

const listHistory = `
	SELECT id, vault_encrypted, nonce, checksum, created_at
	FROM vault_history
	ORDER BY id DESC;
`

// ListHistory returns archived vault snapshots, most recent first.
func (vc *VaultContainer) ListHistory(ctx context.Context) ([]HistorySnapshot, error) {
	rows, err := vc.db.QueryContext(ctx, listHistory)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []HistorySnapshot

	for rows.Next() {
		var s HistorySnapshot
		if err := rows.Scan(&s.ID, &s.Vault, &s.Nonce, &s.Checksum, &s.CreatedAt); err != nil {
			return nil, err
		}

		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

const vacuumContainer = `VACUUM;`

// Vacuum performs a VACUUM operation on the vault container database.
func (vc *VaultContainer) Vacuum(ctx context.Context) error {
	_, err := vc.db.ExecContext(ctx, vacuumContainer)
	return err
}
