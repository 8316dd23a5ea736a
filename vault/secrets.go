package vault

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/ladzaretti/vlt-cli/vault/sqlite/vaultdb"
	"github.com/ladzaretti/vlt-cli/vaultcrypto"
)

// now returns the current time formatted the way every timestamp column in
// the vault schema expects it.
func now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// TypedSecretOpt customizes [Vault.InsertNewTypedSecret].
type TypedSecretOpt func(*typedSecretConfig)

type typedSecretConfig struct {
	description string
	expiresAt   *string
	labels      []string
}

// WithDescription attaches a free-text description to a typed secret.
func WithDescription(d string) TypedSecretOpt {
	return func(c *typedSecretConfig) { c.description = d }
}

// WithExpiresAt sets the expiry timestamp of a typed secret.
func WithExpiresAt(t time.Time) TypedSecretOpt {
	formatted := t.UTC().Format("2006-01-02T15:04:05.000Z")
	return func(c *typedSecretConfig) { c.expiresAt = &formatted }
}

// WithLabels attaches labels to a typed secret at creation time.
func WithLabels(labels ...string) TypedSecretOpt {
	return func(c *typedSecretConfig) { c.labels = labels }
}

// InsertNewTypedSecret seals the given secret body bytes (already
// JSON-marshaled by the secret package) and stores them as a typed,
// metadata-bearing secret.
func (vlt *Vault) InsertNewTypedSecret(ctx context.Context, name, secretType string, body []byte, metadataJSON string, opts ...TypedSecretOpt) (id int, retErr error) {
	cfg := &typedSecretConfig{}
	for _, o := range opts {
		o(cfg)
	}

	tx, err := vlt.conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}

	storeTx := vlt.db.WithTx(tx)

	nonce, err := vaultcrypto.RandBytes(vaultcrypto.NonceSizeGCM)
	if err != nil {
		_ = tx.Rollback()
		return 0, errf("insert new typed secret: %w", err)
	}

	ciphertext, err := vlt.aesgcm.Seal(nonce, body)
	if err != nil {
		_ = tx.Rollback()
		return 0, errf("insert new typed secret: %w", err)
	}

	secretID, err := storeTx.InsertNewTypedSecret(ctx, name, cfg.description, secretType, nonce, ciphertext, metadataJSON, cfg.expiresAt)
	if err != nil {
		_ = tx.Rollback()
		return 0, errf("insert new typed secret: %w", err)
	}

	for _, l := range cfg.labels {
		if _, err := storeTx.InsertLabel(ctx, l, secretID); err != nil {
			_ = tx.Rollback()
			return 0, errf("insert new typed secret: insert label: %w", err)
		}
	}

	if err := storeTx.InsertAuditEntry(ctx, vaultdb.AuditEntry{
		SecretID:   strconv.Itoa(secretID),
		SecretKind: "secret",
		Timestamp:  now(),
		Action:     "created",
	}); err != nil {
		_ = tx.Rollback()
		return 0, errf("insert new typed secret: audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, errf("insert new typed secret: tx commit: %w", err)
	}

	return secretID, nil
}

// UpdateTypedSecretFields updates the description, metadata, expiry and
// favorite flag of a typed secret without touching its sealed value.
func (vlt *Vault) UpdateTypedSecretFields(ctx context.Context, id int, description, metadataJSON string, expiresAt *string, favorite bool) (int64, error) {
	n, err := vlt.db.UpdateSecretFields(ctx, id, description, metadataJSON, expiresAt, favorite)
	if err != nil {
		return 0, errf("update typed secret fields: %w", err)
	}

	if err := vlt.db.InsertAuditEntry(ctx, vaultdb.AuditEntry{
		SecretID:   strconv.Itoa(id),
		SecretKind: "secret",
		Timestamp:  now(),
		Action:     "updated",
	}); err != nil {
		return n, errf("update typed secret fields: audit: %w", err)
	}

	return n, nil
}

// AuditTrail returns the full, deletion-surviving audit history for a
// secret id, most recent first.
func (vlt *Vault) AuditTrail(ctx context.Context, secretID string) ([]vaultdb.AuditEntry, error) {
	return vlt.db.ListAuditEntriesBySecretID(ctx, secretID)
}

// SecretStats returns aggregate statistics over the typed secrets stored in
// the vault: total count, counts by type, and expiry buckets.
func (vlt *Vault) SecretStats(ctx context.Context) (vaultdb.Stats, error) {
	return vlt.db.SecretStats(ctx)
}

// Templates returns the built-in secret template catalogue.
func (vlt *Vault) Templates(ctx context.Context) ([]vaultdb.Template, error) {
	return vlt.db.ListTemplates(ctx)
}

// Template returns a single named secret template.
func (vlt *Vault) Template(ctx context.Context, name string) (vaultdb.Template, error) {
	return vlt.db.GetTemplate(ctx, name)
}
