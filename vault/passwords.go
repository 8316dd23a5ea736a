package vault

import (
	"encoding/json"

	"github.com/ladzaretti/vlt-cli/vault/sqlite/vaultdb"
	"github.com/ladzaretti/vlt-cli/vaultcrypto"

	"context"
)

// PasswordEntry is the decrypted view of a legacy password record.
type PasswordEntry struct {
	ID       string
	Site     string
	Username string
	Password string
	Notes    string
	Tags     []string
	Favorite bool
}

// UpsertPassword encrypts and stores a password entry under its
// deterministic id, derived from site and username. Re-saving the same
// site/username pair overwrites the previous entry in place.
func (vlt *Vault) UpsertPassword(ctx context.Context, e PasswordEntry) (retErr error) {
	id := vaultcrypto.StablePasswordID(e.Site, e.Username)

	nonce, err := vaultcrypto.RandBytes(vaultcrypto.NonceSizeGCM)
	if err != nil {
		return errf("upsert password: %w", err)
	}

	ciphertext, err := vlt.aesgcm.Seal(nonce, []byte(e.Password))
	if err != nil {
		return errf("upsert password: %w", err)
	}

	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return errf("upsert password: marshal tags: %w", err)
	}

	timestamp := now()

	existing, err := vlt.db.GetPasswordRecord(ctx, id)

	createdAt := timestamp
	if err == nil {
		createdAt = existing.CreatedAt
	}

	record := vaultdb.PasswordRecord{
		ID:                id,
		Site:              e.Site,
		Username:          e.Username,
		Nonce:             nonce,
		Ciphertext:        ciphertext,
		Tags:              string(tags),
		CreatedAt:         createdAt,
		UpdatedAt:         timestamp,
		PasswordChangedAt: timestamp,
		Favorite:          e.Favorite,
	}

	if e.Notes != "" {
		record.Notes.Valid = true
		record.Notes.String = e.Notes
	}

	if err := vlt.db.UpsertPasswordRecord(ctx, record); err != nil {
		return errf("upsert password: %w", err)
	}

	action := "created"
	if existing.ID != "" {
		action = "updated"
	}

	if err := vlt.db.InsertAuditEntry(ctx, vaultdb.AuditEntry{
		SecretID:   id,
		SecretKind: "password",
		Timestamp:  timestamp,
		Action:     action,
	}); err != nil {
		return errf("upsert password: audit: %w", err)
	}

	return nil
}

// GetPassword returns the decrypted password entry for a site/username pair.
func (vlt *Vault) GetPassword(ctx context.Context, site, username string) (PasswordEntry, error) {
	id := vaultcrypto.StablePasswordID(site, username)

	record, err := vlt.db.GetPasswordRecord(ctx, id)
	if err != nil {
		return PasswordEntry{}, errf("get password: %w", err)
	}

	entry, err := vlt.decodePasswordRecord(record)
	if err != nil {
		return PasswordEntry{}, errf("get password: %w", err)
	}

	if err := vlt.db.TouchPasswordLastUsed(ctx, id, now()); err != nil {
		return entry, errf("get password: touch last used: %w", err)
	}

	if err := vlt.db.InsertAuditEntry(ctx, vaultdb.AuditEntry{
		SecretID:   id,
		SecretKind: "password",
		Timestamp:  now(),
		Action:     "accessed",
	}); err != nil {
		return entry, errf("get password: audit: %w", err)
	}

	return entry, nil
}

// ListPasswords returns every legacy password entry, decrypted.
func (vlt *Vault) ListPasswords(ctx context.Context) ([]PasswordEntry, error) {
	records, err := vlt.db.ListPasswordRecords(ctx)
	if err != nil {
		return nil, errf("list passwords: %w", err)
	}

	entries := make([]PasswordEntry, 0, len(records))

	for _, r := range records {
		entry, err := vlt.decodePasswordRecord(r)
		if err != nil {
			return nil, errf("list passwords: %w", err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// FilterPasswordsBySite returns password entries whose site matches the
// given GLOB pattern, decrypted.
func (vlt *Vault) FilterPasswordsBySite(ctx context.Context, sitePattern string) ([]PasswordEntry, error) {
	records, err := vlt.db.FilterPasswordRecordsBySite(ctx, sitePattern)
	if err != nil {
		return nil, errf("filter passwords: %w", err)
	}

	entries := make([]PasswordEntry, 0, len(records))

	for _, r := range records {
		entry, err := vlt.decodePasswordRecord(r)
		if err != nil {
			return nil, errf("filter passwords: %w", err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// DeletePasswords deletes legacy password entries identified by site and
// username, archiving a deletion audit entry for each before removal.
func (vlt *Vault) DeletePasswords(ctx context.Context, pairs [][2]string) (int64, error) {
	ids := make([]string, len(pairs))
	for i, p := range pairs {
		ids[i] = vaultcrypto.StablePasswordID(p[0], p[1])
	}

	for _, id := range ids {
		if err := vlt.db.InsertAuditEntry(ctx, vaultdb.AuditEntry{
			SecretID:   id,
			SecretKind: "password",
			Timestamp:  now(),
			Action:     "deleted",
		}); err != nil {
			return 0, errf("delete passwords: audit: %w", err)
		}
	}

	n, err := vlt.db.DeletePasswordRecordsByIDs(ctx, ids)
	if err != nil {
		return n, errf("delete passwords: %w", err)
	}

	return n, nil
}

func (vlt *Vault) decodePasswordRecord(r vaultdb.PasswordRecord) (PasswordEntry, error) {
	plaintext, err := vlt.aesgcm.Open(r.Nonce, r.Ciphertext)
	if err != nil {
		return PasswordEntry{}, err
	}

	var tags []string
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &tags); err != nil {
			return PasswordEntry{}, err
		}
	}

	entry := PasswordEntry{
		ID:       r.ID,
		Site:     r.Site,
		Username: r.Username,
		Password: string(plaintext),
		Tags:     tags,
		Favorite: r.Favorite,
	}

	if r.Notes.Valid {
		entry.Notes = r.Notes.String
	}

	return entry, nil
}
