package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ladzaretti/vlt-cli/vaultcrypto"
	"github.com/ladzaretti/vlt-cli/vaulterrors"
)

// SourceRecord is a single plaintext vault record, as supplied by the
// caller (the vault layer decrypts under the vault's own master key
// before handing records to the codec; the codec never sees that key).
type SourceRecord struct {
	ID        string
	Kind      string // "secret" or "password"
	Body      []byte
	Tags      []string
	Favorite  bool
	CreatedAt string
	UpdatedAt string
}

// Create builds a full archive containing every given record, sealed
// under a key derived from backupPassword and a freshly generated salt.
func Create(records []SourceRecord, backupPassword []byte, sourceVaultID string) ([]byte, error) {
	return build(records, backupPassword, sourceVaultID, nil)
}

// CreateIncremental builds an archive containing only records whose
// UpdatedAt is after since, recording the cutoff in the header so restore
// can report coverage.
func CreateIncremental(records []SourceRecord, backupPassword []byte, sourceVaultID string, since time.Time) ([]byte, error) {
	sinceStr := since.UTC().Format(time.RFC3339Nano)

	filtered := make([]SourceRecord, 0, len(records))

	for _, r := range records {
		updated, err := time.Parse(time.RFC3339Nano, r.UpdatedAt)
		if err == nil && !updated.After(since) {
			continue
		}

		filtered = append(filtered, r)
	}

	return build(filtered, backupPassword, sourceVaultID, &sinceStr)
}

func build(records []SourceRecord, backupPassword []byte, sourceVaultID string, since *string) ([]byte, error) {
	salt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		return nil, fmt.Errorf("backup: generate kdf salt: %w", err)
	}

	kdf := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithSalt(salt))
	key := kdf.Derive(backupPassword)

	aes, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", ErrSerialisation)
	}

	sealed := make([]Record, 0, len(records))
	hasher := sha256.New()

	for _, r := range records {
		nonce, err := vaultcrypto.RandBytes(vaultcrypto.NonceSizeGCM)
		if err != nil {
			return nil, fmt.Errorf("backup: generate record nonce: %w", err)
		}

		ciphertext, err := aes.Seal(nonce, r.Body)
		if err != nil {
			return nil, fmt.Errorf("backup: seal record %q: %w", r.ID, vaulterrors.ErrEncryption)
		}

		hasher.Write(ciphertext)

		sealed = append(sealed, Record{
			ID:         r.ID,
			Kind:       r.Kind,
			Nonce:      nonce,
			Ciphertext: ciphertext,
			Tags:       r.Tags,
			Favorite:   r.Favorite,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		})
	}

	checksum := hasher.Sum(nil)

	header := Header{
		FormatVersion:   1,
		ArchiveID:       uuid.NewString(),
		CreatedAt:       time.Now().UTC().Format(time.RFC3339Nano),
		SourceVaultID:   sourceVaultID,
		EntryCount:      len(sealed),
		ContentChecksum: hex.EncodeToString(checksum),
		KDFSalt:         salt,
		Since:           since,
	}

	return encode(header, sealed, checksum)
}

func encode(header Header, records []Record, checksum []byte) ([]byte, error) {
	headerJSON, err := marshalHeader(header)
	if err != nil {
		return nil, fmt.Errorf("backup: encode header: %w", ErrSerialisation)
	}

	buf := make([]byte, 0, len(headerJSON)+64*len(records)+len(magic)+len(checksum))
	buf = append(buf, magic...)
	buf = writeFramed(buf, headerJSON)

	for _, r := range records {
		recordJSON, err := marshalRecord(r)
		if err != nil {
			return nil, fmt.Errorf("backup: encode record %q: %w", r.ID, ErrSerialisation)
		}

		buf = writeFramed(buf, recordJSON)
	}

	buf = append(buf, checksum...)

	return buf, nil
}

func marshalRecord(r Record) ([]byte, error) {
	return json.Marshal(r)
}

func unmarshalRecord(data []byte) (Record, error) {
	var r Record
	err := json.Unmarshal(data, &r)

	return r, err
}
