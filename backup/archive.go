// Package backup implements a self-describing archive format for the
// vault: BackupCodec produces and verifies archives, RestoreEngine
// consumes them. Archives are encrypted independently of the vault's own
// master password, under a key derived from a caller-supplied backup
// password and the archive's own salt, so that a vault password rotation
// never invalidates a previously taken backup.
package backup

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// magic identifies a vlt backup archive and its framing version.
const magic = "VLTBKP01"

// Header is the archive's self-describing metadata, stored as a
// length-prefixed JSON blob immediately following the magic bytes.
type Header struct {
	FormatVersion   int     `json:"formatVersion"`
	ArchiveID       string  `json:"archiveId"`
	CreatedAt       string  `json:"createdAt"`
	SourceVaultID   string  `json:"sourceVaultId"`
	EntryCount      int     `json:"entryCount"`
	ContentChecksum string  `json:"contentChecksum"`
	KDFSalt         []byte  `json:"kdfSalt"`
	Since           *string `json:"since,omitempty"`
}

// Record is a single sealed entry within the archive, recorded under the
// backup key (never the vault's own master key).
type Record struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"` // "secret" or "password"
	Nonce      []byte   `json:"nonce"`
	Ciphertext []byte   `json:"ciphertext"`
	Tags       []string `json:"tags,omitempty"`
	Favorite   bool     `json:"favorite"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
}

// writeFramed writes a uint32 big-endian length prefix followed by data.
func writeFramed(buf []byte, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))

	buf = append(buf, lenBuf[:]...)
	buf = append(buf, data...)

	return buf
}

// readFramed reads a uint32 big-endian length prefix followed by that many
// bytes, returning the payload and the remaining buffer.
func readFramed(buf []byte) (payload []byte, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated length prefix", ErrInvalidFormat)
	}

	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]

	if uint64(len(buf)) < uint64(n) {
		return nil, nil, fmt.Errorf("%w: truncated frame", ErrInvalidFormat)
	}

	return buf[:n], buf[n:], nil
}

func marshalHeader(h Header) ([]byte, error) {
	return json.Marshal(h)
}

func unmarshalHeader(data []byte) (Header, error) {
	var h Header
	err := json.Unmarshal(data, &h)

	return h, err
}
