package vaultcrypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// StablePasswordID computes the deterministic identifier for a legacy
// password record: lowercase hex SHA-256 of "site:username".
//
// The separator and hash algorithm are load-bearing for migration between
// implementations and MUST NOT change.
func StablePasswordID(site, username string) string {
	sum := sha256.Sum256([]byte(site + ":" + username))
	return hex.EncodeToString(sum[:])
}
