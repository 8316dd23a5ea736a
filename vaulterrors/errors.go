package vaulterrors

import (
	"errors"
	"fmt"
)

var (
	ErrVaultFileExists           = errors.New("vault file already exists")
	ErrVaultFileNotFound         = errors.New("vault file does not exist")
	ErrWrongPassword             = errors.New("incorrect vault password")
	ErrEmptyPassword             = errors.New("empty vault password")
	ErrNonInteractiveUnsupported = errors.New("non-interactive input not supported")
	ErrInteractiveLoginDisabled  = errors.New("interactive login is disabled; no session available")
	ErrEmptySecret               = errors.New("secret cannot be empty")
	ErrSearchNoMatch             = errors.New("no match found")
	ErrAmbiguousSecretMatch      = errors.New("ambiguous secret match: multiple secrets match the search criteria")
	ErrMissingLabels             = errors.New("no labels provided")
)

// Core error taxonomy surfaced by the vault and backup packages, independent
// of the CLI-facing sentinels above. CLI error handling maps these (via
// errors.Is/As) onto user-facing messages and exit codes.
var (
	ErrIo                     = errors.New("i/o error")
	ErrInvalidMasterPassword  = errors.New("invalid master password")
	ErrEncryption             = errors.New("encryption failed")
	ErrDecryption             = errors.New("decryption failed")
	ErrSerialisation          = errors.New("serialisation failed")
	ErrEntryNotFound          = errors.New("entry not found")
	ErrDuplicateID            = errors.New("duplicate identifier")
	ErrInvalidFormat          = errors.New("invalid format")
	ErrChecksumMismatch       = errors.New("checksum mismatch")
)

// OtherError wraps an error condition that does not map to any of the
// named sentinels above, while still carrying a human-readable message.
type OtherError struct {
	Message string
}

func (e *OtherError) Error() string {
	return e.Message
}

// Other constructs an [OtherError] from a format string, mirroring
// [fmt.Errorf] but without wrapping semantics.
func Other(format string, a ...any) error {
	return &OtherError{Message: fmt.Sprintf(format, a...)}
}
