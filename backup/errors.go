package backup

import "github.com/ladzaretti/vlt-cli/vaulterrors"

// Errors surfaced by the backup package reuse the core error taxonomy so
// that CLI error handling does not need a second dispatch table.
var (
	ErrInvalidFormat         = vaulterrors.ErrInvalidFormat
	ErrChecksumMismatch      = vaulterrors.ErrChecksumMismatch
	ErrInvalidBackupPassword = vaulterrors.ErrInvalidMasterPassword
	ErrIo                    = vaulterrors.ErrIo
	ErrDecryption            = vaulterrors.ErrDecryption
	ErrSerialisation         = vaulterrors.ErrSerialisation
)
