package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/ladzaretti/vlt-cli/backup"
	"github.com/ladzaretti/vlt-cli/clierror"
	"github.com/ladzaretti/vlt-cli/genericclioptions"
	"github.com/ladzaretti/vlt-cli/input"
	"github.com/ladzaretti/vlt-cli/vault"

	"github.com/spf13/cobra"
)

// BackupOptions holds state for the 'backup' command.
type BackupOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	output string
	since  string
}

var _ genericclioptions.CmdOptions = &BackupOptions{}

// NewBackupOptions initializes the options struct.
func NewBackupOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *BackupOptions {
	return &BackupOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*BackupOptions) Complete() error { return nil }

func (o *BackupOptions) Validate() error {
	if len(o.output) == 0 {
		return fmt.Errorf("backup: --output path is required")
	}

	if len(o.since) > 0 {
		if _, err := time.Parse(time.RFC3339, o.since); err != nil {
			return fmt.Errorf("backup: invalid --since timestamp %q: %w", o.since, err)
		}
	}

	return nil
}

func (o *BackupOptions) Run(ctx context.Context, _ ...string) error {
	secrets, err := o.Vault.ExportSecrets(ctx)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}

	records := make([]backup.SourceRecord, 0, len(secrets))

	for id, s := range secrets {
		records = append(records, backup.SourceRecord{
			ID:        strconv.Itoa(id),
			Kind:      "secret",
			Body:      s.Value,
			Tags:      s.Labels,
			Favorite:  s.Favorite,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	backupPassword, err := input.PromptNewPassword(o.Out, int(o.In.Fd()), masterKeyMinLen)
	if err != nil {
		return fmt.Errorf("backup: read backup password: %w", err)
	}

	var archive []byte

	if len(o.since) > 0 {
		since, err := time.Parse(time.RFC3339, o.since)
		if err != nil {
			return fmt.Errorf("backup: invalid --since timestamp %q: %w", o.since, err)
		}

		archive, err = backup.CreateIncremental(records, backupPassword, o.Path, since)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	} else {
		archive, err = backup.Create(records, backupPassword, o.Path)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}

	if err := os.WriteFile(o.output, archive, 0o600); err != nil {
		return fmt.Errorf("backup: write archive: %w", err)
	}

	o.Infof("wrote %d records to %s\n", len(records), o.output)

	return nil
}

// NewCmdBackup creates the 'backup' cobra command.
func NewCmdBackup(defaults *DefaultVltOptions) *cobra.Command {
	o := NewBackupOptions(defaults.StdioOptions, defaults.vaultOptions)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a full, self-describing backup archive",
		Long: `Write every secret currently in the vault to a self-describing backup archive.

The archive is encrypted under a backup password independent of the vault's own
master password, so rotating the vault password never invalidates a previously
taken backup.

Pass --since to write an incremental archive containing only secrets updated
after the given RFC3339 timestamp.`,
		Example: `  # Write a full backup
  vlt backup --output vault.bkp

  # Write an incremental backup of everything updated since a point in time
  vlt backup --output vault-incr.bkp --since 2026-07-01T00:00:00Z`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVarP(&o.output, "output", "o", "", "path to write the backup archive to")
	cmd.Flags().StringVarP(&o.since, "since", "", "", "write an incremental backup of records updated after this RFC3339 timestamp")

	return cmd
}

// RestoreOptions holds state for the 'restore' command.
type RestoreOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	input      string
	resolution string
}

var _ genericclioptions.CmdOptions = &RestoreOptions{}

// NewRestoreOptions initializes the options struct.
func NewRestoreOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *RestoreOptions {
	return &RestoreOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
		resolution:   string(backup.Overwrite),
	}
}

func (*RestoreOptions) Complete() error { return nil }

func (o *RestoreOptions) Validate() error {
	if len(o.input) == 0 {
		return fmt.Errorf("restore: --input path is required")
	}

	switch backup.ConflictResolution(o.resolution) {
	case backup.Overwrite, backup.Skip, backup.Merge:
	default:
		return fmt.Errorf("restore: unknown --resolution %q", o.resolution)
	}

	return nil
}

// Restore writes each archive record back under its original secret ID (via
// [vault.InsertWithID]) when restoring into an empty target, so that a
// second restore of the same archive into the same vault finds a real
// collision for [backup.TargetLookup] to resolve according to --resolution.
func (o *RestoreOptions) Run(ctx context.Context, _ ...string) error {
	archive, err := os.ReadFile(o.input)
	if err != nil {
		return fmt.Errorf("restore: read archive: %w", err)
	}

	backupPassword, err := input.PromptPassword(o.Out, int(o.In.Fd()))
	if err != nil {
		return fmt.Errorf("restore: read backup password: %w", err)
	}

	opts := backup.Options{
		Resolution: backup.ConflictResolution(o.resolution),
		Lookup:     o.lookupSecret(ctx),
		Write:      o.writeSecret(ctx),
	}

	report, err := backup.Restore(archive, backupPassword, opts)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	o.Infof("restored %d/%d records (%d skipped, %d errors)\n", report.Restored, report.Total, report.Skipped, len(report.Errors))

	for _, e := range report.Errors {
		o.Errorf("record %s: %s\n", e.ID, e.Message)
	}

	return nil
}

// lookupSecret reports whether a record id already exists in the live
// vault, so [backup.Restore] can resolve conflicts against real data
// instead of always treating every record as new. Non-"secret" kinds and
// malformed ids are reported as not found.
func (o *RestoreOptions) lookupSecret(ctx context.Context) backup.TargetLookup {
	return func(idStr string) (bool, []string, bool, string, string) {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return false, nil, false, "", ""
		}

		secrets, err := o.Vault.SecretsByIDs(ctx, id)
		if err != nil {
			return false, nil, false, "", ""
		}

		s, ok := secrets[id]
		if !ok {
			return false, nil, false, "", ""
		}

		return true, s.Labels, s.Favorite, s.CreatedAt, s.UpdatedAt
	}
}

// writeSecret persists a restored record under its original secret id,
// inserting a fresh row the first time a given id is seen and updating the
// existing row (value, favorite flag, and labels) on every subsequent
// restore of the same id.
func (o *RestoreOptions) writeSecret(ctx context.Context) backup.Writer {
	return func(idStr, kind string, body []byte, tags []string, favorite bool, _, _ string) error {
		if kind != "secret" {
			return fmt.Errorf("restore: unsupported record kind %q", kind)
		}

		id, err := strconv.Atoi(idStr)
		if err != nil {
			return fmt.Errorf("restore: invalid record id %q: %w", idStr, err)
		}

		existing, err := o.Vault.SecretsByIDs(ctx, id)
		if err != nil {
			return fmt.Errorf("restore: lookup record %d: %w", id, err)
		}

		current, exists := existing[id]
		if !exists {
			if _, err := o.Vault.InsertNewSecret(ctx, fmt.Sprintf("restored-%d", id), body, tags, vault.InsertWithID(id)); err != nil {
				return err
			}

			if !favorite {
				return nil
			}

			return o.Vault.SetFavorite(ctx, id, favorite)
		}

		if _, err := o.Vault.UpdateSecret(ctx, id, body); err != nil {
			return err
		}

		if favorite != current.Favorite {
			if err := o.Vault.SetFavorite(ctx, id, favorite); err != nil {
				return err
			}
		}

		added, removed := labelDiff(current.Labels, tags)
		if len(added) == 0 && len(removed) == 0 {
			return nil
		}

		return o.Vault.UpdateSecretMetadata(ctx, id, "", removed, added)
	}
}

// labelDiff returns the labels present in want but not have (to add), and
// the labels present in have but not want (to remove).
func labelDiff(have, want []string) (added, removed []string) {
	for _, l := range want {
		if !slices.Contains(have, l) {
			added = append(added, l)
		}
	}

	for _, l := range have {
		if !slices.Contains(want, l) {
			removed = append(removed, l)
		}
	}

	return added, removed
}

// NewCmdRestore creates the 'restore' cobra command.
func NewCmdRestore(defaults *DefaultVltOptions) *cobra.Command {
	o := NewRestoreOptions(defaults.StdioOptions, defaults.vaultOptions)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore secrets from a backup archive",
		Long: `Restore every record in a backup archive into the currently open vault, under its
original secret id.

If an id does not yet exist in the vault, it is inserted fresh, named "restored-<id>".
If it already exists (e.g. from a previous restore of the same archive), --resolution
selects how the conflict is handled: overwrite replaces the existing record's value,
labels and favorite flag with the archive's, skip leaves it untouched, and merge
unions labels and ORs the favorite flag.

The archive's created_at and updated_at timestamps are not written to the vault;
inserted and changed records carry the timestamps the vault assigns at restore time.`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVarP(&o.input, "input", "i", "", "path to the backup archive to restore")
	cmd.Flags().StringVarP(&o.resolution, "resolution", "r", string(backup.Overwrite), "conflict resolution: overwrite, skip, or merge")

	return cmd
}

// VerifyBackupOptions holds state for the 'verify-backup' command.
type VerifyBackupOptions struct {
	*genericclioptions.StdioOptions

	input string
}

var _ genericclioptions.CmdOptions = &VerifyBackupOptions{}

// NewVerifyBackupOptions initializes the options struct.
func NewVerifyBackupOptions(stdio *genericclioptions.StdioOptions) *VerifyBackupOptions {
	return &VerifyBackupOptions{StdioOptions: stdio}
}

func (*VerifyBackupOptions) Complete() error { return nil }

func (o *VerifyBackupOptions) Validate() error {
	if len(o.input) == 0 {
		return fmt.Errorf("verify-backup: --input path is required")
	}

	return nil
}

func (o *VerifyBackupOptions) Run(context.Context, ...string) error {
	archive, err := os.ReadFile(o.input)
	if err != nil {
		return fmt.Errorf("verify-backup: read archive: %w", err)
	}

	header, err := backup.Verify(archive)
	if err != nil {
		return fmt.Errorf("verify-backup: %w", err)
	}

	o.Infof("archive %s: %d entries, created %s, source %s\n", header.ArchiveID, header.EntryCount, header.CreatedAt, header.SourceVaultID)

	return nil
}

// NewCmdVerifyBackup creates the 'verify-backup' cobra command.
func NewCmdVerifyBackup(defaults *DefaultVltOptions) *cobra.Command {
	o := NewVerifyBackupOptions(defaults.StdioOptions)

	cmd := &cobra.Command{
		Use:   "verify-backup",
		Short: "Verify a backup archive's integrity",
		Long:  `Parse a backup archive's header and check its content checksum, without decrypting any record.`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVarP(&o.input, "input", "i", "", "path to the backup archive to verify")

	return cmd
}
