package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ladzaretti/vlt-cli/clierror"
	"github.com/ladzaretti/vlt-cli/genericclioptions"
	"github.com/ladzaretti/vlt-cli/input"
	"github.com/ladzaretti/vlt-cli/vault"

	"github.com/spf13/cobra"
)

type AddPasswordError struct {
	Err error
}

func (e *AddPasswordError) Error() string { return "add-password: " + e.Err.Error() }

func (e *AddPasswordError) Unwrap() error { return e.Err }

// AddPasswordOptions holds data required to save a legacy password entry,
// keyed by the deterministic site/username pair rather than a free-form name.
type AddPasswordOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	site     string
	username string
	notes    string
	tags     []string
	favorite bool
}

var _ genericclioptions.CmdOptions = &AddPasswordOptions{}

// NewAddPasswordOptions initializes the options struct.
func NewAddPasswordOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *AddPasswordOptions {
	return &AddPasswordOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*AddPasswordOptions) Complete() error { return nil }

func (o *AddPasswordOptions) Validate() error {
	if len(o.site) == 0 {
		return &AddPasswordError{fmt.Errorf("--site is required")}
	}

	if len(o.username) == 0 {
		return &AddPasswordError{fmt.Errorf("--username is required")}
	}

	return nil
}

func (o *AddPasswordOptions) Run(ctx context.Context, _ ...string) error {
	password, err := o.readPassword()
	if err != nil {
		return &AddPasswordError{err}
	}

	defer clear(password)

	if len(password) == 0 {
		return &AddPasswordError{fmt.Errorf("password must not be empty")}
	}

	entry := vault.PasswordEntry{
		Site:     o.site,
		Username: o.username,
		Password: string(password),
		Notes:    o.notes,
		Tags:     o.tags,
		Favorite: o.favorite,
	}

	if err := o.Vault.UpsertPassword(ctx, entry); err != nil {
		return &AddPasswordError{err}
	}

	o.Infof("saved password for %s@%s\n", o.username, o.site)

	return nil
}

func (o *AddPasswordOptions) readPassword() ([]byte, error) {
	if o.StdinIsPiped {
		bs, err := io.ReadAll(o.In)
		if err != nil {
			return nil, err
		}

		return bytes.TrimRight(bs, "\r\n"), nil
	}

	return input.PromptReadSecure(o.Out, int(o.In.Fd()), "Enter password for %s@%s: ", o.username, o.site)
}

// NewCmdAddPassword creates the add-password cobra command.
func NewCmdAddPassword(defaults *DefaultVltOptions) *cobra.Command {
	o := NewAddPasswordOptions(defaults.StdioOptions, defaults.vaultOptions)

	cmd := &cobra.Command{
		Use:   "add-password",
		Short: "Save a legacy site/username password entry",
		Long: `Save a password entry identified by its site and username pair,
rather than a free-form secret name.

Re-saving the same site/username pair overwrites the previous entry in place.`,
		Example: `  # Save a password, prompting for the value
  vlt add-password --site github.com --username me

  # Save a favorited password with tags
  vlt add-password --site github.com --username me --tag work --tag vcs --favorite`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVarP(&o.site, "site", "", "", "the site the password belongs to")
	cmd.Flags().StringVarP(&o.username, "username", "", "", "the account username")
	cmd.Flags().StringVarP(&o.notes, "notes", "", "", "free-text notes")
	cmd.Flags().StringSliceVarP(&o.tags, "tag", "", nil, "optional tag to associate with the entry (comma-separated or repeated)")
	cmd.Flags().BoolVarP(&o.favorite, "favorite", "", false, "mark the entry as a favorite")

	return cmd
}

type ListPasswordsOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	site string
}

var _ genericclioptions.CmdOptions = &ListPasswordsOptions{}

// NewListPasswordsOptions initializes the options struct.
func NewListPasswordsOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *ListPasswordsOptions {
	return &ListPasswordsOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*ListPasswordsOptions) Complete() error { return nil }
func (*ListPasswordsOptions) Validate() error { return nil }

func (o *ListPasswordsOptions) Run(ctx context.Context, _ ...string) error {
	var (
		entries []vault.PasswordEntry
		err     error
	)

	if len(o.site) > 0 {
		entries, err = o.Vault.FilterPasswordsBySite(ctx, o.site)
	} else {
		entries, err = o.Vault.ListPasswords(ctx)
	}

	if err != nil {
		return &AddPasswordError{err}
	}

	for _, e := range entries {
		o.Printf("%s\t%s\t%v\n", e.Site, e.Username, e.Tags)
	}

	return nil
}

// NewCmdListPasswords creates the list-passwords cobra command.
func NewCmdListPasswords(defaults *DefaultVltOptions) *cobra.Command {
	o := NewListPasswordsOptions(defaults.StdioOptions, defaults.vaultOptions)

	cmd := &cobra.Command{
		Use:   "list-passwords",
		Short: "List legacy password entries",
		Long:  `List password entries saved via 'vlt add-password', optionally filtered by site glob pattern.`,
		Example: `  # List every saved password entry
  vlt list-passwords

  # List password entries for a given site pattern
  vlt list-passwords --site "*.github.com"`,
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().StringVarP(&o.site, "site", "", "", "filter by site (UNIX glob pattern)")

	return cmd
}
