package cli

import (
	"context"
	"fmt"

	"github.com/ladzaretti/vlt-cli/clierror"
	"github.com/ladzaretti/vlt-cli/genericclioptions"
	"github.com/ladzaretti/vlt-cli/input"
	"github.com/ladzaretti/vlt-cli/vaulterrors"

	"github.com/spf13/cobra"
)

// RotateOptions have the data required to perform the rotate operation.
type RotateOptions struct {
	*genericclioptions.StdioOptions

	vaultOptions *VaultOptions
}

var _ genericclioptions.CmdOptions = &RotateOptions{}

// NewRotateOptions initializes the options struct.
func NewRotateOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *RotateOptions {
	return &RotateOptions{
		StdioOptions: stdio,
		vaultOptions: vaultOptions,
	}
}

func (o *RotateOptions) Complete() error {
	return o.vaultOptions.Complete()
}

func (o *RotateOptions) Validate() error {
	if err := o.vaultOptions.Validate(); err != nil {
		return err
	}

	if o.StdinIsPiped {
		return vaulterrors.ErrNonInteractiveUnsupported
	}

	return nil
}

func (o *RotateOptions) Run(ctx context.Context, _ ...string) error {
	newPassword, err := input.PromptNewPassword(o.Out, int(o.In.Fd()), masterKeyMinLen)
	if err != nil {
		return fmt.Errorf("read new master password: %w", err)
	}

	if err := o.vaultOptions.Vault.Rotate(ctx, newPassword); err != nil {
		return fmt.Errorf("rotate master password: %w", err)
	}

	o.Infof("Master password rotated successfully.\n")

	return nil
}

// NewCmdRotate creates the rotate cobra command.
func NewCmdRotate(defaults *DefaultVltOptions) *cobra.Command {
	o := NewRotateOptions(defaults.StdioOptions, defaults.vaultOptions)

	return &cobra.Command{
		Use:   "rotate",
		Short: "Rotate the master password",
		Long: fmt.Sprintf(`Securely change the master password of a vault.

The vault will be re-encrypted using the new password.

If no --file path is provided, uses the default path (~/%s).`, defaultDatabaseFilename),
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}
}
