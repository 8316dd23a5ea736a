package cli

import (
	"context"
	"fmt"

	"github.com/ladzaretti/vlt-cli/clierror"
	"github.com/ladzaretti/vlt-cli/genericclioptions"
	"github.com/ladzaretti/vlt-cli/input"
	"github.com/ladzaretti/vlt-cli/vault"
	"github.com/ladzaretti/vlt-cli/vaulterrors"

	"github.com/spf13/cobra"
)

// LoginOptions holds data required to run the command.
//
// Unlike a networked secret manager, there is no session to establish: the
// vault is always reopened from the password on every invocation. This
// command exists purely to let a user verify their password up front,
// without performing any other operation.
type LoginOptions struct {
	*genericclioptions.StdioOptions
	path func() string
}

var _ genericclioptions.CmdOptions = &LoginOptions{}

// NewLoginOptions initializes the options struct.
func NewLoginOptions(stdio *genericclioptions.StdioOptions, path func() string) *LoginOptions {
	return &LoginOptions{
		StdioOptions: stdio,
		path:         path,
	}
}

func (*LoginOptions) Complete() error {
	return nil
}

func (o *LoginOptions) Validate() error {
	if o.NonInteractive {
		return vaulterrors.ErrNonInteractiveUnsupported
	}

	return nil
}

func (o *LoginOptions) Run(ctx context.Context, _ ...string) error {
	path := o.path()

	password, err := input.PromptReadSecure(o.Out, int(o.In.Fd()), "Password for vault at %q:", path)
	if err != nil {
		return fmt.Errorf("prompt password: %v", err)
	}

	if _, _, err := vault.Login(ctx, path, password); err != nil {
		return vaulterrors.ErrWrongPassword
	}

	o.Infof("Login successful")

	return nil
}

// NewCmdLogin creates the login cobra command.
func NewCmdLogin(stdio *genericclioptions.StdioOptions, path func() string) *cobra.Command {
	o := NewLoginOptions(stdio, path)

	return &cobra.Command{
		Use:   "login",
		Short: "Verify the vault password",
		Long:  "Verify the vault password without performing any other operation.",
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}
}
