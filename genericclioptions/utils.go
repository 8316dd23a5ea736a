package genericclioptions

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RejectDisallowedFlags returns an error if any of the named persistent
// flags were explicitly set by the user on cmd, even though they carry no
// meaning for it. Flags not present on cmd's flag set are ignored.
func RejectDisallowedFlags(cmd *cobra.Command, names ...string) error {
	for _, n := range names {
		flag := cmd.Flags().Lookup(n)
		if flag != nil && flag.Changed {
			return fmt.Errorf("flag --%s is not supported by %q", n, cmd.Name())
		}
	}

	return nil
}

func MarkFlagsHidden(sub *cobra.Command, names ...string) {
	f := sub.HelpFunc()
	sub.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		for _, n := range names {
			flag := cmd.Flags().Lookup(n)
			if flag != nil {
				flag.Hidden = true
			}
		}

		f(cmd, args)
	})
}
