package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/edudao/gatekeeper/pkg/validator"
)

// errPermissionDenied makes a denied check exit non-zero without an extra message.
var errPermissionDenied = errors.New("permission denied")

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var userID, permission string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a user holds a permission",
		Long: `Resolves the user's permissions and prints "allowed" or "denied".
Directory failures are reported as "denied"; the command exits 1 on denial.`,
		Example: `  gatekeeperctl check --user u1 --permission manage_users`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := validator.ValidatePermissionName(permission); err != nil {
				return fmt.Errorf("invalid --permission: %w", err)
			}

			resolver, closeFn, err := opts.resolver()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, closeFn()) }()

			if !resolver.HasPermission(cmd.Context(), userID, permission) {
				fmt.Fprintln(cmd.OutOrStdout(), "denied")
				return errPermissionDenied
			}
			fmt.Fprintln(cmd.OutOrStdout(), "allowed")
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to check")
	cmd.Flags().StringVar(&permission, "permission", "", "Permission name")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("permission")
	return cmd
}
