package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newPermissionsCmd(opts *rootOptions) *cobra.Command {
	var userID, output string

	cmd := &cobra.Command{
		Use:     "permissions",
		Short:   "List the permissions a user holds through their roles",
		Example: `  gatekeeperctl permissions --user u4`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := validateOutput(output); err != nil {
				return err
			}

			resolver, closeFn, err := opts.resolver()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, closeFn()) }()

			perms, err := resolver.ResolvePermissions(cmd.Context(), userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == outputJSON {
				return writeJSON(out, perms)
			}
			if len(perms) == 0 {
				pterm.Fprintln(out, "No permissions granted.")
				return nil
			}
			rows := make([][]string, 0, len(perms))
			for _, p := range perms {
				rows = append(rows, []string{p.Name, p.Resource, p.Action, p.Description})
			}
			return writeTable(out, []string{"NAME", "RESOURCE", "ACTION", "DESCRIPTION"}, rows)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to resolve")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format (table or json)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
