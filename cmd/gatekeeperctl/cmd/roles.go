package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newRolesCmd(opts *rootOptions) *cobra.Command {
	var userID, output string

	cmd := &cobra.Command{
		Use:     "roles",
		Short:   "List the roles assigned to a user",
		Example: `  gatekeeperctl roles --user u3 -o json`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := validateOutput(output); err != nil {
				return err
			}

			resolver, closeFn, err := opts.resolver()
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, closeFn()) }()

			roles, err := resolver.ResolveRoles(cmd.Context(), userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == outputJSON {
				return writeJSON(out, roles)
			}
			if len(roles) == 0 {
				pterm.Fprintln(out, "No roles assigned.")
				return nil
			}
			rows := make([][]string, 0, len(roles))
			for _, r := range roles {
				rows = append(rows, []string{r.ID, r.Name, r.Description})
			}
			return writeTable(out, []string{"ID", "NAME", "DESCRIPTION"}, rows)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id to resolve")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format (table or json)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
