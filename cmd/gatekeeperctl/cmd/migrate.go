package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/edudao/gatekeeper/internal/app"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var seedDemo bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the schema and seed the role catalogue",
		Long: `Creates or updates the directory tables and seeds the DAO roles,
permissions and grants. With --seed-demo the demo members are added too.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if seedDemo {
				cfg.Database.SeedDemo = true
			}

			db, err := app.OpenDatabase(cfg)
			if err != nil {
				return err
			}
			if err := app.CloseDatabase(db); err != nil {
				return err
			}

			pterm.Fprintln(cmd.OutOrStdout(), "Database migrated ("+cfg.Database.Driver+").")
			if cfg.Database.SeedDemo {
				pterm.Fprintln(cmd.OutOrStdout(), "Demo members seeded.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seedDemo, "seed-demo", false, "Also seed the demo members")
	return cmd
}
