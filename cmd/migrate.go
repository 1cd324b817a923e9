package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/dedidash/pkg/logger"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := c.openStore(ctx, false, 0)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					c.log.Error(ctx, "close store failed", logger.Error(err))
				}
			}()

			if err := store.Migrate(ctx, target); err != nil {
				return err
			}
			v, dirty, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d (dirty: %t)\n", store.Backend(), v, dirty)
			return err
		},
	}
	cmd.Flags().IntVar(&target, "target-version", -1, "Target migration version (-1 means latest, 0 rolls back everything)")
	return cmd
}
