package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/dedidash/internal/adapters/terminal"
	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/pkg/logger"
)

func newFetchCmd(c *cli) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Scrape Dedimania for every roster player and store the records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.withService(ctx, func(svc *service.Service) error {
				run, err := svc.Ingest(ctx, svc.Roster())
				if err != nil {
					return err
				}
				c.log.Info(ctx, "ingestion finished",
					logger.String("run_id", run.ID),
					logger.String("status", run.Status),
					logger.Int("written", run.Written))
				if err := out.print(cmd.OutOrStdout(), run, func(r *terminal.Renderer) error { return r.Run(run) }); err != nil {
					return err
				}
				if run.Status == types.RunFailed {
					return fmt.Errorf("every player fetch failed in run %s", run.ID)
				}
				return nil
			})
		},
	}
	out.register(cmd)
	return cmd
}
