package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/dedidash/internal/adapters/export"
	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/pkg/logger"
)

const (
	exportRecords     = "records"
	exportLeaderboard = "leaderboard"
)

func newExportCmd(c *cli) *cobra.Command {
	var (
		win    windowFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:       "export <records|leaderboard>",
		Short:     "Write records or leaderboard rows as CSV or Parquet",
		Long:      "Export writes roster records (default window: all time) or the leaderboard (default window: current week) to a file or stdout.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{exportRecords, exportLeaderboard},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			q, err := win.query()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.withService(ctx, func(svc *service.Service) error {
				return writeOutput(ctx, c, output, cmd.OutOrStdout(), func(w io.Writer) error {
					if args[0] == exportLeaderboard {
						lw, err := svc.LeaderboardWindow(q)
						if err != nil {
							return err
						}
						lb, err := svc.GenerateLeaderboard(ctx, svc.Roster(), lw)
						if err != nil {
							return err
						}
						return export.WriteLeaderboard(w, f, lb)
					}
					rw, err := svc.AnalyticsWindow(q)
					if err != nil {
						return err
					}
					records, err := svc.Records(ctx, svc.Roster(), rw)
					if err != nil {
						return err
					}
					return export.WriteRecords(w, f, records)
				})
			})
		},
	}
	win.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(export.CSV), "Output format: csv or parquet")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

// writeOutput runs write against the named file, or stdout when path is
// empty or "-".
func writeOutput(ctx context.Context, c *cli, path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	c.log.Info(ctx, "export written", logger.String("path", path))
	return nil
}
