package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/okian/dedidash/internal/adapters/terminal"
	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/internal/domain/window"
)

// windowFlags are the time window options shared by the report commands.
type windowFlags struct {
	start     string
	end       string
	days      string
	weeksBack int
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.start, "start", "", "First day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&w.end, "end", "", "Last day of the window (YYYY-MM-DD)")
	cmd.Flags().StringVar(&w.days, "days", "", "Number of days ending today, or 'all'")
	cmd.Flags().IntVar(&w.weeksBack, "weeks-back", 0, "Whole weeks before the current one")
}

func (w *windowFlags) query() (window.Query, error) {
	q := window.Query{
		Start:     strings.TrimSpace(w.start),
		End:       strings.TrimSpace(w.end),
		WeeksBack: w.weeksBack,
	}
	if d := strings.TrimSpace(w.days); d != "" {
		if strings.EqualFold(d, "all") {
			q.All = true
		} else {
			n, err := strconv.Atoi(d)
			if err != nil || n < 1 {
				return window.Query{}, fmt.Errorf("%w: --days must be a positive integer or 'all'", window.ErrInvalidWindow)
			}
			q.Days = n
		}
	}
	return q, nil
}

// outputFlags pick between tables and JSON.
type outputFlags struct {
	json    bool
	noColor bool
	width   int
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&o.noColor, "no-color", false, "Disable colours")
	cmd.Flags().IntVar(&o.width, "width", 0, "Terminal width override (0 = auto-detect)")
}

func (o *outputFlags) renderer(w io.Writer) *terminal.Renderer {
	opts := []terminal.Option{terminal.WithWidth(o.width)}
	if o.noColor {
		opts = append(opts, terminal.WithColor(false))
	}
	return terminal.New(w, opts...)
}

// print writes v as indented JSON or hands it to table.
func (o *outputFlags) print(w io.Writer, v any, table func(*terminal.Renderer) error) error {
	if o.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return table(o.renderer(w))
}

func newLeaderboardCmd(c *cli) *cobra.Command {
	var (
		win windowFlags
		out outputFlags
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the roster leaderboard (defaults to the current week)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := win.query()
			if err != nil {
				return err
			}
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				w, err := svc.LeaderboardWindow(q)
				if err != nil {
					return err
				}
				lb, err := svc.GenerateLeaderboard(cmd.Context(), svc.Roster(), w)
				if err != nil {
					return err
				}
				return out.print(cmd.OutOrStdout(), lb, func(r *terminal.Renderer) error { return r.Leaderboard(lb) })
			})
		},
	}
	win.register(cmd)
	out.register(cmd)
	return cmd
}

func newWeeklyCmd(c *cli) *cobra.Command {
	var (
		win windowFlags
		out outputFlags
	)
	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Print the weekly report against the previous window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := win.query()
			if err != nil {
				return err
			}
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				w, err := svc.WeeklyWindow(q)
				if err != nil {
					return err
				}
				report, err := svc.GenerateWeeklyReport(cmd.Context(), svc.Roster(), w)
				if err != nil {
					return err
				}
				return out.print(cmd.OutOrStdout(), report, func(r *terminal.Renderer) error { return r.Weekly(report) })
			})
		},
	}
	win.register(cmd)
	out.register(cmd)
	return cmd
}

func newPlayerCmd(c *cli) *cobra.Command {
	var (
		win windowFlags
		out outputFlags
	)
	cmd := &cobra.Command{
		Use:   "player <login>",
		Short: "Print analytics for one player (defaults to all time)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := win.query()
			if err != nil {
				return err
			}
			login := strings.ToLower(strings.TrimSpace(args[0]))
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				w, err := svc.AnalyticsWindow(q)
				if err != nil {
					return err
				}
				pa, err := svc.PlayerAnalytics(cmd.Context(), login, w)
				if err != nil {
					return err
				}
				return out.print(cmd.OutOrStdout(), pa, func(r *terminal.Renderer) error { return r.Player(pa) })
			})
		},
	}
	win.register(cmd)
	out.register(cmd)
	return cmd
}

func newServersCmd(c *cli) *cobra.Command {
	var (
		days, minRecords int
		out              outputFlags
	)
	cmd := &cobra.Command{
		Use:   "servers [server]",
		Short: "Print where roster players drive, or who drives on one server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 || minRecords < 0 {
				return fmt.Errorf("--days and --min-records must not be negative")
			}
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				if len(args) == 1 {
					sa, err := svc.ServerActivity(cmd.Context(), args[0], days, minRecords)
					if err != nil {
						return err
					}
					return out.print(cmd.OutOrStdout(), sa, func(r *terminal.Renderer) error { return r.ServerActivity(sa) })
				}
				sp, err := svc.ServerPreferences(cmd.Context(), svc.Roster(), days, minRecords)
				if err != nil {
					return err
				}
				return out.print(cmd.OutOrStdout(), sp, func(r *terminal.Renderer) error { return r.Servers(sp) })
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Lookback in days (0 = configured default)")
	cmd.Flags().IntVar(&minRecords, "min-records", 0, "Hide players with fewer records (0 = configured default)")
	out.register(cmd)
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print store contents and the last ingestion run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd.Context(), func(svc *service.Service) error {
				st, err := svc.DatabaseStatus(cmd.Context())
				if err != nil {
					return err
				}
				return out.print(cmd.OutOrStdout(), st, func(r *terminal.Renderer) error { return r.Status(st) })
			})
		},
	}
	out.register(cmd)
	return cmd
}
