// Package terminal prints reports as tables for the command line.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"

	"github.com/okian/dedidash/internal/domain/types"
)

// ErrRender is returned when a table cannot be written.
var ErrRender = errors.New("terminal render failed")

const (
	defaultWidth = 80
	minNameWidth = 12
	maxNameWidth = 40
)

// Renderer writes report tables to w.
type Renderer struct {
	w     io.Writer
	width int
	loc   *time.Location

	up, down, fresh, warn, title *color.Color
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithWidth overrides terminal width detection.
func WithWidth(width int) Option {
	return func(r *Renderer) {
		if width > 0 {
			r.width = width
		}
	}
}

// WithColor forces colours on or off.
func WithColor(enabled bool) Option {
	return func(r *Renderer) {
		for _, c := range r.colors() {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// WithLocation sets the zone dates are printed in.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// New returns a renderer writing to w. Width defaults to the size of stdout
// when it is a terminal.
func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		w:     w,
		loc:   time.UTC,
		up:    color.New(color.FgGreen, color.Bold),
		down:  color.New(color.FgRed),
		fresh: color.New(color.FgCyan, color.Bold),
		warn:  color.New(color.FgYellow),
		title: color.New(color.Bold),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.width == 0 {
		r.width = Width()
	}
	return r
}

func (r *Renderer) colors() []*color.Color {
	return []*color.Color{r.up, r.down, r.fresh, r.warn, r.title}
}

// Width returns the width of stdout, or 80 when it is not a terminal.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// nameWidth is the room left for a free-text column after fixed columns.
func (r *Renderer) nameWidth(fixed int) int {
	n := r.width - fixed
	switch {
	case n < minNameWidth:
		return minNameWidth
	case n > maxNameWidth:
		return maxNameWidth
	}
	return n
}

func truncate(s string, width int) string {
	rs := []rune(s)
	if len(rs) <= width {
		return s
	}
	return string(rs[:width-1]) + "…"
}

func (r *Renderer) heading(format string, args ...any) error {
	_, err := r.title.Fprintf(r.w, format+"\n", args...)
	return err
}

func (r *Renderer) table(header []string, rows [][]string, rightAlign bool) error {
	table := tablewriter.NewWriter(r.w)
	table.Header(header)
	if rightAlign {
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})
	}
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

func (r *Renderer) empty(msg string) error {
	_, err := r.warn.Fprintln(r.w, msg)
	return err
}

func (r *Renderer) date(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(r.loc).Format("2006-01-02 15:04")
}

func (r *Renderer) trend(s string) string {
	switch {
	case s == types.TrendNew:
		return r.fresh.Sprint(s)
	case strings.HasPrefix(s, "▲"):
		return r.up.Sprint(s)
	case strings.HasPrefix(s, "▼"):
		return r.down.Sprint(s)
	}
	return s
}

func (r *Renderer) delta(n int) string {
	switch {
	case n > 0:
		return r.up.Sprintf("+%d", n)
	case n < 0:
		return r.down.Sprint(n)
	}
	return "0"
}

func display(login, nickname string) string {
	if plain := types.PlainNickname(nickname); plain != "" && !strings.EqualFold(plain, login) {
		return plain + " (" + login + ")"
	}
	return login
}

func rank(n int) string {
	if n <= 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func float(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }

// Leaderboard prints the ranked roster.
func (r *Renderer) Leaderboard(lb types.Leaderboard) error {
	if err := r.heading("Leaderboard %s", lb.Window); err != nil {
		return err
	}
	if lb.Empty {
		return r.empty("No data: nobody on the roster set a record in this window.")
	}
	width := r.nameWidth(70)
	rows := make([][]string, 0, len(lb.Rows))
	for _, row := range lb.Rows {
		rows = append(rows, []string{
			strconv.Itoa(row.Position),
			truncate(display(row.Player, row.Nickname), width),
			float(row.Score),
			strconv.Itoa(row.Top1),
			strconv.Itoa(row.Top3),
			strconv.Itoa(row.Top5),
			strconv.Itoa(row.Records),
			float(row.AvgRank),
			r.trend(row.Trend),
		})
	}
	return r.table([]string{"#", "Player", "Score", "Top1", "Top3", "Top5", "Records", "Avg rank", "Trend"}, rows, false)
}

// Weekly prints the weekly delta report.
func (r *Renderer) Weekly(report types.WeeklyReport) error {
	if err := r.heading("Weekly report %s (prior %s)", report.Window, report.Prior); err != nil {
		return err
	}
	if report.Empty {
		if err := r.empty("No data: no new or improved records in this window."); err != nil {
			return err
		}
	}
	width := r.nameWidth(50)
	rows := make([][]string, 0, len(report.Players))
	for _, p := range report.Players {
		rows = append(rows, []string{
			truncate(display(p.Player, p.Nickname), width),
			strconv.Itoa(p.New),
			strconv.Itoa(p.Improved),
			strconv.Itoa(p.Total),
			strconv.Itoa(p.PriorTotal),
			r.delta(p.Delta),
		})
	}
	if len(rows) > 0 {
		if err := r.table([]string{"Player", "New", "Improved", "Total", "Before", "Delta"}, rows, false); err != nil {
			return err
		}
	}
	if report.Empty {
		return nil
	}

	fun := report.Fun
	line := fmt.Sprintf("%d records on %d tracks by %d players.", fun.TotalRecords, fun.UniqueTracks, fun.UniquePlayers)
	if fun.HottestTrack != "" {
		line += fmt.Sprintf(" Hottest track: %s (%d records).", fun.HottestTrack, fun.HottestTrackRecords)
	}
	if _, err := fmt.Fprintln(r.w, line); err != nil {
		return err
	}
	for _, h := range report.Highlights {
		detail := ""
		if h.Detail != "" {
			detail = " (" + h.Detail + ")"
		}
		if _, err := fmt.Fprintf(r.w, "%s: %s%s\n", r.title.Sprint(h.Title), h.Player, detail); err != nil {
			return err
		}
	}
	if len(report.Rivalries) > 0 {
		rows := make([][]string, 0, len(report.Rivalries))
		for _, rv := range report.Rivalries {
			score := rv.Score
			if rv.Tied {
				score += " (tied)"
			}
			rows = append(rows, []string{rv.Leader, rv.Challenger, score, strconv.Itoa(rv.SharedTracks)})
		}
		if err := r.table([]string{"Leader", "Challenger", "Score", "Shared"}, rows, false); err != nil {
			return err
		}
	}
	if len(report.TrackOwners) > 0 {
		rows := make([][]string, 0, len(report.TrackOwners))
		for _, o := range report.TrackOwners {
			rows = append(rows, []string{truncate(o.Track, r.nameWidth(50)), o.Player, o.Environment, r.date(o.RecordedAt)})
		}
		return r.table([]string{"Track", "World record", "Environment", "Driven"}, rows, false)
	}
	return nil
}

// Player prints one player's analytics.
func (r *Renderer) Player(pa types.PlayerAnalytics) error {
	if err := r.heading("%s %s", pa.Player, pa.Window); err != nil {
		return err
	}
	if pa.Empty {
		return r.empty("No data: no records for this player in this window.")
	}
	summary := [][]string{
		{"Records", strconv.Itoa(pa.Records)},
		{"World records", strconv.Itoa(pa.WorldRecords)},
		{"Top 3 / Top 5", fmt.Sprintf("%d / %d", pa.Top3, pa.Top5)},
		{"Tracks", strconv.Itoa(pa.UniqueTracks)},
		{"Average rank", float(pa.AvgRank)},
		{"Median / p90 rank", fmt.Sprintf("%.0f / %.0f", pa.RankP50, pa.RankP90)},
		{"Active days", strconv.Itoa(pa.ActivityDays)},
		{"Favourite environment", pa.FavouriteEnvironment},
	}
	if err := r.table([]string{"Metric", "Value"}, summary, false); err != nil {
		return err
	}

	ranks := make([][]string, 0, len(pa.RankHistogram))
	for _, b := range pa.RankHistogram {
		ranks = append(ranks, []string{b.Label, strconv.Itoa(b.Count)})
	}
	if err := r.table([]string{"Rank", "Records"}, ranks, true); err != nil {
		return err
	}

	if len(pa.Recent) > 0 {
		width := r.nameWidth(60)
		rows := make([][]string, 0, len(pa.Recent))
		for _, rec := range pa.Recent {
			rows = append(rows, []string{
				truncate(rec.Track, width),
				rec.Environment,
				types.FormatLapTime(rec.Time),
				rank(rec.Rank),
				r.date(rec.RecordedAt),
			})
		}
		return r.table([]string{"Track", "Environment", "Time", "Rank", "Driven"}, rows, false)
	}
	return nil
}

// Servers prints where each roster player drives.
func (r *Renderer) Servers(sp types.ServerPreferences) error {
	if err := r.heading("Server preferences %s", sp.Window); err != nil {
		return err
	}
	if len(sp.Players) == 0 {
		return r.empty("No data: no player reached the record threshold.")
	}
	width := r.nameWidth(50)
	rows := make([][]string, 0, len(sp.Players))
	for _, p := range sp.Players {
		favourites := make([]string, 0, len(p.Favourites))
		for _, f := range p.Favourites {
			favourites = append(favourites, fmt.Sprintf("%s (%d)", f.Server, f.Records))
		}
		rows = append(rows, []string{
			truncate(display(p.Player, p.Nickname), width),
			strconv.Itoa(p.TotalRecords),
			strconv.Itoa(p.TotalDays),
			strconv.Itoa(len(p.Servers)),
			strings.Join(favourites, ", "),
		})
	}
	return r.table([]string{"Player", "Records", "Days", "Servers", "Favourites"}, rows, false)
}

// ServerActivity prints players active on one server.
func (r *Renderer) ServerActivity(sa types.ServerActivity) error {
	if err := r.heading("%s %s", sa.Server, sa.Window); err != nil {
		return err
	}
	if len(sa.Players) == 0 {
		return r.empty("No data: nobody on the roster drove on this server.")
	}
	rows := make([][]string, 0, len(sa.Players))
	for _, p := range sa.Players {
		rows = append(rows, []string{
			p.Player,
			strconv.Itoa(p.Records),
			strconv.Itoa(p.Tracks),
			r.date(p.FirstRecord),
			r.date(p.LastRecord),
			strconv.FormatFloat(p.PerDay, 'f', 2, 64),
		})
	}
	return r.table([]string{"Player", "Records", "Tracks", "First", "Last", "Per day"}, rows, false)
}

// Status prints store contents and the last run.
func (r *Renderer) Status(st types.DatabaseStatus) error {
	if err := r.heading("Database (%s)", st.Backend); err != nil {
		return err
	}
	if st.Records == 0 {
		if err := r.empty("No data: nothing has been ingested yet."); err != nil {
			return err
		}
	}
	rows := [][]string{
		{"Current records", strconv.Itoa(st.Records)},
		{"History rows", strconv.Itoa(st.HistoryRows)},
		{"Players", strconv.Itoa(st.Players)},
		{"Tracks", strconv.Itoa(st.Tracks)},
		{"Challenges", strconv.Itoa(st.Challenges)},
		{"First record", r.date(st.FirstRecord)},
		{"Last record", r.date(st.LastRecord)},
		{"Last capture", r.date(st.LastCapture)},
	}
	if err := r.table([]string{"Metric", "Value"}, rows, false); err != nil {
		return err
	}
	if st.LastRun != nil {
		return r.Run(*st.LastRun)
	}
	return nil
}

// Run prints an ingestion run summary.
func (r *Renderer) Run(run types.IngestRun) error {
	status := run.Status
	switch run.Status {
	case types.RunOK:
		status = r.up.Sprint(status)
	case types.RunPartial:
		status = r.warn.Sprint(status)
	case types.RunFailed:
		status = r.down.Sprint(status)
	}
	if err := r.heading("Run %s", run.ID); err != nil {
		return err
	}
	rows := [][]string{
		{"Status", status},
		{"Started", r.date(run.StartedAt)},
		{"Players", strconv.Itoa(run.Players)},
		{"Fetched", strconv.Itoa(run.Fetched)},
		{"Written", strconv.Itoa(run.Written)},
		{"Duplicates", strconv.Itoa(run.Duplicates)},
		{"Invalid", strconv.Itoa(run.Invalid)},
		{"Challenges", strconv.Itoa(run.Challenges)},
	}
	if err := r.table([]string{"Run", "Value"}, rows, false); err != nil {
		return err
	}
	for _, f := range run.Failures {
		if _, err := fmt.Fprintf(r.w, "%s %s: %s\n", r.down.Sprint("failed"), f.Player, f.Error); err != nil {
			return err
		}
	}
	return nil
}
