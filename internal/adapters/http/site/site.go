// Package site serves the HTML report pages and their charts.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/dedidash/internal/adapters/http/api"
	"github.com/okian/dedidash/internal/adapters/render"
	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
	"github.com/okian/dedidash/pkg/logger"
	"github.com/okian/dedidash/pkg/metrics"
)

// Error constants
var (
	ErrTemplate = errors.New("site template failed")
	ErrServe    = errors.New("site serve failed")
)

// Dependencies are the report operations the pages show.
type Dependencies interface {
	api.ReportDependencies
	api.PlayerDependencies
	api.StatusDependencies
}

// Site renders the report pages.
type Site struct {
	deps      Dependencies
	coalescer *api.Coalescer
	templates map[string]*template.Template
	title     string
	loc       *time.Location
	now       func() time.Time
	logger    logger.Logger
}

// Option configures a Site.
type Option func(*Site)

// WithTitle sets the name shown in the page header.
func WithTitle(title string) Option {
	return func(s *Site) {
		if title != "" {
			s.title = title
		}
	}
}

// WithLocation sets the zone dates are shown in.
func WithLocation(loc *time.Location) Option {
	return func(s *Site) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithCoalescer shares report computations with the JSON API.
func WithCoalescer(c *api.Coalescer) Option {
	return func(s *Site) {
		if c != nil {
			s.coalescer = c
		}
	}
}

// WithClock overrides the time source of the page footer.
func WithClock(now func() time.Time) Option {
	return func(s *Site) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the site logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Site) {
		if l != nil {
			s.logger = l
		}
	}
}

// New parses the page templates.
func New(deps Dependencies, opts ...Option) (*Site, error) {
	s := &Site{
		deps:      deps,
		coalescer: api.NewCoalescer(),
		title:     "dedidash",
		loc:       time.UTC,
		now:       time.Now,
		logger:    logger.GetOr(logger.NewNop()).Named("site"),
	}
	for _, opt := range opts {
		opt(s)
	}
	tmpl, err := parseTemplates(s.loc)
	if err != nil {
		return nil, err
	}
	s.templates = tmpl
	return s, nil
}

// Register attaches the pages, charts and stylesheet to mux.
func (s *Site) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /{$}", api.MetricsMiddleware(s.handleLeaderboard, "page_leaderboard"))
	mux.HandleFunc("GET /weekly", api.MetricsMiddleware(s.handleWeekly, "page_weekly"))
	mux.HandleFunc("GET /players", s.handlePlayerSearch)
	mux.HandleFunc("GET /players/{login}", api.MetricsMiddleware(s.handlePlayer, "page_player"))
	mux.HandleFunc("GET /database", api.MetricsMiddleware(s.handleDatabase, "page_database"))
	mux.HandleFunc("GET /charts/leaderboard.png", api.MetricsMiddleware(s.handleLeaderboardChart, "chart_leaderboard"))
	mux.HandleFunc("GET /charts/players/{login}/ranks.png", api.MetricsMiddleware(s.handleRanksChart, "chart_ranks"))
	mux.HandleFunc("GET /charts/players/{login}/environments.png", api.MetricsMiddleware(s.handleEnvironmentsChart, "chart_environments"))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(StaticFS())))
}

// page is what every template receives.
type page struct {
	Site      string
	Title     string
	Nav       string
	Query     string
	Form      windowForm
	Generated time.Time
	Data      any
}

type windowForm struct {
	Days  string
	Start string
	End   string
}

func (s *Site) newPage(r *http.Request, title, nav string, data any) page {
	q := r.URL.Query()
	p := page{
		Site:      s.title,
		Title:     title,
		Nav:       nav,
		Generated: s.now(),
		Data:      data,
		Form: windowForm{
			Days:  strings.ToLower(q.Get("days")),
			Start: q.Get("start"),
			End:   q.Get("end"),
		},
	}
	if r.URL.RawQuery != "" {
		p.Query = "?" + r.URL.RawQuery
	}
	return p
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	var buf bytes.Buffer
	if err := s.templates[name].ExecuteTemplate(&buf, "layout", p); err != nil {
		metrics.RecordErrorByComponent("site", "template")
		s.logger.Error(r.Context(), "page render failed", logger.Error(fmt.Errorf("%w: %s: %w", ErrServe, name, err)))
		http.Error(w, "page render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, title := http.StatusInternalServerError, "Something went wrong"
	if errors.Is(err, api.ErrBadRequest) || errors.Is(err, window.ErrInvalidWindow) {
		status, title = http.StatusBadRequest, "Bad request"
	} else {
		s.logger.Error(r.Context(), "page failed", logger.String("path", r.URL.Path), logger.Error(err))
	}
	s.render(w, r, status, pageError, s.newPage(r, title, "", err.Error()))
}

func (s *Site) leaderboard(r *http.Request) (types.Leaderboard, error) {
	q, err := api.ParseWindowQuery(r.URL.Query())
	if err != nil {
		return types.Leaderboard{}, err
	}
	win, err := s.deps.LeaderboardWindow(q)
	if err != nil {
		return types.Leaderboard{}, err
	}
	return api.Coalesce(r.Context(), s.coalescer, service.ReportLeaderboard, win.String(),
		func(ctx context.Context) (types.Leaderboard, error) {
			return s.deps.GenerateLeaderboard(ctx, s.deps.Roster(), win)
		})
}

func (s *Site) player(r *http.Request) (types.PlayerAnalytics, error) {
	login := strings.ToLower(strings.TrimSpace(r.PathValue("login")))
	if login == "" {
		return types.PlayerAnalytics{}, api.ErrBadRequest
	}
	q, err := api.ParseWindowQuery(r.URL.Query())
	if err != nil {
		return types.PlayerAnalytics{}, err
	}
	win, err := s.deps.AnalyticsWindow(q)
	if err != nil {
		return types.PlayerAnalytics{}, err
	}
	return api.Coalesce(r.Context(), s.coalescer, service.ReportPlayer, login+"|"+win.String(),
		func(ctx context.Context) (types.PlayerAnalytics, error) {
			return s.deps.PlayerAnalytics(ctx, login, win)
		})
}

func (s *Site) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := s.leaderboard(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageLeaderboard, s.newPage(r, "Leaderboard", "leaderboard", lb))
}

func (s *Site) handleWeekly(w http.ResponseWriter, r *http.Request) {
	q, err := api.ParseWindowQuery(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	win, err := s.deps.WeeklyWindow(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	report, err := api.Coalesce(r.Context(), s.coalescer, service.ReportWeekly, win.String(),
		func(ctx context.Context) (types.WeeklyReport, error) {
			return s.deps.GenerateWeeklyReport(ctx, s.deps.Roster(), win)
		})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageWeekly, s.newPage(r, "Weekly report", "weekly", report))
}

func (s *Site) handlePlayerSearch(w http.ResponseWriter, r *http.Request) {
	login := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("login")))
	if login == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/players/"+url.PathEscape(login), http.StatusSeeOther)
}

func (s *Site) handlePlayer(w http.ResponseWriter, r *http.Request) {
	pa, err := s.player(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pagePlayer, s.newPage(r, pa.Player, "", pa))
}

func (s *Site) handleDatabase(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.DatabaseStatus(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, pageDatabase, s.newPage(r, "Database", "database", st))
}

func (s *Site) handleLeaderboardChart(w http.ResponseWriter, r *http.Request) {
	lb, err := s.leaderboard(r)
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	s.writeChart(w, r, func() ([]byte, error) { return render.LeaderboardChart(lb) })
}

func (s *Site) handleRanksChart(w http.ResponseWriter, r *http.Request) {
	pa, err := s.player(r)
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	s.writeChart(w, r, func() ([]byte, error) { return render.RankHistogramChart(pa) })
}

func (s *Site) handleEnvironmentsChart(w http.ResponseWriter, r *http.Request) {
	pa, err := s.player(r)
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	s.writeChart(w, r, func() ([]byte, error) { return render.EnvironmentChart(pa) })
}

func (s *Site) writeChart(w http.ResponseWriter, r *http.Request, draw func() ([]byte, error)) {
	img, err := draw()
	if err != nil {
		s.chartFailed(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(img)
}

func (s *Site) chartFailed(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, api.ErrBadRequest) || errors.Is(err, window.ErrInvalidWindow) {
		status = http.StatusBadRequest
	} else {
		metrics.RecordErrorByComponent("site", "chart")
		s.logger.Error(r.Context(), "chart failed", logger.String("path", r.URL.Path), logger.Error(err))
	}
	http.Error(w, err.Error(), status)
}
