package site_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dedidash/internal/adapters/http/site"
	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
)

var now = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

type fakeReports struct {
	empty bool
	err   error
}

func (f *fakeReports) Roster() roster.Roster { return roster.New("alice", "bob") }

func (f *fakeReports) LeaderboardWindow(q window.Query) (window.Window, error) {
	return q.Resolve(now, time.Sunday, time.UTC)
}

func (f *fakeReports) WeeklyWindow(q window.Query) (window.Window, error) {
	return q.Resolve(now, time.Thursday, time.UTC)
}

func (f *fakeReports) AnalyticsWindow(q window.Query) (window.Window, error) {
	if q.IsZero() {
		return window.All(), nil
	}
	return q.Resolve(now, time.Sunday, time.UTC)
}

func (f *fakeReports) GenerateLeaderboard(_ context.Context, _ roster.Roster, w window.Window) (types.Leaderboard, error) {
	if f.err != nil || f.empty {
		return types.Leaderboard{Window: w, Rows: []types.LeaderboardRow{}, Empty: true}, f.err
	}
	return types.Leaderboard{Window: w, Rows: []types.LeaderboardRow{
		{Position: 1, Player: "alice", Nickname: "$f00Ali$ice", Top1: 2, Records: 3, Score: 12, Trend: types.TrendNew},
		{Position: 2, Player: "bob", Records: 1, Score: 3, Trend: types.TrendSame},
	}}, nil
}

func (f *fakeReports) GenerateWeeklyReport(_ context.Context, _ roster.Roster, w window.Window) (types.WeeklyReport, error) {
	if f.empty {
		return types.WeeklyReport{Window: w, Prior: w.Prior(), Empty: true}, f.err
	}
	return types.WeeklyReport{
		Window: w,
		Prior:  w.Prior(),
		Players: []types.PlayerDelta{
			{Player: "alice", New: 2, Total: 2, Delta: 2},
			{Player: "bob", PriorTotal: 1, Delta: -1},
		},
		Fun: types.FunStats{TotalRecords: 2, UniqueTracks: 2, UniquePlayers: 1, HottestTrack: "A01-Race", HottestTrackRecords: 1},
	}, f.err
}

func (f *fakeReports) PlayerAnalytics(_ context.Context, player string, w window.Window) (types.PlayerAnalytics, error) {
	if f.err != nil || f.empty {
		return types.PlayerAnalytics{Player: player, Window: w, Empty: true}, f.err
	}
	return types.PlayerAnalytics{
		Player:        player,
		Window:        w,
		Records:       1,
		UniqueTracks:  1,
		RankHistogram: []types.RankBucket{{Label: "1", Min: 1, Max: 1, Count: 1}},
		Environments:  []types.EnvironmentCount{{Environment: "Stadium", Count: 1, Percent: 100}},
		Recent: []types.Record{{
			Player: player, Track: "A01-Race", Environment: "Stadium",
			Time: 45120 * time.Millisecond, Rank: 1, RecordedAt: now,
		}},
	}, nil
}

func (f *fakeReports) DatabaseStatus(context.Context) (types.DatabaseStatus, error) {
	if f.empty {
		return types.DatabaseStatus{Backend: "sqlite"}, f.err
	}
	return types.DatabaseStatus{
		Backend: "sqlite", Records: 3, HistoryRows: 4, Players: 2, Tracks: 2,
		LastRun: &types.IngestRun{ID: "run-1", Status: types.RunPartial,
			Failures: []types.PlayerFailure{{Player: "carol", Error: "status 503"}}},
	}, f.err
}

func newMux(deps site.Dependencies) *http.ServeMux {
	s, err := site.New(deps, site.WithClock(func() time.Time { return now }), site.WithTitle("Team TMU"))
	So(err, ShouldBeNil)
	mux := http.NewServeMux()
	s.Register(context.Background(), mux)
	return mux
}

func get(mux http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestSite_Pages(t *testing.T) {
	Convey("Given a site over populated reports", t, func() {
		mux := newMux(&fakeReports{})

		Convey("The leaderboard page lists roster players with plain nicknames", func() {
			w := get(mux, "/")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			body := w.Body.String()
			So(body, ShouldContainSubstring, "Team TMU")
			So(body, ShouldContainSubstring, "Alice")
			So(body, ShouldContainSubstring, `href="/players/bob"`)
			So(body, ShouldContainSubstring, "/charts/leaderboard.png")
			So(body, ShouldNotContainSubstring, "No data")
		})

		Convey("The chart link carries the window query", func() {
			w := get(mux, "/?days=7")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "/charts/leaderboard.png?days=7")
		})

		Convey("The weekly page shows deltas and team totals", func() {
			w := get(mux, "/weekly")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := w.Body.String()
			So(body, ShouldContainSubstring, "+2")
			So(body, ShouldContainSubstring, "-1")
			So(body, ShouldContainSubstring, "A01-Race")
		})

		Convey("The player page shows recent records", func() {
			w := get(mux, "/players/Alice")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := w.Body.String()
			So(body, ShouldContainSubstring, "45.12")
			So(body, ShouldContainSubstring, "/charts/players/alice/ranks.png")
		})

		Convey("The player search redirects to the player page", func() {
			w := get(mux, "/players?login=Bob")
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			So(w.Header().Get("Location"), ShouldEqual, "/players/bob")

			w = get(mux, "/players?login=")
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			So(w.Header().Get("Location"), ShouldEqual, "/")
		})

		Convey("The database page shows the last run", func() {
			w := get(mux, "/database")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := w.Body.String()
			So(body, ShouldContainSubstring, "run-1")
			So(body, ShouldContainSubstring, "carol")
		})

		Convey("The stylesheet is served", func() {
			w := get(mux, "/static/style.css")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/css")
		})

		Convey("Unknown paths are not found", func() {
			So(get(mux, "/nope").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a site over an empty store", t, func() {
		mux := newMux(&fakeReports{empty: true})

		for _, path := range []string{"/", "/weekly", "/players/alice", "/database"} {
			w := get(mux, path)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "No data")
		}
	})
}

func TestSite_Errors(t *testing.T) {
	Convey("Given a site", t, func() {
		Convey("A bad window renders the error page with 400", func() {
			mux := newMux(&fakeReports{})
			for _, path := range []string{"/?days=-3", "/weekly?start=yesterday", "/players/alice?weeks_back=-1"} {
				w := get(mux, path)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "Bad request")
			}
		})

		Convey("A failing report renders the error page with 500", func() {
			mux := newMux(&fakeReports{err: errors.New("disk on fire")})
			w := get(mux, "/")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, "Something went wrong")
		})

		Convey("A bad window on a chart answers 400", func() {
			mux := newMux(&fakeReports{})
			So(get(mux, "/charts/leaderboard.png?days=zero").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSite_Charts(t *testing.T) {
	pngMagic := []byte("\x89PNG\r\n\x1a\n")

	Convey("Given a site", t, func() {
		for _, deps := range []*fakeReports{{}, {empty: true}} {
			mux := newMux(deps)
			for _, path := range []string{
				"/charts/leaderboard.png?days=7",
				"/charts/players/alice/ranks.png",
				"/charts/players/alice/environments.png",
			} {
				w := get(mux, path)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "image/png")
				So(bytes.HasPrefix(w.Body.Bytes(), pngMagic), ShouldBeTrue)
			}
		}
	})
}
