package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dedidash/internal/adapters/http/api"
	service "github.com/okian/dedidash/internal/app"
	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
	"github.com/okian/dedidash/pkg/logger"
)

var now = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

// mockDependencies records the arguments handlers pass through.
type mockDependencies struct {
	mu sync.Mutex

	err       error
	ingestErr error

	lastWindow window.Window
	lastPlayer string
	lastServer string
	lastDays   int
	lastMin    int
	ingested   int
}

func (m *mockDependencies) Roster() roster.Roster { return roster.New("alice", "bob") }

func (m *mockDependencies) LeaderboardWindow(q window.Query) (window.Window, error) {
	return q.Resolve(now, time.Sunday, time.UTC)
}

func (m *mockDependencies) WeeklyWindow(q window.Query) (window.Window, error) {
	return q.Resolve(now, time.Thursday, time.UTC)
}

func (m *mockDependencies) AnalyticsWindow(q window.Query) (window.Window, error) {
	if q.IsZero() {
		return window.All(), nil
	}
	return q.Resolve(now, time.Sunday, time.UTC)
}

func (m *mockDependencies) GenerateLeaderboard(_ context.Context, r roster.Roster, w window.Window) (types.Leaderboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastWindow = w
	if m.err != nil {
		return types.Leaderboard{}, m.err
	}
	rows := make([]types.LeaderboardRow, 0, r.Len())
	for i, login := range r.Sorted() {
		rows = append(rows, types.LeaderboardRow{Position: i + 1, Player: login, Score: float64(10 - i)})
	}
	return types.Leaderboard{Window: w, Rows: rows}, nil
}

func (m *mockDependencies) GenerateWeeklyReport(_ context.Context, _ roster.Roster, w window.Window) (types.WeeklyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastWindow = w
	return types.WeeklyReport{Window: w, Prior: w.Prior(), Empty: true}, m.err
}

func (m *mockDependencies) PlayerAnalytics(_ context.Context, player string, w window.Window) (types.PlayerAnalytics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPlayer, m.lastWindow = player, w
	return types.PlayerAnalytics{Player: player, Window: w, Empty: true}, m.err
}

func (m *mockDependencies) ServerPreferences(_ context.Context, _ roster.Roster, days, minRecords int) (types.ServerPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDays, m.lastMin = days, minRecords
	return types.ServerPreferences{Players: []types.ServerPreference{}}, m.err
}

func (m *mockDependencies) ServerActivity(_ context.Context, server string, days, minRecords int) (types.ServerActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastServer, m.lastDays, m.lastMin = server, days, minRecords
	return types.ServerActivity{Server: server, Players: []types.ServerActivityRow{}}, m.err
}

func (m *mockDependencies) DatabaseStatus(context.Context) (types.DatabaseStatus, error) {
	return types.DatabaseStatus{Backend: "sqlite", Records: 3}, m.err
}

func (m *mockDependencies) Ingest(_ context.Context, r roster.Roster) (types.IngestRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ingestErr != nil {
		return types.IngestRun{}, m.ingestErr
	}
	m.ingested++
	return types.IngestRun{ID: "run-1", Players: r.Len(), Status: types.RunOK}, nil
}

func (m *mockDependencies) GetStats() map[string]any {
	return map[string]any{"backend": "sqlite", "roster": 2}
}

func newMux(deps *mockDependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func serve(mux http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then the health endpoint serves metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)

			w = serve(mux, http.MethodGet, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And the stats endpoint returns service settings", func() {
			w := serve(mux, http.MethodGet, "/api/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"backend":"sqlite"`)
		})

		Convey("And report routes reject other methods", func() {
			w := serve(mux, http.MethodPost, "/api/leaderboard")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given the leaderboard endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When no window is given", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard")

			Convey("Then the current Sunday week is ranked", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var lb types.Leaderboard
				So(json.Unmarshal(w.Body.Bytes(), &lb), ShouldBeNil)
				So(lb.Rows, ShouldHaveLength, 2)
				So(lb.Rows[0].Player, ShouldEqual, "alice")
				So(deps.lastWindow.Start, ShouldEqual, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When days=all is given", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard?days=all")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastWindow.IsAll(), ShouldBeTrue)
		})

		Convey("When explicit dates are given", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard?start=2025-03-01&end=2025-03-07")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastWindow.Days(), ShouldEqual, 7)
		})

		Convey("When days is not a number", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard?days=lots")

			Convey("Then it answers 400 bad_request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the dates are inverted", func() {
			w := serve(mux, http.MethodGet, "/api/leaderboard?start=2025-03-07&end=2025-03-01")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the store fails", func() {
			deps.err = errors.New("database is locked")
			w := serve(mux, http.MethodGet, "/api/leaderboard")

			Convey("Then it answers 500 internal_error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "internal_error")
				So(body["message"], ShouldContainSubstring, "database is locked")
			})
		})

		Convey("When the weekly report is asked for", func() {
			w := serve(mux, http.MethodGet, "/api/weekly?weeks_back=1")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastWindow.Start.Weekday(), ShouldEqual, time.Thursday)
			So(deps.lastWindow.Days(), ShouldEqual, 7)
		})

		Convey("When weeks_back is negative", func() {
			w := serve(mux, http.MethodGet, "/api/weekly?weeks_back=-1")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPlayerHandler(t *testing.T) {
	Convey("Given the player endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When a login is asked for in mixed case", func() {
			w := serve(mux, http.MethodGet, "/api/players/YrDk")

			Convey("Then the lowercased login is analysed over all time", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastPlayer, ShouldEqual, "yrdk")
				So(deps.lastWindow.IsAll(), ShouldBeTrue)
			})
		})

		Convey("When a window is given", func() {
			w := serve(mux, http.MethodGet, "/api/players/yrdk?days=30")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastWindow.Days(), ShouldEqual, 30)
		})
	})
}

func TestServerHandler(t *testing.T) {
	Convey("Given the server endpoints", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When preferences are asked for with defaults", func() {
			w := serve(mux, http.MethodGet, "/api/servers")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastDays, ShouldEqual, 0)
			So(deps.lastMin, ShouldEqual, 0)
		})

		Convey("When explicit arguments are given", func() {
			w := serve(mux, http.MethodGet, "/api/servers?days=30&min_records=2")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastDays, ShouldEqual, 30)
			So(deps.lastMin, ShouldEqual, 2)
		})

		Convey("When min_records is zero", func() {
			w := serve(mux, http.MethodGet, "/api/servers?min_records=0")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When one server is asked for by an escaped name", func() {
			w := serve(mux, http.MethodGet, "/api/servers/"+url.PathEscape("Fun Server #2"))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastServer, ShouldEqual, "Fun Server #2")
		})
	})
}

func TestStatusHandler(t *testing.T) {
	Convey("Given the status endpoint", t, func() {
		deps := &mockDependencies{}
		w := serve(newMux(deps), http.MethodGet, "/api/status")

		So(w.Code, ShouldEqual, http.StatusOK)
		var st types.DatabaseStatus
		So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
		So(st.Records, ShouldEqual, 3)
	})
}

func TestIngestHandler(t *testing.T) {
	Convey("Given the ingest endpoint", t, func() {
		deps := &mockDependencies{}

		Convey("When HTTP ingestion is disabled", func() {
			w := serve(newMux(deps), http.MethodPost, "/api/ingest")

			Convey("Then it answers 403 and runs nothing", func() {
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(decodeError(w)["code"], ShouldEqual, "ingest_disabled")
				So(deps.ingested, ShouldEqual, 0)
			})
		})

		Convey("When HTTP ingestion is enabled", func() {
			mux := newMux(deps, api.WithAllowIngest(true))
			w := serve(mux, http.MethodPost, "/api/ingest")

			Convey("Then the roster is ingested and the run returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.ingested, ShouldEqual, 1)
				So(w.Body.String(), ShouldContainSubstring, `"id":"run-1"`)
			})

			Convey("And a concurrent run answers 409", func() {
				deps.ingestErr = service.ErrIngestRunning
				w := serve(mux, http.MethodPost, "/api/ingest")
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decodeError(w)["code"], ShouldEqual, "ingest_running")
			})
		})
	})
}

func TestParseWindowQuery(t *testing.T) {
	Convey("Given window query parameters", t, func() {
		parse := func(raw string) (window.Query, error) {
			v, err := url.ParseQuery(raw)
			So(err, ShouldBeNil)
			return api.ParseWindowQuery(v)
		}

		q, err := parse("")
		So(err, ShouldBeNil)
		So(q.IsZero(), ShouldBeTrue)

		q, err = parse("days=ALL")
		So(err, ShouldBeNil)
		So(q.All, ShouldBeTrue)

		q, err = parse("days=90&weeks_back=2&start=2025-01-01")
		So(err, ShouldBeNil)
		So(q, ShouldResemble, window.Query{Start: "2025-01-01", Days: 90, WeeksBack: 2})

		_, err = parse("days=0")
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)

		_, err = parse("weeks_back=x")
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
	})
}

func TestCoalesce(t *testing.T) {
	Convey("Given a coalescer", t, func() {
		c := api.NewCoalescer()
		ctx := context.Background()
		var calls atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})

		slow := func(context.Context) (string, error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			return "report", nil
		}

		Convey("When two identical requests overlap", func() {
			results := make(chan string, 2)
			go func() {
				v, _ := api.Coalesce(ctx, c, "leaderboard", "week", slow)
				results <- v
			}()
			<-started
			go func() {
				v, _ := api.Coalesce(ctx, c, "leaderboard", "week", slow)
				results <- v
			}()
			time.Sleep(50 * time.Millisecond)
			close(release)

			Convey("Then one computation serves both", func() {
				So(<-results, ShouldEqual, "report")
				So(<-results, ShouldEqual, "report")
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the caller gives up", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := api.Coalesce(cctx, c, "leaderboard", "other", func(context.Context) (string, error) {
				<-release
				return "late", nil
			})
			close(release)
			So(err, ShouldEqual, context.Canceled)
		})
	})
}

func TestRecoverMiddleware(t *testing.T) {
	Convey("Given a handler that panics", t, func() {
		h := api.RecoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}), logger.NewNop())

		w := serve(h, http.MethodGet, "/")

		Convey("Then the client gets a 500 error body", func() {
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(strings.TrimSpace(w.Body.String()), ShouldContainSubstring, "internal_error")
		})
	})
}
