package terminal

import (
	"bytes"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
)

var day = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func newRenderer() (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, WithWidth(120), WithColor(false)), &buf
}

func TestRenderer_Leaderboard(t *testing.T) {
	Convey("Given a plain renderer", t, func() {
		r, buf := newRenderer()
		w := window.LastDays(day, 7, time.UTC)

		Convey("A leaderboard lists players with plain nicknames and trends", func() {
			err := r.Leaderboard(types.Leaderboard{Window: w, Rows: []types.LeaderboardRow{
				{Position: 1, Player: "alice", Nickname: "$f00Ali$ice", Score: 12, Top1: 2, Records: 3, AvgRank: 1.5, Trend: types.TrendNew},
				{Position: 2, Player: "bob", Score: 3, Records: 1, AvgRank: 4, Trend: "▼1"},
			}})
			So(err, ShouldBeNil)
			out := buf.String()
			So(out, ShouldContainSubstring, "Leaderboard")
			So(out, ShouldContainSubstring, "Alice (alice)")
			So(out, ShouldContainSubstring, "12.0")
			So(out, ShouldContainSubstring, "NEW")
			So(out, ShouldContainSubstring, "▼1")
			So(out, ShouldNotContainSubstring, "\x1b[")
		})

		Convey("An empty leaderboard prints the no data line", func() {
			So(r.Leaderboard(types.Leaderboard{Window: w, Empty: true}), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "No data")
		})
	})
}

func TestRenderer_Reports(t *testing.T) {
	Convey("Given a plain renderer", t, func() {
		r, buf := newRenderer()
		w := window.LastDays(day, 7, time.UTC)

		Convey("The weekly report prints signed deltas and highlights", func() {
			err := r.Weekly(types.WeeklyReport{
				Window: w, Prior: w.Prior(),
				Players: []types.PlayerDelta{
					{Player: "alice", New: 2, Total: 2, Delta: 2},
					{Player: "bob", PriorTotal: 1, Delta: -1},
				},
				Highlights:  []types.Highlight{{Title: "Most active", Player: "alice", Detail: "2 records"}},
				Rivalries:   []types.Rivalry{{Leader: "alice", Challenger: "bob", Score: "2-2", SharedTracks: 4, Tied: true}},
				TrackOwners: []types.TrackOwner{{Track: "A01-Race", Player: "alice", Environment: "Stadium", RecordedAt: day}},
				Fun:         types.FunStats{TotalRecords: 2, UniqueTracks: 2, UniquePlayers: 1, HottestTrack: "A01-Race", HottestTrackRecords: 1},
			})
			So(err, ShouldBeNil)
			out := buf.String()
			So(out, ShouldContainSubstring, "+2")
			So(out, ShouldContainSubstring, "-1")
			So(out, ShouldContainSubstring, "Most active: alice (2 records)")
			So(out, ShouldContainSubstring, "2-2 (tied)")
			So(out, ShouldContainSubstring, "Hottest track: A01-Race")
		})

		Convey("An empty weekly report prints the no data line", func() {
			So(r.Weekly(types.WeeklyReport{Window: w, Prior: w.Prior(), Empty: true}), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "No data")
		})

		Convey("Player analytics prints the summary and recent records", func() {
			err := r.Player(types.PlayerAnalytics{
				Player: "alice", Window: window.All(), Records: 1, UniqueTracks: 1,
				FavouriteEnvironment: "Stadium",
				RankHistogram:        []types.RankBucket{{Label: "1", Min: 1, Max: 1, Count: 1}},
				Recent: []types.Record{{Player: "alice", Track: "A01-Race", Environment: "Stadium",
					Time: 45120 * time.Millisecond, Rank: 1, RecordedAt: day}},
			})
			So(err, ShouldBeNil)
			out := buf.String()
			So(out, ShouldContainSubstring, "0:45.12")
			So(out, ShouldContainSubstring, "2025-03-10 00:00")
			So(out, ShouldContainSubstring, "Stadium")
		})

		Convey("Server reports list favourites and activity", func() {
			So(r.Servers(types.ServerPreferences{Window: w, Players: []types.ServerPreference{{
				Player: "alice", TotalRecords: 5,
				Favourites: []types.ServerUsage{{Server: "fun server", Records: 5}},
				Servers:    []types.ServerUsage{{Server: "fun server", Records: 5}},
			}}}), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "fun server (5)")

			buf.Reset()
			So(r.ServerActivity(types.ServerActivity{Server: "fun server", Window: w}), ShouldBeNil)
			So(buf.String(), ShouldContainSubstring, "No data")
		})

		Convey("Status prints the last run and its failures", func() {
			err := r.Status(types.DatabaseStatus{
				Backend: "sqlite", Records: 3,
				LastRun: &types.IngestRun{ID: "run-1", Status: types.RunPartial,
					Failures: []types.PlayerFailure{{Player: "carol", Error: "status 503"}}},
			})
			So(err, ShouldBeNil)
			out := buf.String()
			So(out, ShouldContainSubstring, "Database (sqlite)")
			So(out, ShouldContainSubstring, "run-1")
			So(out, ShouldContainSubstring, "failed carol: status 503")
		})
	})
}

func TestHelpers(t *testing.T) {
	Convey("Names are truncated to the column width", t, func() {
		So(truncate("short", 10), ShouldEqual, "short")
		So(truncate("a-very-long-track-name", 8), ShouldEqual, "a-very-…")
	})

	Convey("Name columns stay within bounds", t, func() {
		r := &Renderer{width: 40}
		So(r.nameWidth(70), ShouldEqual, minNameWidth)
		r.width = 500
		So(r.nameWidth(70), ShouldEqual, maxNameWidth)
		r.width = 100
		So(r.nameWidth(70), ShouldEqual, 30)
	})

	Convey("A nickname equal to the login is not repeated", t, func() {
		So(display("alice", "$oAlice"), ShouldEqual, "alice")
		So(display("alice", ""), ShouldEqual, "alice")
		So(display("alice", "Speedy"), ShouldEqual, "Speedy (alice)")
	})
}
