package render_test

import (
	"bytes"
	"image/png"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/dedidash/internal/adapters/render"
	"github.com/okian/dedidash/internal/domain/stats"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/internal/domain/window"
)

func shouldBePNG(actual any, _ ...any) string {
	b, ok := actual.([]byte)
	if !ok {
		return "expected a byte slice"
	}
	if _, err := png.Decode(bytes.NewReader(b)); err != nil {
		return "expected a PNG image: " + err.Error()
	}
	return ""
}

func TestLeaderboardChart(t *testing.T) {
	Convey("Given a leaderboard", t, func() {
		lb := types.Leaderboard{
			Window: window.All(),
			Rows: []types.LeaderboardRow{
				{Position: 1, Player: "alice", Score: 42.5},
				{Position: 2, Player: "bob", Score: 17},
			},
		}

		Convey("When it is drawn", func() {
			img, err := render.LeaderboardChart(lb)

			Convey("Then a PNG comes out", func() {
				So(err, ShouldBeNil)
				So(img, shouldBePNG)
			})
		})

		Convey("When it has no rows", func() {
			img, err := render.LeaderboardChart(types.Leaderboard{Empty: true})

			Convey("Then an empty chart is still drawn", func() {
				So(err, ShouldBeNil)
				So(img, shouldBePNG)
			})
		})
	})
}

func TestPlayerCharts(t *testing.T) {
	Convey("Given player analytics", t, func() {
		hist := stats.EmptyHistogram()
		hist[0].Count = 3
		hist[len(hist)-1].Count = 1
		pa := types.PlayerAnalytics{
			Player:        "alice",
			Records:       4,
			RankHistogram: hist,
			Environments: []types.EnvironmentCount{
				{Environment: "Stadium", Count: 3, Percent: 75},
				{Environment: "Coast", Count: 1, Percent: 25},
			},
		}

		Convey("Then both charts render", func() {
			img, err := render.RankHistogramChart(pa)
			So(err, ShouldBeNil)
			So(img, shouldBePNG)

			img, err = render.EnvironmentChart(pa)
			So(err, ShouldBeNil)
			So(img, shouldBePNG)
		})

		Convey("When the player is unknown", func() {
			empty := types.PlayerAnalytics{Player: "ghost", Empty: true, RankHistogram: stats.EmptyHistogram()}

			img, err := render.RankHistogramChart(empty)
			So(err, ShouldBeNil)
			So(img, shouldBePNG)

			img, err = render.EnvironmentChart(empty)
			So(err, ShouldBeNil)
			So(img, shouldBePNG)
		})
	})
}
