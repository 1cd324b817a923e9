package roster_test

import (
	"testing"

	"github.com/okian/dedidash/internal/domain/roster"
	"github.com/okian/dedidash/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRoster(t *testing.T) {
	Convey("Given a configured roster with messy input", t, func() {
		r := roster.New(" Yrdk", "dennis", "", "YRDK", "cruel")

		Convey("Then logins are normalised and deduplicated in order", func() {
			So(r.Logins(), ShouldResemble, []string{"yrdk", "dennis", "cruel"})
			So(r.Sorted(), ShouldResemble, []string{"cruel", "dennis", "yrdk"})
			So(r.Len(), ShouldEqual, 3)
			So(r.Empty(), ShouldBeFalse)
		})

		Convey("Then membership ignores case", func() {
			So(r.Contains("DENNIS"), ShouldBeTrue)
			So(r.Contains("stranger"), ShouldBeFalse)
		})

		Convey("When excluding players", func() {
			w := r.Without("Dennis")
			So(w.Logins(), ShouldResemble, []string{"yrdk", "cruel"})
			So(r.Len(), ShouldEqual, 3)
		})

		Convey("When filtering records", func() {
			recs := []types.Record{{Player: "yrdk"}, {Player: "stranger"}, {Player: "cruel"}}
			out := r.Filter(recs)
			So(out, ShouldHaveLength, 2)
			So(out[0].Player, ShouldEqual, "yrdk")
			So(out[1].Player, ShouldEqual, "cruel")
		})

		Convey("When the logins slice is modified by the caller", func() {
			l := r.Logins()
			l[0] = "hacked"
			So(r.Contains("yrdk"), ShouldBeTrue)
		})
	})

	Convey("Given an empty roster", t, func() {
		var r roster.Roster
		So(r.Empty(), ShouldBeTrue)
		So(r.Contains("yrdk"), ShouldBeFalse)
		So(r.Filter([]types.Record{{Player: "yrdk"}}), ShouldBeEmpty)
	})
}
