package types_test

import (
	"errors"
	"testing"
	"time"

	types "github.com/okian/dedidash/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func validRecord() types.Record {
	at := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)
	return types.Record{
		Player:     "yrdk",
		Track:      "A01-Race",
		Time:       45 * time.Second,
		Rank:       3,
		RecordedAt: at,
		CapturedAt: at.Add(time.Hour),
	}
}

func TestRecordValidate(t *testing.T) {
	Convey("Given a record", t, func() {
		Convey("When every required field is set", func() {
			So(validRecord().Validate(), ShouldBeNil)
		})

		Convey("When a required field is missing", func() {
			cases := map[string]func(*types.Record){
				"player":   func(r *types.Record) { r.Player = "" },
				"track":    func(r *types.Record) { r.Track = "" },
				"time":     func(r *types.Record) { r.Time = -time.Second },
				"rank":     func(r *types.Record) { r.Rank = -1 },
				"recorded": func(r *types.Record) { r.RecordedAt = time.Time{} },
				"captured": func(r *types.Record) { r.CapturedAt = time.Time{} },
			}
			for name, mutate := range cases {
				r := validRecord()
				mutate(&r)
				err := r.Validate()
				So(err, ShouldNotBeNil)
				So(errors.Is(err, types.ErrInvalidRecord), ShouldBeTrue)
				_ = name
			}
		})

		Convey("When normalizing", func() {
			r := validRecord()
			r.Player = "  YRDK "
			r.Track = " A01-Race\t"
			r.Normalize()

			Convey("Then the login is lowercased and fields are trimmed", func() {
				So(r.Player, ShouldEqual, "yrdk")
				So(r.Track, ShouldEqual, "A01-Race")
			})
		})

		Convey("When the rank is zero", func() {
			r := validRecord()
			r.Rank = 0

			Convey("Then it is unranked and sorts last", func() {
				So(r.Ranked(), ShouldBeFalse)
				So(r.EffectiveRank(), ShouldEqual, types.UnrankedRank)
				So(r.Validate(), ShouldBeNil)
			})
		})
	})
}

func TestLapTime(t *testing.T) {
	Convey("Given Dedimania lap time strings", t, func() {
		d, err := types.ParseLapTime("45.12")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, 45*time.Second+120*time.Millisecond)

		d, err = types.ParseLapTime("1:23.45")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, time.Minute+23*time.Second+450*time.Millisecond)

		d, err = types.ParseLapTime("1:02:03.00")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, time.Hour+2*time.Minute+3*time.Second)

		_, err = types.ParseLapTime("")
		So(err, ShouldNotBeNil)
		_, err = types.ParseLapTime("a:b")
		So(err, ShouldNotBeNil)

		So(types.FormatLapTime(time.Minute+23*time.Second+450*time.Millisecond), ShouldEqual, "1:23.45")
		So(types.FormatLapTime(0), ShouldEqual, "-")
	})
}

func TestPlainNickname(t *testing.T) {
	Convey("Given formatted TrackMania nicknames", t, func() {
		So(types.PlainNickname("$f00Y$fffRDK"), ShouldEqual, "YRDK")
		So(types.PlainNickname("$o$iBold$z"), ShouldEqual, "Bold")
		So(types.PlainNickname("$$cash"), ShouldEqual, "$cash")
		So(types.PlainNickname("$l[http://example.com]Link$l"), ShouldEqual, "Link")
		So(types.PlainNickname("plain"), ShouldEqual, "plain")
		So(types.PlainNickname("trailing$"), ShouldEqual, "trailing")
	})
}
