package window_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/dedidash/internal/domain/window"
	. "github.com/smartystreets/goconvey/convey"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeek(t *testing.T) {
	Convey("Given a Sunday-based week", t, func() {
		Convey("When today is a Wednesday", func() {
			now := time.Date(2025, time.March, 12, 15, 4, 0, 0, time.UTC)
			w := window.Week(now, time.Sunday, 0, time.UTC)

			Convey("Then the week starts on the previous Sunday and includes today", func() {
				So(w.Start, ShouldEqual, day(2025, time.March, 9))
				So(w.End, ShouldEqual, day(2025, time.March, 13))
				So(w.Contains(now), ShouldBeTrue)
			})
		})

		Convey("When today is a Sunday", func() {
			now := time.Date(2025, time.March, 16, 9, 0, 0, 0, time.UTC)
			w := window.Week(now, time.Sunday, 0, time.UTC)

			Convey("Then the week reaches back to the previous Sunday", func() {
				So(w.Start, ShouldEqual, day(2025, time.March, 9))
				So(w.End, ShouldEqual, day(2025, time.March, 17))
			})
		})

		Convey("When asking for two weeks back", func() {
			now := time.Date(2025, time.March, 12, 15, 4, 0, 0, time.UTC)
			w := window.Week(now, time.Sunday, 2, time.UTC)

			Convey("Then a full seven day week is returned", func() {
				So(w.Start, ShouldEqual, day(2025, time.February, 23))
				So(w.End, ShouldEqual, day(2025, time.March, 2))
				So(w.Days(), ShouldEqual, 7)
			})
		})
	})

	Convey("Given a Thursday-based week on a Friday", t, func() {
		now := time.Date(2025, time.March, 14, 1, 0, 0, 0, time.UTC)
		w := window.Week(now, time.Thursday, 0, time.UTC)
		So(w.Start, ShouldEqual, day(2025, time.March, 13))
		So(w.Days(), ShouldEqual, 2)
	})
}

func TestLastDaysAndPrior(t *testing.T) {
	Convey("Given the last 7 days", t, func() {
		now := time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC)
		w := window.LastDays(now, 7, time.UTC)

		Convey("Then it covers today and six days before", func() {
			So(w.Start, ShouldEqual, day(2025, time.March, 6))
			So(w.End, ShouldEqual, day(2025, time.March, 13))
			So(w.Contains(now.AddDate(0, 0, -10)), ShouldBeFalse)
		})

		Convey("Then the prior window is adjacent and equally long", func() {
			p := w.Prior()
			So(p.End, ShouldEqual, w.Start)
			So(p.Duration(), ShouldEqual, w.Duration())
			So(p.Contains(now.AddDate(0, 0, -10)), ShouldBeTrue)
		})
	})

	Convey("Given the unbounded window", t, func() {
		w := window.All()
		So(w.IsAll(), ShouldBeTrue)
		So(w.Contains(time.Unix(0, 0)), ShouldBeTrue)
		So(w.Prior().IsAll(), ShouldBeTrue)
		So(w.String(), ShouldEqual, "all time")
	})
}

func TestRange(t *testing.T) {
	Convey("Given explicit dates", t, func() {
		now := day(2025, time.March, 12)

		w, err := window.Range("2025-03-01", "2025-03-07", now, time.UTC)
		So(err, ShouldBeNil)
		So(w.Start, ShouldEqual, day(2025, time.March, 1))
		So(w.End, ShouldEqual, day(2025, time.March, 8))
		So(w.String(), ShouldEqual, "2025-03-01 to 2025-03-07")

		_, err = window.Range("2025-03-07", "2025-03-01", now, time.UTC)
		So(errors.Is(err, window.ErrInvalidWindow), ShouldBeTrue)

		_, err = window.Range("yesterday", "", now, time.UTC)
		So(errors.Is(err, window.ErrInvalidWindow), ShouldBeTrue)
	})
}

func TestQuery_Resolve(t *testing.T) {
	Convey("Given a Friday afternoon", t, func() {
		now := time.Date(2025, time.March, 14, 15, 0, 0, 0, time.UTC)

		Convey("When nothing is asked for", func() {
			q := window.Query{}
			w, err := q.Resolve(now, time.Sunday, nil)
			So(err, ShouldBeNil)
			So(q.IsZero(), ShouldBeTrue)
			So(w, ShouldResemble, window.Week(now, time.Sunday, 0, time.UTC))
		})

		Convey("When all time wins over every other bound", func() {
			w, err := window.Query{All: true, Days: 7, Start: "2025-01-01"}.Resolve(now, time.Sunday, time.UTC)
			So(err, ShouldBeNil)
			So(w.IsAll(), ShouldBeTrue)
		})

		Convey("When dates win over days", func() {
			w, err := window.Query{Start: "2025-03-01", End: "2025-03-02", Days: 30}.Resolve(now, time.Sunday, time.UTC)
			So(err, ShouldBeNil)
			So(w.Days(), ShouldEqual, 2)
		})

		Convey("When days are given", func() {
			w, err := window.Query{Days: 30}.Resolve(now, time.Sunday, time.UTC)
			So(err, ShouldBeNil)
			So(w, ShouldResemble, window.LastDays(now, 30, time.UTC))
		})

		Convey("When an offset is negative", func() {
			_, err := window.Query{Days: -1}.Resolve(now, time.Sunday, time.UTC)
			So(errors.Is(err, window.ErrInvalidWindow), ShouldBeTrue)
		})
	})
}

func TestPriorWeek(t *testing.T) {
	Convey("Given a leaderboard week still in progress", t, func() {
		// Wednesday; the week started on Sunday the 9th.
		now := time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC)
		w := window.Week(now, time.Sunday, 0, time.UTC)
		So(w.IsWeek(time.Sunday, time.UTC), ShouldBeTrue)

		Convey("Then its trend base is the whole previous week", func() {
			p := w.PriorWeek(time.Sunday, time.UTC)
			So(p.Start, ShouldEqual, day(2025, time.March, 2))
			So(p.End, ShouldEqual, day(2025, time.March, 9))
			So(p.Days(), ShouldEqual, 7)
		})

		Convey("Then Prior alone would only cover as many days", func() {
			So(w.Prior().Start, ShouldEqual, day(2025, time.March, 5))
		})
	})

	Convey("Given a past full week", t, func() {
		now := time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC)
		w := window.Week(now, time.Sunday, 1, time.UTC)
		So(w.PriorWeek(time.Sunday, time.UTC), ShouldResemble, w.Prior())
	})

	Convey("Given windows that are not weeks", t, func() {
		now := time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC)

		Convey("Then the last 30 days compare with the 30 before", func() {
			w := window.LastDays(now, 30, time.UTC)
			So(w.IsWeek(time.Sunday, time.UTC), ShouldBeFalse)
			So(w.PriorWeek(time.Sunday, time.UTC), ShouldResemble, w.Prior())
		})

		Convey("Then a range starting midweek compares with its own length", func() {
			w, err := window.Range("2025-03-05", "2025-03-07", now, time.UTC)
			So(err, ShouldBeNil)
			So(w.PriorWeek(time.Sunday, time.UTC), ShouldResemble, w.Prior())
		})

		Convey("Then all time has no prior", func() {
			So(window.All().PriorWeek(time.Sunday, time.UTC).IsAll(), ShouldBeTrue)
		})
	})
}
