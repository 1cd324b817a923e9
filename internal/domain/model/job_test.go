package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/dedidash/internal/domain/model"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

func TestFetchResult(t *testing.T) {
	convey.Convey("Given a FetchResult", t, func() {
		job := model.FetchJob{RunID: "run-1", Player: "yrdk", Seq: 2, QueuedAt: time.Now()}

		convey.Convey("When the fetch returned records", func() {
			res := model.FetchResult{
				Job:     job,
				Records: []types.Record{{Player: "yrdk", Track: "A01-Race"}},
			}

			convey.Convey("Then it is not a failure", func() {
				convey.So(res.Failed(), convey.ShouldBeFalse)
				convey.So(res.Job.Player, convey.ShouldEqual, "yrdk")
				convey.So(res.Records, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the fetch errored", func() {
			res := model.FetchResult{Job: job, Err: errors.New("boom")}

			convey.Convey("Then it is a failure", func() {
				convey.So(res.Failed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When creating a zero job", func() {
			var zero model.FetchJob

			convey.Convey("Then it should have default values", func() {
				convey.So(zero.RunID, convey.ShouldEqual, "")
				convey.So(zero.Player, convey.ShouldEqual, "")
				convey.So(zero.QueuedAt, convey.ShouldEqual, time.Time{})
			})
		})
	})
}
