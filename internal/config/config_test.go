package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/dedidash/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8501")
			convey.So(cfg.Database.Backend, convey.ShouldEqual, config.BackendSQLite)
			convey.So(cfg.Database.AutoMigrate, convey.ShouldBeTrue)
			convey.So(cfg.Scraper.Game, convey.ShouldEqual, "TMU")
			convey.So(cfg.Scraper.Limit, convey.ShouldEqual, 100)
			convey.So(cfg.Scraper.RequestDelay, convey.ShouldEqual, time.Second)
			convey.So(cfg.Scraper.Workers, convey.ShouldEqual, 1)
			convey.So(cfg.Report.LeaderboardWeekStart, convey.ShouldEqual, "sunday")
			convey.So(cfg.Report.WeeklyWeekStart, convey.ShouldEqual, "thursday")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When the backend is unknown", func() {
			cfg.Database.Backend = "oracle"
			err := cfg.Validate()

			convey.Convey("Then validation fails with ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, config.ErrUnknownBackend), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "oracle")
			})
		})

		convey.Convey("When postgres has no DSN", func() {
			cfg.Database.Backend = config.BackendPostgres
			cfg.Database.DSN = ""
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the base URL is relative", func() {
			cfg.Scraper.BaseURL = "/tmstats"
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When workers is zero", func() {
			cfg.Scraper.Workers = 0
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})

		convey.Convey("When the week start is not a weekday", func() {
			cfg.Report.WeeklyWeekStart = "someday"
			convey.So(errors.Is(cfg.Validate(), config.ErrUnknownWeekday), convey.ShouldBeTrue)
		})

		convey.Convey("When the timezone is unknown", func() {
			cfg.Report.Timezone = "Mars/Olympus"
			convey.So(errors.Is(cfg.Validate(), config.ErrUnknownTimezone), convey.ShouldBeTrue)
		})
	})
}

func TestParseWeekday(t *testing.T) {
	convey.Convey("Given weekday names", t, func() {
		d, err := config.ParseWeekday(" Thursday ")
		convey.So(err, convey.ShouldBeNil)
		convey.So(d, convey.ShouldEqual, time.Thursday)

		d, err = config.ParseWeekday("sunday")
		convey.So(err, convey.ShouldBeNil)
		convey.So(d, convey.ShouldEqual, time.Sunday)

		_, err = config.ParseWeekday("funday")
		convey.So(err, convey.ShouldNotBeNil)
	})
}
