package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/dedidash/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8501")
				convey.So(cfg.Roster, convey.ShouldBeEmpty)
				convey.So(cfg.Database.Backend, convey.ShouldEqual, "sqlite")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("DEDIDASH_ADDR", ":8080")
			_ = os.Setenv("DEDIDASH_DATABASE_BACKEND", "postgres")
			_ = os.Setenv("DEDIDASH_DATABASE_DSN", "postgres://u:p@localhost/dedi")
			_ = os.Setenv("DEDIDASH_SCRAPER_WORKERS", "2")
			_ = os.Setenv("DEDIDASH_ROSTER", "YRDK, niyck,yrdk")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Database.Backend, convey.ShouldEqual, "postgres")
				convey.So(cfg.Database.DSN, convey.ShouldEqual, "postgres://u:p@localhost/dedi")
				convey.So(cfg.Scraper.Workers, convey.ShouldEqual, 2)
				convey.So(cfg.Roster, convey.ShouldResemble, []string{"yrdk", "niyck"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
roster:
  - YRDK
  - pointiff
rivalry_excluded: [yogeshdeshwari]
database:
  backend: sqlite
  dsn: /tmp/dedi.db
scraper:
  request_delay: 250ms
  challenge_info: false
report:
  weekly_week_start: monday
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("DEDIDASH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep unset defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Roster, convey.ShouldResemble, []string{"yrdk", "pointiff"})
				convey.So(cfg.RivalryExcluded, convey.ShouldResemble, []string{"yogeshdeshwari"})
				convey.So(cfg.Database.DSN, convey.ShouldEqual, "/tmp/dedi.db")
				convey.So(cfg.Scraper.RequestDelay, convey.ShouldEqual, 250*time.Millisecond)
				convey.So(cfg.Scraper.ChallengeInfo, convey.ShouldBeFalse)
				convey.So(cfg.Scraper.Limit, convey.ShouldEqual, 100)
				convey.So(cfg.Report.WeeklyWeekStart, convey.ShouldEqual, "monday")
			})
		})

		convey.Convey("When both file and environment variables are set", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
log_level: debug
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("DEDIDASH_CONFIG", tmpFile)
			_ = os.Setenv("DEDIDASH_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When an explicit path argument is given", func() {
			tmpFile := createTempConfigFile(`addr: ":6060"`)
			defer func() { _ = os.Remove(tmpFile) }()

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then the path wins over the env variable", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("DEDIDASH_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("DEDIDASH_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the backend from env is invalid", func() {
			_ = os.Setenv("DEDIDASH_DATABASE_BACKEND", "oracle")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "unsupported database backend")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func createTempConfigFile(content string) string {
	dir, err := os.MkdirTemp("", "dedidash-config")
	if err != nil {
		panic(err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		panic(err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key := kv[:i]
				if len(key) >= len(config.EnvPrefix) && key[:len(config.EnvPrefix)] == config.EnvPrefix {
					_ = os.Unsetenv(key)
				}
				break
			}
		}
	}
}
