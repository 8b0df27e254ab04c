package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/gradelens/internal/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.MaxUploadMB, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GRADELENS_ADDR", ":8080")
			_ = os.Setenv("GRADELENS_STORE_DRIVER", "sqlite")
			_ = os.Setenv("GRADELENS_STORE_DSN", "/tmp/grades.db")
			_ = os.Setenv("GRADELENS_LOW_PERCENTILE", "15")
			_ = os.Setenv("GRADELENS_WEIGHTS__QUIZ_AVG", "0.5")
			_ = os.Setenv("GRADELENS_SHUTDOWN_TIMEOUT", "3s")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.StoreDSN, convey.ShouldEqual, "/tmp/grades.db")
				convey.So(*cfg.LowPercentile, convey.ShouldEqual, 15)
				convey.So(cfg.DropThreshold, convey.ShouldBeNil)
				convey.So(cfg.Weights["quiz_avg"], convey.ShouldEqual, 0.5)
				convey.So(cfg.ShutdownTimeout, convey.ShouldEqual, 3*time.Second)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
# class defaults
addr: ":9090"
log_format: json
drop_threshold: 12
weights:
  quiz_avg: 0.4
  midterm_mock: 0.6
semester_first: "S1"
semester_second: "S2"
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("GRADELENS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(*cfg.DropThreshold, convey.ShouldEqual, 12)
				convey.So(cfg.Weights, convey.ShouldResemble, map[string]float64{"quiz_avg": 0.4, "midterm_mock": 0.6})
				convey.So(cfg.SemesterFirst, convey.ShouldEqual, "S1")
			})

			convey.Convey("And environment variables override file values", func() {
				_ = os.Setenv("GRADELENS_ADDR", ":8081")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When the config file is missing", func() {
			_ = os.Setenv("GRADELENS_CONFIG", "/nonexistent/gradelens.yaml")

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("GRADELENS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("GRADELENS_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("GRADELENS_MAX_UPLOAD_MB", "lots")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"GRADELENS_CONFIG",
		"GRADELENS_ADDR",
		"GRADELENS_STORE_DRIVER",
		"GRADELENS_STORE_DSN",
		"GRADELENS_LOW_PERCENTILE",
		"GRADELENS_WEIGHTS__QUIZ_AVG",
		"GRADELENS_SHUTDOWN_TIMEOUT",
		"GRADELENS_MAX_UPLOAD_MB",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "gradelens-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
