package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"healthboard/internal/config"
	"healthboard/internal/models"

	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("Then it polls the three local services every ten seconds", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.Interval(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.DiskSpaceComponent, convey.ShouldEqual, "diskSpace")
			convey.So(cfg.Targets, convey.ShouldHaveLength, 3)
			convey.So(cfg.Targets[0].URL, convey.ShouldEqual, "http://localhost:8081/actuator/health")
		})

		convey.Convey("Then it is valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }},
			{"zero interval", func(c *config.Config) { c.IntervalSeconds = 0 }},
			{"negative timeout", func(c *config.Config) { c.RequestTimeoutSeconds = -1 }},
			{"empty disk name", func(c *config.Config) { c.DiskSpaceComponent = "" }},
			{"no targets", func(c *config.Config) { c.Targets = nil }},
			{"unnamed target", func(c *config.Config) { c.Targets[0].Name = "" }},
			{"duplicate target", func(c *config.Config) { c.Targets[1].Name = c.Targets[0].Name }},
			{"relative url", func(c *config.Config) { c.Targets[0].URL = "/actuator/health" }},
			{"unsupported scheme", func(c *config.Config) { c.Targets[0].URL = "ftp://host/health" }},
		}

		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+tc.name+" is rejected as invalid config", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with no file and no environment", func() {
			cfg, err := config.Load("")

			convey.Convey("Then defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Targets, convey.ShouldHaveLength, 3)
			})
		})

		convey.Convey("When loading a YAML file", func() {
			path := writeConfig(t, `
addr: ":9090"
interval_seconds: 5
request_timeout_seconds: 3
targets:
  - name: catalog
    url: http://catalog:8080/actuator/health
`)
			cfg, err := config.Load(path)

			convey.Convey("Then file values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Interval(), convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})

			convey.Convey("Then the target list replaces the defaults", func() {
				convey.So(cfg.Targets, convey.ShouldResemble, []models.Target{
					{Name: "catalog", URL: "http://catalog:8080/actuator/health"},
				})
			})
		})

		convey.Convey("When the file path comes from the environment", func() {
			path := writeConfig(t, `addr: ":7070"`)
			_ = os.Setenv("HEALTHBOARD_CONFIG", path)
			cfg, err := config.Load("")

			convey.Convey("Then that file is used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When environment variables are set alongside a file", func() {
			path := writeConfig(t, `
addr: ":9090"
interval_seconds: 5
`)
			_ = os.Setenv("HEALTHBOARD_INTERVAL_SECONDS", "30")
			_ = os.Setenv("HEALTHBOARD_LOG_LEVEL", "debug")
			cfg, err := config.Load(path)

			convey.Convey("Then the environment wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.IntervalSeconds, convey.ShouldEqual, 30)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When the file does not exist", func() {
			cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then a load error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file is not valid YAML", func() {
			cfg, err := config.Load(writeConfig(t, `invalid: yaml: content: [`))

			convey.Convey("Then a load error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the loaded values fail validation", func() {
			cfg, err := config.Load(writeConfig(t, `
targets:
  - name: a
    url: http://a/health
  - name: a
    url: http://b/health
`))

			convey.Convey("Then an invalid config error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, key := range []string{
		"HEALTHBOARD_CONFIG",
		"HEALTHBOARD_ADDR",
		"HEALTHBOARD_LOG_LEVEL",
		"HEALTHBOARD_INTERVAL_SECONDS",
		"HEALTHBOARD_REQUEST_TIMEOUT_SECONDS",
		"HEALTHBOARD_DISK_SPACE_COMPONENT",
	} {
		_ = os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "healthboard.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
