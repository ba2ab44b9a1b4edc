package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"healthboard/internal/metrics"
	"healthboard/internal/models"

	"github.com/smartystreets/goconvey/convey"
)

func TestManager_ObservePoll(t *testing.T) {
	convey.Convey("Given a metrics manager", t, func() {
		m := metrics.NewManager()
		at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

		convey.Convey("When a successful UP poll is observed", func() {
			m.ObservePoll(models.PollResult{
				Target:     "orders",
				ObservedAt: at,
				Latency:    120 * time.Millisecond,
				Report: models.StatusReport{Status: models.StatusUp, Components: map[string]models.ComponentReport{
					"db": {}, "ping": {},
				}},
			})

			convey.Convey("Then the collectors reflect it", func() {
				body := scrape(m)
				convey.So(body, convey.ShouldContainSubstring, `healthboard_polls_total{outcome="ok",target="orders"} 1`)
				convey.So(body, convey.ShouldContainSubstring, `healthboard_target_up{target="orders"} 1`)
				convey.So(body, convey.ShouldContainSubstring, `healthboard_target_components{target="orders"} 2`)
				convey.So(body, convey.ShouldContainSubstring, `healthboard_poll_duration_seconds_count{target="orders"} 1`)
			})

			convey.Convey("Then the uptime tally records a pass", func() {
				summary, ok := m.Uptime().Get("orders")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(summary.Passing, convey.ShouldEqual, 1)
				convey.So(summary.LastState, convey.ShouldEqual, "UP")
				convey.So(summary.LastUpdated, convey.ShouldEqual, "2026-10-15T12:00:00Z")
			})
		})

		convey.Convey("When a failed poll is observed", func() {
			m.ObservePoll(models.PollResult{
				Target:     "orders",
				ObservedAt: at,
				Err:        errors.New("connection refused"),
				Report:     models.FailureReport("connection refused"),
			})

			convey.Convey("Then it counts as failed and down", func() {
				body := scrape(m)
				convey.So(body, convey.ShouldContainSubstring, `healthboard_polls_total{outcome="failed",target="orders"} 1`)
				convey.So(body, convey.ShouldContainSubstring, `healthboard_target_up{target="orders"} 0`)
				summary, _ := m.Uptime().Get("orders")
				convey.So(summary.Failing, convey.ShouldEqual, 1)
				convey.So(summary.UptimePercent, convey.ShouldEqual, 0.0)
			})
		})

		convey.Convey("When cycles, reconciliations, clients and requests are observed", func() {
			m.ObserveCycle()
			m.ObserveCycle()
			m.ObserveReconcile(true)
			m.ObserveReconcile(false)
			m.ClientConnected()
			m.ClientConnected()
			m.ClientDisconnected()
			m.RecordHTTPRequest("status", "GET", "200")

			convey.Convey("Then each collector has the expected value", func() {
				body := scrape(m)
				convey.So(body, convey.ShouldContainSubstring, "healthboard_poll_cycles_total 2")
				convey.So(body, convey.ShouldContainSubstring, `healthboard_reconciliations_total{result="applied"} 1`)
				convey.So(body, convey.ShouldContainSubstring, `healthboard_reconciliations_total{result="stale"} 1`)
				convey.So(body, convey.ShouldContainSubstring, "healthboard_websocket_clients 1")
				convey.So(body, convey.ShouldContainSubstring, `healthboard_http_requests_total{endpoint="status",method="GET",status_code="200"} 1`)
			})
		})
	})
}

func TestManager_Options(t *testing.T) {
	convey.Convey("Given a manager with a custom namespace", t, func() {
		m := metrics.NewManager(metrics.WithNamespace("dash"), metrics.WithSubsystem("poller"))
		m.ObserveCycle()

		convey.Convey("Then metric names use it", func() {
			convey.So(scrape(m), convey.ShouldContainSubstring, "dash_poller_poll_cycles_total 1")
		})
	})

	convey.Convey("Given two managers", t, func() {
		convey.Convey("Then they do not collide on registration", func() {
			convey.So(func() { metrics.NewManager(); metrics.NewManager() }, convey.ShouldNotPanic)
		})
	})
}

func TestUptimeTracker(t *testing.T) {
	convey.Convey("Given an uptime tracker", t, func() {
		u := metrics.NewUptimeTracker()

		convey.Convey("When nothing has been recorded", func() {
			convey.Convey("Then the snapshot is empty", func() {
				convey.So(u.Snapshot(), convey.ShouldBeNil)
				_, ok := u.Get("x")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When outcomes are recorded for several targets", func() {
			now := time.Now()
			u.Record("users", true, "UP", now)
			u.Record("books", true, "UP", now)
			u.Record("books", false, "DOWN", now)
			u.Record("books", true, "UP", now)

			convey.Convey("Then the summaries are sorted and rounded", func() {
				snap := u.Snapshot()
				convey.So(snap, convey.ShouldHaveLength, 2)
				convey.So(snap[0].Name, convey.ShouldEqual, "books")
				convey.So(snap[0].TotalChecks, convey.ShouldEqual, 3)
				convey.So(snap[0].UptimePercent, convey.ShouldEqual, 66.67)
				convey.So(snap[1].UptimePercent, convey.ShouldEqual, 100.0)
			})
		})
	})
}

func scrape(m *metrics.Manager) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	return strings.TrimSpace(string(body))
}
