package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/teampulse/internal/app"
	"github.com/okian/teampulse/internal/config"
	"github.com/okian/teampulse/pkg/logger"
)

func TestRunRejectsInvalidConfig(t *testing.T) {
	convey.Convey("Given an unknown storage backend in the environment", t, func() {
		t.Setenv(config.EnvPrefix+"STORAGE", "mongo")

		convey.Convey("Then run fails before serving", func() {
			err := run(context.Background())
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a started service behind the full mux", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.Storage = config.StorageMemory
		cfg.WorkerCount = 2

		store, err := app.OpenStore(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		svc := app.New(app.WithLogger(logger.Nop()), app.WithStore(store), app.WithConfig(cfg))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := httptest.NewServer(newMux(ctx, cfg, svc, logger.Nop()))
		defer srv.Close()

		call := func(method, path, body string) *http.Response {
			req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			return resp
		}

		convey.Convey("Then docs and health routes are served", func() {
			convey.So(call(http.MethodGet, "/healthz", "").StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(call(http.MethodGet, "/openapi.yaml", "").StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(call(http.MethodGet, "/api-docs", "").StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(call(http.MethodGet, "/metrics", "").StatusCode, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("When a scope is filled through the API", func() {
			convey.So(call(http.MethodPut, "/scopes/team-1", `{"name":"Growth"}`).StatusCode, convey.ShouldEqual, http.StatusOK)
			convey.So(call(http.MethodPost, "/scopes/team-1/members", `{"id":"u1","name":"Ada","role":"sales"}`).StatusCode,
				convey.ShouldEqual, http.StatusAccepted)
			convey.So(call(http.MethodPost, "/scopes/team-1/tasks", `{"id":"t1","assignee_id":"u1","status":"Done"}`).StatusCode,
				convey.ShouldEqual, http.StatusAccepted)

			convey.Convey("Then the ranking is published by the workers", func() {
				deadline := time.Now().Add(5 * time.Second)
				status := 0
				for time.Now().Before(deadline) {
					if status = call(http.MethodGet, "/scopes/team-1/rank/u1", "").StatusCode; status == http.StatusOK {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				convey.So(status, convey.ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop stops with its context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()
			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				convey.So("updater did not stop", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestNewHTTPServerOutlivesSignal(t *testing.T) {
	convey.Convey("Given a server built on a cancellable root context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := config.New(ctx)
		srv := newHTTPServer(ctx, cfg, http.NewServeMux())

		convey.Convey("When the root context is cancelled", func() {
			cancel()

			convey.Convey("Then request contexts stay open for draining", func() {
				base := srv.BaseContext(nil)
				convey.So(base.Err(), convey.ShouldBeNil)
			})
		})
	})
}
