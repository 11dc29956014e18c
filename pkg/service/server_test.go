package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/relicworks/relic/pkg/memory"
	"github.com/relicworks/relic/pkg/provider"
	"github.com/relicworks/relic/pkg/workflow"
)

func testServer() (*Server, *workflow.Orchestrator) {
	cfg := workflow.DefaultConfig()
	cfg.EnableValidation = false
	cfg.EnableExplanation = false
	cfg.RetryBaseDelay = time.Millisecond
	cfg.BatchDelay = time.Millisecond

	store := memory.NewStore(memory.WithDimension(4))
	orchestrator := workflow.New(
		workflow.WithProvider(provider.NewMockProvider(
			`{"summary": "x", "confidence": 0.9}`,
		)),
		workflow.WithMemory(store),
		workflow.WithEmbedder(provider.NewMockEmbedder(4)),
		workflow.WithConfig(cfg),
	)
	return NewServer(orchestrator, store), orchestrator
}

func jsonBody(v any) io.Reader {
	encoded, _ := json.Marshal(v)
	return bytes.NewReader(encoded)
}

func decode(resp *http.Response) map[string]any {
	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return out
}

func TestHealth(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv, orchestrator := testServer()
		defer orchestrator.Close()

		Convey("When the health endpoint is hit", func() {
			resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then it responds OK", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestSubmitAndPoll(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv, orchestrator := testServer()
		defer orchestrator.Close()

		Convey("When a workflow is submitted", func() {
			body := map[string]any{
				"type": "modernization",
				"input": map[string]any{
					"source":          "PROGRAM-ID. PAYROLL.",
					"language":        "cobol",
					"target_language": "go",
				},
			}
			submit := httptest.NewRequest(http.MethodPost, "/workflows", jsonBody(body))
			submit.Header.Set("Content-Type", "application/json")
			resp, err := srv.app.Test(submit)

			Convey("Then it is accepted with an id", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

				id, ok := decode(resp)["id"].(string)
				So(ok, ShouldBeTrue)
				So(id, ShouldNotBeEmpty)

				Convey("And it can be polled until terminal", func() {
					deadline := time.Now().Add(time.Second)
					var status string
					for time.Now().Before(deadline) {
						poll := httptest.NewRequest(http.MethodGet, "/workflows/"+id, nil)
						pollResp, pollErr := srv.app.Test(poll)
						So(pollErr, ShouldBeNil)
						status, _ = decode(pollResp)["status"].(string)
						if status != string(workflow.StatusRunning) {
							break
						}
						time.Sleep(5 * time.Millisecond)
					}
					So(status, ShouldEqual, string(workflow.StatusCompleted))
				})
			})
		})

		Convey("When the body has no source", func() {
			submit := httptest.NewRequest(http.MethodPost, "/workflows", jsonBody(map[string]any{}))
			submit.Header.Set("Content-Type", "application/json")
			resp, err := srv.app.Test(submit)

			Convey("Then it is rejected", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestBatchEndpoint(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv, orchestrator := testServer()
		defer orchestrator.Close()

		Convey("When a batch is submitted", func() {
			body := map[string]any{
				"requests": []map[string]any{
					{"input": map[string]any{"source": "a", "target_language": "go"}},
					{"input": map[string]any{"source": "b", "target_language": "go"}},
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/workflows/batch", jsonBody(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := srv.app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second, FailOnTimeout: true})

			Convey("Then the summary settles every input", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				out := decode(resp)
				So(out["total"], ShouldEqual, 2)
				So(out["successful"], ShouldEqual, 2)
			})
		})

		Convey("When the batch is empty", func() {
			req := httptest.NewRequest(http.MethodPost, "/workflows/batch", jsonBody(map[string]any{}))
			req.Header.Set("Content-Type", "application/json")
			resp, err := srv.app.Test(req)

			Convey("Then it is rejected", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestCancelEndpoint(t *testing.T) {
	Convey("Given a server with no matching workflow", t, func() {
		srv, orchestrator := testServer()
		defer orchestrator.Close()

		Convey("When an unknown workflow is cancelled", func() {
			req := httptest.NewRequest(http.MethodDelete, "/workflows/nope", nil)
			resp, err := srv.app.Test(req)

			Convey("Then it is not found", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestConfigEndpoints(t *testing.T) {
	Convey("Given a running server", t, func() {
		srv, orchestrator := testServer()
		defer orchestrator.Close()

		Convey("When the config is read", func() {
			resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/config", nil))

			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("When a valid patch is applied", func() {
			body := map[string]any{"enable_self_healing": false}
			req := httptest.NewRequest(http.MethodPatch, "/config", jsonBody(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := srv.app.Test(req)

			Convey("Then the merged config comes back", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decode(resp)["enable_self_healing"], ShouldEqual, false)
			})
		})

		Convey("When an invalid patch is applied", func() {
			body := map[string]any{"confidence_threshold": 3.0}
			req := httptest.NewRequest(http.MethodPatch, "/config", jsonBody(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := srv.app.Test(req)

			Convey("Then it is rejected", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestArchitectureEndpoint(t *testing.T) {
	Convey("Given a server with a memory store", t, func() {
		srv, orchestrator := testServer()
		defer orchestrator.Close()

		Convey("When the architecture report is requested", func() {
			resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/architecture", nil))

			Convey("Then a report is returned", func() {
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(decode(resp), ShouldContainKey, "stats")
			})
		})
	})
}
