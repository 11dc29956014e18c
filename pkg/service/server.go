package service

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/relicworks/relic/pkg/memory"
	"github.com/relicworks/relic/pkg/workflow"
)

/*
Server is the HTTP front door: workflow submission and polling, batch runs,
orchestrator config, and the memory architecture report. Safe for concurrent
use because the orchestrator and the memory store are.
*/
type Server struct {
	app          *fiber.App
	orchestrator *workflow.Orchestrator
	memory       *memory.Store
}

func NewServer(orchestrator *workflow.Orchestrator, store *memory.Store) *Server {
	srv := &Server{
		app: fiber.New(fiber.Config{
			AppName:      "relic",
			ServerHeader: "Relic-Server",
		}),
		orchestrator: orchestrator,
		memory:       store,
	}
	srv.routes()
	return srv
}

func (srv *Server) routes() {
	srv.app.Use(logger.New(logger.Config{
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/healthz"
		},
	}), healthcheck.New())

	srv.app.Get("/healthz", srv.handleHealth)
	srv.app.Post("/workflows", srv.handleSubmit)
	srv.app.Post("/workflows/batch", srv.handleBatch)
	srv.app.Get("/workflows", srv.handleList)
	srv.app.Get("/workflows/:id", srv.handleStatus)
	srv.app.Delete("/workflows/:id", srv.handleCancel)
	srv.app.Get("/config", srv.handleGetConfig)
	srv.app.Patch("/config", srv.handleUpdateConfig)
	srv.app.Get("/architecture", srv.handleArchitecture)
}

func (srv *Server) Start(addr string) error {
	log.Info("http server listening", "addr", addr)
	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (srv *Server) Shutdown() error {
	return srv.app.Shutdown()
}

func (srv *Server) handleHealth(ctx fiber.Ctx) error {
	return ctx.SendString("OK")
}

func (srv *Server) handleSubmit(ctx fiber.Ctx) error {
	var request workflow.Request
	if err := ctx.Bind().Body(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if request.Input.Source == "" {
		return fiber.NewError(fiber.StatusBadRequest, "input.source is required")
	}

	id := srv.orchestrator.Start(context.Background(), request)
	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id})
}

type batchRequest struct {
	Requests []workflow.Request `json:"requests"`
}

// handleBatch runs the whole batch before responding; large batches run
// sequentially with the configured delay, so callers should expect this to
// take a while.
func (srv *Server) handleBatch(ctx fiber.Ctx) error {
	var body batchRequest
	if err := ctx.Bind().Body(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if len(body.Requests) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "requests must not be empty")
	}

	summary := srv.orchestrator.RunBatch(context.Background(), body.Requests)
	return ctx.JSON(summary)
}

func (srv *Server) handleList(ctx fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"workflows": srv.orchestrator.ListActiveWorkflows()})
}

func (srv *Server) handleStatus(ctx fiber.Ctx) error {
	wf, ok := srv.orchestrator.GetWorkflowStatus(ctx.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "workflow not found")
	}
	return ctx.JSON(wf)
}

func (srv *Server) handleCancel(ctx fiber.Ctx) error {
	id := ctx.Params("id")
	if !srv.orchestrator.CancelWorkflow(id) {
		return fiber.NewError(fiber.StatusNotFound, "workflow not running")
	}
	return ctx.JSON(fiber.Map{"id": id, "cancelled": true})
}

func (srv *Server) handleGetConfig(ctx fiber.Ctx) error {
	return ctx.JSON(srv.orchestrator.GetConfig())
}

func (srv *Server) handleUpdateConfig(ctx fiber.Ctx) error {
	var patch workflow.ConfigPatch
	if err := ctx.Bind().Body(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	updated, err := srv.orchestrator.UpdateConfig(patch)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return ctx.JSON(updated)
}

func (srv *Server) handleArchitecture(ctx fiber.Ctx) error {
	if srv.memory == nil {
		return fiber.NewError(fiber.StatusNotFound, "no memory store configured")
	}
	return ctx.JSON(srv.memory.AnalyzeArchitecture())
}
