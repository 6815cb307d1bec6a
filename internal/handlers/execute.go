// Package handlers is the thin Fiber binding over internal/flowengine,
// mirroring the reference backend's method-per-route handler style and
// its fiber.Map / envelope-struct JSON response conventions.
package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/jeamxn/codeblock-bff/internal/flowengine"
	"github.com/jeamxn/codeblock-bff/internal/models"
	"github.com/jeamxn/codeblock-bff/internal/mongostore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ExecuteHandler serves the flow execution endpoint family.
type ExecuteHandler struct {
	engine *flowengine.Engine
	store  *mongostore.Store
}

// NewExecuteHandler builds an ExecuteHandler.
func NewExecuteHandler(engine *flowengine.Engine, store *mongostore.Store) *ExecuteHandler {
	return &ExecuteHandler{engine: engine, store: store}
}

// Execute handles GET/POST /api/execute/:slug.
func (h *ExecuteHandler) Execute(c *fiber.Ctx) error {
	return h.run(c, false)
}

// Test handles POST /api/execute/:slug/test.
func (h *ExecuteHandler) Test(c *fiber.Ctx) error {
	return h.run(c, true)
}

func (h *ExecuteHandler) run(c *fiber.Ctx, isTest bool) error {
	slug := c.Params("slug")

	inputs, err := flowengine.ParseCallerInputs(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.Fail("INVALID_INPUT", "request body is not valid JSON"))
	}

	request := models.RequestMeta{
		Inputs:    inputs,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}

	log.Printf("🚀 [EXECUTE] flow=%s test=%v inputs=%v", slug, isTest, inputs)

	outcome, engineErr := h.engine.Execute(c.Context(), slug, inputs, request, isTest)
	if engineErr != nil {
		log.Printf("❌ [EXECUTE] flow=%s failed: %s (%s)", slug, engineErr.Error(), engineErr.Code())
		return c.Status(engineErr.HTTPStatus()).JSON(models.Fail(engineErr.Code(), engineErr.Error()))
	}

	return c.Status(fiber.StatusOK).JSON(models.OK(outcome.Outputs))
}

// Logs handles GET /api/execute/:slug/logs — the last 100 execution logs
// for the flow, most recent first.
func (h *ExecuteHandler) Logs(c *fiber.Ctx) error {
	slug := c.Params("slug")

	flow, err := h.resolveFlowID(c, slug)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.Fail("EXECUTION_ERROR", "failed to resolve flow"))
	}
	if flow == "" {
		return c.Status(fiber.StatusNotFound).JSON(models.Fail("FLOW_NOT_FOUND", "no published flow at slug \""+slug+"\""))
	}

	logs, err := h.lastLogs(c, flow, 100)
	if err != nil {
		log.Printf("❌ [EXECUTE] failed to list logs for flow=%s: %v", slug, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.Fail("EXECUTION_ERROR", "failed to load execution logs"))
	}

	return c.Status(fiber.StatusOK).JSON(models.OK(logs))
}

func (h *ExecuteHandler) resolveFlowID(c *fiber.Ctx, slug string) (string, error) {
	var flow models.Flow
	err := h.store.Collection(mongostore.CollectionFlows).
		FindOne(c.Context(), bson.M{"slug": slug, "status": models.FlowStatusPublished}).
		Decode(&flow)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil
		}
		return "", err
	}
	return flow.ID, nil
}

func (h *ExecuteHandler) lastLogs(c *fiber.Ctx, flowID string, limit int) ([]models.ExecutionLog, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))

	cursor, err := h.store.Collection(mongostore.CollectionExecutionLogs).
		Find(c.Context(), bson.M{"flowId": flowID}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(c.Context())

	var logs []models.ExecutionLog
	if err := cursor.All(c.Context(), &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
