package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"smart-email/internal/apperr"
	"smart-email/internal/tools"

	"github.com/labstack/echo/v4"
)

// ToolDispatcher runs a named tool against raw JSON input.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, tool string, input json.RawMessage) (interface{}, error)
}

type ToolHandler struct {
	tools  ToolDispatcher
	logger echo.Logger
}

func NewToolHandler(tools ToolDispatcher, logger echo.Logger) *ToolHandler {
	return &ToolHandler{tools: tools, logger: logger}
}

type toolCall struct {
	Tool  interface{}     `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// Call runs one tool. Body: {"tool": "...", "input": {...}}.
func (h *ToolHandler) Call(c echo.Context) error {
	var call toolCall
	if err := json.NewDecoder(c.Request().Body).Decode(&call); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid JSON body",
		})
	}
	tool, ok := call.Tool.(string)
	if !ok || tool == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Missing or invalid 'tool'",
		})
	}

	data, err := h.tools.Dispatch(c.Request().Context(), tool, call.Input)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInvalidInput {
			h.logger.Error("Tool call failed:", err)
		}
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": apperr.Message(err),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":   true,
		"data": data,
	})
}

// Test runs every tool once with fixed input.
func (h *ToolHandler) Test(c echo.Context) error {
	ctx := c.Request().Context()
	sample, _ := json.Marshal(map[string]string{
		"from":    "alice@company.com",
		"subject": "Invoice problem",
		"snippet": "The total amount looks incorrect. Can you review?",
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":               true,
		tools.ToolInfo:     h.result(ctx, tools.ToolInfo, json.RawMessage("{}")),
		tools.ToolClassify: h.result(ctx, tools.ToolClassify, sample),
	})
}

func (h *ToolHandler) result(ctx context.Context, tool string, input json.RawMessage) interface{} {
	data, err := h.tools.Dispatch(ctx, tool, input)
	if err != nil {
		h.logger.Error("Tool test failed:", err)
		return map[string]string{"error": apperr.Message(err)}
	}
	return data
}
