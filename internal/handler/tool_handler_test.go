package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smart-email/internal/ai"
	"smart-email/internal/logger"
	"smart-email/internal/model"
	"smart-email/internal/tools"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newToolHandler(e *echo.Echo, backend *ai.MockClient) *ToolHandler {
	return NewToolHandler(tools.NewRouter(backend, logger.NewNop()), e.Logger)
}

func postTool(e *echo.Echo, h *ToolHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/mcp/call", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	_ = h.Call(e.NewContext(req, rec))
	return rec
}

func TestToolCallClassify(t *testing.T) {
	// Setup
	e := echo.New()
	backend := ai.NewMockClient()
	backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		assert.Equal(t, "bob@example.com", req.Sender)
		return model.ClassificationResponse{Category: "ACTION", Urgency: 6, Summary: "Review the invoice", SuggestedReply: "Will do."}, nil
	}
	h := newToolHandler(e, backend)

	// Execute
	rec := postTool(e, h, `{"tool":"classify_email","input":{"from":"bob@example.com","subject":"Invoice","snippet":"Please review"}}`)

	// Verify
	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		OK   bool `json:"ok"`
		Data struct {
			Category       string `json:"category"`
			Urgency        int    `json:"urgency"`
			Summary        string `json:"summary"`
			SuggestedReply string `json:"suggested_reply"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, "ACTION", body.Data.Category)
	assert.Equal(t, 6, body.Data.Urgency)
	assert.Equal(t, "Will do.", body.Data.SuggestedReply)
}

func TestToolCallRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "invalid json", body: `{"tool":`, wantError: "Invalid JSON body"},
		{name: "missing tool", body: `{"input":{}}`, wantError: "Missing or invalid 'tool'"},
		{name: "non string tool", body: `{"tool":7}`, wantError: "Missing or invalid 'tool'"},
		{name: "unknown tool", body: `{"tool":"drop_tables"}`, wantError: "Unknown tool: drop_tables"},
		{name: "missing field", body: `{"tool":"classify_email","input":{"from":"a","subject":"b"}}`, wantError: "Invalid input: snippet: required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			e := echo.New()
			backend := ai.NewMockClient()
			backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
				t.Error("backend must not be called")
				return model.ClassificationResponse{}, nil
			}
			h := newToolHandler(e, backend)

			// Execute
			rec := postTool(e, h, tt.body)

			// Verify
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestToolCallBackendFailure(t *testing.T) {
	// Setup
	e := echo.New()
	backend := ai.NewMockClient()
	backend.ClassifyFunc = func(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
		return model.ClassificationResponse{}, errors.New("quota exceeded")
	}
	h := newToolHandler(e, backend)

	// Execute
	rec := postTool(e, h, `{"tool":"categorize_email","input":{"from":"a","subject":"b","snippet":"c"}}`)

	// Verify
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "classification backend failed", body["error"])
}

func TestToolTest(t *testing.T) {
	// Setup
	e := echo.New()
	h := newToolHandler(e, ai.NewMockClient())
	req := httptest.NewRequest(http.MethodGet, "/api/mcp/test", nil)
	rec := httptest.NewRecorder()

	// Execute
	err := h.Test(e.NewContext(req, rec))

	// Verify
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, tools.InfoText(), body["smart_email_info"])
	classified, ok := body["classify_email"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "INFO", classified["category"])
	assert.Equal(t, "Invoice problem", classified["summary"])
}
