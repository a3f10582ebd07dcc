// Package tools validates tool calls and routes them to their handlers.
// The classification tool is backed by an ai.Client.
package tools

import (
	"context"
	"encoding/json"
	"strings"

	"smart-email/internal/ai"
	"smart-email/internal/apperr"
	"smart-email/internal/logger"
	"smart-email/internal/metrics"
	"smart-email/internal/model"
)

const (
	AppName    = "Smart Email"
	AppVersion = "0.1.0"
)

// InfoText is the fixed output of the info tool.
func InfoText() string {
	return strings.Join([]string{
		"Name: " + AppName,
		"Version: " + AppVersion,
		"",
		"Smart Email reads your Gmail inbox over IMAP, classifies each message by category and urgency, " +
			"and keeps the results so every message is classified only once.",
	}, "\n")
}

type Router struct {
	backend ai.Client
	logger  *logger.Logger
}

func NewRouter(backend ai.Client, logger *logger.Logger) *Router {
	return &Router{backend: backend, logger: logger}
}

// Dispatch validates input for tool and runs it. Validation failures are
// apperr.KindInvalidInput and happen before any backend call.
func (r *Router) Dispatch(ctx context.Context, tool string, input json.RawMessage) (interface{}, error) {
	in, err := DecodeInput(tool, input)
	if err != nil {
		metrics.RecordToolCall("unknown", err)
		return nil, err
	}
	out, err := r.Run(ctx, in)
	metrics.RecordToolCall(in.Tool(), err)
	return out, err
}

func (r *Router) Run(ctx context.Context, in Input) (interface{}, error) {
	switch v := in.(type) {
	case InfoInput:
		return InfoText(), nil
	case ClassifyInput:
		return r.Classify(ctx, v.Request())
	default:
		return nil, apperr.New(apperr.KindInvalidInput, "tools.Run", "Unknown tool: "+in.Tool())
	}
}

// Classify calls the backend and normalizes its output: urgency is clamped
// to [model.MinUrgency, model.MaxUrgency], the category is passed through.
func (r *Router) Classify(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
	resp, err := r.backend.Classify(ctx, req)
	if err != nil {
		r.logger.Warnf("classification backend failed: %v", err)
		return model.ClassificationResponse{}, &apperr.Error{
			Kind: apperr.KindBackend,
			Op:   "tools.Classify",
			Msg:  "classification backend failed",
			Err:  err,
		}
	}
	resp.Urgency = clampUrgency(resp.Urgency)
	return resp, nil
}

func clampUrgency(u int) int {
	if u < model.MinUrgency {
		return model.MinUrgency
	}
	if u > model.MaxUrgency {
		return model.MaxUrgency
	}
	return u
}
