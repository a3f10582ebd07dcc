package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"smart-email/internal/model"
)

// ErrSchemaMismatch is returned when backend output is not a classification.
var ErrSchemaMismatch = errors.New("classification output does not match schema")

type rawOutput struct {
	Category       *string  `json:"category"`
	Urgency        *float64 `json:"urgency"`
	Summary        *string  `json:"summary"`
	SuggestedReply *string  `json:"suggested_reply"`
}

// decodeOutput parses model output into a response. Every field must be
// present with the right JSON type. Urgency is rounded but not range-checked.
func decodeOutput(text string) (model.ClassificationResponse, error) {
	text = stripCodeFence(text)
	if text == "" {
		return model.ClassificationResponse{}, fmt.Errorf("%w: empty output", ErrSchemaMismatch)
	}

	var raw rawOutput
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return model.ClassificationResponse{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	var missing []string
	if raw.Category == nil {
		missing = append(missing, "category")
	}
	if raw.Urgency == nil {
		missing = append(missing, "urgency")
	}
	if raw.Summary == nil {
		missing = append(missing, "summary")
	}
	if raw.SuggestedReply == nil {
		missing = append(missing, "suggested_reply")
	}
	if len(missing) > 0 {
		return model.ClassificationResponse{}, fmt.Errorf("%w: missing %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}

	return model.ClassificationResponse{
		Category:       strings.TrimSpace(*raw.Category),
		Urgency:        saturatingInt(*raw.Urgency),
		Summary:        strings.TrimSpace(*raw.Summary),
		SuggestedReply: strings.TrimSpace(*raw.SuggestedReply),
	}, nil
}

func saturatingInt(f float64) int {
	f = math.Round(f)
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

// stripCodeFence removes a ```json ... ``` wrapper some models add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
