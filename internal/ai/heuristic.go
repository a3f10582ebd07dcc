package ai

import (
	"context"
	"strings"
	"unicode/utf8"

	"smart-email/internal/model"
)

var (
	meetingWords = []string{"meeting", "invitation", "invite", "calendar", "schedule", "reschedule", "agenda", "zoom", "google meet", "call at"}
	actionWords  = []string{"please", "can you", "could you", "review", "approve", "invoice", "payment", "deadline", "action required", "respond", "confirm", "?"}
	noiseWords   = []string{"unsubscribe", "% off", "sale", "promo", "deal", "limited time", "winner", "offer", "no-reply", "noreply"}
	urgentWords  = []string{"urgent", "asap", "immediately", "today", "overdue", "final notice", "incorrect", "failed"}
)

const maxHeuristicSummaryRunes = 160

type heuristicClient struct{}

// NewHeuristicClient returns a keyword-based classifier that needs no API key.
func NewHeuristicClient() Client {
	return heuristicClient{}
}

func (heuristicClient) Classify(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error) {
	if err := ctx.Err(); err != nil {
		return model.ClassificationResponse{}, err
	}

	subject := strings.ToLower(req.Subject)
	text := subject + "\n" + strings.ToLower(req.Snippet)
	sender := strings.ToLower(req.Sender)

	resp := model.ClassificationResponse{Summary: summarize(req)}
	switch {
	case containsAny(text, meetingWords):
		resp.Category = string(model.CategoryMeeting)
		resp.Urgency = 5
		resp.SuggestedReply = "Thanks for the invite. I'll confirm my availability shortly."
	case containsAny(sender, noiseWords) || containsAny(text, noiseWords):
		resp.Category = string(model.CategoryNoise)
		resp.Urgency = 0
	case containsAny(text, actionWords):
		resp.Category = string(model.CategoryAction)
		resp.Urgency = 6
		resp.SuggestedReply = "Thanks for reaching out. I'll look into this and get back to you."
	default:
		resp.Category = string(model.CategoryInfo)
		resp.Urgency = 2
	}

	if resp.Category != string(model.CategoryNoise) {
		for _, w := range urgentWords {
			if strings.Contains(text, w) {
				resp.Urgency++
			}
		}
		if strings.Contains(subject, "urgent") {
			resp.Urgency += 2
		}
	}
	if resp.Urgency > model.MaxUrgency {
		resp.Urgency = model.MaxUrgency
	}
	return resp, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func summarize(req model.ClassificationRequest) string {
	s := strings.TrimSpace(req.Snippet)
	if i := strings.IndexAny(s, ".!?\n"); i >= 0 {
		s = s[:i+1]
	}
	if s == "" {
		s = req.Subject
	}
	if utf8.RuneCountInString(s) > maxHeuristicSummaryRunes {
		s = string([]rune(s)[:maxHeuristicSummaryRunes]) + "…"
	}
	return strings.TrimSpace(s)
}
