package ai

import (
	"strings"

	"smart-email/internal/model"
)

const categorizeEmailPrompt = `You are an email assistant that categorizes emails. Analyze this email and provide:
1. category: one of "ACTION", "MEETING", "INFO", or "NOISE"
   - ACTION: requires a response or task
   - MEETING: meeting invitation or scheduling
   - INFO: informational, newsletters, notifications
   - NOISE: spam, promotions, low priority
2. urgency: number from 0-10 (0=not urgent, 10=extremely urgent)
3. summary: brief 1-2 sentence summary of the email
4. suggested_reply: a short suggested reply if applicable (empty string if not needed)

Email:
From: {{from}}
Subject: {{subject}}
Content: {{snippet}}

Respond in JSON format with keys: category, urgency, summary, suggested_reply`

func buildPrompt(req model.ClassificationRequest) string {
	return strings.NewReplacer(
		"{{from}}", req.Sender,
		"{{subject}}", req.Subject,
		"{{snippet}}", req.Snippet,
	).Replace(categorizeEmailPrompt)
}
