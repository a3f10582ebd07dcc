package model

type ClassificationRequest struct {
	Sender  string `json:"from"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// ClassificationResponse is the normalized classifier output. Category is
// free-form here and only checked against the enum when a record is built.
type ClassificationResponse struct {
	Category       string `json:"category"`
	Urgency        int    `json:"urgency"`
	Summary        string `json:"summary"`
	SuggestedReply string `json:"suggested_reply"`
}
