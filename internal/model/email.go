package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	MinUrgency = 0
	MaxUrgency = 10

	degradedUrgency = 1
)

// ClassifiedEmail is the persisted result of classifying one remote message.
// There is at most one per (UserID, RemoteID) and it is never updated after
// creation, except for the archival marker.
type ClassifiedEmail struct {
	ID             string     `json:"id" db:"id"`
	UserID         string     `json:"user_id" db:"user_id"`
	RemoteID       string     `json:"remote_id" db:"remote_id"`
	ThreadID       string     `json:"thread_id" db:"thread_id"`
	Sender         string     `json:"from" db:"sender"`
	Subject        string     `json:"subject" db:"subject"`
	Snippet        string     `json:"snippet" db:"snippet"`
	ReceivedAt     time.Time  `json:"received_at" db:"received_at"`
	Category       Category   `json:"category" db:"category"`
	Urgency        int        `json:"urgency" db:"urgency"`
	Summary        string     `json:"summary" db:"summary"`
	SuggestedReply *string    `json:"suggested_reply" db:"suggested_reply"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`

	// Degraded marks a local-only fallback record. It is never persisted.
	Degraded bool `json:"degraded,omitempty" db:"-"`
}

// NewClassifiedEmail builds a record from a classifier response. It fails
// when the category is not one of the known labels or urgency is out of range.
func NewClassifiedEmail(userID string, msg ParsedMessage, resp ClassificationResponse) (*ClassifiedEmail, error) {
	category, err := ParseCategory(resp.Category)
	if err != nil {
		return nil, err
	}
	if resp.Urgency < MinUrgency || resp.Urgency > MaxUrgency {
		return nil, fmt.Errorf("urgency %d outside [%d,%d]", resp.Urgency, MinUrgency, MaxUrgency)
	}

	var reply *string
	if resp.SuggestedReply != "" {
		r := resp.SuggestedReply
		reply = &r
	}

	email := newFromMessage(userID, msg)
	email.Category = category
	email.Urgency = resp.Urgency
	email.Summary = resp.Summary
	email.SuggestedReply = reply
	return email, nil
}

// NewDegradedEmail builds the placeholder shown when classification failed.
func NewDegradedEmail(userID string, msg ParsedMessage) *ClassifiedEmail {
	email := newFromMessage(userID, msg)
	email.Category = CategoryNoise
	email.Urgency = degradedUrgency
	email.Summary = msg.Snippet
	email.Degraded = true
	return email
}

func newFromMessage(userID string, msg ParsedMessage) *ClassifiedEmail {
	return &ClassifiedEmail{
		ID:         uuid.New().String(),
		UserID:     userID,
		RemoteID:   msg.RemoteID,
		ThreadID:   msg.ThreadID,
		Sender:     msg.Sender,
		Subject:    msg.Subject,
		Snippet:    msg.Snippet,
		ReceivedAt: msg.ReceivedAt,
		CreatedAt:  time.Now(),
	}
}
