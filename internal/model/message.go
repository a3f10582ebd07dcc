package model

import "time"

// RawMessage is one message as returned by the mail store. It only lives for
// the duration of a fetch.
type RawMessage struct {
	SequenceID      uint32
	UID             uint32
	ThreadID        string
	EnvelopeSender  Address
	EnvelopeSubject string
	EnvelopeDate    time.Time
	RawBytes        []byte
}

type Address struct {
	Name    string
	Address string
}

// String renders "Display Name <address>" or the bare address.
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	if a.Address == "" {
		return a.Name
	}
	return a.Name + " <" + a.Address + ">"
}

type ParsedMessage struct {
	RemoteID   string    `json:"remote_id"`
	ThreadID   string    `json:"thread_id"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Snippet    string    `json:"snippet"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}
