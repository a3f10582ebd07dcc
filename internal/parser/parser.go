// Package parser turns raw RFC 822 messages into the fields the classifier
// and the inbox view need. Extraction is best effort: it never fails, and
// falls back in order from the first text/plain part, to the first text/html
// part with markup removed, to the raw body truncated to MaxRawBodyRunes.
package parser

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"smart-email/internal/model"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const (
	MaxSnippetRunes = 200
	MaxRawBodyRunes = 2000

	// maxParts bounds the part walk; deeper structure is not inspected.
	maxParts = 64
	// maxPartBytes bounds how much of a single decoded part is read.
	maxPartBytes = 1 << 20
)

var now = time.Now

// Envelope is the protocol-level metadata fetched alongside the raw bytes.
type Envelope struct {
	RemoteID string
	ThreadID string
	Sender   model.Address
	Subject  string
	Date     time.Time
}

func EnvelopeOf(m *model.RawMessage) Envelope {
	return Envelope{
		RemoteID: uidString(m.UID),
		ThreadID: m.ThreadID,
		Sender:   m.EnvelopeSender,
		Subject:  m.EnvelopeSubject,
		Date:     m.EnvelopeDate,
	}
}

// Parse never fails. A message without a recognisable body gets an empty one.
func Parse(raw []byte, env Envelope) model.ParsedMessage {
	header, parts := walk(raw)

	body := extractBody(raw, parts)
	body = strings.TrimSpace(strings.ToValidUTF8(body, "�"))

	msg := model.ParsedMessage{
		RemoteID:   env.RemoteID,
		ThreadID:   env.ThreadID,
		Subject:    env.Subject,
		Sender:     env.Sender.String(),
		Body:       body,
		Snippet:    Snippet(body),
		ReceivedAt: env.Date,
	}

	if header != nil {
		if msg.Subject == "" {
			msg.Subject, _ = header.Subject()
		}
		if msg.Sender == "" {
			if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
				msg.Sender = model.Address{Name: from[0].Name, Address: from[0].Address}.String()
			}
		}
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = now()
	}
	return msg
}

// Snippet returns the first MaxSnippetRunes runes of body, trimmed.
func Snippet(body string) string {
	if utf8.RuneCountInString(body) > MaxSnippetRunes {
		cut := 0
		for i := 0; i < MaxSnippetRunes; i++ {
			_, size := utf8.DecodeRuneInString(body[cut:])
			cut += size
		}
		body = body[:cut]
	}
	return strings.TrimSpace(body)
}

type textParts struct {
	plain, html       string
	hasPlain, hasHTML bool
	// failed is set when the MIME walk stopped on an error before finding any text.
	failed bool
}

func extractBody(raw []byte, parts textParts) string {
	if parts.failed {
		parts = scanParts(raw)
	}
	switch {
	case parts.hasPlain:
		return normalizeNewlines(parts.plain)
	case parts.hasHTML:
		return HTMLToText(parts.html)
	default:
		return rawFallback(raw)
	}
}

// walk locates the first text/plain and text/html parts using go-message,
// which handles transfer encodings and charsets.
func walk(raw []byte) (*mail.Header, textParts) {
	var parts textParts

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		parts.failed = true
		return nil, parts
	}
	if mr == nil {
		parts.failed = true
		return nil, parts
	}
	defer mr.Close()
	header := &mr.Header

	for i := 0; i < maxParts && !parts.hasPlain; i++ {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			parts.failed = !parts.hasHTML
			break
		}
		if p == nil {
			continue
		}

		inline, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := inline.ContentType()
		if err != nil || contentType == "" {
			// RFC 2045 default
			contentType = "text/plain"
		}

		switch contentType {
		case "text/plain":
			text, err := readPart(p.Body)
			if err != nil {
				continue
			}
			parts.plain, parts.hasPlain = text, true
		case "text/html":
			if parts.hasHTML {
				continue
			}
			text, err := readPart(p.Body)
			if err != nil {
				continue
			}
			parts.html, parts.hasHTML = text, true
		}
	}
	return header, parts
}

func readPart(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxPartBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// rawFallback returns everything after the header/body separator, with
// newlines normalised and truncated to MaxRawBodyRunes.
func rawFallback(raw []byte) string {
	body := string(raw)
	if i := strings.Index(body, "\r\n\r\n"); i >= 0 {
		body = body[i+4:]
	} else if i := strings.Index(body, "\n\n"); i >= 0 {
		body = body[i+2:]
	}
	body = strings.ToValidUTF8(normalizeNewlines(body), "�")
	return strings.TrimSpace(truncateRunes(body, MaxRawBodyRunes))
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func uidString(uid uint32) string {
	if uid == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(uid), 10)
}
