// Package mailbox reads pages of the INBOX over IMAP, newest message first.
package mailbox

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"smart-email/internal/apperr"
	"smart-email/internal/logger"
	"smart-email/internal/metrics"
	"smart-email/internal/model"
	"smart-email/internal/parser"

	"github.com/emersion/go-imap"
)

const (
	inbox = "INBOX"

	// gmailExtension advertises the X-GM-* fetch items.
	gmailExtension = "X-GM-EXT-1"
	fetchThreadID  = imap.FetchItem("X-GM-THRID")
)

// TokenSource yields an access token valid at the moment of use.
type TokenSource interface {
	GetValidToken(ctx context.Context, cred *model.OAuthCredential) (string, error)
}

type Page struct {
	Messages []model.ParsedMessage
	Total    int
}

type Fetcher struct {
	connector Connector
	tokens    TokenSource
	logger    *logger.Logger
}

func NewFetcher(connector Connector, tokens TokenSource, logger *logger.Logger) *Fetcher {
	return &Fetcher{connector: connector, tokens: tokens, logger: logger}
}

// FetchPage returns one page of the INBOX, newest first, together with the
// number of messages in the mailbox. Each call opens and tears down its own
// session. Token errors are returned unchanged; connection and protocol
// errors are labelled apperr.KindTransport.
func (f *Fetcher) FetchPage(ctx context.Context, identity model.Identity, cred *model.OAuthCredential, page, pageSize int) (Page, error) {
	const op = "mailbox.FetchPage"

	accessToken, err := f.tokens.GetValidToken(ctx, cred)
	if err != nil {
		return Page{}, err
	}

	start := time.Now()
	result, err := f.fetch(ctx, identity.Email, accessToken, page, pageSize)
	metrics.RecordMailboxFetch(err, time.Since(start))
	if err != nil {
		f.logger.Errorf("mailbox fetch failed for %s: %v", identity.Email, err)
		return Page{}, &apperr.Error{Kind: apperr.KindTransport, Op: op, Msg: "could not read the mailbox", Err: err}
	}
	return result, nil
}

func (f *Fetcher) fetch(ctx context.Context, username, accessToken string, page, pageSize int) (result Page, err error) {
	session, err := f.connector.Connect(ctx, username, accessToken)
	if err != nil {
		return Page{}, err
	}
	defer func() {
		if logoutErr := session.Logout(); logoutErr != nil {
			f.logger.Debugf("logout: %v", logoutErr)
		}
	}()

	status, err := session.Select(inbox, true)
	if err != nil {
		return Page{}, fmt.Errorf("failed to select %s: %w", inbox, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			f.logger.Debugf("close %s: %v", inbox, closeErr)
		}
	}()

	total := int(status.Messages)
	rng, ok := PageRange(total, page, pageSize)
	if !ok {
		return Page{Messages: []model.ParsedMessage{}, Total: total}, nil
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	raws, err := f.fetchRange(session, rng)
	if err != nil {
		return Page{}, err
	}

	messages := make([]model.ParsedMessage, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		raw := raws[i]
		messages = append(messages, parser.Parse(raw.RawBytes, parser.EnvelopeOf(raw)))
	}
	return Page{Messages: messages, Total: total}, nil
}

// fetchRange returns the messages in rng in ascending sequence order.
func (f *Fetcher) fetchRange(session Session, rng Range) ([]*model.RawMessage, error) {
	seqset := new(imap.SeqSet)
	seqset.AddRange(rng.Start, rng.End)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}
	if ok, _ := session.Support(gmailExtension); ok {
		items = append(items, fetchThreadID)
	}

	ch := make(chan *imap.Message, rng.Len())
	done := make(chan error, 1)
	go func() {
		done <- session.Fetch(seqset, items, ch)
	}()

	raws := make([]*model.RawMessage, 0, rng.Len())
	for msg := range ch {
		raw, err := toRawMessage(msg)
		if err != nil {
			f.logger.Warnf("skipping message seq=%d: %v", msg.SeqNum, err)
			continue
		}
		raws = append(raws, raw)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch %d:%d: %w", rng.Start, rng.End, err)
	}

	sort.Slice(raws, func(i, j int) bool { return raws[i].SequenceID < raws[j].SequenceID })
	return raws, nil
}

func toRawMessage(msg *imap.Message) (*model.RawMessage, error) {
	raw := &model.RawMessage{
		SequenceID: msg.SeqNum,
		UID:        msg.Uid,
		ThreadID:   parseIDValue(msg.Items[fetchThreadID]),
	}
	if raw.UID == 0 {
		return nil, fmt.Errorf("message has no UID")
	}

	if env := msg.Envelope; env != nil {
		raw.EnvelopeSubject = env.Subject
		raw.EnvelopeDate = env.Date
		if len(env.From) > 0 && env.From[0] != nil {
			from := env.From[0]
			raw.EnvelopeSender = model.Address{Name: from.PersonalName, Address: from.Address()}
		}
	}

	// only one body section is requested
	for _, literal := range msg.Body {
		if literal == nil {
			continue
		}
		b, err := io.ReadAll(literal)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		raw.RawBytes = b
		break
	}
	return raw, nil
}

func parseIDValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case uint64:
		return strconv.FormatUint(value, 10)
	case uint32:
		return strconv.FormatUint(uint64(value), 10)
	case int64:
		return strconv.FormatInt(value, 10)
	case int:
		return strconv.Itoa(value)
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}
