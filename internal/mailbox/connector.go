package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Session is the part of an authenticated IMAP connection the fetcher uses.
// *client.Client satisfies it.
type Session interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Support(capability string) (bool, error)
	Close() error
	Logout() error
}

// Connector opens an authenticated session for username.
type Connector interface {
	Connect(ctx context.Context, username, accessToken string) (Session, error)
}

// TLSConnector dials an implicit-TLS IMAP endpoint and logs in with XOAUTH2.
type TLSConnector struct {
	Addr        string
	DialTimeout time.Duration
}

func NewTLSConnector(addr string, dialTimeout time.Duration) *TLSConnector {
	return &TLSConnector{Addr: addr, DialTimeout: dialTimeout}
}

func (c *TLSConnector) Connect(ctx context.Context, username, accessToken string) (Session, error) {
	host, _, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid IMAP address %q: %w", c.Addr, err)
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.DialTimeout},
		Config:    &tls.Config{ServerName: host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create IMAP client: %w", err)
	}
	imapClient.Timeout = c.DialTimeout

	if ok, _ := imapClient.SupportAuth(xoauth2); !ok {
		imapClient.Logout()
		return nil, fmt.Errorf("server does not support %s", xoauth2)
	}

	saslClient := newXOAuth2Client(username, accessToken)
	if err := imapClient.Authenticate(saslClient); err != nil {
		imapClient.Logout()
		if len(saslClient.failure) > 0 {
			return nil, fmt.Errorf("failed to authenticate: %w (%s)", err, saslClient.failure)
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	return imapClient, nil
}
