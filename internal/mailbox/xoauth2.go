package mailbox

import (
	"github.com/emersion/go-sasl"
)

const xoauth2 = "XOAUTH2"

// xoauth2Client implements the XOAUTH2 SASL mechanism used by Gmail.
type xoauth2Client struct {
	username    string
	accessToken string

	// failure holds the server's error challenge, if any.
	failure []byte
}

var _ sasl.Client = (*xoauth2Client)(nil)

func newXOAuth2Client(username, accessToken string) *xoauth2Client {
	return &xoauth2Client{username: username, accessToken: accessToken}
}

func (c *xoauth2Client) Start() (string, []byte, error) {
	ir := "user=" + c.username + "\x01auth=Bearer " + c.accessToken + "\x01\x01"
	return xoauth2, []byte(ir), nil
}

// Next answers the server's error challenge with an empty response so the
// server finishes the exchange with a tagged NO.
func (c *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	c.failure = append([]byte(nil), challenge...)
	return []byte{}, nil
}
