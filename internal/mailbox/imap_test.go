package mailbox

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/model"
)

const replyMessage = "From: Maya <maya@example.com>\r\n" +
	"To: donations@bloodlink.example\r\n" +
	"Subject: Re: O- blood needed - Request #12\r\n" +
	"X-Blood-Request-Id: 12\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Yes, I can donate tomorrow.\r\n"

func startTestServer(t *testing.T) string {
	s := server.New(memory.New())
	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l)
	t.Cleanup(func() { s.Close() })

	return l.Addr().String()
}

func appendMessage(t *testing.T, addr, body string) {
	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Logout()
	require.NoError(t, c.Login("username", "password"))
	require.NoError(t, c.Append("INBOX", nil, time.Now(), bytes.NewBufferString(body)))
}

func TestParseMessage_PlainText(t *testing.T) {
	msg, err := parseMessage(strings.NewReader(replyMessage))

	require.NoError(t, err)
	assert.Equal(t, "maya@example.com", msg.From)
	assert.Equal(t, "Re: O- blood needed - Request #12", msg.Subject)
	assert.Equal(t, "12", msg.Header("x-blood-request-id"))
	assert.Contains(t, msg.TextBody, "Yes, I can donate tomorrow.")
}

func TestParseMessage_HTMLFallback(t *testing.T) {
	raw := "From: a@example.com\r\n" +
		"Subject: Request #4\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>Count me <b>in</b></p>\r\n"

	msg, err := parseMessage(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Contains(t, msg.TextBody, "Count me")
	assert.NotContains(t, msg.TextBody, "<p>")
}

func TestIMAPMailbox_FetchAndMarkSeen(t *testing.T) {
	addr := startTestServer(t)
	appendMessage(t, addr, replyMessage)

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	mb := NewIMAPMailbox(config.InboxConfig{Host: host, Port: portNum, Username: "username", Password: "password"})
	ctx := context.Background()
	require.NoError(t, mb.Connect(ctx))
	defer mb.Disconnect()

	since := time.Now().Add(-48 * time.Hour)
	refs, err := mb.ListUnseenSince(ctx, since)
	require.NoError(t, err)

	var reply *model.InboundMessage
	for _, ref := range refs {
		msg, err := mb.Fetch(ctx, ref)
		require.NoError(t, err)
		if msg.Header("X-Blood-Request-Id") == "12" {
			reply = msg
		}
	}
	require.NotNil(t, reply)
	assert.Equal(t, "maya@example.com", reply.From)

	// fetch peeks, so the message is still unseen
	again, err := mb.ListUnseenSince(ctx, since)
	require.NoError(t, err)
	assert.Contains(t, again, reply.Ref)

	require.NoError(t, mb.MarkSeen(ctx, reply.Ref))
	after, err := mb.ListUnseenSince(ctx, since)
	require.NoError(t, err)
	assert.NotContains(t, after, reply.Ref)
}

func TestIMAPMailbox_NotConnected(t *testing.T) {
	mb := NewIMAPMailbox(config.InboxConfig{})

	_, err := mb.ListUnseenSince(context.Background(), time.Now())

	assert.ErrorIs(t, err, ErrNotConnected)
}
