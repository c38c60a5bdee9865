// Package mailbox adapts an IMAP inbox to the reply poller.
package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/jwalitptl/bloodlink-api/internal/config"
	"github.com/jwalitptl/bloodlink-api/internal/model"
)

var ErrNotConnected = errors.New("mailbox not connected")

type IMAPMailbox struct {
	cfg    config.InboxConfig
	client *client.Client
}

func NewIMAPMailbox(cfg config.InboxConfig) *IMAPMailbox {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	return &IMAPMailbox{cfg: cfg}
}

func (m *IMAPMailbox) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var (
		c   *client.Client
		err error
	)
	if m.cfg.UseTLS {
		c, err = client.DialTLS(addr, &tls.Config{ServerName: m.cfg.Host})
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	c.Timeout = time.Minute

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		c.Logout()
		return fmt.Errorf("imap login failed: %w", err)
	}
	if _, err := c.Select(m.cfg.Mailbox, false); err != nil {
		c.Logout()
		return fmt.Errorf("failed to select %s: %w", m.cfg.Mailbox, err)
	}

	m.client = c
	return nil
}

// ListUnseenSince returns UIDs of unseen messages. IMAP SINCE has day
// granularity, so callers may see messages slightly older than since.
func (m *IMAPMailbox) ListUnseenSince(ctx context.Context, since time.Time) ([]model.InboundMessageRef, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	if !since.IsZero() {
		criteria.Since = since
	}

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search failed: %w", err)
	}

	refs := make([]model.InboundMessageRef, 0, len(uids))
	for _, uid := range uids {
		refs = append(refs, model.InboundMessageRef{UID: uid})
	}
	return refs, nil
}

// Fetch reads a message without setting \Seen.
func (m *IMAPMailbox) Fetch(ctx context.Context, ref model.InboundMessageRef) (*model.InboundMessage, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ref.UID)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqset, items, messages)
	}()

	var raw *imap.Message
	for msg := range messages {
		raw = msg
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("message uid %d not found", ref.UID)
	}

	body := raw.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message uid %d has no body", ref.UID)
	}

	msg, err := parseMessage(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uid %d: %w", ref.UID, err)
	}
	msg.Ref = ref
	if msg.Date.IsZero() {
		msg.Date = raw.InternalDate
	}
	return msg, nil
}

func (m *IMAPMailbox) MarkSeen(ctx context.Context, ref model.InboundMessageRef) error {
	if m.client == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ref.UID)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("failed to mark uid %d seen: %w", ref.UID, err)
	}
	return nil
}

func (m *IMAPMailbox) Disconnect() error {
	if m.client == nil {
		return nil
	}
	err := m.client.Logout()
	m.client = nil
	return err
}

func parseMessage(r io.Reader) (*model.InboundMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, err
	}
	defer mr.Close()

	msg := &model.InboundMessage{Headers: make(map[string]string)}
	fields := mr.Header.Fields()
	for fields.Next() {
		if _, ok := msg.Headers[fields.Key()]; !ok {
			msg.Headers[fields.Key()] = fields.Value()
		}
	}
	msg.Subject, _ = mr.Header.Subject()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].Address
	}
	msg.Date, _ = mr.Header.Date()

	var htmlBody string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		b, err := io.ReadAll(p.Body)
		if err != nil {
			return nil, err
		}
		switch ct {
		case "text/plain":
			if msg.TextBody == "" {
				msg.TextBody = string(b)
			}
		case "text/html":
			if htmlBody == "" {
				htmlBody = string(b)
			}
		}
	}
	if msg.TextBody == "" && htmlBody != "" {
		msg.TextBody = htmlToText(htmlBody)
	}
	return msg, nil
}
