package mailbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bloodlink-api/internal/service/inbound"
)

const htmlDecline = "From: Maya <maya@example.com>\r\n" +
	"Subject: Re: O- blood needed - Request #12\r\n" +
	"X-Blood-Request-Id: 12\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	`<div dir="ltr">Sorry, not this time.</div><br>` +
	`<div class="gmail_quote"><div class="gmail_attr">On Mon, Mar 4, 2024 at 9:00 AM Blood Donation Coordination &lt;donations@bloodlink.example&gt; wrote:<br></div>` +
	`<blockquote class="gmail_quote"><p>Reply to this email with "YES" if you can donate.</p></blockquote></div>` + "\r\n"

func TestParseMessage_HTMLDeclineWithQuotedTemplate(t *testing.T) {
	msg, err := parseMessage(strings.NewReader(htmlDecline))

	require.NoError(t, err)
	assert.Equal(t, "Sorry, not this time.", msg.TextBody)
	assert.Equal(t, inbound.IntentDecline, inbound.ClassifyIntent(msg.TextBody))
}

func TestHTMLToText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"inline markup", `<p>Count me <b>in</b></p>`, "Count me in"},
		{"space after inline element", `<p><b>Yes</b> I can</p>`, "Yes I can"},
		{"entities", `<p>Yes &amp; thanks &lt;3</p>`, "Yes & thanks <3"},
		{"line breaks", `Yes<br>See you<br/>tomorrow`, "Yes\nSee you\ntomorrow"},
		{"blocks", `<div>First</div><div>Second</div>`, "First\nSecond"},
		{"plain blockquote", `<p>No thanks</p><blockquote>Reply YES to confirm</blockquote>`, "No thanks"},
		{"outlook reply", `<p>Unable to come</p><div id="divRplyFwdMsg">From: donations<br>Reply YES</div>`, "Unable to come"},
		{"thunderbird cite", `<p>Sorry</p><div class="moz-cite-prefix">On Mon wrote:</div>`, "Sorry"},
		{"style dropped", `<style>p{color:red}</style><p>Yes</p>`, "Yes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, htmlToText(tc.in))
		})
	}
}

func TestHTMLToText_UnquotedAttributionStillStripped(t *testing.T) {
	body := `<p>Sorry, I'm away</p><p>On Mon, Mar 4, 2024 at 9:00 AM donations wrote:</p><p>Reply "YES" to confirm</p>`

	text := htmlToText(body)

	assert.Equal(t, "Sorry, I'm away", inbound.ReplyText(text))
	assert.Equal(t, inbound.IntentDecline, inbound.ClassifyIntent(text))
}
