package inbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Intent
	}{
		{"plain yes", "Yes", IntentAffirmative},
		{"shouted yes", "YES!!", IntentAffirmative},
		{"yes with crlf", "Yes, I can come\r\n", IntentAffirmative},
		{"confirm", "I confirm", IntentAffirmative},
		{"confirmed", "Confirmed.", IntentAffirmative},
		{"i can", "I can", IntentAffirmative},
		{"available", "I'm available this afternoon", IntentAffirmative},
		{"typographic apostrophe", "I’m available", IntentAffirmative},
		{"count me in", "Count me in", IntentAffirmative},
		{"will come", "I will come after work", IntentAffirmative},
		{"on my way", "On my way now", IntentAffirmative},
		{"affirmative wins over apology", "Sorry for the delay, yes I will come", IntentAffirmative},
		{"yes then no problem", "Yes, no problem", IntentAffirmative},
		{"affirmative clause after but", "Not today but I can tomorrow", IntentAffirmative},

		{"no", "No", IntentDecline},
		{"not available", "Sorry, I'm not available", IntentDecline},
		{"cannot", "I cannot make it", IntentDecline},
		{"can not", "I can not come today", IntentDecline},
		{"can't", "I can't this week", IntentDecline},
		{"typographic can't", "I can’t", IntentDecline},
		{"unavailable", "Unavailable until March", IntentDecline},
		{"declined", "Declined", IntentDecline},
		{"unable", "Unable to travel", IntentDecline},
		{"cannot confirm", "I cannot confirm right now", IntentDecline},
		{"can't confirm", "Sorry, I can't confirm for this week", IntentDecline},
		{"don't think i can", "I don't think I can make it", IntentDecline},
		{"not sure i can", "Not sure I can, sorry", IntentDecline},
		{"won't", "I won't be in town", IntentDecline},
		{"i can but negated later", "I can not, but thanks", IntentDecline},

		{"question", "What hospital is this?", IntentUnclassified},
		{"yesterday is not yes", "I donated yesterday", IntentUnclassified},
		{"nothing is not no", "Nothing to add", IntentUnclassified},
		{"confirm alone", "Can you confirm the address?", IntentUnclassified},
		{"empty", "", IntentUnclassified},
		{"only quoted text", "> Reply YES to confirm", IntentUnclassified},
		{
			"quoted history ignored",
			"Thanks for letting me know\n\nOn Mon, Jan 1, 2024 at 10:00 AM Blood Bank <bank@example.org> wrote:\n> Reply yes to confirm",
			IntentUnclassified,
		},
		{
			"decline above quoted yes",
			"Sorry, no\n\n> Reply YES to confirm",
			IntentDecline,
		},
		{
			"outlook original message",
			"Can't this time\n-----Original Message-----\nFrom: Blood Bank\nPlease reply yes",
			IntentDecline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyIntent(tt.body), "body %q", tt.body)
		})
	}
}

func TestReplyText(t *testing.T) {
	t.Run("strips wrapped gmail marker", func(t *testing.T) {
		body := "Yes\n\nOn Tue, 2 Jan 2024 at 09:00, Blood Bank\n<bank@example.org> wrote:\n> Can you donate?"
		assert.Equal(t, "Yes", ReplyText(body))
	})

	t.Run("strips from header block", func(t *testing.T) {
		body := "I will be there\r\n\r\nFrom: Blood Bank <bank@example.org>\r\nSent: Monday\r\n"
		assert.Equal(t, "I will be there", ReplyText(body))
	})

	t.Run("keeps multi line reply", func(t *testing.T) {
		body := "Yes\nSee you at 5\n> quoted"
		assert.Equal(t, "Yes\nSee you at 5", ReplyText(body))
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hé", Truncate("héllo", 2))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "unbounded", Truncate("unbounded", 0))
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "affirmative", IntentAffirmative.String())
	assert.Equal(t, "decline", IntentDecline.String())
	assert.Equal(t, "unclassified", IntentUnclassified.String())
}
