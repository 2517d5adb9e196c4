package bot

import (
	"fmt"
	"regexp"

	"github.com/owslabs/whatsapp-ows-bridge/internal/chat"
	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
)

var (
	// Row identifiers look like "false_12345@g.us_HASH_9876543210@c.us";
	// the digits after the last underscore marker are the sender number.
	dataIDPattern = regexp.MustCompile(`^.+@.+_(?P<sender>\d+)@.+$`)

	// The pre-plain-text attribute looks like
	// "[9:49 AM, 4/28/2023] Boss Moses: "; only the bracketed timestamp
	// is of interest.
	prePlainTextPattern = regexp.MustCompile(`^\[(?P<time>.+)\].+$`)
)

// ParseRow converts one raw UI row into a Message. All per-message
// parsing failure is isolated here: any structural defect yields a
// PARSE_ERROR and the caller drops the row without touching siblings.
func ParseRow(row chat.Row, group string) (Message, error) {
	idMatch := dataIDPattern.FindStringSubmatch(row.DataID)
	if idMatch == nil {
		return Message{}, errors.ParseError(fmt.Sprintf("row identifier %q does not encode a sender", row.DataID))
	}
	sender := "+" + idMatch[1]

	// The pre-plain-text attribute is present wherever there is text.
	if row.PrePlainText == "" {
		return Message{}, errors.ParseError("row has no pre-plain-text attribute")
	}

	timeMatch := prePlainTextPattern.FindStringSubmatch(row.PrePlainText)
	if timeMatch == nil {
		return Message{}, errors.ParseError(fmt.Sprintf("pre-plain-text %q carries no timestamp", row.PrePlainText))
	}

	formatted, err := ParseMessageTime(timeMatch[1])
	if err != nil {
		return Message{}, errors.ParseErrorWrap(err, "row timestamp is unparseable")
	}

	// Emoji-only bodies render as images and leave the text empty; such
	// rows are dropped rather than forwarded with no content.
	if row.Text == "" {
		return Message{}, errors.ParseError("empty message text (emoji-only body?)")
	}

	return Message{
		ID:     row.DataID,
		Group:  group,
		Sender: sender,
		Text:   row.Text,
		Time:   formatted,
	}, nil
}
