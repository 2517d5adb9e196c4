package bot

// Message is one parsed group message. It is immutable once constructed
// by the row parser; handlers receive it by value.
type Message struct {
	// ID is the chat surface's row identifier, globally unique and the
	// unit of read-progress tracking.
	ID string

	// Group is the conversation title the message was read from.
	Group string

	// Sender is the author's phone number in canonical "+digits" form,
	// extracted from the row identifier.
	Sender string

	// Text is the visible message body. Always non-empty: rows whose
	// text renders empty are rejected by the parser.
	Text string

	// Time is the message timestamp normalized to "2006-01-02 15:04:05".
	Time string
}
