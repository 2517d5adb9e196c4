package bot

import (
	"time"

	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
)

// TimeLayout is the canonical form every message timestamp is normalized
// to, and the layout OWS expects for message_time and create_time.
const TimeLayout = "2006-01-02 15:04:05"

// messageTimeLayouts lists every timestamp rendering the chat surface is
// known to produce, in priority order. The first layout that parses wins.
//
// Month/day layouts deliberately come before their day/month twins, so an
// ambiguous date like "04/05/2023" always parses as April 5. There is no
// locale awareness here; the order is the tiebreak.
var messageTimeLayouts = []string{
	"3:04 PM, 1/2/2006",    // 12-hour with AM/PM
	"15:04:05, 1/2/2006",   // 24-hour with seconds
	"15:04, 1/2/2006",      // 24-hour without seconds
	"3:04:05 PM, 1/2/2006", // 12-hour with seconds and AM/PM
	"3:04 PM, 2/1/2006",    // 12-hour with AM/PM (day/month/year)
	"15:04:05, 2/1/2006",   // 24-hour with seconds (day/month/year)
	"15:04, 2/1/2006",      // 24-hour without seconds (day/month/year)
	"3:04:05 PM, 2/1/2006", // 12-hour with seconds and AM/PM (day/month/year)
	"2006-01-02 15:04:05",  // ISO-like; fractional seconds are tolerated by Parse
	"2006-01-02 3:04:05 PM",
}

// ParseMessageTime normalizes a raw chat surface timestamp into
// TimeLayout form. It fails with a FORMAT_ERROR when no known layout
// matches; callers treat that as a per-row failure, never a scan abort.
func ParseMessageTime(raw string) (string, error) {
	for _, layout := range messageTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	return "", errors.FormatError(raw)
}
