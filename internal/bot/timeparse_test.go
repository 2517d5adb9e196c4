package bot

import (
	"testing"

	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
)

func TestParseMessageTimeLayouts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"12-hour", "9:49 AM, 4/28/2023", "2023-04-28 09:49:00"},
		{"12-hour afternoon", "1:05 PM, 4/28/2023", "2023-04-28 13:05:00"},
		{"24-hour with seconds", "21:49:33, 4/28/2023", "2023-04-28 21:49:33"},
		{"24-hour without seconds", "21:49, 4/28/2023", "2023-04-28 21:49:00"},
		{"12-hour with seconds", "9:49:33 PM, 4/28/2023", "2023-04-28 21:49:33"},
		{"day-month", "9:49 AM, 28/4/2023", "2023-04-28 09:49:00"},
		{"day-month 24-hour with seconds", "21:49:33, 28/4/2023", "2023-04-28 21:49:33"},
		{"iso-like", "2023-04-28 21:49:33", "2023-04-28 21:49:33"},
		{"iso-like with fraction", "2023-04-28 21:49:33.123456", "2023-04-28 21:49:33"},
		{"iso-like 12-hour", "2023-04-28 9:49:33 PM", "2023-04-28 21:49:33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessageTime(tt.raw)
			if err != nil {
				t.Fatalf("ParseMessageTime(%q) returned error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseMessageTime(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

// Dates that fit both orderings must resolve month-first; the layout
// order is the only tiebreak.
func TestParseMessageTimeAmbiguousDate(t *testing.T) {
	got, err := ParseMessageTime("9:00 AM, 4/5/2023")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2023-04-05 09:00:00" {
		t.Errorf("ambiguous date parsed as %q, want month-first 2023-04-05", got)
	}
}

func TestParseMessageTimeUnrecognized(t *testing.T) {
	tests := []string{
		"",
		"yesterday",
		"9:49, 28th April 2023",
		"28/4/2023", // date without time
	}

	for _, raw := range tests {
		_, err := ParseMessageTime(raw)
		if err == nil {
			t.Errorf("ParseMessageTime(%q) succeeded, want FORMAT_ERROR", raw)
			continue
		}
		if !errors.HasCode(err, errors.ErrCodeFormat) {
			t.Errorf("ParseMessageTime(%q) error code = %v, want FORMAT_ERROR", raw, errors.CodeOf(err))
		}
	}
}
