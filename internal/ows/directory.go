package ows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
)

// GroupContacts maps a group name to its contact directory: phone number
// in "+digits" form → display name (possibly empty). The directory only
// enriches outbound records with a readable name; it is not authoritative
// for routing.
type GroupContacts map[string]map[string]string

// Contacts arrive as a comma-separated list of "name +number" strings;
// the name part is optional and the number may contain grouping spaces.
var contactPattern = regexp.MustCompile(`^(?P<name>.+?)?\s*(?P<num>\+.+?)$`)

// directoryEntry is one row of the paged directory feed.
type directoryEntry struct {
	WhatsappGroup   string `json:"whatsapp_group"`
	WhatsappContact string `json:"whatsapp_contact"`
}

// FetchGroupContacts retrieves the full group/contact directory, paging
// with start/limit until a short page signals the end.
func (c *Client) FetchGroupContacts(ctx context.Context) (GroupContacts, error) {
	directory := make(GroupContacts)

	for start := 0; ; start += c.cfg.PageSize {
		form := url.Values{
			"start": {strconv.Itoa(start)},
			"limit": {strconv.Itoa(c.cfg.PageSize)},
		}

		envelope, err := c.postForm(ctx, c.cfg.DirectoryURL, form)
		if err != nil {
			return nil, err
		}

		var entries []directoryEntry
		if err := json.Unmarshal(envelope.Results, &entries); err != nil {
			return nil, errors.RemoteService(err, "malformed directory response")
		}

		for _, entry := range entries {
			group := strings.TrimSpace(entry.WhatsappGroup)
			if group == "" {
				continue
			}
			contacts, err := parseContactList(entry.WhatsappContact)
			if err != nil {
				return nil, err
			}
			directory[group] = contacts
		}

		if len(entries) < c.cfg.PageSize {
			break
		}
	}

	return directory, nil
}

// parseContactList splits a raw "name +number, name +number" string into
// a number → name mapping.
func parseContactList(raw string) (map[string]string, error) {
	contacts := make(map[string]string)

	for _, rawContact := range strings.Split(raw, ",") {
		match := contactPattern.FindStringSubmatch(rawContact)
		if match == nil {
			return nil, errors.RemoteService(nil, fmt.Sprintf("unparseable directory contact %q", rawContact))
		}
		name := strings.TrimSpace(match[1])
		num := strings.ReplaceAll(match[2], " ", "")
		contacts[num] = name
	}

	return contacts, nil
}

// Notice is one outbound posting instruction from the group-info feed:
// post Context into the monitored group whose title carries the SBC tag.
type Notice struct {
	ID      json.Number `json:"id"`
	SBC     string      `json:"sbc"`
	Context string      `json:"context"`
}

// FetchNotices retrieves the pending outbound notices. OWS only returns
// notices it has not seen acknowledged, but the journal still dedupes by
// id so a restart never double-posts.
func (c *Client) FetchNotices(ctx context.Context) ([]Notice, error) {
	if c.cfg.NoticesURL == "" {
		return nil, nil
	}

	envelope, err := c.postForm(ctx, c.cfg.NoticesURL, url.Values{})
	if err != nil {
		return nil, err
	}

	var notices []Notice
	if err := json.Unmarshal(envelope.Results, &notices); err != nil {
		return nil, errors.RemoteService(err, "malformed notices response")
	}
	return notices, nil
}
