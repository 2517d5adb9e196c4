package ows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/owslabs/whatsapp-ows-bridge/internal/config"
)

func TestParseContactList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{
			"single named contact",
			"Boss Moses +8801712345678",
			map[string]string{"+8801712345678": "Boss Moses"},
		},
		{
			"several contacts",
			"Boss Moses +8801712345678, Jane +8801811111111",
			map[string]string{"+8801712345678": "Boss Moses", "+8801811111111": "Jane"},
		},
		{
			"nameless contact",
			"+8801712345678",
			map[string]string{"+8801712345678": ""},
		},
		{
			"number with grouping spaces",
			"Boss +880 171 234 5678",
			map[string]string{"+8801712345678": "Boss"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseContactList(tt.raw)
			if err != nil {
				t.Fatalf("parseContactList(%q) returned error: %v", tt.raw, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d contacts, want %d: %v", len(got), len(tt.want), got)
			}
			for num, name := range tt.want {
				if got[num] != name {
					t.Errorf("contact %q = %q, want %q", num, got[num], name)
				}
			}
		})
	}
}

func TestParseContactListUnparseable(t *testing.T) {
	if _, err := parseContactList("no number here"); err == nil {
		t.Error("parseContactList succeeded on a contact without a number")
	}
}

func TestFetchGroupContactsPaging(t *testing.T) {
	// Three entries with a page size of two forces a second request.
	entries := []directoryEntry{
		{WhatsappGroup: "Dhaka Office", WhatsappContact: "Boss +8801712345678"},
		{WhatsappGroup: "Chittagong Office", WhatsappContact: "+8801811111111"},
		{WhatsappGroup: "Sylhet Office", WhatsappContact: "Jane +8801911111111, +8801922222222"},
	}

	var starts []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		start, _ := strconv.Atoi(r.PostForm.Get("start"))
		limit, _ := strconv.Atoi(r.PostForm.Get("limit"))
		starts = append(starts, start)

		end := start + limit
		if end > len(entries) {
			end = len(entries)
		}
		page := entries[start:end]

		results, _ := json.Marshal(page)
		fmt.Fprintf(w, `{"results": %s}`, results)
	}))
	defer srv.Close()

	c := testClient(t, config.OWSConfig{DirectoryURL: srv.URL, PageSize: 2})

	directory, err := c.FetchGroupContacts(context.Background())
	if err != nil {
		t.Fatalf("FetchGroupContacts returned error: %v", err)
	}

	if len(starts) != 2 || starts[0] != 0 || starts[1] != 2 {
		t.Errorf("request starts = %v, want [0 2]", starts)
	}
	if len(directory) != 3 {
		t.Fatalf("got %d groups, want 3", len(directory))
	}
	if directory["Sylhet Office"]["+8801922222222"] != "" {
		t.Errorf("nameless contact name = %q, want empty", directory["Sylhet Office"]["+8801922222222"])
	}
	if directory["Dhaka Office"]["+8801712345678"] != "Boss" {
		t.Errorf("Dhaka contact = %v", directory["Dhaka Office"])
	}
}

func TestFetchNotices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"id": 7, "sbc": "DHK", "context": "office closed tomorrow"}]}`))
	}))
	defer srv.Close()

	c := testClient(t, config.OWSConfig{NoticesURL: srv.URL})

	notices, err := c.FetchNotices(context.Background())
	if err != nil {
		t.Fatalf("FetchNotices returned error: %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("got %d notices, want 1", len(notices))
	}
	if notices[0].ID.String() != "7" || notices[0].SBC != "DHK" {
		t.Errorf("notice = %+v", notices[0])
	}
}

func TestFetchNoticesUnconfigured(t *testing.T) {
	c := testClient(t, config.OWSConfig{})

	notices, err := c.FetchNotices(context.Background())
	if err != nil {
		t.Fatalf("FetchNotices returned error: %v", err)
	}
	if notices != nil {
		t.Errorf("notices = %v, want nil when no feed is configured", notices)
	}
}
