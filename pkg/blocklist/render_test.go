package blocklist

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderDocument(t *testing.T) {
	doc := &MergedDocument{Sections: []Section{
		{
			SourceID: BaselineSourceID,
			Category: BaselineCategory,
			Title:    "DNSCrypt Default: Baseline",
			Notes:    []string{"Source: https://example.com/baseline"},
			Lines: []Line{
				{URL: "ads.example.com", Key: "ads.example.com", Status: StatusActive, OriginSourceID: BaselineSourceID},
				{URL: "https://off.example.com/list", Key: "off.example.com/list", Name: "Off List", Status: StatusCommentedDisabled, OriginSourceID: BaselineSourceID, FirstSeenOrder: 1},
			},
		},
		{
			SourceID: "rethinkdns",
			Category: "Privacy",
			Title:    "RethinkDNS: Privacy",
			Lines: []Line{
				{URL: "ads.example.com", Key: "ads.example.com", Status: StatusCommentedDuplicate, OriginSourceID: BaselineSourceID},
				{URL: "tracker.example.com", Key: "tracker.example.com", Name: "Trackers", Entries: 42, Status: StatusActive, OriginSourceID: "rethinkdns", FirstSeenOrder: 3},
			},
		},
	}}

	rule := strings.Repeat("#", 82)
	want := strings.Join([]string{
		rule,
		"# DNSCrypt-Proxy Domains Blocklist Configuration",
		"# Generated by blockmerge",
		rule,
		"",
		rule,
		"# DNSCrypt Default: Baseline",
		"# Source: https://example.com/baseline",
		rule,
		"ads.example.com",
		"# Off List",
		"# disabled-by-default https://off.example.com/list",
		"",
		rule,
		"# RethinkDNS: Privacy",
		rule,
		"# duplicate-of:baseline ads.example.com",
		"# Trackers",
		"# Entries: 42",
		"tracker.example.com",
		"",
	}, "\n")

	var buf bytes.Buffer
	if err := Render(&buf, doc); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if got := buf.String(); got != want {
		t.Errorf("Render output mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
	if !bytes.Equal(RenderBytes(doc), buf.Bytes()) {
		t.Error("RenderBytes differs from Render")
	}
}

func TestRenderEmptyDocument(t *testing.T) {
	rule := strings.Repeat("#", 82)
	want := rule + "\n# DNSCrypt-Proxy Domains Blocklist Configuration\n# Generated by blockmerge\n" + rule + "\n"
	if got := string(RenderBytes(&MergedDocument{})); got != want {
		t.Errorf("empty document rendered as %q", got)
	}
	if got := string(RenderBytes(nil)); got != want {
		t.Errorf("nil document rendered as %q", got)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	build := func() *MergedDocument {
		return mergeForTest(
			input(BaselineSourceID, entry(BaselineSourceID, BaselineCategory, "ads.example.com", true)),
			input("rethinkdns",
				entry("rethinkdns", "Security", "https://lists.example.com/a", true),
				entry("rethinkdns", "Privacy", "Ads.Example.com/", false),
			),
		).Document
	}
	first := RenderBytes(build())
	for i := 0; i < 5; i++ {
		if got := RenderBytes(build()); !bytes.Equal(got, first) {
			t.Fatalf("run %d produced different output", i)
		}
	}
}

func TestRenderLine(t *testing.T) {
	tests := []struct {
		line Line
		want string
	}{
		{Line{URL: "a.example.com", Status: StatusActive}, "a.example.com"},
		{Line{URL: "a.example.com", Status: StatusCommentedDisabled}, "# disabled-by-default a.example.com"},
		{Line{URL: "a.example.com", Status: StatusCommentedDuplicate, OriginSourceID: "nextdns"}, "# duplicate-of:nextdns a.example.com"},
	}
	for _, tt := range tests {
		if got := RenderLine(tt.line); got != tt.want {
			t.Errorf("RenderLine(%v) = %q, want %q", tt.line.Status, got, tt.want)
		}
	}
}
