package transcript

import (
	"reflect"
	"strings"
	"testing"

	"inkcast/internal/types"
)

const sample = `[00:00] welcome back to the channel

[00:30] today we look at database internals

[01:05] this diagram shows the b-tree layout

not a timestamped line

[02:00] huge thanks to our sponsor`

func TestParse(t *testing.T) {
	entries := Parse(sample)
	want := []Entry{
		{0, "welcome back to the channel"},
		{30, "today we look at database internals"},
		{65, "this diagram shows the b-tree layout"},
		{120, "huge thanks to our sponsor"},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("Parse mismatch:\n got %v\nwant %v", entries, want)
	}
}

func TestContext_Window(t *testing.T) {
	entries := Parse(sample)
	got := Context(entries, 60, 15)
	if got != "this diagram shows the b-tree layout" {
		t.Fatalf("unexpected context: %q", got)
	}
	if Context(entries, 600, 15) != "" {
		t.Fatal("expected empty context far from any entry")
	}
	// window spanning two entries joins them in order
	got = Context(entries, 45, 20)
	if got != "today we look at database internals this diagram shows the b-tree layout" {
		t.Fatalf("unexpected joined context: %q", got)
	}
}

func TestStripRanges(t *testing.T) {
	out := StripRanges(sample, []types.SponsorRange{{Start: 115, End: 140}})
	if Parse(out)[len(Parse(out))-1].Seconds == 120 {
		t.Fatal("sponsor paragraph not stripped")
	}
	// paragraphs without timestamps survive
	if !strings.Contains(out, "not a timestamped line") {
		t.Fatal("untimestamped paragraph must be kept")
	}
	// no ranges: unchanged
	if StripRanges(sample, nil) != sample {
		t.Fatal("nil ranges must be a no-op")
	}
}

func TestInSponsorRange_Padding(t *testing.T) {
	ranges := []types.SponsorRange{{Start: 100, End: 120}}
	cases := []struct {
		sec  int
		want bool
	}{
		{94, false},
		{95, true},
		{110, true},
		{125, true},
		{126, false},
	}
	for _, tc := range cases {
		if got := InSponsorRange(tc.sec, ranges, 5); got != tc.want {
			t.Fatalf("InSponsorRange(%d) = %v, want %v", tc.sec, got, tc.want)
		}
	}
}

func TestSpeakers(t *testing.T) {
	diarized := "**Alice** [00:00]\nhi\n\n**Bob** [00:05]\nhello\n\n**Alice** [00:10]\nagain"
	if !IsMultiSpeaker(diarized) {
		t.Fatal("expected multi-speaker detection")
	}
	if IsMultiSpeaker(sample) {
		t.Fatal("plain transcript must not be multi-speaker")
	}
	got := Speakers(diarized)
	if !reflect.DeepEqual(got, []string{"Alice", "Bob"}) {
		t.Fatalf("unexpected speakers: %v", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(65); got != "01:05" {
		t.Fatalf("got %q", got)
	}
	if got := FormatTimestamp(3700); got != "61:40" {
		t.Fatalf("got %q", got)
	}
}
