package transcript

import (
	"testing"

	"inkcast/internal/types"
)

func TestFormatDiarized_GroupsConsecutive(t *testing.T) {
	segs := []types.Segment{
		{Start: 0, Speaker: 0, Text: "welcome"},
		{Start: 3, Speaker: 0, Text: "to the show"},
		{Start: 8, Speaker: 1, Text: "thanks for having me"},
		{Start: 70, Speaker: 0, Text: "so tell us"},
	}
	names := map[int]string{0: "Host", 1: "Guest"}
	got := FormatDiarized(segs, names)
	want := "**Host** [00:00]\nwelcome to the show\n\n**Guest** [00:08]\nthanks for having me\n\n**Host** [01:10]\nso tell us"
	if got != want {
		t.Fatalf("mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestFormatDiarized_SingleSpeakerPlainFormat(t *testing.T) {
	segs := []types.Segment{
		{Start: 0, Speaker: 0, Text: "hello"},
		{Start: 5, Speaker: 0, Text: "again"},
	}
	got := FormatDiarized(segs, nil)
	if got != "[00:00] hello again" {
		t.Fatalf("unexpected: %q", got)
	}
	if IsMultiSpeaker(got) {
		t.Fatal("plain format must not look diarized")
	}
}

func TestFormatDiarized_UnknownSpeakerFallback(t *testing.T) {
	segs := []types.Segment{{Start: 0, Speaker: 7, Text: "hi"}}
	got := FormatDiarized(segs, map[int]string{0: "Host"})
	if got != "**Speaker 7** [00:00]\nhi" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestFormatDiarized_Empty(t *testing.T) {
	if got := FormatDiarized(nil, nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestUniqueSpeakers(t *testing.T) {
	segs := []types.Segment{{Speaker: 0}, {Speaker: 1}, {Speaker: 0}}
	if got := UniqueSpeakers(segs); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}
