package media

import "testing"

func TestExtractID(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":     "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                    "dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ?version=3": "dQw4w9WgXcQ",
		"dQw4w9WgXcQ": "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=abc_123-XYZ&t=42": "abc_123-XYZ",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			got, err := ExtractID(in)
			if err != nil {
				t.Fatalf("ExtractID(%q): %v", in, err)
			}
			if got != want {
				t.Fatalf("ExtractID(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func TestExtractID_Invalid(t *testing.T) {
	for _, in := range []string{"", "https://example.com/clip", "short"} {
		if _, err := ExtractID(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
