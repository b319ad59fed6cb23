package ytdlp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJSON3_GroupsParagraphs(t *testing.T) {
	raw := []byte(`{
		"events": [
			{"tStartMs": 0, "segs": [{"utf8": "hello"}, {"utf8": " world"}]},
			{"tStartMs": 1000, "aAppend": 1, "segs": [{"utf8": "hello world"}]},
			{"tStartMs": 15000, "segs": [{"utf8": "still first paragraph"}]},
			{"tStartMs": 31000, "segs": [{"utf8": "second paragraph starts"}]},
			{"tStartMs": 70000, "segs": [{"utf8": "third"}]}
		]
	}`)
	out, err := ParseJSON3(raw)
	require.NoError(t, err)

	paras := strings.Split(out, "\n\n")
	require.Len(t, paras, 2)
	require.True(t, strings.HasPrefix(paras[0], "[00:00] hello world still first paragraph second paragraph starts"))
	require.True(t, strings.HasPrefix(paras[1], "[01:10] third"))
	require.NotContains(t, out, "hello worldhello world", "aAppend duplicates must be dropped")
}

func TestParseJSON3_EmptyEventsSkipped(t *testing.T) {
	raw := []byte(`{"events": [{"tStartMs": 0, "segs": [{"utf8": "\n"}]}]}`)
	out, err := ParseJSON3(raw)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestParseJSON3_Invalid(t *testing.T) {
	_, err := ParseJSON3([]byte("{nope"))
	require.Error(t, err)
}
