package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkcast/internal/faults"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(p, []byte("fake mp3 bytes"), 0o644))
	return p
}

func TestDiarize_ParsesUtterances(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`{"results":{"utterances":[
			{"start":0.5,"end":4.2,"speaker":0,"transcript":"welcome back"},
			{"start":4.8,"end":9.1,"speaker":1,"transcript":"glad to be here"}
		]}}`))
	}))
	defer srv.Close()

	a := New("test-key", "nova-3", srv.URL)
	segs, err := a.Diarize(context.Background(), writeAudio(t))
	require.NoError(t, err)

	assert.Equal(t, "Token test-key", gotAuth)
	assert.Equal(t, "/v1/listen", gotPath)
	require.Len(t, segs, 2)
	assert.Equal(t, 0, segs[0].Speaker)
	assert.Equal(t, "welcome back", segs[0].Text)
	assert.InDelta(t, 4.8, segs[1].Start, 0.001)
	assert.Equal(t, 1, segs[1].Speaker)
}

func TestDiarize_RateLimitIsTransientWithHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := New("test-key", "", srv.URL)
	_, err := a.Diarize(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.True(t, faults.Transient(err))

	var hint interface{ RetryAfter() time.Duration }
	require.True(t, errors.As(err, &hint))
	assert.Equal(t, 7*time.Second, hint.RetryAfter())
}

func TestDiarize_AuthFailureIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	a := New("bad-key", "", srv.URL)
	_, err := a.Diarize(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.False(t, faults.Transient(err))
	assert.True(t, errors.Is(err, faults.ErrPermanent))
}

func TestDiarize_MissingKey(t *testing.T) {
	a := New("", "", "http://unused")
	_, err := a.Diarize(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrPermanent))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("garbage"))
}
