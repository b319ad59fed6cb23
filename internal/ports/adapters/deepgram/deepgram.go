// Package deepgram transcribes audio with speaker diarization via the
// Deepgram prerecorded API.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"inkcast/internal/faults"
	"inkcast/internal/ports"
	"inkcast/internal/types"
)

const requestTimeout = 10 * time.Minute

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

var _ ports.Diarizer = (*Adapter)(nil)

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "nova-3"
	}
	if baseURL == "" {
		baseURL = "https://api.deepgram.com"
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Diarize uploads the audio file and returns speaker-labeled utterances in
// time order. Rate limits and 5xx responses come back tagged transient with
// any server-provided wait attached; auth and bad-request failures are
// permanent.
func (a *Adapter) Diarize(ctx context.Context, audioPath string) ([]types.Segment, error) {
	if a.key == "" {
		return nil, faults.Wrap(faults.ErrPermanent, "transcript", "deepgram",
			fmt.Errorf("DEEPGRAM_API_KEY is not set"))
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, faults.Wrap(faults.ErrMissingInput, "transcript", "deepgram", err)
	}
	defer f.Close()

	url := a.baseURL + "/v1/listen?model=" + a.model +
		"&smart_format=true&utterances=true&diarize=true&punctuate=true"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, f)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+a.key)
	req.Header.Set("Content-Type", "audio/mpeg")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, faults.Wrap(faults.ErrTransient, "transcript", "deepgram request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, a.statusError(resp)
	}

	var raw struct {
		Results struct {
			Utterances []struct {
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Speaker    int     `json:"speaker"`
				Transcript string  `json:"transcript"`
			} `json:"utterances"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, faults.Wrap(faults.ErrTransient, "transcript", "deepgram decode", err)
	}
	if len(raw.Results.Utterances) == 0 {
		return nil, faults.Wrap(faults.ErrPermanent, "transcript", "deepgram",
			fmt.Errorf("no utterances in response"))
	}

	segs := make([]types.Segment, 0, len(raw.Results.Utterances))
	for _, u := range raw.Results.Utterances {
		segs = append(segs, types.Segment{
			Start:   u.Start,
			End:     u.End,
			Speaker: u.Speaker,
			Text:    u.Transcript,
		})
	}
	return segs, nil
}

func (a *Adapter) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	base := fmt.Errorf("deepgram status %d: %s", resp.StatusCode, string(body))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		err := faults.Wrap(faults.ErrTransient, "transcript", "deepgram", base)
		if wait := parseRetryAfter(resp.Header.Get("Retry-After")); wait > 0 {
			return &retryAfterError{err: err, wait: wait}
		}
		return err
	default:
		return faults.Wrap(faults.ErrPermanent, "transcript", "deepgram", base)
	}
}

// retryAfterError carries the server's requested wait for the retry layer.
type retryAfterError struct {
	err  error
	wait time.Duration
}

func (e *retryAfterError) Error() string             { return e.err.Error() }
func (e *retryAfterError) Unwrap() error             { return e.err }
func (e *retryAfterError) RetryAfter() time.Duration { return e.wait }

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
