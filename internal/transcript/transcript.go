// Package transcript fetches timed video transcripts from the backend and
// serves them from disk on the backend side.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/lexipop/internal/logging"
)

// MsgFetchFailed is the single entry shown when no transcript could be read.
const MsgFetchFailed = "文字起こしの取得に失敗しました"

// Entry is one timed line of a transcript. Start and Duration are seconds.
type Entry struct {
	Start    float64 `json:"start"`
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

// Timestamp formats Start as HH:MM:SS.
func (e Entry) Timestamp() string {
	return FormatTime(e.Start)
}

// FormatTime renders seconds as HH:MM:SS, dropping fractions and wrapping
// at 24 hours.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	return time.Unix(0, 0).UTC().Add(d).Format("15:04:05")
}

// UnavailableError carries the message the backend returns in place of a
// transcript, e.g. "Error: Transcripts are disabled for this video."
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string {
	return e.Message
}

type Client struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logging.Component("transcript"),
	}
}

type response struct {
	Transcript json.RawMessage `json:"transcript"`
}

// Fetch returns the transcript of videoID. It always returns at least one
// entry: when the transcript cannot be read the entries hold a single
// display line and err says why.
func (c *Client) Fetch(ctx context.Context, videoID string) ([]Entry, error) {
	entries, err := c.fetch(ctx, videoID)
	if err == nil {
		return entries, nil
	}

	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return []Entry{{Text: unavailable.Message}}, err
	}

	c.logger.Warn().Err(err).Str("video_id", videoID).Msg("transcript fetch failed")
	return []Entry{{Text: MsgFetchFailed}}, err
}

func (c *Client) fetch(ctx context.Context, videoID string) ([]Entry, error) {
	endpoint := c.baseURL + "/api/transcript?" + url.Values{"video_id": {videoID}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("transcript API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var payload response
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(payload.Transcript, &entries); err == nil {
		if len(entries) == 0 {
			return nil, &UnavailableError{Message: "Error: The transcript is empty."}
		}
		return entries, nil
	}

	var message string
	if err := json.Unmarshal(payload.Transcript, &message); err == nil && message != "" {
		return nil, &UnavailableError{Message: message}
	}

	return nil, errors.New("response has no transcript")
}
