// Package dictionary looks up English words in the Free Dictionary API
// (https://dictionaryapi.dev).
package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.dictionaryapi.dev"

// ErrNotFound means the dictionary has no usable entry for the word. It is an
// expected outcome, not a failure.
var ErrNotFound = errors.New("no dictionary entry")

// Entry mirrors one element of the /api/v2/entries response array.
type Entry struct {
	Word     string    `json:"word"`
	Phonetic string    `json:"phonetic,omitempty"`
	Meanings []Meaning `json:"meanings"`
}

type Meaning struct {
	PartOfSpeech string       `json:"partOfSpeech"`
	Definitions  []Definition `json:"definitions"`
}

type Definition struct {
	Definition string `json:"definition"`
	Example    string `json:"example,omitempty"`
}

// FirstDefinition returns the first definition of the first meaning of the
// first entry, or false when that path does not exist.
func FirstDefinition(entries []Entry) (string, bool) {
	if len(entries) == 0 || len(entries[0].Meanings) == 0 || len(entries[0].Meanings[0].Definitions) == 0 {
		return "", false
	}
	def := strings.TrimSpace(entries[0].Meanings[0].Definitions[0].Definition)
	return def, def != ""
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Entries fetches all entries for word. A 404 yields ErrNotFound.
func (c *Client) Entries(ctx context.Context, word string) ([]Entry, error) {
	apiURL := fmt.Sprintf("%s/api/v2/entries/en/%s", c.baseURL, url.PathEscape(word))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dictionary returned status %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return entries, nil
}

// Lookup returns the canonical definition of word. An empty result or one
// without a definition string is reported as ErrNotFound.
func (c *Client) Lookup(ctx context.Context, word string) (string, error) {
	entries, err := c.Entries(ctx, word)
	if err != nil {
		return "", err
	}
	def, ok := FirstDefinition(entries)
	if !ok {
		return "", ErrNotFound
	}
	return def, nil
}
