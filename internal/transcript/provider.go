package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Messages the backend sends in place of a transcript.
const (
	MsgNoTranscript = "Error: No transcript is available for this video."
	MsgUnavailable  = "Error: The video is unavailable."
)

var (
	ErrNoTranscript = errors.New("no transcript available")
	ErrInvalidID    = errors.New("invalid video id")
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Provider looks up the transcript of a video on the backend side.
type Provider interface {
	Transcript(ctx context.Context, videoID string) ([]Entry, error)
}

// DirProvider reads transcripts from <Dir>/<video id>.json, each file a JSON
// array of entries.
type DirProvider struct {
	Dir string
}

func NewDirProvider(dir string) *DirProvider {
	return &DirProvider{Dir: dir}
}

func (p *DirProvider) Transcript(ctx context.Context, videoID string) ([]Entry, error) {
	if !videoIDPattern.MatchString(videoID) {
		return nil, ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(p.Dir, videoID+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoTranscript
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse transcript %s: %w", videoID, err)
	}
	if len(entries) == 0 {
		return nil, ErrNoTranscript
	}
	return entries, nil
}

// Message maps a provider error to the text the backend puts in the
// transcript field.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoTranscript):
		return MsgNoTranscript
	case errors.Is(err, ErrInvalidID):
		return MsgUnavailable
	default:
		return fmt.Sprintf("An error occurred: %v", err)
	}
}
