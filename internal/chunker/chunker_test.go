package chunker_test

import (
	"strings"
	"testing"

	"github.com/valpere/lexipop/internal/chunker"
)

func TestSplit_ShortText(t *testing.T) {
	text := "Hello, world."
	chunks := chunker.Split(text, 100)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("expected %q, got %q", text, chunks[0])
	}
}

func TestSplit_Unlimited(t *testing.T) {
	text := strings.Repeat("word. ", 500)
	chunks := chunker.Split(text, 0)
	if len(chunks) != 1 {
		t.Errorf("expected 1 chunk when maxBytes=0, got %d", len(chunks))
	}
}

func TestSplit_EmptyText(t *testing.T) {
	if chunks := chunker.Split("", 100); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %v", chunks)
	}
	if chunks := chunker.Split("   \n ", 100); len(chunks) != 0 {
		t.Errorf("expected no chunks for blank text, got %v", chunks)
	}
}

func TestSplit_NoPeriodGainsOne(t *testing.T) {
	chunks := chunker.Split("no terminator here", 100)
	if len(chunks) != 1 || chunks[0] != "no terminator here." {
		t.Errorf("unexpected chunks: %q", chunks)
	}
}

func TestSplit_SentenceBoundary(t *testing.T) {
	text := "First sentence ends here. Second sentence follows. Third sentence."
	chunks := chunker.Split(text, 40)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	want := []string{"First sentence ends here.", "Second sentence follows.", "Third sentence."}
	for i, c := range chunks {
		if c != want[i] {
			t.Errorf("chunk %d: expected %q, got %q", i, want[i], c)
		}
	}
}

func TestSplit_GreedyAccumulation(t *testing.T) {
	text := "A b. C d. E f. G h."
	chunks := chunker.Split(text, 10)
	// "A b. C d." is 9 bytes; adding " E f." would make 14.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "A b. C d." {
		t.Errorf("unexpected first chunk %q", chunks[0])
	}
	if chunks[1] != "E f. G h." {
		t.Errorf("unexpected second chunk %q", chunks[1])
	}
}

func TestSplit_RespectsByteLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	const max = 512
	chunks := chunker.Split(sb.String(), max)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > max {
			t.Errorf("chunk %d is %d bytes, limit %d", i, len(c), max)
		}
		if c != strings.TrimSpace(c) {
			t.Errorf("chunk %d has leading/trailing whitespace: %q", i, c)
		}
	}
}

func TestSplit_CountsBytesNotRunes(t *testing.T) {
	// Each "あいう." is 10 bytes but only 4 runes.
	text := "あいう. あいう. あいう."
	chunks := chunker.Split(text, 12)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	for i, c := range chunks {
		if len(c) > 12 {
			t.Errorf("chunk %d exceeds byte limit: %d", i, len(c))
		}
	}
}

func TestSplit_OversizedSentenceKeptWhole(t *testing.T) {
	long := strings.Repeat("x", 300)
	text := "Short one. " + long + ". Tail."
	chunks := chunker.Split(text, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1] != long+"." {
		t.Errorf("oversized sentence should be emitted whole, got %d bytes", len(chunks[1]))
	}
	if !chunker.Oversized(chunks[1], 100) {
		t.Error("expected Oversized to report the long chunk")
	}
	if chunker.Oversized(chunks[0], 100) {
		t.Error("short chunk reported as oversized")
	}
}

func TestSplit_PreservesContent(t *testing.T) {
	original := "The quick brown fox jumps over the lazy dog. " +
		"Pack my box with five dozen liquor jugs. " +
		"How vexingly quick daft zebras jump."
	chunks := chunker.Split(original, 50)
	rejoined := strings.Join(chunks, " ")

	strip := func(s string) string {
		return strings.Join(strings.Fields(s), "")
	}
	if strip(rejoined) != strip(original) {
		t.Errorf("non-whitespace content changed:\n got %q\nwant %q", rejoined, original)
	}
	if strings.Count(rejoined, ".") != strings.Count(original, ".") {
		t.Errorf("period count changed: got %d, want %d",
			strings.Count(rejoined, "."), strings.Count(original, "."))
	}
}
