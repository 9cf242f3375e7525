package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valpere/lexipop/internal/translator"
)

type mockService struct {
	nameVal       string
	translateFunc func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error)
	callCount     atomic.Int32
}

func (m *mockService) Name() string { return m.nameVal }

func (m *mockService) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	m.callCount.Add(1)
	if m.translateFunc != nil {
		return m.translateFunc(ctx, cfg, req)
	}
	return &translator.ServiceResult{ServiceName: m.nameVal, TranslatedText: strings.ToUpper(req.Text)}, nil
}

func (m *mockService) IsAvailable(ctx context.Context) error { return nil }

// sentences builds text of at least size bytes out of repeated sentences.
func sentences(size int) string {
	var sb strings.Builder
	for sb.Len() < size {
		sb.WriteString("This is a fairly ordinary sentence for testing. ")
	}
	return sb.String()
}

func TestOrchestrator_New_Defaults(t *testing.T) {
	o := New(&mockService{nameVal: "mock"}, translator.ServiceConfig{}, OrchestratorConfig{})

	if o.config.MaxTextBytes != 128*1024 {
		t.Errorf("expected 128 KiB default limit, got %d", o.config.MaxTextBytes)
	}
	if o.config.Timeout <= 0 {
		t.Error("expected positive Timeout")
	}
	if o.config.SourceLang != "en" || o.config.TargetLang != "ja" {
		t.Errorf("unexpected default languages %s→%s", o.config.SourceLang, o.config.TargetLang)
	}
}

func TestOrchestrator_Translate_UnderLimitSingleCall(t *testing.T) {
	svc := &mockService{nameVal: "mock"}
	o := New(svc, translator.ServiceConfig{}, OrchestratorConfig{Timeout: 5 * time.Second})

	text := sentences(9 * 1024)
	got, err := o.Translate(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.callCount.Load() != 1 {
		t.Errorf("expected exactly 1 call, got %d", svc.callCount.Load())
	}
	if got != strings.ToUpper(text) {
		t.Error("under-limit text should be translated verbatim in one piece")
	}
}

func TestOrchestrator_Translate_OverLimitChunks(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			mu.Lock()
			sizes = append(sizes, len(req.Text))
			mu.Unlock()
			return &translator.ServiceResult{ServiceName: "mock", TranslatedText: req.Text}, nil
		},
	}
	o := New(svc, translator.ServiceConfig{}, OrchestratorConfig{Timeout: 5 * time.Second, MaxConcurrency: 4})

	text := sentences(140 * 1024)
	got, err := o.Translate(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.callCount.Load() < 2 {
		t.Errorf("expected ≥2 calls, got %d", svc.callCount.Load())
	}
	for _, n := range sizes {
		if n > 128*1024 {
			t.Errorf("chunk of %d bytes exceeds limit", n)
		}
	}
	if strings.Join(strings.Fields(got), " ") != strings.Join(strings.Fields(text), " ") {
		t.Error("identity translation should reassemble to the original words")
	}
}

func TestOrchestrator_Translate_PreservesOrder(t *testing.T) {
	// Chunk 0 is held back until the last chunk has completed.
	release := make(chan struct{})
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			switch req.Text {
			case "a1.":
				select {
				case <-release:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			case "d4.":
				defer close(release)
			}
			return &translator.ServiceResult{ServiceName: "mock", TranslatedText: strings.ToUpper(req.Text)}, nil
		},
	}
	o := New(svc, translator.ServiceConfig{}, OrchestratorConfig{Timeout: 5 * time.Second, MaxTextBytes: 5})

	got, err := o.Translate(context.Background(), "a1. b2. c3. d4.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "A1. B2. C3. D4." {
		t.Errorf("expected chunks joined in source order, got %q", got)
	}
	if svc.callCount.Load() != 4 {
		t.Errorf("expected 4 calls, got %d", svc.callCount.Load())
	}
}

func TestOrchestrator_Translate_ChunkFailureFailsWhole(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			if req.Text == "c3." {
				return nil, errors.New("connection reset")
			}
			return &translator.ServiceResult{ServiceName: "mock", TranslatedText: req.Text}, nil
		},
	}
	o := New(svc, translator.ServiceConfig{}, OrchestratorConfig{Timeout: 5 * time.Second, MaxTextBytes: 5})

	got, err := o.Translate(context.Background(), "a1. b2. c3. d4.")
	if err == nil {
		t.Fatal("expected error when one chunk fails")
	}
	if got != "" {
		t.Errorf("expected no partial result, got %q", got)
	}
	if msg := o.TranslateText(context.Background(), "a1. b2. c3. d4."); msg != MsgTranslationFailed {
		t.Errorf("expected generic failure message, got %q", msg)
	}
}

func TestOrchestrator_TranslateText_ServiceError(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			return &translator.ServiceResult{ServiceName: "mock", Error: "quota exceeded"},
				&translator.ServiceError{Service: "mock", Message: "quota exceeded"}
		},
	}
	o := New(svc, translator.ServiceConfig{}, OrchestratorConfig{Timeout: 5 * time.Second})

	if got := o.TranslateText(context.Background(), "Hello"); got != "エラー: quota exceeded" {
		t.Errorf("expected tagged service message, got %q", got)
	}
}

func TestOrchestrator_Translate_ResultErrorField(t *testing.T) {
	svc := &mockService{
		nameVal: "mock",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			return &translator.ServiceResult{ServiceName: "mock", Error: "empty"}, nil
		},
	}
	o := New(svc, translator.ServiceConfig{}, OrchestratorConfig{Timeout: 5 * time.Second})

	if _, err := o.Translate(context.Background(), "Hello"); err == nil {
		t.Error("expected error when result carries an error message")
	}
}

func TestOrchestrator_Translate_Timeout(t *testing.T) {
	svc := &mockService{
		nameVal: "slow",
		translateFunc: func(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	o := New(svc, translator.ServiceConfig{}, OrchestratorConfig{Timeout: 20 * time.Millisecond})

	_, err := o.Translate(context.Background(), "Hello")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if DisplayError(err) != MsgTranslationFailed {
		t.Errorf("timeout should display the generic message")
	}
}
