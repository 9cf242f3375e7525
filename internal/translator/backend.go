package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BackendService talks to the lexipop translation backend:
//
//	POST {baseURL}/api/translate  {"text": "..."}
//	→ {"translated_text": "..."} or {"error": "..."}
//
// The backend decides the language pair; SourceLang/TargetLang of the
// request are not sent.
type BackendService struct {
	baseURL string
	client  *http.Client
}

func NewBackendService(baseURL string, timeout time.Duration) *BackendService {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BackendService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *BackendService) Name() string {
	return "backend"
}

// backendResponse is the body of /api/translate for both outcomes.
type backendResponse struct {
	TranslatedText *string `json:"translated_text,omitempty"`
	Error          string  `json:"error,omitempty"`
}

func (s *BackendService) Translate(ctx context.Context, cfg ServiceConfig, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	jsonData, err := json.Marshal(map[string]string{"text": req.Text})
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	baseURL := s.baseURL
	if cfg.BaseURL != "" {
		baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/translate", bytes.NewReader(jsonData))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read response: %v", err)
		return result, err
	}

	var payload backendResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		result.Error = fmt.Sprintf("failed to decode response (status %d): %v", resp.StatusCode, err)
		return result, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if payload.Error != "" {
		result.Error = payload.Error
		return result, &ServiceError{Service: s.Name(), Message: payload.Error}
	}

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Sprintf("API returned status %d", resp.StatusCode)
		return result, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if payload.TranslatedText == nil {
		result.Error = "response has no translated_text"
		return result, fmt.Errorf("response has no translated_text")
	}

	result.TranslatedText = *payload.TranslatedText
	return result, nil
}

func (s *BackendService) IsAvailable(ctx context.Context) error {
	return nil
}
