package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBackendService_Name(t *testing.T) {
	svc := NewBackendService("", 0)

	if svc.Name() != "backend" {
		t.Errorf("expected 'backend', got %q", svc.Name())
	}
	if svc.baseURL != "http://localhost:5000" {
		t.Errorf("unexpected default base URL %q", svc.baseURL)
	}
}

func TestBackendService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/translate" {
			t.Errorf("expected /api/translate, got %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body["text"] != "moving fast" {
			t.Errorf("unexpected text %q", body["text"])
		}
		json.NewEncoder(w).Encode(map[string]string{"translated_text": "速い、迅速な"})
	}))
	defer server.Close()

	svc := NewBackendService(server.URL+"/", time.Second)

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "moving fast"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "速い、迅速な" {
		t.Errorf("unexpected translation %q", result.TranslatedText)
	}
	if result.Error != "" {
		t.Errorf("unexpected result error %q", result.Error)
	}
}

func TestBackendService_Translate_StructuredError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "quota exceeded"})
	}))
	defer server.Close()

	svc := NewBackendService(server.URL, time.Second)

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
	if svcErr.Message != "quota exceeded" {
		t.Errorf("expected verbatim message, got %q", svcErr.Message)
	}
	if result == nil || result.Error != "quota exceeded" {
		t.Errorf("expected error in result, got %+v", result)
	}
}

func TestBackendService_Translate_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	svc := NewBackendService(server.URL, time.Second)

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello"})
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		t.Error("malformed body must not be reported as a service error")
	}
	if result == nil || result.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestBackendService_Translate_MissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	svc := NewBackendService(server.URL, time.Second)

	if _, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "Hello"}); err == nil {
		t.Error("expected error when translated_text is missing")
	}
}

func TestMyMemoryService_Name(t *testing.T) {
	svc := NewMyMemoryService("")

	if svc.Name() != "mymemory" {
		t.Errorf("expected 'mymemory', got %q", svc.Name())
	}
}

func TestMyMemoryService_Translate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get" {
			t.Errorf("expected /get, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("langpair"); got != "en|ja" {
			t.Errorf("expected langpair en|ja, got %q", got)
		}
		if got := r.URL.Query().Get("de"); got != "me@example.com" {
			t.Errorf("expected email param, got %q", got)
		}
		w.Write([]byte(`{"responseData":{"translatedText":"速い","match":0.9},"responseStatus":200,"responseDetails":""}`))
	}))
	defer server.Close()

	svc := NewMyMemoryService("me@example.com")
	svc.baseURL = server.URL

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "fast"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "速い" {
		t.Errorf("unexpected translation %q", result.TranslatedText)
	}
}

func TestMyMemoryService_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"responseData":{"translatedText":""},"responseStatus":"403","responseDetails":"DAILY LIMIT EXCEEDED"}`))
	}))
	defer server.Close()

	svc := NewMyMemoryService("")
	svc.baseURL = server.URL

	_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "fast"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
	if svcErr.Message != "DAILY LIMIT EXCEEDED" {
		t.Errorf("unexpected message %q", svcErr.Message)
	}
}

func TestOllamaTranslator_Translate_CleansOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("expected /api/generate, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"response": "<think>word means fast</think>Translation: 「速い」",
		})
	}))
	defer server.Close()

	svc := NewOllamaTranslator(server.URL, "test-model")

	result, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "fast"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "速い" {
		t.Errorf("expected cleaned translation, got %q", result.TranslatedText)
	}
	if result.Metadata["model"] != "test-model" {
		t.Errorf("expected model metadata, got %v", result.Metadata)
	}
}

func TestOllamaTranslator_Translate_ModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "model not found"})
	}))
	defer server.Close()

	svc := NewOllamaTranslator(server.URL, "")

	_, err := svc.Translate(context.Background(), ServiceConfig{}, TranslateRequest{Text: "fast"})
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
}

func TestOllamaTranslator_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := NewOllamaTranslator(server.URL, "").IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_KnownAndUnknown(t *testing.T) {
	for _, name := range ServiceNames {
		svc, err := New(name, ServiceConfig{})
		if err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
			continue
		}
		if svc.Name() != name {
			t.Errorf("New(%q) returned service named %q", name, svc.Name())
		}
	}

	if _, err := New("babelfish", ServiceConfig{}); err == nil {
		t.Error("expected error for unknown service")
	}
}
