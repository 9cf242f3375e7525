// Package server is the lexipop backend: it answers translation requests
// through an upstream translation service and serves stored transcripts.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/lexipop/internal/logging"
	"github.com/valpere/lexipop/internal/transcript"
	"github.com/valpere/lexipop/internal/translator"
	"github.com/valpere/lexipop/internal/validator"
)

// maxRequestBytes bounds a translate request body. Clients chunk text well
// below this.
const maxRequestBytes = 1 << 20

type Server struct {
	httpServer  *http.Server
	listener    net.Listener
	addr        string
	service     translator.TranslationService
	svcCfg      translator.ServiceConfig
	transcripts transcript.Provider
	sourceLang  string
	targetLang  string
	validator   *validator.Validator
	logger      zerolog.Logger
}

type Option func(*Server)

// WithValidator rejects upstream translations that come back in another
// language than the target.
func WithValidator(v *validator.Validator) Option {
	return func(s *Server) { s.validator = v }
}

func New(addr string, service translator.TranslationService, svcCfg translator.ServiceConfig, transcripts transcript.Provider, opts ...Option) *Server {
	s := &Server{
		addr:        addr,
		service:     service,
		svcCfg:      svcCfg,
		transcripts: transcripts,
		sourceLang:  translator.SourceLang,
		targetLang:  translator.TargetLang,
		logger:      logging.Component("server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the API routes wrapped in request logging and CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/translate", s.handleTranslate)
	mux.HandleFunc("GET /api/transcript", s.handleTranscript)
	mux.HandleFunc("OPTIONS /api/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return s.logRequests(cors(mux))
}

func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listener = listener

	s.logger.Info().
		Str("addr", listener.Addr().String()).
		Str("service", s.service.Name()).
		Msg("starting backend server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("backend server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down backend server")
	return s.httpServer.Shutdown(ctx)
}

type translateRequest struct {
	Text string `json:"text"`
}

type translateResponse struct {
	TranslatedText *string `json:"translated_text,omitempty"`
	Error          string  `json:"error,omitempty"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, translateResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, translateResponse{Error: "No text provided"})
		return
	}

	res, err := s.service.Translate(r.Context(), s.svcCfg, translator.TranslateRequest{
		Text:       req.Text,
		SourceLang: s.sourceLang,
		TargetLang: s.targetLang,
	})
	if err != nil || res == nil || res.Error != "" {
		msg := upstreamMessage(res, err)
		s.logger.Warn().Err(err).Str("service", s.service.Name()).Msg("upstream translation failed")
		writeJSON(w, http.StatusBadGateway, translateResponse{Error: msg})
		return
	}

	if s.validator != nil {
		if err := s.validator.Check(res.TranslatedText, s.targetLang); err != nil {
			s.logger.Warn().Err(err).Str("service", s.service.Name()).Msg("upstream translation rejected")
			writeJSON(w, http.StatusBadGateway, translateResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, translateResponse{TranslatedText: &res.TranslatedText})
}

func upstreamMessage(res *translator.ServiceResult, err error) string {
	var svcErr *translator.ServiceError
	switch {
	case errors.As(err, &svcErr):
		return svcErr.Message
	case res != nil && res.Error != "":
		return res.Error
	case err != nil:
		return err.Error()
	default:
		return "translation service returned no result"
	}
}

type transcriptResponse struct {
	Transcript any `json:"transcript"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No video ID provided"})
		return
	}

	entries, err := s.transcripts.Transcript(r.Context(), videoID)
	if err != nil {
		s.logger.Debug().Err(err).Str("video_id", videoID).Msg("no transcript")
		writeJSON(w, http.StatusOK, transcriptResponse{Transcript: transcript.Message(err)})
		return
	}

	writeJSON(w, http.StatusOK, transcriptResponse{Transcript: entries})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}
