// Package orchestrator translates text of any size through a single
// translation service. Text over the payload limit is cut into chunks that
// are translated in parallel and joined back in their original order.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/lexipop/internal/chunker"
	"github.com/valpere/lexipop/internal/logging"
	"github.com/valpere/lexipop/internal/translator"
)

// Messages shown in place of a translation that could not be produced.
const (
	MsgTranslationFailed = "翻訳に失敗しました"
	errorTag             = "エラー"
)

type OrchestratorConfig struct {
	// Timeout bounds each call to the service.
	Timeout time.Duration
	// MaxTextBytes is the largest text sent in one call. Default: chunker.DefaultMaxBytes.
	MaxTextBytes int
	// MaxConcurrency caps parallel chunk calls; ≤ 0 means unlimited.
	MaxConcurrency int
	SourceLang     string
	TargetLang     string
}

type Orchestrator struct {
	service translator.TranslationService
	svcCfg  translator.ServiceConfig
	config  OrchestratorConfig
	logger  zerolog.Logger
}

func New(service translator.TranslationService, svcCfg translator.ServiceConfig, config OrchestratorConfig) *Orchestrator {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxTextBytes <= 0 {
		config.MaxTextBytes = chunker.DefaultMaxBytes
	}
	if config.SourceLang == "" {
		config.SourceLang = translator.SourceLang
	}
	if config.TargetLang == "" {
		config.TargetLang = translator.TargetLang
	}
	return &Orchestrator{
		service: service,
		svcCfg:  svcCfg,
		config:  config,
		logger:  logging.Component("orchestrator"),
	}
}

// Translate returns the translation of text. Any failed chunk fails the whole
// call; partial results are never joined.
func (o *Orchestrator) Translate(ctx context.Context, text string) (string, error) {
	if len(text) <= o.config.MaxTextBytes {
		return o.translateChunk(ctx, 0, text)
	}

	chunks := chunker.Split(text, o.config.MaxTextBytes)
	o.logger.Debug().
		Int("bytes", len(text)).
		Int("chunks", len(chunks)).
		Msg("text over payload limit, translating in chunks")

	results := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	if o.config.MaxConcurrency > 0 {
		g.SetLimit(o.config.MaxConcurrency)
	}

	for i, chunk := range chunks {
		if chunker.Oversized(chunk, o.config.MaxTextBytes) {
			o.logger.Warn().Int("chunk", i).Int("bytes", len(chunk)).Msg("sentence exceeds payload limit, sending as-is")
		}
		g.Go(func() error {
			translated, err := o.translateChunk(gctx, i, chunk)
			if err != nil {
				return err
			}
			results[i] = translated
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.Join(results, " "), nil
}

// TranslateText is Translate for display: on failure it returns the
// user-facing error message instead of an error.
func (o *Orchestrator) TranslateText(ctx context.Context, text string) string {
	translated, err := o.Translate(ctx, text)
	if err != nil {
		o.logger.Warn().Err(err).Msg("translation failed")
		return DisplayError(err)
	}
	return translated
}

func (o *Orchestrator) translateChunk(ctx context.Context, index int, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	res, err := o.service.Translate(callCtx, o.svcCfg, translator.TranslateRequest{
		Text:       text,
		SourceLang: o.config.SourceLang,
		TargetLang: o.config.TargetLang,
	})
	if err != nil {
		return "", fmt.Errorf("chunk %d: %w", index, err)
	}
	if res == nil {
		return "", fmt.Errorf("chunk %d: %s returned no result", index, o.service.Name())
	}
	if res.Error != "" {
		return "", fmt.Errorf("chunk %d: %s: %s", index, res.ServiceName, res.Error)
	}

	o.logger.Debug().Int("chunk", index).Dur("latency", res.Latency).Msg("chunk translated")
	return res.TranslatedText, nil
}

// DisplayError turns a translation failure into the message shown to the
// user. Errors the service described itself are shown verbatim behind an
// "エラー" tag; everything else gets the generic failure message.
func DisplayError(err error) string {
	var svcErr *translator.ServiceError
	if errors.As(err, &svcErr) {
		return fmt.Sprintf("%s: %s", errorTag, svcErr.Message)
	}
	return MsgTranslationFailed
}
