// Package resolver turns a single word into a list of Japanese definition
// candidates: dictionary definition first, the word's own translation when
// the dictionary has nothing, and a failure message otherwise.
package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/valpere/lexipop/internal/dictionary"
	"github.com/valpere/lexipop/internal/logging"
	"github.com/valpere/lexipop/internal/orchestrator"
	"github.com/valpere/lexipop/internal/translator"
)

const (
	// DirectTranslationPrefix marks candidates that are a translation of the
	// word itself rather than of a definition.
	DirectTranslationPrefix = "直接翻訳: "
	// MsgLookupFailed is the only candidate of a failed dictionary lookup.
	MsgLookupFailed = "定義の取得に失敗しました"
)

// Delimiters separate enumerated meanings in Japanese text.
var Delimiters = []string{"。", "、"}

// Kind tells which branch of the fallback chain produced a Resolution.
type Kind int

const (
	KindResolved Kind = iota
	KindDirectTranslation
	KindLookupFailed
)

func (k Kind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindDirectTranslation:
		return "direct-translation"
	case KindLookupFailed:
		return "lookup-failed"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of resolving one word. Candidates is never empty.
type Resolution struct {
	Word       string
	Kind       Kind
	Candidates []string
	// Definition is the source-language dictionary text, when there was one.
	Definition string
	// Reason describes the failure for KindLookupFailed.
	Reason string
}

// Failed reports whether the resolution carries an error message instead of
// definitions.
func (r Resolution) Failed() bool {
	return r.Kind == KindLookupFailed
}

// Clone returns a copy that does not share the Candidates slice.
func (r Resolution) Clone() Resolution {
	r.Candidates = append([]string(nil), r.Candidates...)
	return r
}

type Lookuper interface {
	Lookup(ctx context.Context, word string) (string, error)
}

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

type LanguageDetector interface {
	DetectISO(text string) (string, bool)
}

type Resolver struct {
	dict       Lookuper
	tr         Translator
	det        LanguageDetector
	targetLang string
	logger     zerolog.Logger
}

type Option func(*Resolver)

// WithDetector lets the resolver skip translating definitions that are
// already in the target language.
func WithDetector(det LanguageDetector) Option {
	return func(r *Resolver) { r.det = det }
}

func WithTargetLang(lang string) Option {
	return func(r *Resolver) { r.targetLang = lang }
}

func New(dict Lookuper, tr Translator, opts ...Option) *Resolver {
	r := &Resolver{
		dict:       dict,
		tr:         tr,
		targetLang: translator.TargetLang,
		logger:     logging.Component("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the fallback chain for word. It never fails; failures come
// back as a KindLookupFailed resolution with a displayable candidate.
func (r *Resolver) Resolve(ctx context.Context, word string) Resolution {
	def, err := r.dict.Lookup(ctx, word)
	switch {
	case err == nil && strings.TrimSpace(def) != "":
		return r.fromDefinition(ctx, word, def)
	case err == nil, errors.Is(err, dictionary.ErrNotFound):
		return r.directTranslation(ctx, word)
	default:
		r.logger.Warn().Err(err).Str("word", word).Msg("dictionary lookup failed")
		return failed(word, MsgLookupFailed, err)
	}
}

func (r *Resolver) fromDefinition(ctx context.Context, word, def string) Resolution {
	text := def
	if !r.inTargetLang(def) {
		translated, err := r.translate(ctx, def)
		if err != nil {
			r.logger.Warn().Err(err).Str("word", word).Msg("definition translation failed")
			return failed(word, orchestrator.DisplayError(err), err)
		}
		text = translated
	}

	return Resolution{
		Word:       word,
		Kind:       KindResolved,
		Candidates: SplitCandidates(text),
		Definition: def,
	}
}

func (r *Resolver) directTranslation(ctx context.Context, word string) Resolution {
	translated, err := r.translate(ctx, word)
	if err != nil {
		r.logger.Warn().Err(err).Str("word", word).Msg("direct translation failed")
		return failed(word, orchestrator.DisplayError(err), err)
	}

	candidates := SplitCandidates(translated)
	for i, c := range candidates {
		candidates[i] = DirectTranslationPrefix + c
	}
	r.logger.Debug().Str("word", word).Msg("no dictionary entry, using direct translation")

	return Resolution{
		Word:       word,
		Kind:       KindDirectTranslation,
		Candidates: dedupe(candidates),
	}
}

func (r *Resolver) translate(ctx context.Context, text string) (string, error) {
	translated, err := r.tr.Translate(ctx, text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(translated) == "" {
		return "", errors.New("empty translation")
	}
	return translated, nil
}

func (r *Resolver) inTargetLang(text string) bool {
	if r.det == nil {
		return false
	}
	lang, ok := r.det.DetectISO(text)
	return ok && lang == r.targetLang
}

func failed(word, message string, err error) Resolution {
	res := Resolution{
		Word:       word,
		Kind:       KindLookupFailed,
		Candidates: []string{message},
	}
	if err != nil {
		res.Reason = err.Error()
	}
	return res
}

// SplitCandidates cuts translated text on the Japanese enumeration
// delimiters, trims the pieces and drops empty and repeated ones. Text that
// yields no pieces comes back whole as the single candidate.
func SplitCandidates(text string) []string {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		for _, d := range Delimiters {
			if strings.ContainsRune(d, r) {
				return true
			}
		}
		return false
	})

	candidates := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			candidates = append(candidates, s)
		}
	}
	candidates = dedupe(candidates)

	if len(candidates) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return candidates
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
