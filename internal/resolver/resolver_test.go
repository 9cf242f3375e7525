package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/lexipop/internal/dictionary"
	"github.com/valpere/lexipop/internal/orchestrator"
	"github.com/valpere/lexipop/internal/translator"
)

type fakeDict struct {
	lookup func(word string) (string, error)
	calls  atomic.Int32
}

func (f *fakeDict) Lookup(ctx context.Context, word string) (string, error) {
	f.calls.Add(1)
	return f.lookup(word)
}

type fakeTranslator struct {
	translations map[string]string
	err          error
	calls        atomic.Int32
}

func (f *fakeTranslator) Translate(ctx context.Context, text string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.translations[text], nil
}

type fakeDetector string

func (d fakeDetector) DetectISO(text string) (string, bool) { return string(d), d != "" }

func TestResolve_DictionaryDefinition(t *testing.T) {
	dict := &fakeDict{lookup: func(string) (string, error) { return "moving fast", nil }}
	tr := &fakeTranslator{translations: map[string]string{"moving fast": "速い、迅速な"}}

	res := New(dict, tr).Resolve(context.Background(), "quick")

	assert.Equal(t, KindResolved, res.Kind)
	assert.Equal(t, []string{"速い", "迅速な"}, res.Candidates)
	assert.Equal(t, "moving fast", res.Definition)
	assert.False(t, res.Failed())
}

func TestResolve_NotFoundFallsBackToDirectTranslation(t *testing.T) {
	dict := &fakeDict{lookup: func(string) (string, error) { return "", dictionary.ErrNotFound }}
	tr := &fakeTranslator{translations: map[string]string{"xyzzyword": "ジズィワード"}}

	res := New(dict, tr).Resolve(context.Background(), "xyzzyword")

	assert.Equal(t, KindDirectTranslation, res.Kind)
	assert.Equal(t, []string{"直接翻訳: ジズィワード"}, res.Candidates)
}

func TestResolve_EmptyDefinitionFallsBack(t *testing.T) {
	dict := &fakeDict{lookup: func(string) (string, error) { return "", nil }}
	tr := &fakeTranslator{translations: map[string]string{"fox,": "キツネ"}}

	res := New(dict, tr).Resolve(context.Background(), "fox,")

	assert.Equal(t, KindDirectTranslation, res.Kind)
	assert.Equal(t, []string{"直接翻訳: キツネ"}, res.Candidates)
}

func TestResolve_DirectTranslationPrefixesEveryCandidate(t *testing.T) {
	dict := &fakeDict{lookup: func(string) (string, error) { return "", dictionary.ErrNotFound }}
	tr := &fakeTranslator{translations: map[string]string{"brisk": "きびきびした、活発な"}}

	res := New(dict, tr).Resolve(context.Background(), "brisk")

	assert.Equal(t, []string{"直接翻訳: きびきびした", "直接翻訳: 活発な"}, res.Candidates)
}

func TestResolve_LookupFailureIsNotRetried(t *testing.T) {
	dict := &fakeDict{lookup: func(string) (string, error) { return "", errors.New("dictionary returned status 503") }}
	tr := &fakeTranslator{}

	res := New(dict, tr).Resolve(context.Background(), "quick")

	assert.Equal(t, KindLookupFailed, res.Kind)
	assert.Equal(t, []string{MsgLookupFailed}, res.Candidates)
	assert.Contains(t, res.Reason, "503")
	assert.Equal(t, int32(1), dict.calls.Load())
	assert.Equal(t, int32(0), tr.calls.Load(), "no translation after a failed lookup")
}

func TestResolve_TranslationFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"service error shown verbatim", &translator.ServiceError{Service: "backend", Message: "quota exceeded"}, "エラー: quota exceeded"},
		{"transport error generic", errors.New("connection refused"), orchestrator.MsgTranslationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dict := &fakeDict{lookup: func(string) (string, error) { return "moving fast", nil }}
			tr := &fakeTranslator{err: tt.err}

			res := New(dict, tr).Resolve(context.Background(), "quick")

			assert.Equal(t, KindLookupFailed, res.Kind)
			assert.Equal(t, []string{tt.want}, res.Candidates)
		})
	}
}

func TestResolve_EmptyTranslationIsFailure(t *testing.T) {
	dict := &fakeDict{lookup: func(string) (string, error) { return "", dictionary.ErrNotFound }}
	tr := &fakeTranslator{translations: map[string]string{}}

	res := New(dict, tr).Resolve(context.Background(), "zzz")

	assert.Equal(t, KindLookupFailed, res.Kind)
	require.Len(t, res.Candidates, 1)
	assert.NotEmpty(t, res.Candidates[0])
}

func TestResolve_SkipsTranslationForTargetLanguageDefinition(t *testing.T) {
	dict := &fakeDict{lookup: func(string) (string, error) { return "速いこと。迅速", nil }}
	tr := &fakeTranslator{}

	res := New(dict, tr, WithDetector(fakeDetector("ja"))).Resolve(context.Background(), "quick")

	assert.Equal(t, KindResolved, res.Kind)
	assert.Equal(t, []string{"速いこと", "迅速"}, res.Candidates)
	assert.Equal(t, int32(0), tr.calls.Load())
}

func TestResolve_TranslatesSourceLanguageDefinition(t *testing.T) {
	dict := &fakeDict{lookup: func(string) (string, error) { return "moving fast", nil }}
	tr := &fakeTranslator{translations: map[string]string{"moving fast": "速い"}}

	res := New(dict, tr, WithDetector(fakeDetector("en"))).Resolve(context.Background(), "quick")

	assert.Equal(t, []string{"速い"}, res.Candidates)
	assert.Equal(t, int32(1), tr.calls.Load())
}

func TestSplitCandidates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "速い", []string{"速い"}},
		{"comma", "速い、迅速な", []string{"速い", "迅速な"}},
		{"period and comma", "速く動く。迅速な、素早い。", []string{"速く動く", "迅速な", "素早い"}},
		{"trims and drops empties", " 速い 、、 迅速な 。", []string{"速い", "迅速な"}},
		{"dedupes in order", "速い、迅速な、速い", []string{"速い", "迅速な"}},
		{"only delimiters falls back to raw", "。、", []string{"。、"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitCandidates(tt.text))
		})
	}
}

func TestResolution_CloneDoesNotShare(t *testing.T) {
	res := Resolution{Candidates: []string{"速い"}}
	clone := res.Clone()
	clone.Candidates[0] = "changed"

	assert.Equal(t, "速い", res.Candidates[0])
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "resolved", KindResolved.String())
	assert.Equal(t, "direct-translation", KindDirectTranslation.String())
	assert.Equal(t, "lookup-failed", KindLookupFailed.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
