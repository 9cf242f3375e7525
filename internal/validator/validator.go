// Package validator checks that a translation came back in the language it
// was requested in.
package validator

import (
	"errors"
	"fmt"
	"strings"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

var ErrEmpty = errors.New("translation is empty")

// MismatchError reports a translation detected in another language.
type MismatchError struct {
	Expected string
	Detected string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %s but detected %s", e.Expected, e.Detected)
}

// LanguageDetector is satisfied by *detector.Detector.
type LanguageDetector interface {
	DetectISO(text string) (string, bool)
}

type Validator struct {
	det LanguageDetector
}

func New(det LanguageDetector) *Validator {
	return &Validator{det: det}
}

// Check returns nil when translated looks like targetLang. Short texts and
// texts whose language cannot be determined pass.
func (v *Validator) Check(translated, targetLang string) error {
	text := strings.TrimSpace(translated)
	if text == "" {
		return ErrEmpty
	}
	if targetLang == "" || len([]rune(text)) < minValidationLength {
		return nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return nil
	}

	if !strings.EqualFold(detected, targetLang) {
		return &MismatchError{Expected: targetLang, Detected: detected}
	}
	return nil
}
