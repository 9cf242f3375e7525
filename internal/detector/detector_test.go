package detector

import (
	"testing"
)

func TestDetector_DetectISO(t *testing.T) {
	d := New()

	tests := []struct {
		name     string
		text     string
		wantLang string
		wantOK   bool
	}{
		{
			name:   "empty text",
			text:   "",
			wantOK: false,
		},
		{
			name:   "whitespace only",
			text:   "   ",
			wantOK: false,
		},
		{
			name:     "english definition",
			text:     "Moving or able to move at high speed.",
			wantLang: "en",
			wantOK:   true,
		},
		{
			name:     "japanese definition",
			text:     "高速で動く、または動くことができる。",
			wantLang: "ja",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, ok := d.DetectISO(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("DetectISO(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && lang != tt.wantLang {
				t.Errorf("DetectISO(%q) = %q, want %q", tt.text, lang, tt.wantLang)
			}
		})
	}
}
