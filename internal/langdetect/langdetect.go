// Package langdetect identifies the natural language of scraped content.
package langdetect

import (
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// sampleRunes bounds how much text is examined.
const sampleRunes = 4000

var supported = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Polish,
	lingua.Russian,
	lingua.Ukrainian,
	lingua.Japanese,
	lingua.Chinese,
	lingua.Korean,
}

// Language is a detected language.
type Language struct {
	// Code is the lowercase ISO 639-1 code, e.g. "en".
	Code string
	// Name is the English name, e.g. "English".
	Name string
}

// Detector wraps a lingua detector restricted to common languages.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a Detector. Building loads language models lazily, so it is
// cheap until the first Detect call.
func New() *Detector {
	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(supported...).
			Build(),
	}
}

// Detect returns the most likely language of text. ok is false when text is
// blank or no language is reliable enough.
func (d *Detector) Detect(text string) (Language, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Language{}, false
	}
	if utf8.RuneCountInString(text) > sampleRunes {
		text = string([]rune(text)[:sampleRunes])
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return Language{}, false
	}
	return Language{
		Code: strings.ToLower(lang.IsoCode639_1().String()),
		Name: lang.String(),
	}, true
}
