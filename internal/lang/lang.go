// Package lang detects the language of document text so prompts can ask for
// output in the same language.
package lang

import (
	"sync"

	"github.com/pemistahl/lingua-go"
)

// Language is a language the summarizers can write in.
type Language string

const (
	Japanese Language = "Japanese"
	English  Language = "English"
)

// sampleRunes bounds how much text is inspected.
const sampleRunes = 2000

var detector = sync.OnceValue(func() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.Japanese, lingua.English).
		Build()
})

// Detect returns the language of text. Text that cannot be classified is
// treated as Japanese, the language of the source material.
func Detect(text string) Language {
	runes := []rune(text)
	if len(runes) > sampleRunes {
		runes = runes[:sampleRunes]
	}
	if len(runes) == 0 {
		return Japanese
	}
	if language, ok := detector().DetectLanguageOf(string(runes)); ok && language == lingua.English {
		return English
	}
	return Japanese
}

// Instruction returns a prompt line asking for output in the language of text.
func Instruction(text string) string {
	return "Write your answer in " + string(Detect(text)) + "."
}
