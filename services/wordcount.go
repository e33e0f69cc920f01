package services

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// MinWords and MaxWords bound the prompt length accepted for generation.
	MinWords = 5
	MaxWords = 50
)

// CountWords counts whitespace-separated words after trimming. Empty or
// whitespace-only text counts as zero.
func CountWords(text string) int {
	return len(strings.Fields(strings.TrimSpace(text)))
}

// ValidText reports whether the prompt is within the accepted word range.
func ValidText(text string) bool {
	w := CountWords(text)
	return w >= MinWords && w <= MaxWords
}

// RegisterValidators installs the custom binding validators on gin's
// validator engine.
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("videotext", func(fl validator.FieldLevel) bool {
		return ValidText(fl.Field().String())
	})
}
