package calc

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/tally/internal/errors"
)

// CheckConsecutiveSeparators fails when two separators appear with only
// spaces between them, or when the text ends on a separator.
// A leading separator is not reported here.
func CheckConsecutiveSeparators(text string, seps []rune) error {
	lastWasSep := false
	for _, r := range text {
		if r == ' ' {
			continue
		}
		if !slices.Contains(seps, r) {
			lastWasSep = false
			continue
		}
		if lastWasSep {
			return errors.NewConsecutiveSeparators()
		}
		lastWasSep = true
	}
	if lastWasSep {
		return errors.NewConsecutiveSeparators()
	}
	return nil
}

// Tokenize parses text into numbers split on any rune in seps.
// Negative numbers fail with ErrHasNegative; numbers above MaxValue become 0.
func Tokenize(text string, seps []rune) ([]int64, error) {
	if text == "" {
		return []int64{}, nil
	}

	fields := split(text, seps)
	numbers := make([]int64, 0, len(fields))
	for _, field := range fields {
		token := strings.TrimSpace(field)
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return nil, errors.NewNaN(token)
		}
		numbers = append(numbers, n)
	}

	if negatives := CollectNegatives(numbers); len(negatives) > 0 {
		return nil, errors.NewHasNegative(negatives)
	}
	return Normalize(numbers), nil
}

// split cuts text at every separator rune. Adjacent separators yield empty fields.
func split(text string, seps []rune) []string {
	var fields []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if slices.Contains(seps, r) {
			fields = append(fields, text[start:i])
			start = i + size
		}
		i += size
	}
	return append(fields, text[start:])
}

// CollectNegatives returns every negative number in order, or nil.
func CollectNegatives(numbers []int64) []int64 {
	var negatives []int64
	for _, n := range numbers {
		if n < 0 {
			negatives = append(negatives, n)
		}
	}
	return negatives
}

// Normalize replaces every number above MaxValue with 0, in place.
func Normalize(numbers []int64) []int64 {
	for i, n := range numbers {
		if n > MaxValue {
			numbers[i] = 0
		}
	}
	return numbers
}
