// Package calc sums delimited integer lists.
//
// Input is either a list using the default separators (',' and '\n'), or a
// list preceded by a header of the form "//<sep>\n" that declares a single
// custom separator rune. Tokens greater than MaxValue count as zero; any
// negative token fails the whole calculation.
package calc

import (
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/tally/internal/errors"
)

// CustomHeaderPrefix marks input that declares its own separator.
const CustomHeaderPrefix = "//"

// MaxValue is the largest token that contributes to the sum.
const MaxValue = 1000

// DefaultSeparators are used when no custom header is present.
var DefaultSeparators = []rune{',', '\n'}

// Add returns the sum of the numbers in input.
// Errors are *errors.TallyError with one of the calculation codes.
func Add(input string) (int64, error) {
	if strings.HasPrefix(input, CustomHeaderPrefix) {
		return addCustom(input)
	}
	return addDefault(input)
}

// addCustom handles "//<sep>\n<body>".
func addCustom(input string) (int64, error) {
	sep, body, err := ParseHeader(input)
	if err != nil {
		return 0, err
	}
	return sum(body, []rune{sep})
}

func addDefault(input string) (int64, error) {
	return sum(input, DefaultSeparators)
}

// ParseHeader splits custom-separator input into its separator and body.
// The header must be exactly "//", one separator rune, then '\n'.
func ParseHeader(input string) (rune, string, error) {
	rest, ok := strings.CutPrefix(input, CustomHeaderPrefix)
	if !ok {
		return 0, "", errors.NewInvalidInput("missing custom separator header")
	}
	if rest == "" {
		return 0, "", errors.NewInvalidInput("custom separator header is missing the separator")
	}
	sep, size := utf8.DecodeRuneInString(rest)
	body, ok := strings.CutPrefix(rest[size:], "\n")
	if !ok {
		return 0, "", errors.NewInvalidInput("custom separator header must end with a newline")
	}
	return sep, body, nil
}

func sum(text string, seps []rune) (int64, error) {
	if err := CheckConsecutiveSeparators(text, seps); err != nil {
		return 0, err
	}
	numbers, err := Tokenize(text, seps)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, n := range numbers {
		total += n
	}
	return total, nil
}
