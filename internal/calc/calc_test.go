package calc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/tally/internal/errors"
)

func TestAdd_Sums(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{name: "empty string", input: "", want: 0},
		{name: "single number", input: "1", want: 1},
		{name: "single zero", input: "0", want: 0},
		{name: "two numbers with space", input: "0, 1", want: 1},
		{name: "three numbers", input: "0, 1, 2", want: 3},
		{name: "four numbers", input: "0, 1, 2, 3", want: 6},
		{name: "newline separator", input: "1\n2,3", want: 6},
		{name: "explicit plus sign", input: "+4,5", want: 9},
		{name: "spaces around tokens", input: "  7 ,\t8  ", want: 15},
		{name: "custom semicolon", input: "//;\n1;2", want: 3},
		{name: "custom letter", input: "//h\n1h3", want: 4},
		{name: "custom newline", input: "//\n\n1\n4", want: 5},
		{name: "custom multibyte rune", input: "//é\n10é20", want: 30},
		{name: "custom empty body", input: "//;\n", want: 0},
		{name: "custom comma is only separator", input: "//,\n1,2", want: 3},
		{name: "above max becomes zero", input: "2,1001", want: 2},
		{name: "max stays", input: "1000,1", want: 1001},
		{name: "several above max", input: "0, 1, 2000, 1001", want: 1},
		{name: "custom above max", input: "//;\n1;2000", want: 1},
		{name: "int64 max becomes zero", input: "9223372036854775807,3", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdd_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.ErrorCode
	}{
		{name: "comma then newline at end", input: "1,\n", code: errors.ErrConsecutiveSeparators},
		{name: "comma then newline", input: "1,\n2", code: errors.ErrConsecutiveSeparators},
		{name: "newline then comma", input: "1\n,2", code: errors.ErrConsecutiveSeparators},
		{name: "separators split by spaces", input: "1, ,2", code: errors.ErrConsecutiveSeparators},
		{name: "trailing separator", input: "1,", code: errors.ErrConsecutiveSeparators},
		{name: "trailing separator then spaces", input: "1,  ", code: errors.ErrConsecutiveSeparators},
		{name: "custom doubled newline", input: "//\n\n1\n\n2", code: errors.ErrConsecutiveSeparators},
		{name: "custom trailing separator", input: "//;\n1;", code: errors.ErrConsecutiveSeparators},
		{name: "header only marker", input: "//", code: errors.ErrInvalidInput},
		{name: "header without newline", input: "//;", code: errors.ErrInvalidInput},
		{name: "header with wrong terminator", input: "//;X1;2", code: errors.ErrInvalidInput},
		{name: "letters", input: "1,a", code: errors.ErrNaN},
		{name: "leading separator", input: ",1", code: errors.ErrNaN},
		{name: "only spaces", input: "   ", code: errors.ErrNaN},
		{name: "float", input: "1.5,2", code: errors.ErrNaN},
		{name: "overflow", input: "9223372036854775808", code: errors.ErrNaN},
		{name: "default separator in custom body", input: "//;\n1,2", code: errors.ErrNaN},
		{name: "negative", input: "0, 1, 2, -3", code: errors.ErrHasNegative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Add(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "Add(%q) error = %v, want code %s", tt.input, err, tt.code)
		})
	}
}

func TestAdd_NegativesCarriedInOrder(t *testing.T) {
	tests := []struct {
		input string
		want  []int64
	}{
		{input: "//;\n1;2;-3", want: []int64{-3}},
		{input: "0, 1, 2, -3", want: []int64{-3}},
		{input: "0, 1, -2, -3", want: []int64{-2, -3}},
		{input: "-5,2000,-1,-5000", want: []int64{-5, -1, -5000}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Add(tt.input)
			tErr, ok := errors.As(err)
			require.True(t, ok, "expected TallyError, got %v", err)
			require.Equal(t, errors.ErrHasNegative, tErr.Code)
			assert.Equal(t, tt.want, tErr.Negatives)
		})
	}
}

func TestAdd_NaNBeforeNegative(t *testing.T) {
	_, err := Add("-1,x")
	assert.True(t, errors.Is(err, errors.ErrNaN))
}

func TestAdd_Idempotent(t *testing.T) {
	for _, input := range []string{"1,2,3", "//;\n4;5", "1,-2", "1,,2", "//"} {
		s1, err1 := Add(input)
		s2, err2 := Add(input)
		assert.Equal(t, s1, s2, input)
		assert.Equal(t, err1, err2, input)
	}
}

func TestAdd_Commutative(t *testing.T) {
	for a := int64(0); a < 1000; a += 37 {
		for b := int64(0); b < 1000; b += 41 {
			s1, err1 := Add(fmt.Sprintf("%d,%d", a, b))
			s2, err2 := Add(fmt.Sprintf("%d,%d", b, a))
			require.NoError(t, err1)
			require.NoError(t, err2)
			require.Equal(t, s1, s2)
			require.Equal(t, a+b, s1)
		}
	}
}

func TestParseHeader(t *testing.T) {
	sep, body, err := ParseHeader("//;\n1;2")
	require.NoError(t, err)
	assert.Equal(t, ';', sep)
	assert.Equal(t, "1;2", body)

	sep, body, err = ParseHeader("//\n\n1")
	require.NoError(t, err)
	assert.Equal(t, '\n', sep)
	assert.Equal(t, "1", body)

	_, _, err = ParseHeader("1,2")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestCheckConsecutiveSeparators(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		seps    []rune
		wantErr bool
	}{
		{name: "empty", text: "", seps: DefaultSeparators},
		{name: "plain list", text: "1,2\n3", seps: DefaultSeparators},
		{name: "leading separator allowed", text: ",1", seps: DefaultSeparators},
		{name: "spaces do not reset", text: "1 , , 2", seps: DefaultSeparators, wantErr: true},
		{name: "spaces do not trigger", text: "1   2", seps: DefaultSeparators},
		{name: "trailing", text: "1\n", seps: DefaultSeparators, wantErr: true},
		{name: "custom", text: "1;;2", seps: []rune{';'}, wantErr: true},
		{name: "custom ignores comma", text: "1,,2", seps: []rune{';'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConsecutiveSeparators(tt.text, tt.seps)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrConsecutiveSeparators))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got, err := Tokenize("", DefaultSeparators)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Tokenize(" 1 ,2\n 3000", DefaultSeparators)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 0}, got)

	_, err = Tokenize("1,,2", DefaultSeparators)
	assert.True(t, errors.Is(err, errors.ErrNaN))
}

func TestCollectNegatives(t *testing.T) {
	assert.Nil(t, CollectNegatives([]int64{0, 1, 2}))
	assert.Equal(t, []int64{-1, -4}, CollectNegatives([]int64{-1, 3, -4}))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []int64{1000, 0, 5, 0}, Normalize([]int64{1000, 1001, 5, 99999}))
}

func FuzzAdd(f *testing.F) {
	for _, seed := range []string{"", "1,2", "1,\n", "//;\n1;2", "//", "//\xff\n1\xff2", "-1,-2", "1,a"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		sum, err := Add(input)
		if err != nil {
			if _, ok := errors.As(err); !ok {
				t.Fatalf("Add(%q) returned unclassified error %v", input, err)
			}
			return
		}
		if sum < 0 {
			t.Fatalf("Add(%q) = %d, want non-negative", input, sum)
		}
	})
}
