// Package encoding provides Crockford base32, the text form of generated ids.
package encoding

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ErrInvalidCrockford is returned for input that is not Crockford base32.
var ErrInvalidCrockford = errors.New("invalid crockford base32")

//nolint:gochecknoglobals
var crockford = base32.NewEncoding(crockfordAlphabet).WithPadding(base32.NoPadding)

// EncodeCrockfordB32LC encodes input with Crockford's alphabet, unpadded and lowercase.
func EncodeCrockfordB32LC(input []byte) string {
	return strings.ToLower(crockford.EncodeToString(input))
}

// DecodeCrockfordB32LC normalizes input and decodes it.
func DecodeCrockfordB32LC(input string) ([]byte, error) {
	out, err := crockford.DecodeString(strings.ToUpper(NormalizeCrockfordB32LC(input)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCrockford, err)
	}

	return out, nil
}

// NormalizeCrockfordB32LC folds transcription variants into canonical lowercase:
// whitespace and hyphens are dropped, O reads as 0, I and L read as 1.
func NormalizeCrockfordB32LC(input string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '-':
			return -1
		case 'O', 'o':
			return '0'
		case 'I', 'i', 'L', 'l':
			return '1'
		}

		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}

		return r
	}, input)
}
