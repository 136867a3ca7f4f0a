package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// GenerateCardNumber generates a card number with the specified prefix and
// length. The last digit is a Luhn check digit.
func GenerateCardNumber(prefix string, length int) (string, error) {
	if length <= len(prefix) || length > 19 {
		return "", fmt.Errorf("invalid card number length: %d", length)
	}

	digits := make([]byte, length-len(prefix)-1)
	if _, err := rand.Read(digits); err != nil {
		return "", fmt.Errorf("failed to generate random digits: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(prefix)
	for _, b := range digits {
		builder.WriteByte(b%10 + '0')
	}

	partial := builder.String()
	builder.WriteByte(luhnCheckDigit(partial) + '0')

	return builder.String(), nil
}

// luhnCheckDigit computes the Luhn check digit for a partial number.
func luhnCheckDigit(partial string) byte {
	sum := 0
	double := true
	for i := len(partial) - 1; i >= 0; i-- {
		d := int(partial[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return byte((10 - sum%10) % 10)
}

// ValidLuhn reports whether number passes the Luhn checksum.
func ValidLuhn(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return len(number) > 0 && sum%10 == 0
}
