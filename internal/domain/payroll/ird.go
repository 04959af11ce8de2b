package payroll

import (
	"fmt"
	"strings"

	"kiwipay/internal/platform/apperror"
)

const (
	irdMin = 10_000_000
	irdMax = 150_000_000
)

var (
	irdPrimaryWeights   = [8]int{3, 2, 7, 6, 5, 4, 3, 2}
	irdSecondaryWeights = [8]int{7, 4, 3, 2, 5, 2, 7, 6}
)

// NormalizeIRDNumber strips spaces and dashes and left-pads to nine digits.
func NormalizeIRDNumber(value string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(value))

	if len(digits) != 8 && len(digits) != 9 {
		return "", fmt.Errorf("ird number must have 8 or 9 digits: %w", apperror.ErrInvalidInput)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("ird number must be numeric: %w", apperror.ErrInvalidInput)
		}
	}
	if len(digits) == 8 {
		digits = "0" + digits
	}
	return digits, nil
}

// ValidateIRDNumber applies the Inland Revenue range and mod-11 check digit
// rules and returns the normalised nine-digit form.
func ValidateIRDNumber(value string) (string, error) {
	digits, err := NormalizeIRDNumber(value)
	if err != nil {
		return "", err
	}

	n := 0
	for _, r := range digits {
		n = n*10 + int(r-'0')
	}
	if n < irdMin || n > irdMax {
		return "", fmt.Errorf("ird number outside the issued range: %w", apperror.ErrInvalidInput)
	}

	base := digits[:8]
	check := int(digits[8] - '0')
	expected := irdCheckDigit(base, irdPrimaryWeights)
	if expected == 10 {
		expected = irdCheckDigit(base, irdSecondaryWeights)
	}
	if expected == 10 || expected != check {
		return "", fmt.Errorf("ird number check digit mismatch: %w", apperror.ErrInvalidInput)
	}
	return digits, nil
}

func irdCheckDigit(base string, weights [8]int) int {
	sum := 0
	for i := 0; i < 8; i++ {
		sum += int(base[i]-'0') * weights[i]
	}
	remainder := sum % 11
	if remainder == 0 {
		return 0
	}
	return 11 - remainder
}
