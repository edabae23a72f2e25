package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// nonDigitRegex matches everything a card number may be formatted with.
var nonDigitRegex = regexp.MustCompile(`\D+`)

// panRegex matches digit runs long enough to be a card number, allowing spaces or dashes between groups.
var panRegex = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)

// DigitsOnly strips spaces, dashes and anything else that is not a digit.
func DigitsOnly(s string) string {
	return nonDigitRegex.ReplaceAllString(s, "")
}

// Last4 returns the last four digits of a card number.
func Last4(cardNumber string) string {
	digits := DigitsOnly(cardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// MaskCardNumber hides every digit but the last four.
func MaskCardNumber(cardNumber string) string {
	digits := DigitsOnly(cardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
}

// MaskCardNumbers masks every card-number-like digit run found in free text.
func MaskCardNumbers(text string) string {
	return panRegex.ReplaceAllStringFunc(text, MaskCardNumber)
}

// PadMonth renders a month the way the expiry select lists it ("03").
func PadMonth(month int) string {
	return fmt.Sprintf("%02d", month)
}
