package utils

import (
	"log"
	"regexp"
	"strconv"
	"strings"
)

// amountRegex finds the first amount in a string.
// It handles integers (1,079), decimals (119.00), and commas.
var amountRegex = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// ParseAmount cleans an amount string and converts it to a float64.
// It handles strings like "Amount due: USD 1,219.41".
func ParseAmount(amountStr string) float64 {
	if amountStr == "" {
		return 0.0
	}

	found := amountRegex.FindString(amountStr)
	if found == "" {
		return 0.0
	}

	cleaned := strings.ReplaceAll(found, ",", "")

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		log.Printf("ParseAmount: Failed to parse '%s' from original string '%s': %v", cleaned, amountStr, err)
		return 0.0
	}

	return amount
}

// FormatAmount renders an amount the way the payment form expects it: two decimals, no grouping.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
