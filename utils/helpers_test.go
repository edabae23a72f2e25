package utils

import "testing"

func TestCardHelpers(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		last4  string
		masked string
	}{
		{"Plain", "4111111111111111", "1111", "************1111"},
		{"Spaced", "4111 1111 1111 1234", "1234", "************1234"},
		{"Dashed", "5500-0000-0000-0004", "0004", "************0004"},
		{"Short", "123", "123", "123"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Last4(tc.input); got != tc.last4 {
				t.Errorf("Last4(%q) = %q; want %q", tc.input, got, tc.last4)
			}
			if got := MaskCardNumber(tc.input); got != tc.masked {
				t.Errorf("MaskCardNumber(%q) = %q; want %q", tc.input, got, tc.masked)
			}
		})
	}
}

func TestMaskCardNumbers(t *testing.T) {
	in := "Card 4111 1111 1111 1111 charged for invoice 123456789"
	want := "Card ************1111 charged for invoice 123456789"
	if got := MaskCardNumbers(in); got != want {
		t.Errorf("MaskCardNumbers() = %q; want %q", got, want)
	}
}

func TestPadMonth(t *testing.T) {
	if got := PadMonth(3); got != "03" {
		t.Errorf("PadMonth(3) = %q", got)
	}
	if got := PadMonth(12); got != "12" {
		t.Errorf("PadMonth(12) = %q", got)
	}
}
