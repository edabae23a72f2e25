package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlexFloat decodes from a JSON number or a numeric string such as "125.50".
type FlexFloat float64

// FlexInt decodes from a JSON number or a numeric string such as "03".
type FlexInt int

func (n *FlexFloat) UnmarshalJSON(b []byte) error {
	s, err := numberText(b)
	if err != nil || s == "" {
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	*n = FlexFloat(f)
	return nil
}

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s, err := numberText(b)
	if err != nil || s == "" {
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return fmt.Errorf("%q is not a whole number", s)
	}
	*n = FlexInt(f)
	return nil
}

// numberText unquotes b when it is a JSON string; null and "" yield "".
func numberText(b []byte) (string, error) {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return "", nil
	}
	if !strings.HasPrefix(raw, `"`) {
		return raw, nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}
